package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const nominatimUserAgent = "Jansarthi-API/1.0 (https://jansarthi.in)"

// ErrNoGeocodeResult is returned when the geocoder knows no match.
var ErrNoGeocodeResult = errors.New("geocode: no result")

type Geocoder interface {
	Geocode(ctx context.Context, q AddressQuery) (lat, lon float64, err error)
	Reverse(ctx context.Context, lat, lon float64) (*ReverseResult, error)
}

type AddressQuery struct {
	Address string
	City    string
	State   string
	Country string
}

func (q AddressQuery) String() string {
	parts := []string{q.Address}
	for _, p := range []string{q.City, q.State, q.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

type ReverseResult struct {
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address"`
}

// Nominatim talks to an OpenStreetMap Nominatim server.
type Nominatim struct {
	BaseURL string
	Client  *http.Client
}

func NewNominatim(baseURL string) *Nominatim {
	return &Nominatim{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *Nominatim) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", nominatimUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.Client.Do(req)
	if err != nil {
		return fmt.Errorf("nominatim %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("nominatim %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("nominatim %s: decode: %w", path, err)
	}
	return nil
}

func (n *Nominatim) Geocode(ctx context.Context, q AddressQuery) (float64, float64, error) {
	params := url.Values{}
	params.Set("q", q.String())
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("addressdetails", "1")

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := n.get(ctx, "/search", params, &results); err != nil {
		return 0, 0, err
	}
	if len(results) == 0 {
		return 0, 0, ErrNoGeocodeResult
	}
	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("nominatim: bad lat %q", results[0].Lat)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("nominatim: bad lon %q", results[0].Lon)
	}
	return lat, lon, nil
}

func (n *Nominatim) Reverse(ctx context.Context, lat, lon float64) (*ReverseResult, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("format", "json")
	params.Set("addressdetails", "1")

	var raw struct {
		DisplayName string                 `json:"display_name"`
		Address     map[string]interface{} `json:"address"`
		Error       string                 `json:"error"`
	}
	if err := n.get(ctx, "/reverse", params, &raw); err != nil {
		return nil, err
	}
	if raw.Error != "" || raw.DisplayName == "" {
		return nil, ErrNoGeocodeResult
	}
	res := &ReverseResult{DisplayName: raw.DisplayName, Address: map[string]string{}}
	for k, v := range raw.Address {
		res.Address[k] = fmt.Sprint(v)
	}
	return res, nil
}
