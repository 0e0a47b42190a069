// Package client is a Go SDK for the Jansarthi API. It keeps the session in
// a TokenStore and transparently refreshes an expired access token once
// before giving up.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"jansarthi-be/models"
)

const DefaultBaseURL = "http://localhost:8080"

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Tokens  TokenStore

	refreshMu sync.Mutex
}

// New returns a client for baseURL. A nil store keeps the session in memory.
func New(baseURL string, tokens TokenStore) *Client {
	if tokens == nil {
		tokens = &MemoryStore{}
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		Tokens:  tokens,
	}
}

// payload is a request body that can be replayed for the retry after a
// refresh.
type payload struct {
	contentType string
	data        []byte
}

func jsonPayload(v interface{}) (*payload, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return &payload{contentType: "application/json", data: data}, nil
}

type request struct {
	method string
	path   string
	query  url.Values
	body   *payload
	auth   bool
}

func (c *Client) send(ctx context.Context, r request, token string) (*http.Response, error) {
	u := c.BaseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body.data)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return nil, err
	}
	if r.body != nil {
		req.Header.Set("Content-Type", r.body.contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.HTTP.Do(req)
}

// do performs the request and decodes a 2xx body into out. An
// authenticated request that gets 401 triggers one refresh and one retry.
func (c *Client) do(ctx context.Context, r request, out interface{}) error {
	var token string
	if r.auth {
		s, err := c.Tokens.Load()
		if err != nil {
			return err
		}
		token = s.AccessToken
	}

	resp, err := c.send(ctx, r, token)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized && r.auth {
		drain(resp)
		fresh, err := c.refresh(ctx, token)
		if err != nil {
			return err
		}
		if resp, err = c.send(ctx, r, fresh); err != nil {
			return err
		}
	}
	return decodeResponse(resp, out)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func decodeResponse(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: ErrorMessage(resp.StatusCode, data), Body: data}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// refresh exchanges the refresh token for a new pair. stale is the access
// token that was rejected; if another goroutine already replaced it the new
// one is returned without a second round trip.
func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	s, err := c.Tokens.Load()
	if err != nil {
		return "", err
	}
	if s.AccessToken != "" && s.AccessToken != stale {
		return s.AccessToken, nil
	}
	if s.RefreshToken == "" {
		_ = c.Tokens.Clear()
		return "", ErrSessionExpired
	}

	body, err := jsonPayload(map[string]string{"refresh_token": s.RefreshToken})
	if err != nil {
		return "", err
	}
	resp, err := c.send(ctx, request{method: http.MethodPost, path: "/api/auth/refresh", body: body}, "")
	if err != nil {
		return "", err
	}
	var tokens models.TokenResponse
	if err := decodeResponse(resp, &tokens); err != nil {
		_ = c.Tokens.Clear()
		return "", ErrSessionExpired
	}
	if err := c.saveTokens(tokens); err != nil {
		return "", err
	}
	return tokens.AccessToken, nil
}

func (c *Client) saveTokens(t models.TokenResponse) error {
	user := t.User
	return c.Tokens.Save(Session{AccessToken: t.AccessToken, RefreshToken: t.RefreshToken, User: &user})
}

func (c *Client) get(ctx context.Context, path string, query url.Values, auth bool, out interface{}) error {
	return c.do(ctx, request{method: http.MethodGet, path: path, query: query, auth: auth}, out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in interface{}, auth bool, out interface{}) error {
	var body *payload
	if in != nil {
		var err error
		if body, err = jsonPayload(in); err != nil {
			return err
		}
	}
	return c.do(ctx, request{method: method, path: path, body: body, auth: auth}, out)
}
