package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	"jansarthi-be/models"
	"jansarthi-be/utils"
)

// Auth

func (c *Client) Signup(ctx context.Context, name, mobile string) (*models.OTPResponse, error) {
	var out models.OTPResponse
	err := c.sendJSON(ctx, http.MethodPost, "/api/auth/signup", map[string]string{"name": name, "mobile_number": mobile}, false, &out)
	return &out, err
}

func (c *Client) Login(ctx context.Context, mobile string) (*models.OTPResponse, error) {
	var out models.OTPResponse
	err := c.sendJSON(ctx, http.MethodPost, "/api/auth/login", map[string]string{"mobile_number": mobile}, false, &out)
	return &out, err
}

func (c *Client) ResendOTP(ctx context.Context, mobile string) (*models.OTPResponse, error) {
	var out models.OTPResponse
	err := c.sendJSON(ctx, http.MethodPost, "/api/auth/resend-otp", map[string]string{"mobile_number": mobile}, false, &out)
	return &out, err
}

// VerifyOTP exchanges the code for a token pair and stores the session.
// The number is normalised the same way the server stores it.
func (c *Client) VerifyOTP(ctx context.Context, mobile, code string) (*models.TokenResponse, error) {
	var out models.TokenResponse
	in := map[string]string{"mobile_number": utils.NormalizePhone(mobile), "otp_code": code}
	if err := c.sendJSON(ctx, http.MethodPost, "/api/auth/verify-otp", in, false, &out); err != nil {
		return nil, err
	}
	if err := c.saveTokens(out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me fetches the current user and refreshes the cached copy.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.get(ctx, "/api/auth/me", nil, true, &u); err != nil {
		return nil, err
	}
	s, err := c.Tokens.Load()
	if err == nil && s.LoggedIn() {
		s.User = &u
		_ = c.Tokens.Save(s)
	}
	return &u, nil
}

func (c *Client) Logout() error { return c.Tokens.Clear() }

// Reports

// Photo is a file to attach to a report or proof update.
type Photo struct {
	Filename    string
	ContentType string
	Data        io.Reader
}

type NewReport struct {
	IssueType   models.IssueType
	Description string
	Latitude    float64
	Longitude   float64
	WardID      *int
	WardName    string
	Photos      []Photo
}

func multipartPayload(fields [][2]string, photos []Photo) (*payload, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, err
		}
	}
	for _, p := range photos {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photos"; filename=%q`, p.Filename))
		h.Set("Content-Type", p.ContentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(part, p.Data); err != nil {
			return nil, fmt.Errorf("read %s: %w", p.Filename, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return &payload{contentType: w.FormDataContentType(), data: buf.Bytes()}, nil
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func (c *Client) CreateReport(ctx context.Context, r NewReport) (*models.IssueResponse, error) {
	fields := [][2]string{
		{"issue_type", string(r.IssueType)},
		{"description", r.Description},
		{"latitude", formatFloat(r.Latitude)},
		{"longitude", formatFloat(r.Longitude)},
	}
	if r.WardID != nil {
		fields = append(fields, [2]string{"ward_id", strconv.Itoa(*r.WardID)})
	}
	if r.WardName != "" {
		fields = append(fields, [2]string{"ward_name", r.WardName})
	}
	body, err := multipartPayload(fields, r.Photos)
	if err != nil {
		return nil, err
	}
	var out models.IssueResponse
	if err := c.do(ctx, request{method: http.MethodPost, path: "/api/reports", body: body, auth: true}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListParams are the paging and filter parameters shared by list calls.
// Zero values are left to the server defaults.
type ListParams struct {
	Page      int
	PageSize  int
	IssueType models.IssueType
	Status    models.IssueStatus
}

func (p ListParams) values() url.Values {
	v := url.Values{}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(p.PageSize))
	}
	if p.IssueType != "" {
		v.Set("issue_type", string(p.IssueType))
	}
	if p.Status != "" {
		v.Set("status", string(p.Status))
	}
	return v
}

func (c *Client) MyReports(ctx context.Context, p ListParams) (*models.Page[models.IssueResponse], error) {
	var out models.Page[models.IssueResponse]
	err := c.get(ctx, "/api/reports", p.values(), true, &out)
	return &out, err
}

func (c *Client) Report(ctx context.Context, id int64) (*models.IssueResponse, error) {
	var out models.IssueResponse
	err := c.get(ctx, fmt.Sprintf("/api/reports/%d", id), nil, false, &out)
	return &out, err
}

type MapQuery struct {
	Latitude  float64
	Longitude float64
	RadiusKM  float64
	IssueType models.IssueType
	Status    models.IssueStatus
}

func (c *Client) MapReports(ctx context.Context, q MapQuery) ([]models.IssueMapItem, error) {
	v := ListParams{IssueType: q.IssueType, Status: q.Status}.values()
	v.Set("latitude", formatFloat(q.Latitude))
	v.Set("longitude", formatFloat(q.Longitude))
	if q.RadiusKM > 0 {
		v.Set("radius", formatFloat(q.RadiusKM))
	}
	var out []models.IssueMapItem
	err := c.get(ctx, "/api/reports/map", v, false, &out)
	return out, err
}

// Wards

type WardList struct {
	Items []Ward `json:"items"`
	Total int    `json:"total"`
}

type Ward struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	NameHindi   string  `json:"name_hindi"`
	ParshadName string  `json:"parshad_name"`
	Address     string  `json:"address"`
	Phone       *string `json:"phone"`
	MapURL      string  `json:"map_url"`
}

func (c *Client) Wards(ctx context.Context, search string) (*WardList, error) {
	v := url.Values{}
	if search != "" {
		v.Set("search", search)
	}
	var out WardList
	err := c.get(ctx, "/api/wards", v, false, &out)
	return &out, err
}

// PWD

func (c *Client) PWDDashboard(ctx context.Context) (*models.PWDDashboard, error) {
	var out models.PWDDashboard
	err := c.get(ctx, "/api/pwd/dashboard", nil, true, &out)
	return &out, err
}

func (c *Client) PWDIssues(ctx context.Context, p ListParams, search string) (*models.Page[models.AdminIssueResponse], error) {
	v := p.values()
	if search != "" {
		v.Set("search", search)
	}
	var out models.Page[models.AdminIssueResponse]
	err := c.get(ctx, "/api/pwd/issues", v, true, &out)
	return &out, err
}

func (c *Client) AssignIssue(ctx context.Context, issueID, parshadID int64, notes string) (*models.AdminIssueResponse, error) {
	in := map[string]interface{}{"parshad_id": parshadID}
	if notes != "" {
		in["assignment_notes"] = notes
	}
	var out models.AdminIssueResponse
	err := c.sendJSON(ctx, http.MethodPost, fmt.Sprintf("/api/pwd/issues/%d/assign", issueID), in, true, &out)
	return &out, err
}

type NewParshad struct {
	Name         string   `json:"name"`
	MobileNumber string   `json:"mobile_number"`
	VillageName  *string  `json:"village_name,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
}

func (c *Client) CreateParshad(ctx context.Context, p NewParshad) (*models.AdminUserResponse, error) {
	var out models.AdminUserResponse
	err := c.sendJSON(ctx, http.MethodPost, "/api/pwd/parshads", p, true, &out)
	return &out, err
}

func (c *Client) Parshads(ctx context.Context, search string) (*models.ParshadList, error) {
	v := url.Values{}
	if search != "" {
		v.Set("search", search)
	}
	var out models.ParshadList
	err := c.get(ctx, "/api/pwd/parshads", v, true, &out)
	return &out, err
}

// Parshad

func (c *Client) ParshadDashboard(ctx context.Context) (*models.ParshadDashboard, error) {
	var out models.ParshadDashboard
	err := c.get(ctx, "/api/parshad/dashboard", nil, true, &out)
	return &out, err
}

func (c *Client) AssignedIssues(ctx context.Context, p ListParams) (*models.Page[models.AdminIssueResponse], error) {
	var out models.Page[models.AdminIssueResponse]
	err := c.get(ctx, "/api/parshad/issues", p.values(), true, &out)
	return &out, err
}

func (c *Client) parshadStep(ctx context.Context, issueID int64, step, notes string) (*models.AdminIssueResponse, error) {
	r := request{method: http.MethodPost, path: fmt.Sprintf("/api/parshad/issues/%d/%s", issueID, step), auth: true}
	if notes != "" {
		r.query = url.Values{"notes": {notes}}
	}
	var out models.AdminIssueResponse
	if err := c.do(ctx, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Acknowledge(ctx context.Context, issueID int64) (*models.AdminIssueResponse, error) {
	return c.parshadStep(ctx, issueID, "acknowledge", "")
}

func (c *Client) StartWork(ctx context.Context, issueID int64, notes string) (*models.AdminIssueResponse, error) {
	return c.parshadStep(ctx, issueID, "start-work", notes)
}

func (c *Client) CompleteWork(ctx context.Context, issueID int64, notes string) (*models.AdminIssueResponse, error) {
	return c.parshadStep(ctx, issueID, "complete", notes)
}

func (c *Client) UpdateStatus(ctx context.Context, issueID int64, status models.IssueStatus, notes string) (*models.AdminIssueResponse, error) {
	in := map[string]string{"status": string(status), "progress_notes": notes}
	var out models.AdminIssueResponse
	err := c.sendJSON(ctx, http.MethodPatch, fmt.Sprintf("/api/parshad/issues/%d/status", issueID), in, true, &out)
	return &out, err
}

// UpdateWithPhotos moves the issue to status and attaches proof photos.
func (c *Client) UpdateWithPhotos(ctx context.Context, issueID int64, status models.IssueStatus, notes string, photos []Photo) (*models.AdminIssueResponse, error) {
	body, err := multipartPayload([][2]string{{"status", string(status)}, {"progress_notes", notes}}, photos)
	if err != nil {
		return nil, err
	}
	var out models.AdminIssueResponse
	r := request{method: http.MethodPost, path: fmt.Sprintf("/api/parshad/issues/%d/update-with-photos", issueID), body: body, auth: true}
	if err := c.do(ctx, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Clusters

func (c *Client) FindParshad(ctx context.Context, lat, lon float64) (*models.ParshadLookupResponse, error) {
	v := url.Values{"latitude": {formatFloat(lat)}, "longitude": {formatFloat(lon)}}
	var out models.ParshadLookupResponse
	err := c.get(ctx, "/api/clusters/find-parshad", v, false, &out)
	return &out, err
}

func (c *Client) RunClustering(ctx context.Context, minClusterSize int, epsMeters float64) (*models.ClusteringRunResponse, error) {
	in := map[string]interface{}{"algorithm": "dbscan"}
	if minClusterSize > 0 {
		in["min_cluster_size"] = minClusterSize
	}
	if epsMeters > 0 {
		in["eps_meters"] = epsMeters
	}
	var out models.ClusteringRunResponse
	err := c.sendJSON(ctx, http.MethodPost, "/api/clusters/run-clustering", in, true, &out)
	return &out, err
}
