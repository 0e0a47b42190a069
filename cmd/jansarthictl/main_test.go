package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jansarthi-be/client"
	"jansarthi-be/models"
	"jansarthi-be/store/memstore"
)

func TestSeedPWDWorker(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	now := time.Date(2024, 6, 12, 9, 30, 0, 0, time.UTC)

	u, created, err := seedPWDWorker(ctx, st, "  Ravi Kumar ", "98765 43210", now)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Ravi Kumar", u.Name)
	assert.Equal(t, "+919876543210", u.MobileNumber)
	assert.Equal(t, models.RolePWDWorker, u.Role)
	assert.True(t, u.IsActive)
	assert.True(t, u.IsVerified)

	citizen := &models.User{Name: "Meena", MobileNumber: "+919812345678", Role: models.RoleUser}
	require.NoError(t, st.CreateUser(ctx, citizen))
	u, created, err = seedPWDWorker(ctx, st, "Meena", "+919812345678", now)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, citizen.ID, u.ID)
	stored, err := st.GetUser(ctx, citizen.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RolePWDWorker, stored.Role)
	assert.True(t, stored.IsVerified)

	_, _, err = seedPWDWorker(ctx, st, "Nobody", "012345", now)
	assert.ErrorIs(t, err, errInvalidMobile)
	_, _, err = seedPWDWorker(ctx, st, " ", "9876543210", now)
	assert.Error(t, err)
}

func TestReadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "config.yaml")
	cfg, err := readConfig(path)
	require.NoError(t, err)
	assert.Equal(t, client.DefaultBaseURL, cfg.BaseURL)
	_, err = os.Stat(path)
	require.NoError(t, err, "default config is written on first run")

	require.NoError(t, os.WriteFile(path, []byte("base_url: http://api.example:9000\n"), 0644))
	cfg, err = readConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://api.example:9000", cfg.BaseURL)
	assert.Equal(t, "jansarthi", cfg.MongoDatabase, "unset keys keep defaults")

	require.NoError(t, os.WriteFile(path, []byte("base_url: [\n"), 0644))
	_, err = readConfig(path)
	assert.Error(t, err)
}

func TestPrintTracker(t *testing.T) {
	var buf bytes.Buffer
	printTracker(&buf, models.StatusParshadCheck)
	assert.Equal(t, "[x] Reported  [x] Assigned  [ ] In Progress  [ ] Completed\n", buf.String())
}

func TestPrintMap(t *testing.T) {
	var buf bytes.Buffer
	printMap(&buf, []models.IssueMapItem{
		{ID: 1, IssueType: models.Water, Status: models.StatusReported, Latitude: 30.3, Longitude: 78.0},
		{ID: 2, IssueType: models.Road, Status: models.StatusAssigned, Latitude: 30.4, Longitude: 78.1},
	})
	out := buf.String()
	assert.Contains(t, out, "#0DCAF0")
	assert.Contains(t, out, "Bounds: 30.30000,78.00000 to 30.40000,78.10000")

	buf.Reset()
	printMap(&buf, nil)
	assert.Contains(t, buf.String(), "centre on 30.3165, 78.0322")
}

func execute(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	api = client.New(srv.URL, &client.MemoryStore{})
	t.Cleanup(func() { api = nil })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "config.yaml")}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestWardsCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/wards", r.URL.Path)
		assert.Equal(t, "rajpur", r.URL.Query().Get("search"))
		phone := "9876543210"
		_ = json.NewEncoder(w).Encode(client.WardList{
			Items: []client.Ward{{ID: 4, Name: "Rajpur", NameHindi: "राजपुर", ParshadName: "Sunita Devi", Phone: &phone}},
			Total: 1,
		})
	}))
	defer srv.Close()

	out, err := execute(t, srv, "wards", "rajpur")
	require.NoError(t, err)
	assert.Contains(t, out, "Sunita Devi")
	assert.Contains(t, out, "+91 98765 43210")
	assert.Contains(t, out, "1 wards")
}

func TestParshadStartCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/parshad/issues/5/start-work", r.URL.Path)
		assert.Equal(t, "crew on site", r.URL.Query().Get("notes"))
		_ = json.NewEncoder(w).Encode(models.AdminIssueResponse{
			IssueResponse: models.IssueResponse{ID: 5, Status: models.StatusStartedWorking},
		})
	}))
	defer srv.Close()

	out, err := execute(t, srv, "parshad", "start", "5", "--notes", "crew on site")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Issue #5 is now In Progress.", lines[0])
	assert.Equal(t, "[x] Reported  [x] Assigned  [x] In Progress  [ ] Completed", lines[1])
}

func TestCommandSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Issue with id 99 not found"}`))
	}))
	defer srv.Close()

	_, err := execute(t, srv, "reports", "show", "99")
	require.Error(t, err)
	assert.Equal(t, "Issue with id 99 not found", err.Error())

	_, err = execute(t, srv, "reports", "show", "abc")
	assert.EqualError(t, err, `invalid id "abc"`)
}
