package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jansarthi-be/models"
)

// fakeAPI accepts only the access token it handed out last.
type fakeAPI struct {
	mu        sync.Mutex
	valid     string
	refreshes int32
	refreshOK bool
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.refreshes, 1)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if !f.refreshOK || body["refresh_token"] != "refresh-1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Could not validate credentials"}`)
			return
		}
		// Give concurrent callers time to pile up on the mutex.
		time.Sleep(20 * time.Millisecond)
		f.mu.Lock()
		f.valid = "access-2"
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(models.TokenResponse{
			AccessToken:  "access-2",
			RefreshToken: "refresh-1",
			TokenType:    "bearer",
			User:         models.User{ID: 7, Name: "Asha"},
		})
	})
	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		ok := r.Header.Get("Authorization") == "Bearer "+f.valid
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Could not validate credentials"}`)
			return
		}
		_ = json.NewEncoder(w).Encode(models.User{ID: 7, Name: "Asha"})
	})
	return mux
}

func newTestClient(t *testing.T, api *fakeAPI) (*Client, *MemoryStore) {
	t.Helper()
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)
	store := &MemoryStore{}
	require.NoError(t, store.Save(Session{AccessToken: "access-1", RefreshToken: "refresh-1"}))
	return New(srv.URL, store), store
}

func TestRefreshOnceAndRetry(t *testing.T) {
	api := &fakeAPI{valid: "nothing-yet", refreshOK: true}
	c, store := newTestClient(t, api)

	u, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Asha", u.Name)
	assert.EqualValues(t, 1, atomic.LoadInt32(&api.refreshes))

	s, _ := store.Load()
	assert.Equal(t, "access-2", s.AccessToken)
	require.NotNil(t, s.User)
	assert.Equal(t, int64(7), s.User.ID)
}

func TestConcurrentUnauthorizedRefreshesOnce(t *testing.T) {
	api := &fakeAPI{valid: "nothing-yet", refreshOK: true}
	c, _ := newTestClient(t, api)

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Me(context.Background())
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&api.refreshes))
}

func TestFailedRefreshClearsSession(t *testing.T) {
	api := &fakeAPI{valid: "nothing-yet", refreshOK: false}
	c, store := newTestClient(t, api)

	_, err := c.Me(context.Background())
	assert.ErrorIs(t, err, ErrSessionExpired)
	s, _ := store.Load()
	assert.False(t, s.LoggedIn())
}

func TestVerifyOTPSavesSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "/api/auth/verify-otp", r.URL.Path)
		assert.Equal(t, "+919876543210", body["mobile_number"])
		_ = json.NewEncoder(w).Encode(models.TokenResponse{AccessToken: "a", RefreshToken: "r", User: models.User{ID: 9}})
	}))
	defer srv.Close()

	store := &MemoryStore{}
	_, err := New(srv.URL, store).VerifyOTP(context.Background(), "98765 43210", "123456")
	require.NoError(t, err)
	s, _ := store.Load()
	assert.True(t, s.LoggedIn())
	assert.Equal(t, int64(9), s.User.ID)
}

func TestAPIErrorCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"Issue with id 5 not found"}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil).Report(context.Background(), 5)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
	assert.Equal(t, "Issue with id 5 not found", err.Error())
}

func TestCreateReportSendsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		assert.Equal(t, "road", r.FormValue("issue_type"))
		assert.Equal(t, "30.3165", r.FormValue("latitude"))
		assert.Equal(t, "4", r.FormValue("ward_id"))
		files := r.MultipartForm.File["photos"]
		require.Len(t, files, 1)
		assert.Equal(t, "image/png", files[0].Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(models.IssueResponse{ID: 11, IssueType: models.Road, Status: models.StatusReported})
	}))
	defer srv.Close()

	store := &MemoryStore{}
	require.NoError(t, store.Save(Session{AccessToken: "access-1"}))
	ward := 4
	resp, err := New(srv.URL, store).CreateReport(context.Background(), NewReport{
		IssueType:   models.Road,
		Description: "Pothole on the main road",
		Latitude:    30.3165,
		Longitude:   78.0322,
		WardID:      &ward,
		Photos:      []Photo{{Filename: "hole.png", ContentType: "image/png", Data: strings.NewReader("png")}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), resp.ID)
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"string body", 400, `"plain failure"`, "plain failure"},
		{"detail string", 400, `{"detail":"Issue not found"}`, "Issue not found"},
		{"detail list", 422, `{"detail":[{"loc":["body","mobile_number"],"msg":"Invalid mobile number format"},{"loc":["query","page",0],"msg":"bad"}]}`,
			"body.mobile_number: Invalid mobile number format, query.page.0: bad"},
		{"detail list missing parts", 422, `{"detail":[{}]}`, "unknown: validation error"},
		{"detail object", 400, `{"detail":{"code":7}}`, `{"code":7}`},
		{"message", 500, `{"message":"boom"}`, "boom"},
		{"empty detail falls through", 500, `{"detail":"","message":"boom"}`, "boom"},
		{"whole body", 500, `{"error":"x"}`, `{"error":"x"}`},
		{"not json", 502, `<html>bad gateway</html>`, "Request failed with status 502"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorMessage(tt.status, []byte(tt.body)))
		})
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	fs := &FileStore{Path: path}

	s, err := fs.Load()
	require.NoError(t, err)
	assert.False(t, s.LoggedIn())

	require.NoError(t, fs.Save(Session{AccessToken: "a", RefreshToken: "r", User: &models.User{ID: 3}}))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	s, err = fs.Load()
	require.NoError(t, err)
	assert.Equal(t, "r", s.RefreshToken)
	assert.Equal(t, int64(3), s.User.ID)

	require.NoError(t, fs.Clear())
	require.NoError(t, fs.Clear())
	s, err = fs.Load()
	require.NoError(t, err)
	assert.False(t, s.LoggedIn())
}
