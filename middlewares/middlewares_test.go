package middlewares

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jansarthi-be/models"
	"jansarthi-be/observability"
	"jansarthi-be/store/memstore"
	"jansarthi-be/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func detail(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Detail
}

type authFixture struct {
	router *gin.Engine
	tokens *utils.TokenIssuer
	store  *memstore.Store
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		router: gin.New(),
		tokens: utils.NewTokenIssuer("test-secret", time.Hour, 24*time.Hour),
		store:  memstore.New(),
	}
	auth := AuthMiddleware(f.tokens, f.store)
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"id": CurrentUser(c).ID}) }
	f.router.GET("/me", auth, ok)
	f.router.GET("/verified", auth, RequireVerified(), ok)
	f.router.GET("/pwd", auth, RequireRole(models.RolePWDWorker, "PWD Worker privileges required"), ok)
	return f
}

func (f *authFixture) user(t *testing.T, u models.User) (*models.User, string) {
	t.Helper()
	require.NoError(t, f.store.CreateUser(context.Background(), &u))
	token, err := f.tokens.Generate(u.ID, u.MobileNumber, utils.AccessToken)
	require.NoError(t, err)
	return &u, token
}

func (f *authFixture) get(path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	f := newAuthFixture(t)
	_, token := f.user(t, models.User{Name: "Asha", MobileNumber: "+919800000001", Role: models.RoleUser, IsActive: true, IsVerified: true})

	w := f.get("/me", token)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.get("/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Not authenticated", detail(t, w))
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

	w = f.get("/me", "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Could not validate credentials", detail(t, w))
}

func TestAuthMiddleware_RefreshTokenRejected(t *testing.T) {
	f := newAuthFixture(t)
	u, _ := f.user(t, models.User{Name: "Asha", MobileNumber: "+919800000001", Role: models.RoleUser, IsActive: true})
	refresh, err := f.tokens.Generate(u.ID, u.MobileNumber, utils.RefreshToken)
	require.NoError(t, err)

	w := f.get("/me", refresh)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid token type. Expected access", detail(t, w))
}

func TestAuthMiddleware_InactiveAndUnverified(t *testing.T) {
	f := newAuthFixture(t)
	_, inactive := f.user(t, models.User{Name: "Old", MobileNumber: "+919800000001", Role: models.RoleUser})
	_, unverified := f.user(t, models.User{Name: "New", MobileNumber: "+919800000002", Role: models.RoleUser, IsActive: true})

	w := f.get("/me", inactive)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "User account is inactive", detail(t, w))

	w = f.get("/verified", unverified)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Please verify your account first", detail(t, w))
}

func TestAuthMiddleware_UnknownUser(t *testing.T) {
	f := newAuthFixture(t)
	token, err := f.tokens.Generate(99, "+919800000009", utils.AccessToken)
	require.NoError(t, err)

	w := f.get("/me", token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	f := newAuthFixture(t)
	_, citizen := f.user(t, models.User{Name: "Asha", MobileNumber: "+919800000001", Role: models.RoleUser, IsActive: true, IsVerified: true})
	_, worker := f.user(t, models.User{Name: "PWD", MobileNumber: "+919800000002", Role: models.RolePWDWorker, IsActive: true, IsVerified: true})

	w := f.get("/pwd", citizen)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "PWD Worker privileges required", detail(t, w))

	assert.Equal(t, http.StatusOK, f.get("/pwd", worker).Code)
}

func TestReportRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	r := gin.New()
	r.POST("/reports", func(c *gin.Context) {
		c.Set(userKey, &models.User{ID: 42})
		c.Next()
	}, ReportRateLimiter(rdb, 2), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	post := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/reports", nil))
		return w
	}

	assert.Equal(t, http.StatusCreated, post().Code)
	assert.Equal(t, http.StatusCreated, post().Code)

	w := post()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Daily report limit of 2 reached. Please try again later.", detail(t, w))
	assert.Equal(t, "86400", w.Header().Get("Retry-After"))

	mr.FastForward(24 * time.Hour)
	assert.Equal(t, http.StatusCreated, post().Code)
}

func TestReportRateLimiter_Disabled(t *testing.T) {
	r := gin.New()
	r.POST("/reports", ReportRateLimiter(nil, 1), func(c *gin.Context) { c.Status(http.StatusCreated) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/reports", nil))
		assert.Equal(t, http.StatusCreated, w.Code)
	}
}

func TestRequestLoggerAndMetrics(t *testing.T) {
	m := observability.NewMetrics(prometheus.NewRegistry())
	r := gin.New()
	r.Use(RequestLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))), Metrics(m))
	r.GET("/api/reports/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/reports/7", nil))

	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/reports/:id", "4xx")))

	req := httptest.NewRequest(http.MethodGet, "/api/reports/8", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://app.jansarthi.in"}))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://app.jansarthi.in")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://app.jansarthi.in", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCORS_AllowAll(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"*"}))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://anything.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
