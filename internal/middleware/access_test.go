package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursepass-api/internal/models"
	"github.com/noah-isme/coursepass-api/internal/service"
)

func newTokens(t *testing.T) *service.TokenService {
	t.Helper()
	tokens, err := service.NewTokenService(service.TokenConfig{Secret: "mw-secret", Expiration: time.Hour})
	require.NoError(t, err)
	return tokens
}

func newRouter(tokens *service.TokenService, table PolicyTable) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Authenticate(tokens), Authorize(table, ""))
	ok := func(c *gin.Context) {
		p := PrincipalFrom(c)
		c.JSON(http.StatusOK, gin.H{"subject": p.Subject, "role": p.Role})
	}
	r.GET("/open", ok)
	r.GET("/me", ok)
	r.POST("/admin-only", ok)
	r.GET("/unlisted", ok)
	return r
}

func testTable() PolicyTable {
	return PolicyTable{
		{http.MethodGet, "/open"}:        public("open"),
		{http.MethodGet, "/me"}:          {Kind: PolicyAuthenticated},
		{http.MethodPost, "/admin-only"}: roles("admins", models.RoleAdmin, models.RoleSuperAdmin),
	}
}

func do(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuthorizeEnforcesPolicies(t *testing.T) {
	tokens := newTokens(t)
	r := newRouter(tokens, testTable())

	adminToken, _, err := tokens.Issue("alice", models.RoleAdmin)
	require.NoError(t, err)
	studentToken, _, err := tokens.Issue("s1", models.RoleStudent)
	require.NoError(t, err)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"public without token", http.MethodGet, "/open", "", http.StatusOK},
		{"public with garbage token", http.MethodGet, "/open", "garbage", http.StatusOK},
		{"authenticated without token", http.MethodGet, "/me", "", http.StatusUnauthorized},
		{"authenticated with invalid token", http.MethodGet, "/me", "garbage", http.StatusUnauthorized},
		{"authenticated student", http.MethodGet, "/me", studentToken, http.StatusOK},
		{"role without token", http.MethodPost, "/admin-only", "", http.StatusForbidden},
		{"role mismatch", http.MethodPost, "/admin-only", studentToken, http.StatusForbidden},
		{"role match", http.MethodPost, "/admin-only", adminToken, http.StatusOK},
		{"route without policy", http.MethodGet, "/unlisted", adminToken, http.StatusForbidden},
		{"unknown route", http.MethodGet, "/missing", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(r, tc.method, tc.path, tc.token)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
}

func TestAuthenticateRejectsForeignSignature(t *testing.T) {
	other, err := service.NewTokenService(service.TokenConfig{Secret: "other", Expiration: time.Hour})
	require.NoError(t, err)
	forged, _, err := other.Issue("root", models.RoleSuperAdmin)
	require.NoError(t, err)

	r := newRouter(newTokens(t), testTable())
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPost, "/admin-only", forged).Code)
}

func TestPrincipalFromDefaultsToUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, models.Unauthenticated, PrincipalFrom(c))
}

func TestBearerToken(t *testing.T) {
	token, ok := bearerToken("bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", token)

	_, ok = bearerToken("Basic abc")
	assert.False(t, ok)
	_, ok = bearerToken("Bearer ")
	assert.False(t, ok)
}

func TestPolicyAccessAndEntries(t *testing.T) {
	table := DefaultPolicies()
	assert.Equal(t, "SUPERADMIN", table[RouteKey{http.MethodPost, "/admins/add"}].Access())
	assert.Equal(t, "STUDENT (self)", table[RouteKey{http.MethodPost, "/grades"}].Access())
	assert.Equal(t, "authenticated", table[RouteKey{http.MethodGet, "/whoami"}].Access())

	entries := table.Entries()
	require.Len(t, entries, len(table))
	for i := 1; i < len(entries); i++ {
		assert.LessOrEqual(t, entries[i-1].Route.Path, entries[i].Route.Path)
	}
}

func TestRequestMetaPropagatesToContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var seen context.Context
	r := gin.New()
	r.Use(RequestMeta())
	r.GET("/", func(c *gin.Context) {
		seen = c.Request.Context()
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", "probe/1.0")
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, seen)
	meta := service.RequestMetaFrom(seen)
	assert.Equal(t, "probe/1.0", meta.UserAgent)
	assert.NotEmpty(t, meta.IP)
}

type observation struct {
	method string
	route  string
	status int
}

type recordingObserver struct {
	seen []observation
}

func (r *recordingObserver) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	r.seen = append(r.seen, observation{method: method, route: path, status: status})
}

func TestMetricsLabelsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &recordingObserver{}
	r := gin.New()
	r.Use(Metrics(observer))
	r.GET("/grades/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	do(r, http.MethodGet, "/grades/42", "")
	do(r, http.MethodGet, "/wp-login.php", "")

	require.Len(t, observer.seen, 2)
	assert.Equal(t, observation{http.MethodGet, "/grades/:id", http.StatusNoContent}, observer.seen[0])
	assert.Equal(t, observation{http.MethodGet, unmatchedRoute, http.StatusNotFound}, observer.seen[1])
}
