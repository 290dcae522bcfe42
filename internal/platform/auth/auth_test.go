package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)

	token, exp, err := issuer.Issue("user-1", false)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	actor, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", actor.UserID)
	assert.False(t, actor.Admin)

	adminToken, _, err := issuer.Issue("admin-1", true)
	require.NoError(t, err)
	actor, err = issuer.Parse(adminToken)
	require.NoError(t, err)
	assert.True(t, actor.Admin)
}

func TestParseRejects(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)

	other := NewIssuer("other-secret", time.Hour)
	foreign, _, err := other.Issue("user-1", true)
	require.NoError(t, err)
	_, err = issuer.Parse(foreign)
	assert.Error(t, err, "wrong key")

	expired := NewIssuer("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.Issue("user-1", false)
	require.NoError(t, err)
	_, err = issuer.Parse(old)
	assert.Error(t, err, "expired")

	hs256, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Roles:            []string{RoleAdmin},
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = issuer.Parse(hs256)
	assert.Error(t, err, "only HS512 is accepted")

	_, _, err = issuer.Issue("", false)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	issuer := NewIssuer("secret", time.Hour)
	userToken, _, _ := issuer.Issue("user-1", false)
	adminToken, _, _ := issuer.Issue("admin-1", true)

	r := gin.New()
	r.Use(Authenticate(issuer))
	r.GET("/open", func(c *gin.Context) { c.String(http.StatusOK, ActorFrom(c).UserID) })
	r.GET("/user", RequireUser(), func(c *gin.Context) { c.String(http.StatusOK, ActorFrom(c).UserID) })
	r.GET("/admin", RequireAdmin(), func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	tests := []struct {
		name     string
		path     string
		header   string
		wantCode int
		wantBody string
	}{
		{name: "anonymous open", path: "/open", wantCode: http.StatusOK, wantBody: ""},
		{name: "bad token", path: "/open", header: "Bearer nope", wantCode: http.StatusUnauthorized},
		{name: "user without token", path: "/user", wantCode: http.StatusUnauthorized},
		{name: "user with token", path: "/user", header: "Bearer " + userToken, wantCode: http.StatusOK, wantBody: "user-1"},
		{name: "query token", path: "/user?access_token=" + userToken, wantCode: http.StatusOK, wantBody: "user-1"},
		{name: "admin as user", path: "/admin", header: "Bearer " + userToken, wantCode: http.StatusForbidden},
		{name: "admin", path: "/admin", header: "Bearer " + adminToken, wantCode: http.StatusOK, wantBody: "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantBody != "" || tt.wantCode == http.StatusOK {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
		})
	}
}
