package http

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/weiwei-tsao/myroom/apps/api/internal/platform/auth"
)

type sessionResp struct {
	Token     string `json:"token"`
	UserID    string `json:"userId"`
	Admin     bool   `json:"admin"`
	ExpiresAt int64  `json:"expiresAt"`
}

// createSession issues an anonymous user identity.
func (r *Router) createSession(c *gin.Context) {
	r.issueSession(c, uuid.NewString(), false)
}

type adminSessionReq struct {
	Password string `json:"password" binding:"required"`
}

// createAdminSession upgrades the caller (or a fresh identity) to admin when
// the configured password matches.
func (r *Router) createAdminSession(c *gin.Context) {
	if r.adminPassword == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin sessions are disabled"})
		return
	}
	var req adminSessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password is required"})
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(r.adminPassword)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid admin password"})
		return
	}
	userID := auth.ActorFrom(c).UserID
	if userID == "" {
		userID = uuid.NewString()
	}
	r.issueSession(c, userID, true)
}

func (r *Router) issueSession(c *gin.Context, userID string, admin bool) {
	token, exp, err := r.issuer.Issue(userID, admin)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionResp{
		Token:     token,
		UserID:    userID,
		Admin:     admin,
		ExpiresAt: exp.UnixMilli(),
	})
}
