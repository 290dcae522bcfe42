package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/weiwei-tsao/myroom/apps/api/internal/business/listing"
	"github.com/weiwei-tsao/myroom/apps/api/internal/platform/auth"
)

// QueryCache stores rendered student query responses.
type QueryCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte)
}

// Deps wires the HTTP handlers.
type Deps struct {
	Service       *listing.Service
	Issuer        *auth.Issuer
	Streams       *listing.StreamRegistry
	Cache         QueryCache
	Logger        *zap.Logger
	AdminPassword string
	// UploadDir is served at /uploads when photos are stored locally.
	UploadDir      string
	MaxUploadBytes int64
	Ping           func(ctx context.Context) error
	Now            func() time.Time
}

// Router wires HTTP handlers.
type Router struct {
	svc           *listing.Service
	issuer        *auth.Issuer
	streams       *listing.StreamRegistry
	cache         QueryCache
	logger        *zap.Logger
	adminPassword string
	maxUpload     int64
	ping          func(ctx context.Context) error
	now           func() time.Time
}

func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Streams == nil {
		d.Streams = listing.NewStreamRegistry()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = 5 << 20
	}
	r := &Router{
		svc:           d.Service,
		issuer:        d.Issuer,
		streams:       d.Streams,
		cache:         d.Cache,
		logger:        d.Logger,
		adminPassword: d.AdminPassword,
		maxUpload:     d.MaxUploadBytes,
		ping:          d.Ping,
		now:           d.Now,
	}

	router := gin.New()
	router.Use(r.requestLogger(), gin.Recovery(), auth.Authenticate(d.Issuer))

	router.GET("/healthz", r.health)
	if d.UploadDir != "" {
		router.Static("/uploads", d.UploadDir)
	}

	api := router.Group("/api")
	{
		api.POST("/session", r.createSession)
		api.POST("/session/admin", r.createAdminSession)

		api.GET("/listings", r.browse)
		api.GET("/listings/stream", r.streamBrowse)
		api.GET("/listings/:id", r.getListing)
		api.GET("/listings/:id/reviews/stream", r.streamReviews)
		api.POST("/listings/:id/reviews", auth.RequireUser(), r.submitReview)
	}

	owner := api.Group("/owner", auth.RequireUser())
	{
		owner.GET("/listings", r.ownerListings)
		owner.GET("/listings/stream", r.streamOwner)
		owner.POST("/listings", r.createListing)
		owner.PUT("/listings/:id", r.updateListing)
		owner.DELETE("/listings/:id", r.deleteListing)
		owner.POST("/listings/:id/booked", r.setBooked(true))
		owner.DELETE("/listings/:id/booked", r.setBooked(false))
		owner.GET("/listings/:id/reviews", r.ownerReviews)
		owner.POST("/photos", r.uploadPhoto)
	}

	admin := api.Group("/admin", auth.RequireAdmin())
	{
		admin.GET("/listings", r.adminListings)
		admin.GET("/listings/stream", r.streamAdmin)
		admin.PUT("/listings/:id/status", r.setStatus)
		admin.GET("/stats", r.getStats)
		admin.POST("/stats/refresh", r.refreshStats)
		admin.POST("/reconcile", r.startReconcile)
		admin.GET("/reconcile/status", r.getReconcileStatus)
		admin.GET("/reconcile/runs", r.listReconcileRuns)
	}

	return router
}

func (r *Router) health(c *gin.Context) {
	if r.ping != nil {
		if err := r.ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (r *Router) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header("X-Request-ID", reqID)
		c.Next()

		fields := []zap.Field{
			zap.String("requestId", reqID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if actor := auth.ActorFrom(c); actor.UserID != "" {
			fields = append(fields, zap.String("userId", actor.UserID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case c.Writer.Status() >= 500:
			r.logger.Error("request", fields...)
		case c.Writer.Status() >= 400:
			r.logger.Warn("request", fields...)
		default:
			r.logger.Info("request", fields...)
		}
	}
}

// writeError maps service errors to HTTP statuses.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var verr *listing.ValidationError
	var werr *listing.WriteError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "fields": verr.Fields})
	case errors.Is(err, listing.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, listing.ErrAuthUnavailable):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, listing.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.As(err, &werr):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":    werr.Error(),
			"half":     werr.Half,
			"diverged": werr.Diverged,
		})
	case errors.Is(err, listing.ErrNotFound), errors.Is(err, listing.ErrRunNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
