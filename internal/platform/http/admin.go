package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/weiwei-tsao/myroom/apps/api/internal/business/listing"
	"github.com/weiwei-tsao/myroom/apps/api/internal/platform/auth"
	"github.com/weiwei-tsao/myroom/apps/api/pkg/model"
)

func (r *Router) adminListings(c *gin.Context) {
	listings, err := r.svc.AdminListings(c.Request.Context(), auth.ActorFrom(c), c.Query("status"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": r.views(listings), "total": len(listings)})
}

type statusReq struct {
	Status model.Status `json:"status" binding:"required"`
}

func (r *Router) setStatus(c *gin.Context) {
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}
	l, err := r.svc.SetStatus(c.Request.Context(), auth.ActorFrom(c), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (r *Router) getStats(c *gin.Context) {
	stats, err := r.svc.Stats(c.Request.Context(), auth.ActorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (r *Router) refreshStats(c *gin.Context) {
	stats, err := r.svc.RefreshStats(c.Request.Context(), auth.ActorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

type reconcileReq struct {
	DryRun  bool `json:"dryRun"`
	Workers int  `json:"workers"`
}

func (r *Router) startReconcile(c *gin.Context) {
	var req reconcileReq
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	runID, err := r.svc.StartReconcile(c.Request.Context(), auth.ActorFrom(c), listing.ReconcileOptions{
		DryRun:  req.DryRun,
		Workers: req.Workers,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"runId":   runID,
		"message": "Reconcile started. Check status with GET /api/admin/reconcile/status?runId=" + runID,
	})
}

func (r *Router) getReconcileStatus(c *gin.Context) {
	runID := c.Query("runId")
	if runID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "runId is required"})
		return
	}
	run, err := r.svc.GetRun(c.Request.Context(), auth.ActorFrom(c), runID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (r *Router) listReconcileRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := r.svc.ListRuns(c.Request.Context(), auth.ActorFrom(c), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": runs})
}
