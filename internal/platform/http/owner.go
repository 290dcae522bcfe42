package http

import (
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/weiwei-tsao/myroom/apps/api/internal/platform/auth"
	"github.com/weiwei-tsao/myroom/apps/api/pkg/model"
)

func (r *Router) ownerListings(c *gin.Context) {
	listings, err := r.svc.OwnerListings(c.Request.Context(), auth.ActorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": r.views(listings), "total": len(listings)})
}

func (r *Router) createListing(c *gin.Context) {
	var draft model.ListingDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	l, err := r.svc.Create(c.Request.Context(), auth.ActorFrom(c), draft)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, l)
}

func (r *Router) updateListing(c *gin.Context) {
	var draft model.ListingDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	l, err := r.svc.Update(c.Request.Context(), auth.ActorFrom(c), c.Param("id"), draft)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (r *Router) deleteListing(c *gin.Context) {
	if err := r.svc.Delete(c.Request.Context(), auth.ActorFrom(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *Router) setBooked(booked bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		l, err := r.svc.SetBooked(c.Request.Context(), auth.ActorFrom(c), c.Param("id"), booked)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, l)
	}
}

func (r *Router) ownerReviews(c *gin.Context) {
	reviews, err := r.svc.OwnerReviews(c.Request.Context(), auth.ActorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": reviews})
}

func (r *Router) uploadPhoto(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, r.maxUpload)
	fileHeader, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot open file"})
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mime.TypeByExtension(filepath.Ext(fileHeader.Filename))
	}

	url, err := r.svc.UploadPhoto(c.Request.Context(), auth.ActorFrom(c), fileHeader.Filename, file, contentType)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"photoUrl": url})
}
