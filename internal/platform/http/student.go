package http

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/weiwei-tsao/myroom/apps/api/internal/business/listing"
	"github.com/weiwei-tsao/myroom/apps/api/internal/platform/auth"
	"github.com/weiwei-tsao/myroom/apps/api/internal/platform/cache"
	"github.com/weiwei-tsao/myroom/apps/api/pkg/model"
)

type listingView struct {
	model.Listing
	IsNew bool `json:"isNew"`
}

func (r *Router) views(listings []model.Listing) []listingView {
	now := r.now()
	out := make([]listingView, len(listings))
	for i, l := range listings {
		out[i] = listingView{Listing: l, IsNew: listing.IsNew(l, now)}
	}
	return out
}

func (r *Router) browse(c *gin.Context) {
	var criteria listing.Criteria
	if err := c.ShouldBindQuery(&criteria); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}
	ctx := c.Request.Context()

	key := cache.Key(criteria.College, criteria.Budget, criteria.Safety)
	if r.cache != nil {
		if data, ok := r.cache.Get(ctx, key); ok {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "application/json; charset=utf-8", data)
			return
		}
	}

	listings, err := r.svc.Browse(ctx, criteria)
	if err != nil {
		writeError(c, err)
		return
	}
	data, err := json.Marshal(gin.H{"items": r.views(listings), "total": len(listings)})
	if err != nil {
		writeError(c, err)
		return
	}
	if r.cache != nil {
		r.cache.Set(ctx, key, data)
		c.Header("X-Cache", "MISS")
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func (r *Router) getListing(c *gin.Context) {
	detail, err := r.svc.StudentDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

type reviewReq struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (r *Router) submitReview(c *gin.Context) {
	var req reviewReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	review, err := r.svc.SubmitReview(c.Request.Context(), auth.ActorFrom(c), c.Param("id"), req.Rating, req.Comment)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}
