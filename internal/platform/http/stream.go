package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/weiwei-tsao/myroom/apps/api/internal/business/listing"
	"github.com/weiwei-tsao/myroom/apps/api/internal/platform/auth"
	"github.com/weiwei-tsao/myroom/apps/api/pkg/model"
)

// watchFn runs a store subscription, calling emit with each new payload,
// until ctx is cancelled.
type watchFn func(ctx context.Context, emit func(any)) error

// stream serves a subscription as server-sent "snapshot" events. Only the
// latest undelivered snapshot is kept, so a slow client skips stale ones.
// An error raised before the first snapshot is answered as a normal error
// response.
func (r *Router) stream(c *gin.Context, watch watchFn) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	id := uuid.NewString()
	r.streams.Register(id, cancel)
	defer r.streams.Unregister(id)
	defer cancel()

	updates := make(chan any, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- watch(ctx, func(v any) {
			for {
				select {
				case updates <- v:
					return
				default:
				}
				select {
				case <-updates:
				default:
				}
			}
		})
	}()

	watchDone := false
	defer func() {
		cancel()
		if !watchDone {
			<-errCh
		}
	}()

	var first any
	select {
	case err := <-errCh:
		watchDone = true
		if err != nil && ctx.Err() == nil {
			writeError(c, err)
		}
		return
	case first = <-updates:
	case <-ctx.Done():
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("snapshot", first)
	c.Writer.Flush()

	for {
		select {
		case v := <-updates:
			c.SSEvent("snapshot", v)
			c.Writer.Flush()
		case err := <-errCh:
			watchDone = true
			if err != nil && ctx.Err() == nil {
				r.logger.Warn("stream ended", zap.String("path", c.FullPath()), zap.Error(err))
				c.SSEvent("error", gin.H{"error": err.Error()})
				c.Writer.Flush()
			}
			return
		case <-ctx.Done():
			return
		}
	}
}

func (r *Router) streamBrowse(c *gin.Context) {
	var criteria listing.Criteria
	if err := c.ShouldBindQuery(&criteria); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}
	r.stream(c, func(ctx context.Context, emit func(any)) error {
		return r.svc.WatchStudent(ctx, criteria, func(ls []model.Listing) {
			emit(gin.H{"items": r.views(ls), "total": len(ls)})
		})
	})
}

func (r *Router) streamOwner(c *gin.Context) {
	actor := auth.ActorFrom(c)
	r.stream(c, func(ctx context.Context, emit func(any)) error {
		return r.svc.WatchOwner(ctx, actor, func(ls []model.Listing) {
			emit(gin.H{"items": r.views(ls), "total": len(ls)})
		})
	})
}

func (r *Router) streamAdmin(c *gin.Context) {
	actor := auth.ActorFrom(c)
	status := c.Query("status")
	r.stream(c, func(ctx context.Context, emit func(any)) error {
		return r.svc.WatchAdmin(ctx, actor, status, func(ls []model.Listing) {
			emit(gin.H{"items": r.views(ls), "total": len(ls)})
		})
	})
}

func (r *Router) streamReviews(c *gin.Context) {
	listingID := c.Param("id")
	r.stream(c, func(ctx context.Context, emit func(any)) error {
		return r.svc.WatchReviews(ctx, listingID, func(reviews []model.Review) {
			emit(gin.H{"items": reviews, "averageRating": listing.AverageRating(reviews)})
		})
	})
}
