package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"petwatch/internal/core/domain"
	"petwatch/internal/core/ports"
	"petwatch/pkg/cache"

	"github.com/gin-gonic/gin"
)

// recordingsCachePrefix keys every cached listing so a write can drop them
// all at once.
const recordingsCachePrefix = "recordings:"

const (
	defaultRecordingsLimit = 50
	maxRecordingsLimit     = 500
	recordingsCacheTTL     = 5 * time.Second
)

// RecordingsHandler exposes persisted recording metadata. Listings are
// cached briefly since the dashboard polls this endpoint.
type RecordingsHandler struct {
	repo  ports.RecordingRepository
	cache *cache.CacheWithFallback
}

func NewRecordingsHandler(repo ports.RecordingRepository) *RecordingsHandler {
	return &RecordingsHandler{
		repo:  repo,
		cache: cache.NewCacheWithFallback(recordingsCacheTTL),
	}
}

func (h *RecordingsHandler) SetupRoutes(router *gin.Engine) {
	router.GET("/recordings", h.ListRecordings)
}

// Close releases handler resources.
func (h *RecordingsHandler) Close() {
	h.cache.Stop()
}

// Repository returns a view of the backing store whose writes invalidate the
// listing cache, so a just-finalized recording is visible on the next
// listing instead of after the TTL.
func (h *RecordingsHandler) Repository() ports.RecordingRepository {
	return &invalidatingRepository{repo: h.repo, cache: h.cache}
}

type invalidatingRepository struct {
	repo  ports.RecordingRepository
	cache *cache.CacheWithFallback
}

func (r *invalidatingRepository) Save(ctx context.Context, record *domain.RecordingRecord) error {
	if err := r.repo.Save(ctx, record); err != nil {
		return err
	}
	r.cache.Invalidate(recordingsCachePrefix)
	return nil
}

func (r *invalidatingRepository) GetByID(ctx context.Context, id domain.RecordingID) (*domain.RecordingRecord, error) {
	return r.repo.GetByID(ctx, id)
}

func (r *invalidatingRepository) List(ctx context.Context, limit int) ([]*domain.RecordingRecord, error) {
	return r.repo.List(ctx, limit)
}

func (h *RecordingsHandler) ListRecordings(c *gin.Context) {
	limit := defaultRecordingsLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}
	if limit > maxRecordingsLimit {
		limit = maxRecordingsLimit
	}

	key := fmt.Sprintf("%s%d", recordingsCachePrefix, limit)
	value, err := h.cache.GetOrSet(c.Request.Context(), key, func(ctx context.Context) (interface{}, error) {
		return h.repo.List(ctx, limit)
	}, recordingsCacheTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recordings": value,
	})
}
