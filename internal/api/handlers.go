package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"eventpulse/internal/domain/candle"
	"eventpulse/internal/domain/event"
	"eventpulse/internal/domain/reaction"
	"eventpulse/internal/domain/stats"
	"eventpulse/internal/metrics"
	"eventpulse/internal/services/ingestion"
	"eventpulse/internal/workers"
	"eventpulse/pkg/errors"
	"eventpulse/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	defaultListLimit = 200
	maxListLimit     = 1000
)

type handlers struct {
	events    event.Repository
	windows   candle.WindowRepository
	reactions reaction.Repository
	stats     stats.Repository
	ingest    *ingestion.Service
	scheduler *workers.Scheduler
	cache     Cache
	log       *logger.Logger
}

// respondError maps domain errors to HTTP status codes
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, errors.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseRange(c *gin.Context) (fromMs, toMs int64, ok bool) {
	var err error
	fromMs, err = strconv.ParseInt(c.Query("from"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must be a unix millisecond timestamp"})
		return 0, 0, false
	}
	toMs, err = strconv.ParseInt(c.Query("to"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must be a unix millisecond timestamp"})
		return 0, 0, false
	}
	if toMs < fromMs {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must not precede from"})
		return 0, 0, false
	}
	return fromMs, toMs, true
}

func parseLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// POST /api/v1/events
func (h *handlers) ingestOne(c *gin.Context) {
	var row ingestion.RawCalendarRow
	if err := c.ShouldBindJSON(&row); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}

	e, err := h.ingest.IngestOne(c.Request.Context(), &row)
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.EventsIngested.WithLabelValues("api", string(e.Status)).Inc()

	c.JSON(http.StatusOK, gin.H{"eventId": e.EventID, "status": e.Status})
}

// POST /api/v1/events/bulk
func (h *handlers) ingestBulk(c *gin.Context) {
	var rows []ingestion.RawCalendarRow
	if err := c.ShouldBindJSON(&rows); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty batch"})
		return
	}

	result, err := h.ingest.IngestBatch(c.Request.Context(), rows)
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.EventsIngested.WithLabelValues("api", "batch").Add(float64(result.Ingested))

	c.JSON(http.StatusOK, result)
}

// GET /api/v1/events
func (h *handlers) listEvents(c *gin.Context) {
	fromMs, toMs, ok := parseRange(c)
	if !ok {
		return
	}

	events, err := h.events.ListRange(c.Request.Context(), fromMs, toMs, c.Query("currency"), parseLimit(c))
	if err != nil {
		h.log.Errorw("Failed to list events", "error", err)
		respondError(c, err)
		return
	}

	views := eventViews(events)
	c.JSON(http.StatusOK, gin.H{"events": views, "count": len(views)})
}

// GET /api/v1/events/high-impact
func (h *handlers) listHighImpactEvents(c *gin.Context) {
	fromMs, toMs, ok := parseRange(c)
	if !ok {
		return
	}

	events, err := h.events.ListHighImpactRange(c.Request.Context(), fromMs, toMs, parseLimit(c))
	if err != nil {
		h.log.Errorw("Failed to list high-impact events", "error", err)
		respondError(c, err)
		return
	}

	views := eventViews(events)
	c.JSON(http.StatusOK, gin.H{"events": views, "count": len(views)})
}

// GET /api/v1/events/:id
func (h *handlers) getEvent(c *gin.Context) {
	e, err := h.events.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newEventView(e))
}

// GET /api/v1/events/:id/reactions
func (h *handlers) listEventReactions(c *gin.Context) {
	eventID := c.Param("id")
	if _, err := h.events.GetByID(c.Request.Context(), eventID); err != nil {
		respondError(c, err)
		return
	}

	reactions, err := h.reactions.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		h.log.Errorw("Failed to list reactions", "event_id", eventID, "error", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"eventId": eventID, "reactions": reactions, "count": len(reactions)})
}

// POST /api/v1/admin/events/:id/reset-flags
//
// Clears both completion flags so the pipeline recaptures windows and
// recomputes reactions on its next sweeps.
func (h *handlers) resetEventFlags(c *gin.Context) {
	eventID := c.Param("id")
	if err := h.events.ResetFlags(c.Request.Context(), eventID); err != nil {
		respondError(c, err)
		return
	}
	h.log.Infow("Event flags reset", "event_id", eventID)
	c.JSON(http.StatusOK, gin.H{"eventId": eventID, "reset": true})
}

// proximityWindow is how far around now the proximity endpoint looks
const proximityWindow = 2 * time.Hour

// GET /api/v1/events/proximity
//
// Returns high-impact events near a reference instant (query param t,
// defaulting to now), split into recent (already released) and upcoming.
// Cached briefly since callers poll this.
func (h *handlers) eventProximity(c *gin.Context) {
	ctx := c.Request.Context()

	window := proximityWindow
	if raw := c.Query("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 || parsed > 24*time.Hour {
			c.JSON(http.StatusBadRequest, gin.H{"error": "window must be a duration up to 24h"})
			return
		}
		window = parsed
	}

	at := time.Now().UnixMilli()
	if raw := c.Query("t"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "t must be a unix millisecond timestamp"})
			return
		}
		at = parsed
	}

	cacheKey := fmt.Sprintf("api:proximity:%d:%s", at, window)
	if cached, err := h.cache.Get(ctx, cacheKey); err == nil {
		c.Data(http.StatusOK, "application/json", []byte(cached))
		return
	}

	events, err := h.events.ListHighImpactRange(ctx, at-window.Milliseconds(), at+window.Milliseconds(), maxListLimit)
	if err != nil {
		h.log.Errorw("Failed to query proximity events", "error", err)
		respondError(c, err)
		return
	}

	recent := make([]eventView, 0)
	upcoming := make([]eventView, 0)
	for i := range events {
		v := newEventView(&events[i])
		if v.Timestamp <= at {
			recent = append(recent, v)
		} else {
			upcoming = append(upcoming, v)
		}
	}

	body := gin.H{"t": at, "windowMs": window.Milliseconds(), "recent": recent, "upcoming": upcoming}
	c.JSON(http.StatusOK, body)

	if raw, err := json.Marshal(body); err == nil {
		h.cache.Set(ctx, cacheKey, raw, 30*time.Second)
	}
}
