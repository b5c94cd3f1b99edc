package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"eventpulse/pkg/errors"

	"github.com/gin-gonic/gin"
)

// statsCacheTTL keeps stats reads cheap between refresher sweeps. Records only
// change when the refresher runs, so a short TTL loses nothing.
const statsCacheTTL = 60 * time.Second

// GET /api/v1/stats/:pair
func (h *handlers) listPairStats(c *gin.Context) {
	ctx := c.Request.Context()
	pair := strings.ToUpper(c.Param("pair"))

	cacheKey := "api:stats:pair:" + pair
	if cached, err := h.cache.Get(ctx, cacheKey); err == nil {
		c.Data(http.StatusOK, "application/json", []byte(cached))
		return
	}

	records, err := h.stats.ListByPair(ctx, pair, maxListLimit)
	if err != nil {
		h.log.Errorw("Failed to list pair stats", "pair", pair, "error", err)
		respondError(c, err)
		return
	}

	body := gin.H{"pair": pair, "stats": records, "count": len(records)}
	c.JSON(http.StatusOK, body)

	if raw, err := json.Marshal(body); err == nil {
		h.cache.Set(ctx, cacheKey, raw, statsCacheTTL)
	}
}

// GET /api/v1/stats/:pair/:eventType
func (h *handlers) getStats(c *gin.Context) {
	ctx := c.Request.Context()
	pair := strings.ToUpper(c.Param("pair"))
	eventType := c.Param("eventType")

	cacheKey := "api:stats:" + eventType + ":" + pair
	if cached, err := h.cache.Get(ctx, cacheKey); err == nil {
		c.Data(http.StatusOK, "application/json", []byte(cached))
		return
	}

	record, err := h.stats.Get(ctx, eventType, pair)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			h.log.Errorw("Failed to get stats", "event_type", eventType, "pair", pair, "error", err)
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)

	if raw, err := json.Marshal(record); err == nil {
		h.cache.Set(ctx, cacheKey, raw, statsCacheTTL)
	}
}
