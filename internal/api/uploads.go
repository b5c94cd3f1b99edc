package api

import (
	"net/http"

	"eventpulse/internal/domain/candle"
	"eventpulse/internal/domain/reaction"
	"eventpulse/pkg/errors"

	"github.com/gin-gonic/gin"
)

const maxReactionBulk = 500

var errInvalidReaction = errors.Wrap(errors.ErrInvalidInput, "eventId, pair and eventTimestamp are required")

// POST /api/v1/windows
//
// Accepts an externally captured candle window. Used for historical backloads
// where the provider no longer serves minute data.
func (h *handlers) uploadWindow(c *gin.Context) {
	var w candle.Window
	if err := c.ShouldBindJSON(&w); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}
	if w.EventID == "" || w.Pair == "" || w.EventTimestamp == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "eventId, pair and eventTimestamp are required"})
		return
	}
	if len(w.Candles) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "candles must not be empty"})
		return
	}

	if _, err := h.events.GetByID(c.Request.Context(), w.EventID); err != nil {
		respondError(c, err)
		return
	}

	w.Normalize()
	if err := h.windows.Upsert(c.Request.Context(), &w); err != nil {
		h.log.Errorw("Failed to store uploaded window", "event_id", w.EventID, "pair", w.Pair, "error", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"eventId": w.EventID, "pair": w.Pair, "candles": len(w.Candles)})
}

// POST /api/v1/reactions
func (h *handlers) uploadReaction(c *gin.Context) {
	var rec reaction.Reaction
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}
	if err := h.storeReaction(c, &rec); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"eventId": rec.EventID, "pair": rec.Pair})
}

// POST /api/v1/reactions/bulk
//
// Per-row failures are reported, not fatal, mirroring event bulk ingestion.
func (h *handlers) uploadReactionsBulk(c *gin.Context) {
	var recs []reaction.Reaction
	if err := c.ShouldBindJSON(&recs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}
	if len(recs) == 0 || len(recs) > maxReactionBulk {
		c.JSON(http.StatusBadRequest, gin.H{"error": "batch must hold between 1 and 500 reactions"})
		return
	}

	stored := 0
	type rowError struct {
		Index int    `json:"index"`
		Error string `json:"error"`
	}
	var rowErrors []rowError
	for i := range recs {
		if err := h.storeReaction(c, &recs[i]); err != nil {
			rowErrors = append(rowErrors, rowError{Index: i, Error: err.Error()})
			continue
		}
		stored++
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  len(recs),
		"stored": stored,
		"errors": rowErrors,
	})
}

func (h *handlers) storeReaction(c *gin.Context, rec *reaction.Reaction) error {
	if rec.EventID == "" || rec.Pair == "" || rec.EventTimestamp == 0 {
		return errInvalidReaction
	}
	return h.reactions.Upsert(c.Request.Context(), rec)
}
