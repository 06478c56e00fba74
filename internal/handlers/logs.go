package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"power_windows/internal/models"
	"power_windows/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid = "invalid 'from' time; use RFC3339 or YYYY-MM-DD"
	errToInvalid   = "invalid 'to' time; use RFC3339 or YYYY-MM-DD"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

// @Summary      Motion event history
// @Description  Door nodes return their state transitions, configuration changes and faults; the hub returns door presence changes.
// @Description  'from' and 'to' accept RFC3339, 'YYYY-MM-DD HH:MM:SS' or 'YYYY-MM-DD'; a date-only 'to' covers the whole day.
// @Tags         logs
// @Produce      json
// @Param        from  query   string  false  "Start of range"  example(2026-10-01)
// @Param        to    query   string  false  "End of range, inclusive"  example(2026-10-19)
// @Param        type  query   string  false  "Event type"  Enums(TRANSITION,CONFIGURE,FAULT,DOOR_PRESENCE)
// @Param        door  query   string  false  "Door"  Enums(left_door,right_door)
// @Success      200   {object}  map[string]interface{}  "count, events"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /logs [get]
// @Router       /api/v1/logs [get]
// @Security     BearerAuth
func (h *Handler) getLogs(c *gin.Context) {
	filter := service.LogFilter{
		Type: c.Query("type"),
		Door: models.DoorIdentity(c.Query("door")),
	}
	var err error
	if qs := c.Query("from"); qs != "" {
		if filter.From, err = parseQueryTime(qs); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errFromInvalid})
			return
		}
	}
	if qs := c.Query("to"); qs != "" {
		if filter.To, err = parseQueryTime(qs); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errToInvalid})
			return
		}
		if isDateOnly(qs) {
			filter.To = filter.To.Add(24*time.Hour - time.Nanosecond)
		}
	}
	if filter, err = filter.Normalize(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events, err := h.services.EventLog.List(c.Request.Context(), filter)
	switch {
	case errors.Is(err, service.ErrInvalidFilter):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.log.Errorw("motion_events_list_failed", "err", err,
			"from", filter.From, "to", filter.To, "type", filter.Type, "door", filter.Door)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load motion events"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  len(events),
		"events": events,
	})
}

// isDateOnly reports whether the query value has no time component.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}
