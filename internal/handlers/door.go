package handlers

import (
	"io"
	"net/http"

	"power_windows/internal/models"
	"power_windows/internal/protocol"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK     = "ok"
	statusQueued = "queued"

	errReadBody      = "failed to read body"
	errPayloadLength = "body must be exactly 8 bytes"
	errNoListener    = "command listener not running"

	// Bodies are tiny; anything beyond this is rejected as malformed.
	maxCommandBody = 64
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

func readCommandBody(c *gin.Context) ([]byte, error) {
	return io.ReadAll(io.LimitReader(c.Request.Body, maxCommandBody+1))
}

// doorCommand enqueues a motion command. The 8-byte body carries no data for
// motion commands and is drained without inspection.
//
// @Summary      Motion command
// @Description  One of open-continuous, close-continuous, open-fully, close-fully, stop. The command is queued for the listener task.
// @Tags         door
// @Accept       application/octet-stream
// @Produce      json
// @Success      202  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /open-continuous [post]
// @Router       /close-continuous [post]
// @Router       /open-fully [post]
// @Router       /close-fully [post]
// @Router       /stop [post]
func (h *Handler) doorCommand(kind models.CommandKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := readCommandBody(c); err != nil {
			h.logAndJSONError(c, http.StatusBadRequest, errReadBody, "door_command_body_failed", err, "command", kind)
			return
		}
		h.submit(c, models.Command{Kind: kind})
	}
}

// @Summary      Configure thresholds
// @Description  Body is the 8-byte big-endian DoorConfig: opening current, closing current, handle time (ms), 2 reserved bytes.
// @Tags         door
// @Accept       application/octet-stream
// @Produce      json
// @Success      202  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /configure-thresholds [post]
func (h *Handler) configureThresholds(c *gin.Context) {
	body, err := readCommandBody(c)
	if err != nil {
		h.logAndJSONError(c, http.StatusBadRequest, errReadBody, "door_config_body_failed", err)
		return
	}
	payload, err := protocol.ToPayload(body)
	if err != nil {
		h.log.Warnw("door_config_rejected", "length", len(body), "err", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": errPayloadLength})
		return
	}
	h.submit(c, models.Command{Kind: models.CommandConfigure, Payload: payload})
}

func (h *Handler) submit(c *gin.Context, cmd models.Command) {
	if h.services.Submit(cmd) == 0 {
		h.log.Errorw("door_command_dropped", "command", cmd.Kind)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errNoListener})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": statusQueued, "command": cmd.Kind.String()})
}

// @Summary      Door state
// @Description  Diagnostic snapshot: motion state, last handle time, thresholds, relay activity and fault count.
// @Tags         door
// @Produce      json
// @Success      200  {object}  models.DoorSnapshot
// @Router       /state [get]
func (h *Handler) getDoorState(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Snapshot())
}
