package handlers

import (
	"errors"
	"net/http"

	"power_windows/internal/models"
	"power_windows/internal/protocol"
	"power_windows/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errUnknownDoor    = "unknown door"
	errUnknownCommand = "unknown command; use open-continuous, close-continuous, open-fully, close-fully or stop"
	errDoorOffline    = "door unreachable"
	errRelayFailed    = "failed to reach door"
	errInvalidBody    = "invalid body: "
)

// DoorCommandRequest is the manual command payload.
type DoorCommandRequest struct {
	// Command path name, e.g. open-fully
	Command string `json:"command" binding:"required" example:"open-fully"`
}

// ThresholdsRequest is the JSON form of DoorConfig accepted by the hub.
type ThresholdsRequest struct {
	OpeningCurrentThreshold *uint16 `json:"opening_current_threshold" binding:"required" example:"20"`
	ClosingCurrentThreshold *uint16 `json:"closing_current_threshold" binding:"required" example:"20"`
	HandleTimeThresholdMs   *uint16 `json:"handle_time_threshold_ms" binding:"required" example:"300"`
}

// @Summary      List doors
// @Description  Known doors and their current addresses; a door without ip is not reachable.
// @Tags         hub
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, doors"
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/doors [get]
// @Security     BearerAuth
func (h *Handler) listDoors(c *gin.Context) {
	doors := h.services.Doors()
	c.JSON(http.StatusOK, gin.H{
		"count": len(doors),
		"doors": doors,
	})
}

// @Summary      Send a command to a door
// @Tags         hub
// @Accept       json
// @Produce      json
// @Param        door  path  string              true  "Door identity"  Enums(left_door,right_door)
// @Param        body  body  DoorCommandRequest  true  "Command"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/doors/{door}/command [post]
// @Security     BearerAuth
func (h *Handler) sendDoorCommand(c *gin.Context) {
	door := models.DoorIdentity(c.Param("door"))
	if !h.knownDoor(door) {
		c.JSON(http.StatusNotFound, gin.H{"error": errUnknownDoor})
		return
	}

	var req DoorCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody + err.Error()})
		return
	}
	kind, ok := protocol.ParseCommandName(req.Command)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": errUnknownCommand})
		return
	}

	err := h.services.SendCommand(c.Request.Context(), models.DoorCommand{Door: door, Command: models.Command{Kind: kind}})
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "sent", "door": door, "command": kind.String()})
	case errors.Is(err, service.ErrDoorUnreachable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errDoorOffline})
	default:
		h.logAndJSONError(c, http.StatusBadGateway, errRelayFailed, "hub_manual_command_failed", err,
			"door", door, "command", kind)
	}
}

func (h *Handler) knownDoor(door models.DoorIdentity) bool {
	for _, d := range h.services.Doors() {
		if d.Identity == door {
			return true
		}
	}
	return false
}

// @Summary      Current thresholds
// @Description  The DoorConfig most recently pushed to the doors.
// @Tags         hub
// @Produce      json
// @Success      200  {object}  models.DoorConfig
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/config [get]
// @Security     BearerAuth
func (h *Handler) getThresholds(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Thresholds())
}

// @Summary      Push thresholds
// @Description  Sends the thresholds to every door. Doors that are offline receive them when they reconnect.
// @Tags         hub
// @Accept       json
// @Produce      json
// @Param        body  body  ThresholdsRequest  true  "Thresholds"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/config [post]
// @Security     BearerAuth
func (h *Handler) pushThresholds(c *gin.Context) {
	var req ThresholdsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody + err.Error()})
		return
	}
	cfg := models.DoorConfig{
		OpeningCurrentThreshold: *req.OpeningCurrentThreshold,
		ClosingCurrentThreshold: *req.ClosingCurrentThreshold,
		HandleTimeThresholdMs:   *req.HandleTimeThresholdMs,
	}
	if err := h.services.PushConfig(c.Request.Context(), cfg); err != nil {
		h.log.Warnw("hub_config_push_incomplete", "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "config": cfg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "pushed", "config": cfg})
}
