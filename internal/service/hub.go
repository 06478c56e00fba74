package service

import (
	"context"
	"time"

	"power_windows/internal/models"
)

// Hub joins the registry and the relay behind HubControl.
type Hub struct {
	registry *DoorRegistry
	relay    *CommandRelay
	tokenTTL time.Duration
}

func NewHub(registry *DoorRegistry, relay *CommandRelay, tokenTTL time.Duration) *Hub {
	return &Hub{registry: registry, relay: relay, tokenTTL: tokenTTL}
}

func (h *Hub) Doors() []models.DoorRecord { return h.registry.Doors() }

func (h *Hub) SendCommand(ctx context.Context, dc models.DoorCommand) error {
	return h.relay.Send(ctx, dc)
}

func (h *Hub) PushConfig(ctx context.Context, cfg models.DoorConfig) error {
	return h.relay.SendConfig(ctx, cfg)
}

func (h *Hub) Thresholds() models.DoorConfig { return h.relay.Thresholds() }
