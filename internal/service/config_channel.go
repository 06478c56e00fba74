package service

import (
	"context"
	"fmt"

	"power_windows/internal/broadcast"
	"power_windows/internal/logger"
	"power_windows/internal/models"
	"power_windows/internal/protocol"
	"power_windows/internal/repository"
)

// ConfigChannel applies DoorConfig updates to a door and persists them.
// Values are accepted as-is; only the payload length is checked.
type ConfigChannel struct {
	door   *DoorService
	repo   repository.ConfigRepo
	events *broadcast.Broadcaster[models.MotionEvent]
	log    *logger.Logger
}

func NewConfigChannel(door *DoorService, repo repository.ConfigRepo,
	events *broadcast.Broadcaster[models.MotionEvent], log *logger.Logger) *ConfigChannel {
	return &ConfigChannel{door: door, repo: repo, events: events, log: log}
}

// Restore loads the persisted config, if any, into the door.
func (c *ConfigChannel) Restore(ctx context.Context) (models.DoorConfig, error) {
	if c.repo == nil {
		return c.door.Config(), nil
	}
	cfg, ok, err := c.repo.Load(ctx)
	if err != nil {
		return c.door.Config(), err
	}
	if !ok {
		return c.door.Config(), nil
	}
	c.door.SetConfig(cfg)
	c.log.Infow("door_config_restored",
		"opening_current_threshold", cfg.OpeningCurrentThreshold,
		"closing_current_threshold", cfg.ClosingCurrentThreshold,
		"handle_time_threshold_ms", cfg.HandleTimeThresholdMs,
	)
	return cfg, nil
}

// Apply replaces the active config. A persistence failure is returned after the
// config has already taken effect.
func (c *ConfigChannel) Apply(ctx context.Context, cfg models.DoorConfig) error {
	c.door.SetConfig(cfg)
	c.log.Infow("door_config_applied",
		"opening_current_threshold", cfg.OpeningCurrentThreshold,
		"closing_current_threshold", cfg.ClosingCurrentThreshold,
		"handle_time_threshold_ms", cfg.HandleTimeThresholdMs,
	)
	if c.events != nil {
		c.events.Publish(models.MotionEvent{
			Door:        c.door.Identity(),
			Type:        models.EventConfigure,
			Description: "thresholds updated",
			Metadata:    cfg,
		})
	}
	if c.repo == nil {
		return nil
	}
	if err := c.repo.Save(ctx, cfg); err != nil {
		return fmt.Errorf("persist door config: %w", err)
	}
	return nil
}

// ApplyRaw decodes an 8-byte payload and applies it. Any other length is
// logged and discarded, keeping the previous config.
func (c *ConfigChannel) ApplyRaw(ctx context.Context, b []byte) error {
	cfg, err := protocol.ParseConfig(b)
	if err != nil {
		c.log.Warnw("door_config_rejected", "length", len(b), "error", err)
		return err
	}
	return c.Apply(ctx, cfg)
}
