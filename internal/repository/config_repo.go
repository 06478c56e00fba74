package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"power_windows/internal/models"
)

type ConfigSQLite struct {
	db  *sql.DB
	now func() time.Time
}

func NewConfigSQLite(db *sql.DB) *ConfigSQLite {
	return &ConfigSQLite{db: db, now: time.Now}
}

const (
	doorConfigRowID = 1

	upsertConfigSQL = `
		INSERT INTO door_config (id, opening_current, closing_current, handle_time_ms, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			opening_current=excluded.opening_current,
			closing_current=excluded.closing_current,
			handle_time_ms=excluded.handle_time_ms,
			updated_at=excluded.updated_at
	`

	selectConfigSQL = `
		SELECT opening_current, closing_current, handle_time_ms
		FROM door_config WHERE id=?
	`
)

// Save replaces the single door_config row.
func (r *ConfigSQLite) Save(ctx context.Context, cfg models.DoorConfig) error {
	_, err := r.db.ExecContext(ctx, upsertConfigSQL,
		doorConfigRowID,
		int64(cfg.OpeningCurrentThreshold),
		int64(cfg.ClosingCurrentThreshold),
		int64(cfg.HandleTimeThresholdMs),
		r.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save door config: %w", err)
	}
	return nil
}

// Load fetches the door_config row.
func (r *ConfigSQLite) Load(ctx context.Context) (models.DoorConfig, bool, error) {
	var opening, closing, handle int64
	err := r.db.QueryRowContext(ctx, selectConfigSQL, doorConfigRowID).Scan(&opening, &closing, &handle)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DoorConfig{}, false, nil
		}
		return models.DoorConfig{}, false, fmt.Errorf("load door config: %w", err)
	}
	return models.DoorConfig{
		OpeningCurrentThreshold: uint16(opening),
		ClosingCurrentThreshold: uint16(closing),
		HandleTimeThresholdMs:   uint16(handle),
	}, true, nil
}
