package repository

import (
	"context"
	"database/sql"
	"time"

	"power_windows/internal/models"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.Operator, error)
}

// ConfigRepo persists the door's active DoorConfig. Last write wins.
type ConfigRepo interface {
	Save(ctx context.Context, cfg models.DoorConfig) error
	// Load returns ok=false when nothing has been saved yet.
	Load(ctx context.Context) (cfg models.DoorConfig, ok bool, err error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.MotionEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.MotionEvent, error)
}

type Repository struct {
	ConfigRepo ConfigRepo
	EventRepo  EventRepo
	Auth       Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		ConfigRepo: NewConfigSQLite(db),
		EventRepo:  NewEventSQLite(db),
		Auth:       NewOperatorRepository(db),
	}
}
