package service

import (
	"context"

	"power_windows/internal/broadcast"
	"power_windows/internal/models"
	"power_windows/internal/repository"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// DoorControl is the door node's command and diagnostic surface.
type DoorControl interface {
	// Submit enqueues a command for the listener task.
	Submit(cmd models.Command) int
	Snapshot() models.DoorSnapshot
	// WriteLocalConfig applies an 8-byte config buffer from the local write interface.
	WriteLocalConfig(ctx context.Context, b []byte) error
	// Watch streams motion events until the subscription is dropped.
	Watch() *broadcast.Subscription[models.MotionEvent]
}

// HubControl is the hub's operator surface.
type HubControl interface {
	Doors() []models.DoorRecord
	SendCommand(ctx context.Context, dc models.DoorCommand) error
	PushConfig(ctx context.Context, cfg models.DoorConfig) error
	Thresholds() models.DoorConfig
}

// EventLog exposes append-only logs with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.MotionEvent, error)
}

// Service aggregates what the HTTP layer needs. Door nodes leave HubControl
// and Authorization nil; the hub leaves DoorControl nil.
type Service struct {
	DoorControl
	HubControl
	EventLog
	Authorization
}

func NewDoorNodeService(node *DoorNode, repos *repository.Repository) *Service {
	return &Service{
		DoorControl: node,
		EventLog:    NewEventLogService(repos.EventRepo),
	}
}

func NewHubService(hub *Hub, repos *repository.Repository, signingKey string) *Service {
	return &Service{
		HubControl:    hub,
		EventLog:      NewEventLogService(repos.EventRepo),
		Authorization: NewAuthService(repos.Auth, signingKey, hub.tokenTTL),
	}
}
