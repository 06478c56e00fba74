package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"power_windows/internal/broadcast"
	"power_windows/internal/logger"
	"power_windows/internal/metrics"
	"power_windows/internal/models"
	"power_windows/internal/protocol"

	"golang.org/x/sync/errgroup"
)

// ErrDoorUnreachable means the registry has no address for the door. It is
// expected while a door is away and is never escalated.
var ErrDoorUnreachable = errors.New("door unreachable")

// AddressBook resolves a door to its current address.
type AddressBook interface {
	Lookup(door models.DoorIdentity) (net.IP, bool)
}

type RelayOptions struct {
	Client *http.Client
	// Port is the door nodes' HTTP port.
	Port string
	// Thresholds is pushed to each door when it becomes reachable.
	Thresholds models.DoorConfig
	Halt       Halt
	Metrics    *metrics.Metrics
	Log        *logger.Logger
}

// CommandRelay sends commands and configuration from the hub to door nodes,
// one HTTP POST with an 8-byte body per command.
type CommandRelay struct {
	book    AddressBook
	doors   []models.DoorIdentity
	client  *http.Client
	port    string
	halt    Halt
	metrics *metrics.Metrics
	log     *logger.Logger

	mu         sync.RWMutex
	known      map[models.DoorIdentity]net.IP
	thresholds models.DoorConfig
}

func NewCommandRelay(book AddressBook, doors []models.DoorIdentity, opts RelayOptions) *CommandRelay {
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 2 * time.Second}
	}
	if opts.Log == nil {
		opts.Log = logger.NewNop()
	}
	return &CommandRelay{
		book:       book,
		doors:      doors,
		client:     opts.Client,
		port:       opts.Port,
		halt:       opts.Halt,
		metrics:    opts.Metrics,
		log:        opts.Log,
		known:      make(map[models.DoorIdentity]net.IP),
		thresholds: opts.Thresholds,
	}
}

// Send posts one command to its door.
func (r *CommandRelay) Send(ctx context.Context, dc models.DoorCommand) error {
	kind := dc.Command.Kind
	ip, ok := r.lookup(dc.Door)
	if !ok {
		r.metrics.Relayed(dc.Door, kind, "unreachable")
		return fmt.Errorf("%w: %s", ErrDoorUnreachable, dc.Door)
	}

	url := "http://" + net.JoinHostPort(ip.String(), r.port) + protocol.PathFor(kind)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(dc.Command.Payload[:]))
	if err != nil {
		return fmt.Errorf("build %s request: %w", kind, err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := r.client.Do(req)
	if err != nil {
		r.metrics.Relayed(dc.Door, kind, "error")
		return fmt.Errorf("send %s to %s: %w", kind, dc.Door, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		r.metrics.Relayed(dc.Door, kind, "rejected")
		return fmt.Errorf("send %s to %s: status %d", kind, dc.Door, resp.StatusCode)
	}
	r.metrics.Relayed(dc.Door, kind, "ok")
	return nil
}

// SendConfig pushes cfg to every door and remembers it for doors that connect later.
func (r *CommandRelay) SendConfig(ctx context.Context, cfg models.DoorConfig) error {
	r.mu.Lock()
	r.thresholds = cfg
	r.mu.Unlock()

	var errs []error
	for _, door := range r.doors {
		if err := r.Send(ctx, models.DoorCommand{Door: door, Command: protocol.ConfigureCommand(cfg)}); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Thresholds is the config most recently pushed to the doors.
func (r *CommandRelay) Thresholds() models.DoorConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.thresholds
}

// lookup asks the registry before every call. The copy kept by Track only
// serves when no registry is attached.
func (r *CommandRelay) lookup(door models.DoorIdentity) (net.IP, bool) {
	if r.book != nil {
		return r.book.Lookup(door)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ip := r.known[door]
	return ip, ip != nil
}

// Run relays requests and tracks registry updates until ctx ends.
func (r *CommandRelay) Run(ctx context.Context,
	requests *broadcast.Subscription[models.DoorCommand],
	updates *broadcast.Subscription[[]models.DoorRecord]) error {

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consume(ctx, requests, r.consumer("relay_requests"), func(dc models.DoorCommand) {
			r.report(dc, r.Send(ctx, dc))
		})
	})
	g.Go(func() error {
		return consume(ctx, updates, r.consumer("relay_registry"), func(list []models.DoorRecord) {
			r.Track(ctx, list)
		})
	})
	return g.Wait()
}

// Track replaces the relay's address copy, used to detect doors that just
// became reachable, and pushes the thresholds to them.
func (r *CommandRelay) Track(ctx context.Context, list []models.DoorRecord) {
	r.mu.Lock()
	var fresh []models.DoorIdentity
	for _, rec := range list {
		if rec.Reachable() && r.known[rec.Identity] == nil {
			fresh = append(fresh, rec.Identity)
		}
		r.known[rec.Identity] = rec.IP
	}
	cfg := r.thresholds
	r.mu.Unlock()

	for _, door := range fresh {
		dc := models.DoorCommand{Door: door, Command: protocol.ConfigureCommand(cfg)}
		r.report(dc, r.Send(ctx, dc))
	}
}

func (r *CommandRelay) report(dc models.DoorCommand, err error) {
	switch {
	case err == nil:
		r.log.Debugw("relay_sent", "door", dc.Door, "command", dc.Command.Kind)
	case errors.Is(err, ErrDoorUnreachable):
		r.log.Debugw("relay_door_unreachable", "door", dc.Door, "command", dc.Command.Kind)
	case errors.Is(err, context.Canceled):
	default:
		r.log.Warnw("relay_send_failed", "door", dc.Door, "command", dc.Command.Kind, "error", err)
	}
}

func (r *CommandRelay) consumer(name string) consumer {
	return consumer{name: name, log: r.log, metrics: r.metrics, halt: r.halt}
}
