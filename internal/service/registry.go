package service

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"power_windows/internal/broadcast"
	"power_windows/internal/logger"
	"power_windows/internal/metrics"
	"power_windows/internal/models"
)

// DefaultRegistryInterval is how often the link layer is polled.
const DefaultRegistryInterval = time.Second

// ClientLister is the link-layer capability listing associated stations.
type ClientLister interface {
	Clients(ctx context.Context) ([]models.LinkClient, error)
}

// DoorBinding ties a door identity to the MAC its node associates with.
type DoorBinding struct {
	Identity models.DoorIdentity
	MAC      net.HardwareAddr
}

type RegistryOptions struct {
	// Updates receives the full door list after every change. Optional.
	Updates *broadcast.Broadcaster[[]models.DoorRecord]
	// Events receives one DOOR_PRESENCE event per change. Optional.
	Events  *broadcast.Broadcaster[models.MotionEvent]
	Now     func() time.Time
	Metrics *metrics.Metrics
	Log     *logger.Logger
}

// DoorRegistry tracks which doors are reachable and at which address.
type DoorRegistry struct {
	mu       sync.RWMutex
	bindings []DoorBinding
	records  map[models.DoorIdentity]models.DoorRecord

	updates *broadcast.Broadcaster[[]models.DoorRecord]
	events  *broadcast.Broadcaster[models.MotionEvent]
	now     func() time.Time
	metrics *metrics.Metrics
	log     *logger.Logger
}

func NewDoorRegistry(bindings []DoorBinding, opts RegistryOptions) *DoorRegistry {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = logger.NewNop()
	}
	r := &DoorRegistry{
		bindings: bindings,
		records:  make(map[models.DoorIdentity]models.DoorRecord, len(bindings)),
		updates:  opts.Updates,
		events:   opts.Events,
		now:      opts.Now,
		metrics:  opts.Metrics,
		log:      opts.Log,
	}
	for _, b := range bindings {
		r.records[b.Identity] = models.DoorRecord{Identity: b.Identity, MAC: b.MAC}
	}
	return r
}

// Refresh compares the observed clients with the known records and returns the
// transitions it applied. Unbound clients are ignored.
func (r *DoorRegistry) Refresh(clients []models.LinkClient) []models.DoorChange {
	now := r.now().UTC()

	r.mu.Lock()
	var changes []models.DoorChange
	for _, b := range r.bindings {
		prev := r.records[b.Identity]
		found, ok := findClient(clients, b.MAC)

		switch {
		case !prev.Reachable() && ok:
			changes = append(changes, models.DoorChange{Identity: b.Identity, Kind: models.DoorConnected, NewIP: found.IP})
		case prev.Reachable() && ok && !prev.IP.Equal(found.IP):
			changes = append(changes, models.DoorChange{Identity: b.Identity, Kind: models.DoorAddressChanged, OldIP: prev.IP, NewIP: found.IP})
		case prev.Reachable() && !ok:
			changes = append(changes, models.DoorChange{Identity: b.Identity, Kind: models.DoorDisconnected, OldIP: prev.IP})
			r.records[b.Identity] = models.DoorRecord{Identity: b.Identity, MAC: b.MAC}
			continue
		}
		if ok {
			r.records[b.Identity] = models.DoorRecord{Identity: b.Identity, MAC: b.MAC, IP: found.IP, SeenAt: now}
		}
	}
	list := r.listLocked()
	r.mu.Unlock()

	if len(changes) == 0 {
		return nil
	}
	reachable := 0
	for _, rec := range list {
		if rec.Reachable() {
			reachable++
		}
	}
	r.metrics.ReachableDoors(reachable)
	for _, c := range changes {
		r.log.Infow("registry_door_changed", "door", c.Identity, "kind", c.Kind, "old_ip", c.OldIP, "new_ip", c.NewIP)
		if r.events != nil {
			r.events.Publish(models.MotionEvent{
				OccurredAt:  now,
				Door:        c.Identity,
				Type:        models.EventDoorPresence,
				Description: fmt.Sprintf("%s %s", c.Identity, c.Kind),
				Metadata:    c,
			})
		}
	}
	if r.updates != nil {
		r.updates.Publish(list)
	}
	return changes
}

func findClient(clients []models.LinkClient, mac net.HardwareAddr) (models.LinkClient, bool) {
	for _, c := range clients {
		if c.IP != nil && bytes.Equal(c.MAC, mac) {
			return c, true
		}
	}
	return models.LinkClient{}, false
}

// Run refreshes from lister every interval until ctx ends. Listing errors are
// logged and the previous records kept.
func (r *DoorRegistry) Run(ctx context.Context, lister ClientLister, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultRegistryInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		clients, err := lister.Clients(ctx)
		if err != nil {
			r.log.Warnw("registry_list_failed", "error", err)
		} else {
			r.Refresh(clients)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// Lookup returns the current address of door.
func (r *DoorRegistry) Lookup(door models.DoorIdentity) (net.IP, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[door]
	if !ok || !rec.Reachable() {
		return nil, false
	}
	return rec.IP, true
}

// Doors lists every bound door in configuration order.
func (r *DoorRegistry) Doors() []models.DoorRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked()
}

func (r *DoorRegistry) Identities() []models.DoorIdentity {
	out := make([]models.DoorIdentity, len(r.bindings))
	for i, b := range r.bindings {
		out[i] = b.Identity
	}
	return out
}

func (r *DoorRegistry) listLocked() []models.DoorRecord {
	out := make([]models.DoorRecord, 0, len(r.bindings))
	for _, b := range r.bindings {
		out = append(out, r.records[b.Identity])
	}
	return out
}
