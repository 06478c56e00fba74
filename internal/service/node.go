package service

import (
	"context"
	"errors"
	"time"

	"power_windows/internal/broadcast"
	"power_windows/internal/logger"
	"power_windows/internal/metrics"
	"power_windows/internal/models"
	"power_windows/internal/protocol"

	"golang.org/x/sync/errgroup"
)

// DefaultTick is the supervisor cadence.
const DefaultTick = 50 * time.Millisecond

// DoorNode runs the command-listener and supervisor tasks of a door node.
type DoorNode struct {
	door     *DoorService
	config   *ConfigChannel
	commands *broadcast.Broadcaster[models.Command]
	events   *broadcast.Broadcaster[models.MotionEvent]
	breaker  *FaultBreaker
	halt     Halt
	tick     time.Duration
	metrics  *metrics.Metrics
	log      *logger.Logger
}

type NodeOptions struct {
	Commands *broadcast.Broadcaster[models.Command]
	// Events is the broadcast the door publishes transitions on; Watch subscribes to it.
	Events  *broadcast.Broadcaster[models.MotionEvent]
	Breaker *FaultBreaker
	Halt    Halt
	Tick    time.Duration
	Metrics *metrics.Metrics
	Log     *logger.Logger
}

func NewDoorNode(door *DoorService, config *ConfigChannel, opts NodeOptions) *DoorNode {
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	if opts.Log == nil {
		opts.Log = logger.NewNop()
	}
	n := &DoorNode{
		door:     door,
		config:   config,
		commands: opts.Commands,
		events:   opts.Events,
		breaker:  opts.Breaker,
		tick:     opts.Tick,
		metrics:  opts.Metrics,
		log:      opts.Log,
	}
	// Every halt leaves the relays off; a halted node no longer supervises them.
	n.halt = func(reason string, err error) {
		n.release(reason)
		if opts.Halt != nil {
			opts.Halt(reason, err)
		}
	}
	if n.breaker != nil {
		n.breaker.BeforeHalt(func() { n.release("fault threshold exceeded") })
	}
	return n
}

func (n *DoorNode) release(reason string) {
	if err := n.door.Release(reason); err != nil {
		n.log.Errorw("door_release_failed", "reason", reason, "error", err)
	}
}

func (n *DoorNode) Door() *DoorService { return n.door }

func (n *DoorNode) Config() *ConfigChannel { return n.config }

// Submit enqueues cmd for the listener without blocking and returns the number
// of listeners it reached.
func (n *DoorNode) Submit(cmd models.Command) int {
	return n.commands.Publish(cmd)
}

func (n *DoorNode) Snapshot() models.DoorSnapshot { return n.door.Snapshot() }

func (n *DoorNode) WriteLocalConfig(ctx context.Context, b []byte) error {
	return n.config.ApplyRaw(ctx, b)
}

func (n *DoorNode) Watch() *broadcast.Subscription[models.MotionEvent] {
	return n.events.Subscribe()
}

// Run blocks until ctx is cancelled or the command channel closes.
func (n *DoorNode) Run(ctx context.Context) error {
	sub := n.commands.Subscribe()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return consume(ctx, sub, consumer{
			name:    "door_commands",
			log:     n.log,
			metrics: n.metrics,
			halt:    n.halt,
		}, func(cmd models.Command) { n.handle(ctx, cmd) })
	})
	g.Go(func() error {
		n.supervise(ctx)
		return nil
	})

	n.log.Infow("door_node_started", "door", n.door.Identity(), "tick", n.tick)
	return g.Wait()
}

func (n *DoorNode) handle(ctx context.Context, cmd models.Command) {
	if cmd.Kind == models.CommandConfigure {
		if err := n.config.Apply(ctx, protocol.DecodeConfig(cmd.Payload)); err != nil {
			n.log.Warnw("door_config_persist_failed", "error", err)
		}
		return
	}
	if err := n.door.Apply(cmd); err != nil {
		n.fault(err)
	}
}

func (n *DoorNode) supervise(ctx context.Context) {
	t := time.NewTicker(n.tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := n.door.Supervise(); err != nil {
				n.fault(err)
			}
		}
	}
}

// fault routes an error: invariant violations halt at once, anything else
// counts towards the breaker.
func (n *DoorNode) fault(err error) {
	if n.events != nil {
		n.events.Publish(models.MotionEvent{
			OccurredAt:  time.Now().UTC(),
			Door:        n.door.Identity(),
			Type:        models.EventFault,
			Description: err.Error(),
		})
	}
	if errors.Is(err, ErrInvalidTransition) {
		n.halt("invariant violation", err)
		return
	}
	n.breaker.Record(err)
}
