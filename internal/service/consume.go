package service

import (
	"context"
	"errors"

	"power_windows/internal/broadcast"
	"power_windows/internal/logger"
	"power_windows/internal/metrics"
)

// consumer is what every broadcast-reading loop needs besides the handler.
type consumer struct {
	name    string
	log     *logger.Logger
	metrics *metrics.Metrics
	halt    Halt
}

// consume feeds sub to fn until ctx ends. A lagged subscription is logged and
// resumed; a closed one halts the node.
func consume[T any](ctx context.Context, sub *broadcast.Subscription[T], c consumer, fn func(T)) error {
	defer sub.Unsubscribe()

	for {
		v, err := sub.Recv(ctx)
		var lagged *broadcast.LaggedError
		switch {
		case err == nil:
			fn(v)
		case errors.As(err, &lagged):
			c.log.Warnw("broadcast_lagged", "consumer", c.name, "dropped", lagged.Count)
			c.metrics.Lagged(c.name, lagged.Count)
		case errors.Is(err, broadcast.ErrClosed):
			c.halt(c.name+" channel closed", err)
			return err
		default:
			return nil
		}
	}
}
