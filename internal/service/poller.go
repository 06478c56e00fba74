package service

import (
	"context"
	"fmt"
	"time"

	"power_windows/internal/broadcast"
	"power_windows/internal/hardware"
	"power_windows/internal/logger"
	"power_windows/internal/models"
	"power_windows/internal/protocol"
)

// DefaultPollInterval is the hub's button sampling cadence.
const DefaultPollInterval = 100 * time.Millisecond

// ButtonPair is the pair of ADC channels wired to one door's buttons.
type ButtonPair struct {
	Door         models.DoorIdentity
	OpenChannel  hardware.Channel
	CloseChannel hardware.Channel
}

// ButtonPoller samples every button pair and publishes one command per door
// per tick. ButtonNone becomes stop, which keeps continuous motions bounded
// by the door's timeout and is ignored by fully motions.
type ButtonPoller struct {
	adc   hardware.ADC
	pairs []ButtonPair
	out   *broadcast.Broadcaster[models.DoorCommand]
	log   *logger.Logger
}

func NewButtonPoller(adc hardware.ADC, pairs []ButtonPair, out *broadcast.Broadcaster[models.DoorCommand], log *logger.Logger) *ButtonPoller {
	if log == nil {
		log = logger.NewNop()
	}
	return &ButtonPoller{adc: adc, pairs: pairs, out: out, log: log}
}

// Poll reads and publishes one round. A pair whose read fails is skipped.
func (p *ButtonPoller) Poll() {
	for _, pair := range p.pairs {
		state, err := p.read(pair)
		if err != nil {
			p.log.Errorw("button_read_failed", "door", pair.Door, "error", err)
			continue
		}
		p.out.Publish(models.DoorCommand{Door: pair.Door, Command: protocol.CommandForButton(state)})
	}
}

func (p *ButtonPoller) read(pair ButtonPair) (models.ButtonState, error) {
	openMV, err := p.adc.ReadMillivolts(pair.OpenChannel)
	if err != nil {
		return models.ButtonNone, fmt.Errorf("read open button: %w", err)
	}
	closeMV, err := p.adc.ReadMillivolts(pair.CloseChannel)
	if err != nil {
		return models.ButtonNone, fmt.Errorf("read close button: %w", err)
	}
	if BothPressed(openMV, closeMV) {
		p.log.Warnw("buttons_both_pressed", "door", pair.Door, "open_mv", openMV, "close_mv", closeMV)
	}
	return ClassifyVoltage(openMV, closeMV), nil
}

// Run polls every interval until ctx ends.
func (p *ButtonPoller) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.Poll()
		}
	}
}
