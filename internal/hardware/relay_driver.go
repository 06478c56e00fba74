package hardware

import (
	"fmt"
	"time"
)

// Direction is the relay pair's energized side.
type Direction uint8

const (
	DirectionNone Direction = iota
	DirectionOpening
	DirectionClosing
)

const (
	// DefaultSettleDelay separates releasing one relay from energizing the other.
	DefaultSettleDelay = 50 * time.Millisecond
	// CurrentScale converts sense millivolts to the scaled current compared against thresholds.
	CurrentScale = 80
)

// Current is a pair of scaled current readings.
type Current struct {
	Opening uint32 `json:"opening"`
	Closing uint32 `json:"closing"`
}

// RelayDriver owns the relay pair and the current-sense inputs of one door.
// It is not safe for concurrent use.
type RelayDriver struct {
	out       Output
	adc       ADC
	settle    time.Duration
	sleep     func(time.Duration)
	direction Direction
}

// DriverOption customises a RelayDriver.
type DriverOption func(*RelayDriver)

// WithSleep replaces the settle-delay sleep, mainly for tests.
func WithSleep(fn func(time.Duration)) DriverOption {
	return func(d *RelayDriver) { d.sleep = fn }
}

// WithSettleDelay overrides DefaultSettleDelay.
func WithSettleDelay(delay time.Duration) DriverOption {
	return func(d *RelayDriver) { d.settle = delay }
}

// NewRelayDriver wraps the given pins and inputs.
func NewRelayDriver(out Output, adc ADC, opts ...DriverOption) *RelayDriver {
	d := &RelayDriver{
		out:    out,
		adc:    adc,
		settle: DefaultSettleDelay,
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Direction returns the side currently energized.
func (d *RelayDriver) Direction() Direction { return d.direction }

// StartOpening releases the close relay, waits the settle delay, then energizes the open relay.
func (d *RelayDriver) StartOpening() error {
	return d.start(DirectionOpening, PinCloseRelay, PinOpenRelay)
}

// StartClosing releases the open relay, waits the settle delay, then energizes the close relay.
func (d *RelayDriver) StartClosing() error {
	return d.start(DirectionClosing, PinOpenRelay, PinCloseRelay)
}

func (d *RelayDriver) start(dir Direction, release, energize Pin) error {
	if d.direction == dir {
		return nil
	}
	if err := d.out.SetPin(release, false); err != nil {
		return fmt.Errorf("release %s: %w", release, err)
	}
	// Until the energize succeeds neither relay is known to be on.
	d.direction = DirectionNone
	d.sleep(d.settle)
	if err := d.out.SetPin(energize, true); err != nil {
		return fmt.Errorf("energize %s: %w", energize, err)
	}
	d.direction = dir
	return nil
}

// Interrupt de-energizes both relays.
func (d *RelayDriver) Interrupt() error {
	errClose := d.out.SetPin(PinCloseRelay, false)
	errOpen := d.out.SetPin(PinOpenRelay, false)
	if errClose != nil {
		return fmt.Errorf("release %s: %w", PinCloseRelay, errClose)
	}
	if errOpen != nil {
		return fmt.Errorf("release %s: %w", PinOpenRelay, errOpen)
	}
	d.direction = DirectionNone
	return nil
}

// ReadCurrent samples both sense resistors and scales millivolts by CurrentScale.
func (d *RelayDriver) ReadCurrent() (Current, error) {
	closingMV, err := d.adc.ReadMillivolts(ChannelClosingSense)
	if err != nil {
		return Current{}, fmt.Errorf("read closing sense: %w", err)
	}
	openingMV, err := d.adc.ReadMillivolts(ChannelOpeningSense)
	if err != nil {
		return Current{}, fmt.Errorf("read opening sense: %w", err)
	}
	return Current{
		Opening: uint32(openingMV) * CurrentScale,
		Closing: uint32(closingMV) * CurrentScale,
	}, nil
}
