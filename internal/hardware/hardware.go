// Package hardware abstracts the pins and ADC channels the nodes drive.
// The simulated board backs tests and bench runs; the serial board talks to
// a microcontroller that owns the real pins.
package hardware

import (
	"fmt"
	"time"
)

// Pin identifies a digital output.
type Pin uint8

const (
	PinOpenRelay Pin = iota
	PinCloseRelay
)

func (p Pin) String() string {
	switch p {
	case PinOpenRelay:
		return "open_relay"
	case PinCloseRelay:
		return "close_relay"
	default:
		return fmt.Sprintf("pin_%d", uint8(p))
	}
}

// Channel identifies an ADC input.
type Channel uint8

// Door node sense channels.
const (
	ChannelOpeningSense Channel = 0
	ChannelClosingSense Channel = 1
)

// Output sets digital pins.
type Output interface {
	SetPin(pin Pin, high bool) error
}

// ADC reads analog inputs in millivolts.
type ADC interface {
	ReadMillivolts(ch Channel) (uint16, error)
}

// Board is a complete hardware-access collaborator.
type Board interface {
	Output
	ADC
	Close() error
}

// Config selects and parameterises a board.
type Config struct {
	Driver     string        `mapstructure:"driver"` // sim | serial
	SerialPort string        `mapstructure:"serial_port"`
	Baud       int           `mapstructure:"baud"`
	Timeout    time.Duration `mapstructure:"timeout"`
	// Simulated motor: after Travel with a relay energized its sense line reads StallMillivolts.
	Travel          time.Duration `mapstructure:"travel"`
	StallMillivolts uint16        `mapstructure:"stall_mv"`
}

// Open builds the board named by cfg.Driver.
func Open(cfg Config) (Board, error) {
	switch cfg.Driver {
	case "", "sim":
		sim := NewSimulated()
		if cfg.Travel > 0 {
			sim.SetMotor(cfg.Travel, cfg.StallMillivolts)
		}
		return sim, nil
	case "serial":
		board, err := OpenSerial(cfg.SerialPort, cfg.Baud, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return board, nil
	default:
		return nil, fmt.Errorf("unknown hardware driver %q", cfg.Driver)
	}
}
