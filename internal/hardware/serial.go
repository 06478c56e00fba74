package hardware

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	defaultBaud          = 115200
	defaultSerialTimeout = 200 * time.Millisecond
)

// ErrBoard is wrapped around every error reported by the board itself.
var ErrBoard = errors.New("board error")

// SerialBoard drives a microcontroller over a line protocol:
//
//	SET <pin> <0|1>  ->  OK
//	ADC <channel>    ->  <millivolts>
//
// Any reply starting with "ERR" is surfaced as ErrBoard.
type SerialBoard struct {
	mu   sync.Mutex
	port io.ReadWriteCloser
	r    *bufio.Reader
}

// OpenSerial opens portName in 8N1 mode.
func OpenSerial(portName string, baud int, timeout time.Duration) (*SerialBoard, error) {
	if portName == "" {
		return nil, errors.New("serial port not configured")
	}
	if baud == 0 {
		baud = defaultBaud
	}
	if timeout == 0 {
		timeout = defaultSerialTimeout
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return newSerialBoard(port), nil
}

func newSerialBoard(rw io.ReadWriteCloser) *SerialBoard {
	return &SerialBoard{port: rw, r: bufio.NewReader(rw)}
}

func (b *SerialBoard) SetPin(pin Pin, high bool) error {
	level := 0
	if high {
		level = 1
	}
	reply, err := b.roundTrip(fmt.Sprintf("SET %d %d", uint8(pin), level))
	if err != nil {
		return err
	}
	if reply != "OK" {
		return fmt.Errorf("set %s: unexpected reply %q", pin, reply)
	}
	return nil
}

func (b *SerialBoard) ReadMillivolts(ch Channel) (uint16, error) {
	reply, err := b.roundTrip(fmt.Sprintf("ADC %d", uint8(ch)))
	if err != nil {
		return 0, err
	}
	mv, err := strconv.ParseUint(reply, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("adc %d: bad reading %q: %w", ch, reply, err)
	}
	return uint16(mv), nil
}

func (b *SerialBoard) roundTrip(req string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := io.WriteString(b.port, req+"\n"); err != nil {
		return "", fmt.Errorf("write %q: %w", req, err)
	}
	line, err := b.r.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read reply to %q: %w", req, err)
	}
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "ERR") {
		return "", fmt.Errorf("%w: %s", ErrBoard, strings.TrimSpace(strings.TrimPrefix(line, "ERR")))
	}
	return line, nil
}

func (b *SerialBoard) Close() error {
	return b.port.Close()
}
