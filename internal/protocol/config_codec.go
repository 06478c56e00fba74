// Package protocol defines the hub/door wire contract: endpoint paths and the
// fixed 8-byte payload shared by every command.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"

	"power_windows/internal/models"
)

// ErrPayloadSize is returned for any payload that is not exactly models.PayloadSize bytes.
var ErrPayloadSize = errors.New("payload must be exactly 8 bytes")

// EncodeConfig serializes cfg big-endian; bytes [6:8) stay zero.
func EncodeConfig(cfg models.DoorConfig) [models.PayloadSize]byte {
	var buf [models.PayloadSize]byte
	binary.BigEndian.PutUint16(buf[0:2], cfg.OpeningCurrentThreshold)
	binary.BigEndian.PutUint16(buf[2:4], cfg.ClosingCurrentThreshold)
	binary.BigEndian.PutUint16(buf[4:6], cfg.HandleTimeThresholdMs)
	return buf
}

// DecodeConfig is the inverse of EncodeConfig. The reserved bytes are ignored.
func DecodeConfig(buf [models.PayloadSize]byte) models.DoorConfig {
	return models.DoorConfig{
		OpeningCurrentThreshold: binary.BigEndian.Uint16(buf[0:2]),
		ClosingCurrentThreshold: binary.BigEndian.Uint16(buf[2:4]),
		HandleTimeThresholdMs:   binary.BigEndian.Uint16(buf[4:6]),
	}
}

// ParseConfig decodes a variable-length buffer, rejecting anything but 8 bytes.
func ParseConfig(b []byte) (models.DoorConfig, error) {
	buf, err := ToPayload(b)
	if err != nil {
		return models.DoorConfig{}, err
	}
	return DecodeConfig(buf), nil
}

// ToPayload copies b into a fixed payload array.
func ToPayload(b []byte) ([models.PayloadSize]byte, error) {
	var buf [models.PayloadSize]byte
	if len(b) != models.PayloadSize {
		return buf, fmt.Errorf("%w: got %d", ErrPayloadSize, len(b))
	}
	copy(buf[:], b)
	return buf, nil
}
