package models

import (
	"net"
	"time"
)

// DoorIdentity is the logical tag of a door node, bound to a MAC address by configuration.
type DoorIdentity string

const (
	LeftDoor  DoorIdentity = "left_door"
	RightDoor DoorIdentity = "right_door"
)

// DoorConfig holds the thresholds a door node supervises against.
// Current thresholds are compared against the raw scaled reading (mV × 80).
type DoorConfig struct {
	OpeningCurrentThreshold uint16 `json:"opening_current_threshold" mapstructure:"opening_current"`
	ClosingCurrentThreshold uint16 `json:"closing_current_threshold" mapstructure:"closing_current"`
	HandleTimeThresholdMs   uint16 `json:"handle_time_threshold_ms" mapstructure:"handle_time_ms"`
}

// HandleTimeThreshold returns the inactivity window as a duration.
func (c DoorConfig) HandleTimeThreshold() time.Duration {
	return time.Duration(c.HandleTimeThresholdMs) * time.Millisecond
}

// DefaultDoorConfig is applied when nothing is configured or persisted.
func DefaultDoorConfig() DoorConfig {
	return DoorConfig{
		OpeningCurrentThreshold: 20,
		ClosingCurrentThreshold: 20,
		HandleTimeThresholdMs:   300,
	}
}

// LinkClient is one station reported by the link layer.
type LinkClient struct {
	MAC net.HardwareAddr
	IP  net.IP
}

// DoorRecord is the hub's view of one door's reachability.
type DoorRecord struct {
	Identity DoorIdentity     `json:"identity"`
	MAC      net.HardwareAddr `json:"-"`
	IP       net.IP           `json:"ip,omitempty"`
	SeenAt   time.Time        `json:"seen_at,omitempty"`
}

// Reachable reports whether an address is currently known.
func (r DoorRecord) Reachable() bool {
	return r.IP != nil
}

// DoorChangeKind classifies a registry transition.
type DoorChangeKind string

const (
	DoorConnected      DoorChangeKind = "CONNECTED"
	DoorAddressChanged DoorChangeKind = "ADDRESS_CHANGED"
	DoorDisconnected   DoorChangeKind = "DISCONNECTED"
)

// DoorChange describes a single registry transition.
type DoorChange struct {
	Identity DoorIdentity   `json:"identity"`
	Kind     DoorChangeKind `json:"kind"`
	OldIP    net.IP         `json:"old_ip,omitempty"`
	NewIP    net.IP         `json:"new_ip,omitempty"`
}

// DoorSnapshot is the diagnostic view of a door node.
type DoorSnapshot struct {
	Identity       DoorIdentity `json:"identity"`
	State          MotionState  `json:"state"`
	LastHandleTime time.Time    `json:"last_handle_time,omitempty"`
	Config         DoorConfig   `json:"config"`
	Active         bool         `json:"active"` // relays energized
	FaultCount     uint32       `json:"fault_count"`
	Debug          bool         `json:"debug"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
