package models

// CommandKind identifies an inbound door command.
type CommandKind uint8

const (
	CommandStop CommandKind = iota
	CommandOpenContinuous
	CommandCloseContinuous
	CommandOpenFully
	CommandCloseFully
	CommandConfigure
)

func (k CommandKind) String() string {
	switch k {
	case CommandOpenContinuous:
		return "OPEN_CONTINUOUS"
	case CommandCloseContinuous:
		return "CLOSE_CONTINUOUS"
	case CommandOpenFully:
		return "OPEN_FULLY"
	case CommandCloseFully:
		return "CLOSE_FULLY"
	case CommandConfigure:
		return "CONFIGURE"
	default:
		return "STOP"
	}
}

// PayloadSize is the fixed body length of every command.
const PayloadSize = 8

// Command is one unit of work for a door node.
// Payload is zero for motion commands and the serialized DoorConfig for CommandConfigure.
type Command struct {
	Kind    CommandKind
	Payload [PayloadSize]byte
}

// DoorCommand addresses a command to a door from the hub.
type DoorCommand struct {
	Door    DoorIdentity
	Command Command
}
