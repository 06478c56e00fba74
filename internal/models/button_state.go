package models

// ButtonState is the classified intent of one door's button pair.
type ButtonState uint8

const (
	ButtonNone ButtonState = iota
	ButtonOpenContinuous
	ButtonCloseContinuous
	ButtonOpenFully
	ButtonCloseFully
)

func (b ButtonState) String() string {
	switch b {
	case ButtonOpenContinuous:
		return "OPEN_CONTINUOUS"
	case ButtonCloseContinuous:
		return "CLOSE_CONTINUOUS"
	case ButtonOpenFully:
		return "OPEN_FULLY"
	case ButtonCloseFully:
		return "CLOSE_FULLY"
	default:
		return "NONE"
	}
}
