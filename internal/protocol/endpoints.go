package protocol

import "power_windows/internal/models"

// Door node endpoint paths. Every one is a POST with an 8-byte body.
const (
	OpenContinuousPath      = "/open-continuous"
	CloseContinuousPath     = "/close-continuous"
	OpenFullyPath           = "/open-fully"
	CloseFullyPath          = "/close-fully"
	StopPath                = "/stop"
	ConfigureThresholdsPath = "/configure-thresholds"
)

var commandPaths = map[models.CommandKind]string{
	models.CommandStop:            StopPath,
	models.CommandOpenContinuous:  OpenContinuousPath,
	models.CommandCloseContinuous: CloseContinuousPath,
	models.CommandOpenFully:       OpenFullyPath,
	models.CommandCloseFully:      CloseFullyPath,
	models.CommandConfigure:       ConfigureThresholdsPath,
}

// PathFor returns the endpoint serving kind.
func PathFor(kind models.CommandKind) string {
	if p, ok := commandPaths[kind]; ok {
		return p
	}
	return StopPath
}

// KindForPath is the inverse of PathFor.
func KindForPath(path string) (models.CommandKind, bool) {
	for k, p := range commandPaths {
		if p == path {
			return k, true
		}
	}
	return 0, false
}

// CommandForButton maps a classified button intent to the command relayed to a door.
func CommandForButton(b models.ButtonState) models.Command {
	switch b {
	case models.ButtonOpenContinuous:
		return models.Command{Kind: models.CommandOpenContinuous}
	case models.ButtonCloseContinuous:
		return models.Command{Kind: models.CommandCloseContinuous}
	case models.ButtonOpenFully:
		return models.Command{Kind: models.CommandOpenFully}
	case models.ButtonCloseFully:
		return models.Command{Kind: models.CommandCloseFully}
	default:
		return models.Command{Kind: models.CommandStop}
	}
}

// ConfigureCommand wraps cfg into a configure-thresholds command.
func ConfigureCommand(cfg models.DoorConfig) models.Command {
	return models.Command{Kind: models.CommandConfigure, Payload: EncodeConfig(cfg)}
}

// ParseCommandName accepts the path form ("open-fully") of a motion command.
func ParseCommandName(name string) (models.CommandKind, bool) {
	kind, ok := KindForPath("/" + name)
	if !ok || kind == models.CommandConfigure {
		return 0, false
	}
	return kind, true
}
