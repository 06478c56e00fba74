package service

import "power_windows/internal/models"

// Button voltage thresholds in millivolts.
const (
	ContinuousThreshold = 300
	FullThreshold       = 700
)

// ClassifyVoltage maps one door's open/close button readings to a ButtonState.
// Both buttons above the continuous threshold is an operator error and yields ButtonNone.
func ClassifyVoltage(openMV, closeMV uint16) models.ButtonState {
	if BothPressed(openMV, closeMV) {
		return models.ButtonNone
	}
	switch {
	case openMV > ContinuousThreshold:
		if openMV > FullThreshold {
			return models.ButtonOpenFully
		}
		return models.ButtonOpenContinuous
	case closeMV > ContinuousThreshold:
		if closeMV > FullThreshold {
			return models.ButtonCloseFully
		}
		return models.ButtonCloseContinuous
	}
	return models.ButtonNone
}

// BothPressed reports the conflicting both-buttons condition.
func BothPressed(openMV, closeMV uint16) bool {
	return openMV > ContinuousThreshold && closeMV > ContinuousThreshold
}
