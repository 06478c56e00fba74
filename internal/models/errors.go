package models

import "fmt"

// UnknownNameError is returned when a textual enum value cannot be parsed.
type UnknownNameError struct {
	Kind string
	Name string
}

func (e *UnknownNameError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Kind, e.Name)
}
