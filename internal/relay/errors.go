package relay

import (
	"fmt"
	"strings"
)

// MissingEnvError is returned when required configuration is missing.
type MissingEnvError struct {
	Component string
	Variables []string
}

func (e MissingEnvError) Error() string {
	if len(e.Variables) == 0 {
		return fmt.Sprintf("%s credentials not configured", e.Component)
	}
	return fmt.Sprintf("%s credentials not configured (missing %s)", e.Component, strings.Join(e.Variables, ", "))
}

// AuthError reports a failed platform login for one account pair. It is
// fatal for that pair's relay only.
type AuthError struct {
	Platform string
	Handle   string
	Err      error
}

func (e AuthError) Error() string {
	return fmt.Sprintf("%s login failed for %s: %v", e.Platform, e.Handle, e.Err)
}

func (e AuthError) Unwrap() error { return e.Err }
