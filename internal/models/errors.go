package models

import (
	"errors"
	"fmt"
)

// ErrRunInProgress is returned when a scan is requested while another is running.
var ErrRunInProgress = errors.New("a scan is already in progress")

// ConfigError reports malformed or missing configuration. It is fatal.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// FetchError reports a network or HTTP failure for one source.
type FetchError struct {
	Source     Source
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s %s: status %d: %v", e.Source, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s %s: %v", e.Source, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Temporary reports whether retrying the request may succeed.
func (e *FetchError) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}

// ParseError reports an unrecognised payload shape for one source.
type ParseError struct {
	Source Source
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// PersistenceError reports a seen-store read or write failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("seen store %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NotificationError reports a notification transport failure.
type NotificationError struct {
	Method string
	Err    error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notify via %s: %v", e.Method, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }
