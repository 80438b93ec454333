package types

import (
	"errors"
	"fmt"
)

// DiscoveryError is returned when the service root cannot be walked. It is
// fatal to the run.
type DiscoveryError struct {
	Root string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery failed for %s: %v", e.Root, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// NewDiscoveryError creates a new DiscoveryError
func NewDiscoveryError(root string, err error) *DiscoveryError {
	return &DiscoveryError{Root: root, Err: err}
}

// IsDiscoveryError checks if the error is or wraps a DiscoveryError
func IsDiscoveryError(err error) bool {
	var target *DiscoveryError
	return err != nil && errors.As(err, &target)
}

// AdapterError covers a native tool that could not be started, timed out or
// was cancelled. It is recorded as a synthetic failure for the service.
type AdapterError struct {
	Service string
	Command string
	Err     error
}

func (e *AdapterError) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("service %s: %v", e.Service, e.Err)
	}
	return fmt.Sprintf("service %s: %s: %v", e.Service, e.Command, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// NewAdapterError creates a new AdapterError
func NewAdapterError(service, command string, err error) *AdapterError {
	return &AdapterError{Service: service, Command: command, Err: err}
}

// IsAdapterError checks if the error is or wraps an AdapterError
func IsAdapterError(err error) bool {
	var target *AdapterError
	return err != nil && errors.As(err, &target)
}

// ParseError is returned by structured report parsers. Callers fall back to
// the next strategy.
type ParseError struct {
	Format string
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("parse %s: %v", e.Format, e.Err)
	}
	return fmt.Sprintf("parse %s %s: %v", e.Format, e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, source string, err error) *ParseError {
	return &ParseError{Format: format, Source: source, Err: err}
}

// IsParseError checks if the error is or wraps a ParseError
func IsParseError(err error) bool {
	var target *ParseError
	return err != nil && errors.As(err, &target)
}

// SinkError is returned when a report cannot be persisted. Local write
// failures are fatal; upload failures are only logged.
type SinkError struct {
	Upload bool
	Target string
	Err    error
}

func (e *SinkError) Error() string {
	op := "write"
	if e.Upload {
		op = "upload"
	}
	return fmt.Sprintf("report %s to %s failed: %v", op, e.Target, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// NewSinkError creates a new SinkError
func NewSinkError(upload bool, target string, err error) *SinkError {
	return &SinkError{Upload: upload, Target: target, Err: err}
}

// IsSinkError checks if the error is or wraps a SinkError
func IsSinkError(err error) bool {
	var target *SinkError
	return err != nil && errors.As(err, &target)
}

// IsUploadError checks if the error is or wraps a SinkError raised by an upload.
func IsUploadError(err error) bool {
	var target *SinkError
	return err != nil && errors.As(err, &target) && target.Upload
}
