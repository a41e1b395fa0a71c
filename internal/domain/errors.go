package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks an expected element or page that is absent.
	ErrNotFound = errors.New("not found")
	// ErrTimeout marks a wait that expired.
	ErrTimeout = errors.New("timeout")
)

// ParseError reports a malformed date or case identifier. It aborts the affected case only.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NavigationError reports that a case page could not be opened.
type NavigationError struct {
	CaseID CaseID
	State  LookupState
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("open case %s: %s", e.CaseID, e.State)
}

func (e *NavigationError) Unwrap() error {
	if e.State == LookupTimeout {
		return ErrTimeout
	}
	return ErrNotFound
}

// DownloadFailure reports a single document that could not be saved.
type DownloadFailure struct {
	CaseID   CaseID
	Filename string
	Err      error
}

func (e *DownloadFailure) Error() string {
	return fmt.Sprintf("download %s for case %s: %v", e.Filename, e.CaseID, e.Err)
}

func (e *DownloadFailure) Unwrap() error {
	return e.Err
}

// CriticalFailure is an error or panic that escaped the run loop.
type CriticalFailure struct {
	Stage string
	Err   error
}

func (e *CriticalFailure) Error() string {
	return fmt.Sprintf("critical failure during %s: %v", e.Stage, e.Err)
}

func (e *CriticalFailure) Unwrap() error {
	return e.Err
}
