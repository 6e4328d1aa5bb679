package types

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateExtension is returned when a package id is already registered
	ErrDuplicateExtension = errors.New("extension already registered")
	// ErrMissingDependency is returned when a declared dependency is not registered
	ErrMissingDependency = errors.New("missing dependency")
	// ErrVersionMismatch is returned when a registered dependency does not
	// satisfy the declared version range
	ErrVersionMismatch = errors.New("dependency version mismatch")
	// ErrInvalidAdapterState is returned on an illegal adapter transition,
	// e.g. mounting an already mounted adapter
	ErrInvalidAdapterState = errors.New("invalid adapter state")
	// ErrVetoedDeletion is returned when an App's before-delete gate vetoes
	ErrVetoedDeletion = errors.New("deletion vetoed")
	// ErrExtensionNotFound is returned when a package id is not registered
	ErrExtensionNotFound = errors.New("extension not found")
)

// HookError wraps a hook or script failure with its phase and App id
type HookError struct {
	AppID string
	Phase string
	Err   error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("hook %s of app %s failed: %v", e.Phase, e.AppID, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// NewHookError wraps err with phase and App id
func NewHookError(appID, phase string, err error) *HookError {
	return &HookError{AppID: appID, Phase: phase, Err: err}
}
