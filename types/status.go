package types

// Package status constants
const (
	// StatusInstalled indicates the package is registered but not enabled
	StatusInstalled = "installed"
	// StatusActive indicates the package is registered and enabled
	StatusActive = "active"
	// StatusDisabled indicates the package has been deactivated
	StatusDisabled = "disabled"
	// StatusError indicates a lifecycle script reported an error
	StatusError = "error"
)
