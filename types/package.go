package types

import "context"

// ScriptFunc is a package lifecycle script. Scripts may suspend; the
// loader awaits them and runs each exactly once per transition.
type ScriptFunc func(ctx context.Context) error

// ExtensionMetadata identifies a distributable extension package.
// Metadata.ID is the package's registry key, distinct from the App id
// that Tunnel.AppID references.
type ExtensionMetadata struct {
	// ID is the package identity, unique within the registry
	ID string `json:"id" validate:"required"`
	// Name is the display name
	Name string `json:"name" validate:"required"`
	// Version is the semantic version of the package
	Version string `json:"version" validate:"required,semver"`
	// Description is the description of the package
	Description string `json:"description,omitempty"`
	// Author is the package author
	Author string `json:"author,omitempty"`
	// Dependencies maps required extension ids to semver version ranges
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// ExtensionPackage is the distributable unit: metadata, exactly one App
// definition and the optional lifecycle scripts.
type ExtensionPackage struct {
	Metadata ExtensionMetadata `json:"metadata"`
	App      *AppDefinition    `json:"app" validate:"required"`

	// Lifecycle scripts. Install runs once before the package is marked
	// installed; uninstall once before removal; activate/deactivate on
	// each enable/disable toggle. All optional.
	OnInstall    ScriptFunc `json:"-"`
	OnUninstall  ScriptFunc `json:"-"`
	OnActivate   ScriptFunc `json:"-"`
	OnDeactivate ScriptFunc `json:"-"`
}

// Wrapper pairs a registered package with its metadata snapshot
type Wrapper struct {
	Metadata ExtensionMetadata `json:"metadata"`
	Package  *ExtensionPackage `json:"-"`
}
