package types

import "time"

// TunnelType is the transport type of a tunnel
type TunnelType string

const (
	TunnelHTTP      TunnelType = "http"
	TunnelHTTPS     TunnelType = "https"
	TunnelTCP       TunnelType = "tcp"
	TunnelUDP       TunnelType = "udp"
	TunnelWireGuard TunnelType = "wireguard"
)

// Well-known tunnel statuses. The status set is open: hosts may define
// additional values and the runtime accepts any string as valid.
const (
	TunnelStatusActive   = "active"
	TunnelStatusStopped  = "stopped"
	TunnelStatusInactive = "inactive"
)

// Tunnel represents a networked forward managed by the host application.
// The runtime only reads tunnels; their lifecycle belongs to the host's
// networking subsystem.
type Tunnel struct {
	// ID is the identity of the tunnel
	ID string `json:"id"`
	// Name is the display name of the tunnel
	Name string `json:"name"`
	// Type is the transport type, e.g. http, tcp, wireguard
	Type TunnelType `json:"type"`
	// Status is the current status, open string set
	Status string `json:"status"`
	// LocalPort is the local port being forwarded
	LocalPort int `json:"local_port,omitempty"`
	// RemotePort is the remote port, if assigned
	RemotePort int `json:"remote_port,omitempty"`
	// URL is the public URL, if assigned
	URL string `json:"url,omitempty"`
	// AppID links the tunnel to an installed App. An id that no longer
	// resolves to a registered App is tolerated, the runtime falls back
	// to default rendering.
	AppID string `json:"app_id,omitempty"`
	// CreatedAt is the creation time, if known
	CreatedAt *time.Time `json:"created_at,omitempty"`
	// Attrs carries extension-defined attributes
	Attrs map[string]any `json:"attrs,omitempty"`
}
