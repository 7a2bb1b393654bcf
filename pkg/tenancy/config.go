// Package tenancy provides multi-tenant context resolution and middleware
// for the registry server. It supports a single-tenant mode for local
// deployments and a header/query-based multi-tenant mode.
package tenancy

// Mode controls how tenant context is resolved.
type Mode string

const (
	// ModeSingle uses the "default" tenant for all requests.
	ModeSingle Mode = "single"
	// ModeHeader requires a tenant ID per request (multi-tenant).
	ModeHeader Mode = "header"
)
