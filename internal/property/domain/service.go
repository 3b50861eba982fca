package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// ResolveRequest carries the identity fields a call event offers for
// property resolution.
type ResolveRequest struct {
	EnterpriseID string `json:"enterprise_id"`
	GroupID      string `json:"group_id"`
	UserID       string `json:"user_id"`
}

// Resolution names the property an event belongs to. Extension is set when
// the matching mapping row carries a provisioned extension that overrides
// whatever the event reported.
type Resolution struct {
	Property  *Property
	Extension string
	Source    string
}

// Resolution sources, recorded on logs and metrics.
const (
	ResolutionSourceDirectory      = "partner_directory"
	ResolutionSourceGatewayScan    = "gateway_scan"
	ResolutionSourceUserExtension  = "user_extension_map"
	ResolutionSourceLinePort       = "line_port_map"
	ResolutionSourceEnterpriseCode = "enterprise_code"
)

// Directory is the external partner directory consulted for gateway groups
// registered as direct integrations.
type Directory interface {
	// LookupProperty maps a partner enterprise id to our property id.
	// Returns ErrDirectoryNoMapping when the partner does not know the id
	// and an ErrDirectoryUnavailable-wrapped error on transport failure.
	LookupProperty(ctx context.Context, enterpriseID, groupID string) (snowflake.ID, error)
}

type Service interface {
	Resolve(ctx context.Context, req ResolveRequest) (*Resolution, error)
	Get(ctx context.Context, id snowflake.ID) (*Property, error)
	// Param reads one property_params value. The bool reports whether the
	// row exists; callers needing the installation-wide default query
	// GlobalPropertyID themselves.
	Param(ctx context.Context, propertyID snowflake.ID, name string) (string, bool, error)
	Timezone(ctx context.Context, propertyID snowflake.ID) (*PropertyTimezone, error)
}
