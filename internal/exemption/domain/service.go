package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Exemption scopes, recorded on logs and the audit trail.
const (
	ScopeGlobal   = "global"
	ScopeProperty = "property"
)

// Decision is the outcome of an exemption check. Matched holds the exempt
// digit string the dialed digits equalled, when Exempt is true.
type Decision struct {
	Exempt  bool
	Matched string
	Scope   string
}

// Service decides whether a dialed digit string is exempt from alerting.
// A property's own exempt list, when configured, replaces the
// installation-wide list; the global list is a fallback only.
type Service interface {
	Check(ctx context.Context, propertyID snowflake.ID, dialedDigits string) (Decision, error)
}
