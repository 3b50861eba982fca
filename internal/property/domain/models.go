// Package domain contains the property directory models the resolver walks:
// managed properties plus the vendor-supplied mapping tables that tie a PBX
// identity back to one of them.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// PBX vendor kinds. The dedup IP matcher only trusts acknowledgment IPs from
// these two integrations.
const (
	VendorOoma     = "ooma"
	VendorPeerless = "peerless"
)

// PartnerKindDirect marks gateway groups whose property mapping lives in the
// external partner directory rather than in our own tables.
const PartnerKindDirect = "direct"

// GlobalPropertyID is the sentinel row under which installation-wide
// property_params (such as the shared exempt-digit list) are stored.
const GlobalPropertyID snowflake.ID = 0

// Property is one managed building.
type Property struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	Name       string       `gorm:"type:text;not null" json:"name"`
	PBXVendor  string       `gorm:"type:text;index" json:"pbx_vendor"`
	LegacyMode bool         `gorm:"not null;default:false" json:"legacy_mode"`
	AlertEmail string       `gorm:"type:text" json:"alert_email"`
	AlertPhone string       `gorm:"type:text" json:"alert_phone"`
	AlertSMS   string       `gorm:"type:text" json:"alert_sms"`
	EventFeed  bool         `gorm:"not null;default:false" json:"event_feed"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Property) TableName() string { return "properties" }

// VendorRecognized reports whether the property's PBX integration is one of
// the vendors whose acknowledgment IPs are stable enough to dedup on.
func (p Property) VendorRecognized() bool {
	return p.PBXVendor == VendorOoma || p.PBXVendor == VendorPeerless
}

// PartnerGateway registers a PBX gateway group and how events from it are
// resolved.
type PartnerGateway struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	GroupID   string       `gorm:"type:text;not null;uniqueIndex"`
	Kind      string       `gorm:"type:text;not null"`
	Active    bool         `gorm:"not null;default:true"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PartnerGateway) TableName() string { return "partner_gateways" }

// GatewayAccount ties vendor enterprise codes to a property. EnterpriseCodes
// holds one code or a semicolon-joined list, depending on the vendor feed.
type GatewayAccount struct {
	ID              snowflake.ID `gorm:"primaryKey"`
	PropertyID      snowflake.ID `gorm:"not null;index"`
	GroupID         string       `gorm:"type:text;index"`
	EnterpriseCodes string       `gorm:"type:text;not null;index"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (GatewayAccount) TableName() string { return "gateway_accounts" }

// FirstEnterpriseCode returns the leading entry of the semicolon-joined code
// list, which is the only entry partner scans compare against.
func (g GatewayAccount) FirstEnterpriseCode() string {
	code, _, _ := strings.Cut(g.EnterpriseCodes, ";")
	return strings.TrimSpace(code)
}

// UserExtensionMap resolves a PBX user id to a property and the extension
// provisioned for that user.
type UserExtensionMap struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	UserID     string       `gorm:"type:text;not null;uniqueIndex"`
	PropertyID snowflake.ID `gorm:"not null;index"`
	Extension  string       `gorm:"type:text"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (UserExtensionMap) TableName() string { return "user_extension_maps" }

// LinePortMap resolves a PBX line-port identifier to a property. Some vendor
// feeds put the line port in the user id field, so lookups key on the same
// value either way.
type LinePortMap struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	LinePort   string       `gorm:"type:text;not null;uniqueIndex"`
	PropertyID snowflake.ID `gorm:"not null;index"`
	Extension  string       `gorm:"type:text"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (LinePortMap) TableName() string { return "line_port_maps" }

// PropertyTimezone assigns a property its IANA zone for local-time
// normalization.
type PropertyTimezone struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	PropertyID snowflake.ID `gorm:"not null;uniqueIndex"`
	ZoneName   string       `gorm:"type:text;not null"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PropertyTimezone) TableName() string { return "property_timezones" }

// Well-known property_params names.
const (
	ParamExemptDigits = "exempt_digits"
	ParamUTCHourDiff  = "utc_hour_diff"
)

// PropertyParam is one named setting scoped to a property. Rows under
// GlobalPropertyID apply installation-wide.
type PropertyParam struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	PropertyID snowflake.ID `gorm:"not null;uniqueIndex:ux_property_params_name,priority:1"`
	Name       string       `gorm:"type:text;not null;uniqueIndex:ux_property_params_name,priority:2"`
	Value      string       `gorm:"type:text;not null"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PropertyParam) TableName() string { return "property_params" }
