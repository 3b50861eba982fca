package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"

	alertdomain "github.com/stayware/callguard/internal/alert/domain"
	calleventdomain "github.com/stayware/callguard/internal/callevent/domain"
	enrichmentdomain "github.com/stayware/callguard/internal/enrichment/domain"
	localtimedomain "github.com/stayware/callguard/internal/localtime/domain"
	propertydomain "github.com/stayware/callguard/internal/property/domain"
)

// Request carries everything the earlier pipeline stages established about
// one call.
type Request struct {
	Event      calleventdomain.CallEvent
	Property   propertydomain.Property
	Normalized localtimedomain.Normalized
	Context    enrichmentdomain.CallContext
}

// Result reports what Dispatch persisted. Duplicate marks a concurrent
// delivery that lost the natural-key insert race; Alert is then the
// surviving row and no notifications were queued by this call.
type Result struct {
	Alert     *alertdomain.AlertRecord
	Channels  ChannelPlan
	Duplicate bool
}

// OverrideSpec is one per-alert-type adjustment in a channel config write.
type OverrideSpec struct {
	AlertType int   `json:"alert_type"`
	Email     *bool `json:"email"`
	Phone     *bool `json:"phone"`
	SMS       *bool `json:"sms"`
	Popup     *bool `json:"popup"`
}

// ChannelConfig is a property's stored channel configuration. When no
// defaults row exists, Defaults echoes the process fallbacks and
// DefaultsFromFallback is set.
type ChannelConfig struct {
	PropertyID           snowflake.ID   `json:"property_id"`
	Defaults             ChannelPlan    `json:"defaults"`
	DefaultsFromFallback bool           `json:"defaults_from_fallback"`
	Overrides            []OverrideSpec `json:"overrides"`
}

// Service persists the alert and fans it out on the configured channels.
type Service interface {
	// Dispatch creates the AlertRecord and queues one delivery per enabled
	// channel. Channel activation is strictly configuration driven.
	Dispatch(ctx context.Context, req Request) (Result, error)

	// ChannelConfig returns a property's stored channel configuration.
	ChannelConfig(ctx context.Context, propertyID snowflake.ID) (ChannelConfig, error)

	// SaveChannelConfig upserts the defaults row and replaces the override
	// rows for a property.
	SaveChannelConfig(ctx context.Context, propertyID snowflake.ID, defaults ChannelPlan, overrides []OverrideSpec) (ChannelConfig, error)
}
