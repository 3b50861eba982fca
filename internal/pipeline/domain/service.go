// Package domain defines the pipeline's terminal contract: one CallEvent in,
// one Outcome out.
package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"

	calleventdomain "github.com/stayware/callguard/internal/callevent/domain"
)

// Terminal statuses of one pipeline run. Exempt and duplicate are successful
// no-op terminations; only failed is an error.
const (
	StatusDone      = "done"
	StatusExempt    = "exempt"
	StatusDuplicate = "duplicate"
	StatusFailed    = "failed"
)

// Reason codes reported on the outcome and the call-events metric.
const (
	ReasonAlertCreated        = "alert_created"
	ReasonExemptDigits        = "exempt_digits"
	ReasonDuplicateAckIP      = "duplicate_ack_ip"
	ReasonDuplicateNaturalKey = "duplicate_natural_key"
	ReasonPropertyNotFound    = "property_not_found"
	ReasonPartnerLookupFailed = "partner_lookup_failed"
	ReasonInvalidEvent        = "invalid_event"
	ReasonStorageFailure      = "storage_failure"
)

// Outcome is the terminal disposition of one CallEvent.
type Outcome struct {
	Status     string       `json:"status"`
	Reason     string       `json:"reason"`
	AlertID    snowflake.ID `json:"alert_id,omitempty"`
	PropertyID snowflake.ID `json:"property_id,omitempty"`
}

// Success reports whether the run terminated without error.
func (o Outcome) Success() bool { return o.Status != StatusFailed }

// Service runs one CallEvent through resolution, exemption, time
// normalization, deduplication, enrichment and dispatch. The returned error
// is non-nil exactly when the Outcome status is failed.
type Service interface {
	Process(ctx context.Context, event calleventdomain.CallEvent) (Outcome, error)
}
