package domain

import (
	"strings"
	"time"
)

// Group identifiers the PBX vendors stamp on emergency traffic. Events in
// these groups take vendor-specific resolution and dedup paths.
const (
	GroupOomaEmergency     = "ooma-emergency"
	GroupPeerlessEmergency = "peerless-emergency"
)

// EnterpriseTestSentinel marks vendor test traffic. Events carrying it skip
// natural-key deduplication so a tester redialing 911 raises a fresh alert
// every time.
const EnterpriseTestSentinel = "ooma-test"

// CallEvent is one inbound emergency-call notification as delivered by the
// PBX integration. The pipeline treats it as read-only input. SequenceRef
// is the vendor's raw-data sequence reference, carried through to operator
// notifications for source-side lookups.
type CallEvent struct {
	EnterpriseID string    `json:"enterprise_id"`
	GroupID      string    `json:"group_id"`
	UserID       string    `json:"user_id"`
	Extension    string    `json:"extension"`
	PhoneNumber  string    `json:"phone_number"`
	DialedDigits string    `json:"dialed_digits"`
	StartTime    time.Time `json:"start_time"`
	CallerName   string    `json:"caller_name"`
	SourceIP     string    `json:"source_ip"`
	SequenceRef  string    `json:"sequence_ref"`
}

// Normalize trims identifier fields and pins the start time to UTC.
func (e CallEvent) Normalize() CallEvent {
	e.EnterpriseID = strings.TrimSpace(e.EnterpriseID)
	e.GroupID = strings.TrimSpace(e.GroupID)
	e.UserID = strings.TrimSpace(e.UserID)
	e.Extension = strings.TrimSpace(e.Extension)
	e.PhoneNumber = strings.TrimSpace(e.PhoneNumber)
	e.DialedDigits = strings.TrimSpace(e.DialedDigits)
	e.CallerName = strings.TrimSpace(e.CallerName)
	e.SourceIP = strings.TrimSpace(e.SourceIP)
	e.SequenceRef = strings.TrimSpace(e.SequenceRef)
	if !e.StartTime.IsZero() {
		e.StartTime = e.StartTime.UTC()
	}
	return e
}

// Validate rejects events the pipeline cannot process at all. Everything
// else is accepted and sorted out stage by stage.
func (e CallEvent) Validate() error {
	if e.StartTime.IsZero() {
		return ErrMissingStartTime
	}
	if e.DialedDigits == "" {
		return ErrMissingDialedDigits
	}
	if e.EnterpriseID == "" && e.GroupID == "" && e.UserID == "" {
		return ErrNoRoutingIdentity
	}
	return nil
}

// IsTestTraffic reports whether the event carries the vendor test sentinel.
func (e CallEvent) IsTestTraffic() bool {
	return strings.EqualFold(e.EnterpriseID, EnterpriseTestSentinel)
}

// Snapshot captures the fields worth keeping on the stored alert for later
// operator inspection.
func (e CallEvent) Snapshot() map[string]any {
	return map[string]any{
		"enterprise_id": e.EnterpriseID,
		"group_id":      e.GroupID,
		"user_id":       e.UserID,
		"extension":     e.Extension,
		"phone_number":  e.PhoneNumber,
		"dialed_digits": e.DialedDigits,
		"start_time":    e.StartTime.Format(time.RFC3339),
		"caller_name":   e.CallerName,
		"source_ip":     e.SourceIP,
		"sequence_ref":  e.SequenceRef,
	}
}
