package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"

	alertdomain "github.com/stayware/callguard/internal/alert/domain"
)

// Matcher names, recorded on metrics and the audit trail.
const (
	MatcherAckIP      = "ack_ip"
	MatcherNaturalKey = "natural_key"
)

// Candidate is a would-be alert, reduced to the fields the matchers compare.
// The pipeline computes the vendor/legacy/test flags from the resolved
// property and the raw event before calling in.
type Candidate struct {
	AlertType  int
	PropertyID snowflake.ID
	LocalTime  time.Time
	Extension  string
	SourceIP   string

	VendorRecognized bool
	LegacyMode       bool
	TestTraffic      bool
}

// Match reports which matcher found the duplicate and the alert it matched.
type Match struct {
	Matcher string
	Alert   *alertdomain.AlertRecord
}

// Service runs the candidate through the matcher chain in order and returns
// the first hit, or nil when the candidate is a genuinely new emergency.
type Service interface {
	FindDuplicate(ctx context.Context, candidate Candidate) (*Match, error)
}
