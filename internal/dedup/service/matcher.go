package service

import (
	"context"
	"strings"

	"gorm.io/gorm"

	alertdomain "github.com/stayware/callguard/internal/alert/domain"
	dedupdomain "github.com/stayware/callguard/internal/dedup/domain"
)

// Matcher is one duplicate-detection rule. Match returns (nil, nil) when the
// rule does not apply to the candidate or finds nothing.
type Matcher interface {
	Name() string
	Match(ctx context.Context, db *gorm.DB, candidate dedupdomain.Candidate) (*alertdomain.AlertRecord, error)
}

// ackIPMatcher treats a repeated source address as the same emergency. It
// only runs when the property's PBX vendor is one whose acknowledgment IPs
// are stable: unrecognized vendors and legacy-mode properties reuse
// addresses across unrelated calls, which would swallow real alerts.
type ackIPMatcher struct {
	alerts alertdomain.Repository
}

func (m *ackIPMatcher) Name() string { return dedupdomain.MatcherAckIP }

func (m *ackIPMatcher) Match(ctx context.Context, db *gorm.DB, candidate dedupdomain.Candidate) (*alertdomain.AlertRecord, error) {
	if !candidate.VendorRecognized || candidate.LegacyMode {
		return nil, nil
	}
	if strings.TrimSpace(candidate.SourceIP) == "" {
		return nil, nil
	}
	return m.alerts.FindByAckIP(ctx, db, candidate.AlertType, candidate.PropertyID, candidate.SourceIP)
}

// naturalKeyMatcher compares the full identity tuple. Vendor test traffic is
// skipped so a tester redialing 911 raises a fresh alert every time.
type naturalKeyMatcher struct {
	alerts alertdomain.Repository
}

func (m *naturalKeyMatcher) Name() string { return dedupdomain.MatcherNaturalKey }

func (m *naturalKeyMatcher) Match(ctx context.Context, db *gorm.DB, candidate dedupdomain.Candidate) (*alertdomain.AlertRecord, error) {
	if candidate.TestTraffic {
		return nil, nil
	}
	return m.alerts.FindByNaturalKey(ctx, db, candidate.AlertType, candidate.PropertyID, candidate.LocalTime, candidate.Extension)
}
