package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"

	alertdomain "github.com/stayware/callguard/internal/alert/domain"
	auditlogdomain "github.com/stayware/callguard/internal/auditlog/domain"
	calleventdomain "github.com/stayware/callguard/internal/callevent/domain"
	"github.com/stayware/callguard/internal/clock"
	"github.com/stayware/callguard/internal/cloudmetrics"
	"github.com/stayware/callguard/internal/config"
	dedupdomain "github.com/stayware/callguard/internal/dedup/domain"
	dispatchdomain "github.com/stayware/callguard/internal/dispatch/domain"
	enrichmentdomain "github.com/stayware/callguard/internal/enrichment/domain"
	exemptiondomain "github.com/stayware/callguard/internal/exemption/domain"
	localtimedomain "github.com/stayware/callguard/internal/localtime/domain"
	obsmetrics "github.com/stayware/callguard/internal/observability/metrics"
	"github.com/stayware/callguard/internal/pipeline/domain"
	propertydomain "github.com/stayware/callguard/internal/property/domain"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Clock      clock.Clock
	Holder     *config.AlertingConfigHolder
	Trail      auditlogdomain.Service
	Properties propertydomain.Service
	Exemptions exemptiondomain.Service
	LocalTime  localtimedomain.Service
	Dedup      dedupdomain.Service
	Enrichment enrichmentdomain.Service
	Dispatch   dispatchdomain.Service
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

type service struct {
	log        *zap.Logger
	clock      clock.Clock
	holder     *config.AlertingConfigHolder
	trail      auditlogdomain.Service
	properties propertydomain.Service
	exemptions exemptiondomain.Service
	localTime  localtimedomain.Service
	dedup      dedupdomain.Service
	enrichment enrichmentdomain.Service
	dispatch   dispatchdomain.Service
	metrics    *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &service{
		log:        p.Log.Named("pipeline"),
		clock:      p.Clock,
		holder:     p.Holder,
		trail:      p.Trail,
		properties: p.Properties,
		exemptions: p.Exemptions,
		localTime:  p.LocalTime,
		dedup:      p.Dedup,
		enrichment: p.Enrichment,
		dispatch:   p.Dispatch,
		metrics:    p.Metrics,
	}
}

// Process walks one call event through resolution, exemption, time
// normalization, dedup, enrichment and dispatch. Every exit path writes an
// audit trail line before returning.
func (s *service) Process(ctx context.Context, event calleventdomain.CallEvent) (domain.Outcome, error) {
	event = event.Normalize()

	if err := event.Validate(); err != nil {
		s.record(ctx, auditlogdomain.StageRejected, event, err.Error())
		return s.fail(ctx, domain.ReasonInvalidEvent, 0, err)
	}

	resolution, err := s.properties.Resolve(ctx, propertydomain.ResolveRequest{
		EnterpriseID: event.EnterpriseID,
		GroupID:      event.GroupID,
		UserID:       event.UserID,
	})
	if err != nil {
		reason := domain.ReasonPropertyNotFound
		if errors.Is(err, propertydomain.ErrPartnerPropertyNotFound) ||
			errors.Is(err, propertydomain.ErrDirectoryUnavailable) ||
			errors.Is(err, propertydomain.ErrDirectoryNoMapping) {
			reason = domain.ReasonPartnerLookupFailed
		}
		s.record(ctx, auditlogdomain.StagePropertyNotFound, event, err.Error())
		return s.fail(ctx, reason, 0, err)
	}
	property := resolution.Property

	// A provisioned extension on the mapping row replaces whatever the
	// event reported, before dedup sees it, so redeliveries keep matching.
	if ext := strings.TrimSpace(resolution.Extension); ext != "" {
		event.Extension = ext
	}

	s.record(ctx, auditlogdomain.StageEntry, event,
		fmt.Sprintf("property=%s source=%s digits=%s", property.ID, resolution.Source, event.DialedDigits))

	decision, err := s.exemptions.Check(ctx, property.ID, event.DialedDigits)
	if err != nil {
		s.record(ctx, auditlogdomain.StageStorageFailure, event, err.Error())
		return s.fail(ctx, domain.ReasonStorageFailure, property.ID, err)
	}
	if decision.Exempt {
		s.record(ctx, auditlogdomain.StageExemptDigits, event,
			fmt.Sprintf("matched=%s scope=%s", decision.Matched, decision.Scope))
		return s.finish(ctx, domain.Outcome{
			Status:     domain.StatusExempt,
			Reason:     domain.ReasonExemptDigits,
			PropertyID: property.ID,
		})
	}

	normalized, err := s.localTime.Normalize(ctx, property.ID, event.StartTime)
	if err != nil {
		s.log.Warn("time normalization failed, keeping raw utc",
			zap.String("property_id", property.ID.String()),
			zap.Error(err))
		normalized = localtimedomain.Normalized{
			LocalTime: event.StartTime.UTC(),
			Source:    localtimedomain.SourceRawUTC,
		}
	}
	s.record(ctx, auditlogdomain.StageConvertedTime, event,
		fmt.Sprintf("local=%s source=%s",
			normalized.LocalTime.Format(s.holder.Get().AuditTimeLayout), normalized.Source))

	match, err := s.dedup.FindDuplicate(ctx, dedupdomain.Candidate{
		AlertType:        alertdomain.AlertTypeEmergency,
		PropertyID:       property.ID,
		LocalTime:        normalized.LocalTime,
		Extension:        event.Extension,
		SourceIP:         event.SourceIP,
		VendorRecognized: property.VendorRecognized(),
		LegacyMode:       property.LegacyMode,
		TestTraffic:      event.IsTestTraffic(),
	})
	if err != nil {
		s.record(ctx, auditlogdomain.StageStorageFailure, event, err.Error())
		return s.fail(ctx, domain.ReasonStorageFailure, property.ID, err)
	}
	if match != nil {
		return s.duplicate(ctx, event, property.ID, match.Matcher, match.Alert)
	}

	enriched, err := s.enrichment.Enrich(ctx, property.ID, event.Extension)
	if err != nil {
		s.log.Warn("context enrichment degraded",
			zap.String("property_id", property.ID.String()),
			zap.String("extension", event.Extension),
			zap.Error(err))
	}

	result, err := s.dispatch.Dispatch(ctx, dispatchdomain.Request{
		Event:      event,
		Property:   *property,
		Normalized: normalized,
		Context:    enriched,
	})
	if err != nil {
		s.record(ctx, auditlogdomain.StageStorageFailure, event, err.Error())
		return s.fail(ctx, domain.ReasonStorageFailure, property.ID, err)
	}
	if result.Duplicate {
		return s.duplicate(ctx, event, property.ID, dedupdomain.MatcherNaturalKey, result.Alert)
	}

	s.record(ctx, auditlogdomain.StageAlertCreated, event,
		fmt.Sprintf("alert=%s email=%t phone=%t sms=%t popup=%t",
			result.Alert.ID, result.Channels.Email, result.Channels.Phone, result.Channels.SMS, result.Channels.Popup))
	s.metrics.RecordAlertCreated(ctx, property.ID.String())
	cloudmetrics.RecordAlertCreated()
	return s.finish(ctx, domain.Outcome{
		Status:     domain.StatusDone,
		Reason:     domain.ReasonAlertCreated,
		AlertID:    result.Alert.ID,
		PropertyID: property.ID,
	})
}

func (s *service) duplicate(ctx context.Context, event calleventdomain.CallEvent, propertyID snowflake.ID, matcher string, alert *alertdomain.AlertRecord) (domain.Outcome, error) {
	s.record(ctx, auditlogdomain.StageDuplicateFound, event,
		fmt.Sprintf("matcher=%s alert=%s", matcher, alert.ID))
	s.metrics.RecordDedupHit(ctx, matcher)
	reason := domain.ReasonDuplicateNaturalKey
	if matcher == dedupdomain.MatcherAckIP {
		reason = domain.ReasonDuplicateAckIP
	}
	return s.finish(ctx, domain.Outcome{
		Status:     domain.StatusDuplicate,
		Reason:     reason,
		AlertID:    alert.ID,
		PropertyID: propertyID,
	})
}

func (s *service) record(ctx context.Context, stage string, event calleventdomain.CallEvent, detail string) {
	s.trail.Record(ctx, auditlogdomain.Entry{
		Stage:        stage,
		OccurredAt:   s.clock.Now(),
		EnterpriseID: event.EnterpriseID,
		GroupID:      event.GroupID,
		UserID:       event.UserID,
		Extension:    event.Extension,
		PhoneNumber:  event.PhoneNumber,
		Detail:       detail,
	})
}

func (s *service) finish(ctx context.Context, outcome domain.Outcome) (domain.Outcome, error) {
	s.metrics.RecordCallEvent(ctx, outcome.Status, outcome.Reason)
	cloudmetrics.RecordCallEvent(outcome.Status)
	return outcome, nil
}

func (s *service) fail(ctx context.Context, reason string, propertyID snowflake.ID, err error) (domain.Outcome, error) {
	outcome := domain.Outcome{
		Status:     domain.StatusFailed,
		Reason:     reason,
		PropertyID: propertyID,
	}
	s.metrics.RecordCallEvent(ctx, outcome.Status, outcome.Reason)
	cloudmetrics.RecordCallEvent(outcome.Status)
	return outcome, err
}
