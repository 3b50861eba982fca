package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	alertdomain "github.com/stayware/callguard/internal/alert/domain"
	"github.com/stayware/callguard/internal/clock"
	"github.com/stayware/callguard/internal/config"
	"github.com/stayware/callguard/internal/dispatch/domain"
	"github.com/stayware/callguard/internal/events"
	notifyqdomain "github.com/stayware/callguard/internal/notifyq/domain"
	"github.com/stayware/callguard/pkg/repository"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Holder    *config.AlertingConfigHolder
	Clock     clock.Clock
	AlertRepo alertdomain.Repository
	Publisher events.Publisher
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	holder    *config.AlertingConfigHolder
	clock     clock.Clock
	alertRepo alertdomain.Repository
	publisher events.Publisher

	defaultsRepo repository.Repository[domain.ChannelDefaults]
	overrideRepo repository.Repository[domain.ChannelOverride]
	emailRepo    repository.Repository[notifyqdomain.EmailQueueItem]
	phoneRepo    repository.Repository[notifyqdomain.PhoneCallSchedule]
	smsRepo      repository.Repository[notifyqdomain.SMSSchedule]
}

func NewService(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("dispatch.service"),
		genID:        p.GenID,
		holder:       p.Holder,
		clock:        p.Clock,
		alertRepo:    p.AlertRepo,
		publisher:    p.Publisher,
		defaultsRepo: repository.ProvideStore[domain.ChannelDefaults](p.DB),
		overrideRepo: repository.ProvideStore[domain.ChannelOverride](p.DB),
		emailRepo:    repository.ProvideStore[notifyqdomain.EmailQueueItem](p.DB),
		phoneRepo:    repository.ProvideStore[notifyqdomain.PhoneCallSchedule](p.DB),
		smsRepo:      repository.ProvideStore[notifyqdomain.SMSSchedule](p.DB),
	}
}

func (s *Service) Dispatch(ctx context.Context, req domain.Request) (domain.Result, error) {
	if req.Property.ID == 0 {
		return domain.Result{}, domain.ErrMissingProperty
	}
	if req.Normalized.LocalTime.IsZero() {
		return domain.Result{}, domain.ErrMissingLocalTime
	}

	plan, err := s.resolveChannels(ctx, req.Property.ID, alertdomain.AlertTypeEmergency)
	if err != nil {
		return domain.Result{}, err
	}

	alerting := s.holder.Get()
	now := s.clock.Now()
	localTime := req.Normalized.LocalTime.Format(alerting.AuditTimeLayout)

	// The stored extension is the one the event arrived with: redeliveries
	// carry the same raw value, and the dedup gate matches on it. The
	// enriched (primary) extension only shows up in the composed text.
	record := &alertdomain.AlertRecord{
		ID:           s.genID.Generate(),
		AlertType:    alertdomain.AlertTypeEmergency,
		PropertyID:   req.Property.ID,
		LocalTime:    req.Normalized.LocalTime,
		Extension:    req.Event.Extension,
		TimeSource:   req.Normalized.Source,
		RoomNumber:   req.Context.RoomNumber,
		GuestName:    req.Context.GuestName,
		CallerName:   req.Event.CallerName,
		PhoneNumber:  req.Event.PhoneNumber,
		EnterpriseID: req.Event.EnterpriseID,
		GroupID:      req.Event.GroupID,
		SourceIP:     req.Event.SourceIP,
		AckState:     alertdomain.AckStatePending,
		Subject:      composeSubject(alerting.SubjectPrefix, req.Property.Name),
		Body:         composeBody(req, localTime),
		RawSnapshot:  datatypes.JSONMap(req.Event.Snapshot()),
		CreatedAt:    now,
	}
	record.LegacyMessage = composeLegacy(record.ID.String(), req, localTime)

	// Pop-up off still writes the row so the dedup gate has one to match,
	// but nobody is paged: the record arrives pre-acknowledged.
	if !plan.Popup {
		record.AckState = alertdomain.AckStateAcked
		record.AckBy = alerting.AutoAckActor
		ackedAt := now
		record.AckedAt = &ackedAt
	}

	created, winner, err := s.alertRepo.CreateIfAbsent(ctx, s.db, record)
	if err != nil {
		return domain.Result{}, err
	}

	if created {
		s.queueDeliveries(ctx, req, winner, plan)
		s.emitEvent(ctx, req, winner, localTime)
	} else {
		s.log.Info("concurrent delivery lost the insert race",
			zap.String("alert_id", winner.ID.String()),
			zap.String("property_id", req.Property.ID.String()),
		)
	}

	s.stampAckIP(ctx, winner.ID, req.Event.SourceIP)

	return domain.Result{Alert: winner, Channels: plan, Duplicate: !created}, nil
}

// resolveChannels starts from the property defaults row (process fallbacks
// when absent) and folds in the alert-type override. Overrides replace a
// channel, never merge.
func (s *Service) resolveChannels(ctx context.Context, propertyID snowflake.ID, alertType int) (domain.ChannelPlan, error) {
	fallbacks := s.holder.Get().Channels
	plan := domain.ChannelPlan{
		Email: fallbacks.Email,
		Phone: fallbacks.Phone,
		SMS:   fallbacks.SMS,
		Popup: fallbacks.Popup,
	}

	defaults, err := s.defaultsRepo.FindOne(ctx, &domain.ChannelDefaults{PropertyID: propertyID})
	if err != nil {
		return plan, err
	}
	if defaults != nil {
		plan = domain.ChannelPlan{
			Email: defaults.Email,
			Phone: defaults.Phone,
			SMS:   defaults.SMS,
			Popup: defaults.Popup,
		}
	}

	override, err := s.overrideRepo.FindOne(ctx, &domain.ChannelOverride{PropertyID: propertyID, AlertType: alertType})
	if err != nil {
		return plan, err
	}
	if override != nil {
		plan = plan.Apply(*override)
	}
	return plan, nil
}

// queueDeliveries writes one handoff row per enabled channel. Failures are
// logged and skipped: the AlertRecord exists, and a transport hiccup must
// not unwind the alert.
func (s *Service) queueDeliveries(ctx context.Context, req domain.Request, record *alertdomain.AlertRecord, plan domain.ChannelPlan) {
	now := s.clock.Now()

	if plan.Email {
		if target := strings.TrimSpace(req.Property.AlertEmail); target == "" {
			s.log.Warn("email channel enabled but property has no alert email",
				zap.String("property_id", req.Property.ID.String()),
			)
		} else if err := s.emailRepo.Create(ctx, &notifyqdomain.EmailQueueItem{
			ID:         s.genID.Generate(),
			PropertyID: req.Property.ID,
			AlertID:    record.ID,
			ToAddress:  target,
			Subject:    record.Subject,
			Body:       record.Body,
			Status:     notifyqdomain.StatusPending,
			CreatedAt:  now,
		}); err != nil {
			s.log.Warn("failed to queue alert email",
				zap.String("alert_id", record.ID.String()),
				zap.Error(err),
			)
		}
	}

	if plan.Phone {
		if target := strings.TrimSpace(req.Property.AlertPhone); target == "" {
			s.log.Warn("phone channel enabled but property has no alert phone",
				zap.String("property_id", req.Property.ID.String()),
			)
		} else if err := s.phoneRepo.Create(ctx, &notifyqdomain.PhoneCallSchedule{
			ID:           s.genID.Generate(),
			PropertyID:   req.Property.ID,
			AlertID:      record.ID,
			TargetNumber: target,
			Message:      record.LegacyMessage,
			Status:       notifyqdomain.StatusPending,
			ScheduledAt:  now,
			CreatedAt:    now,
		}); err != nil {
			s.log.Warn("failed to schedule alert call",
				zap.String("alert_id", record.ID.String()),
				zap.Error(err),
			)
		}
	}

	if plan.SMS {
		if target := strings.TrimSpace(req.Property.AlertSMS); target == "" {
			s.log.Warn("sms channel enabled but property has no alert sms number",
				zap.String("property_id", req.Property.ID.String()),
			)
		} else if err := s.smsRepo.Create(ctx, &notifyqdomain.SMSSchedule{
			ID:           s.genID.Generate(),
			PropertyID:   req.Property.ID,
			AlertID:      record.ID,
			TargetNumber: target,
			Message:      record.Subject,
			Status:       notifyqdomain.StatusPending,
			ScheduledAt:  now,
			CreatedAt:    now,
		}); err != nil {
			s.log.Warn("failed to schedule alert sms",
				zap.String("alert_id", record.ID.String()),
				zap.Error(err),
			)
		}
	}
}

// emitEvent publishes the generic emergency event for properties subscribed
// to the feed. Best effort.
func (s *Service) emitEvent(ctx context.Context, req domain.Request, record *alertdomain.AlertRecord, localTime string) {
	if !req.Property.EventFeed {
		return
	}

	err := s.publisher.Publish(ctx, events.Event{
		Topic:     events.TopicAlertRaised,
		DedupeKey: record.ID.String(),
		Payload: datatypes.JSONMap{
			"alert_id":    record.ID.String(),
			"property_id": req.Property.ID.String(),
			"room":        req.Context.RoomNumber,
			"extension":   req.Context.Extension,
			"guest":       req.Context.GuestName,
			"local_time":  localTime,
		},
	})
	if err != nil {
		s.log.Warn("failed to publish alert event",
			zap.String("alert_id", record.ID.String()),
			zap.Error(err),
		)
	}
}

// stampAckIP annotates the surviving record with the call's source address.
// One attempt, contention skipped silently.
func (s *Service) stampAckIP(ctx context.Context, id snowflake.ID, sourceIP string) {
	if strings.TrimSpace(sourceIP) == "" {
		return
	}
	if _, err := s.alertRepo.StampAckIP(ctx, s.db, id, sourceIP); err != nil {
		s.log.Warn("failed to stamp ack ip",
			zap.String("alert_id", id.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) ChannelConfig(ctx context.Context, propertyID snowflake.ID) (domain.ChannelConfig, error) {
	if propertyID == 0 {
		return domain.ChannelConfig{}, domain.ErrMissingProperty
	}

	cfg := domain.ChannelConfig{PropertyID: propertyID}

	defaults, err := s.defaultsRepo.FindOne(ctx, &domain.ChannelDefaults{PropertyID: propertyID})
	if err != nil {
		return domain.ChannelConfig{}, err
	}
	if defaults != nil {
		cfg.Defaults = domain.ChannelPlan{
			Email: defaults.Email,
			Phone: defaults.Phone,
			SMS:   defaults.SMS,
			Popup: defaults.Popup,
		}
	} else {
		fallbacks := s.holder.Get().Channels
		cfg.Defaults = domain.ChannelPlan{
			Email: fallbacks.Email,
			Phone: fallbacks.Phone,
			SMS:   fallbacks.SMS,
			Popup: fallbacks.Popup,
		}
		cfg.DefaultsFromFallback = true
	}

	overrides, err := s.overrideRepo.Find(ctx, &domain.ChannelOverride{PropertyID: propertyID})
	if err != nil {
		return domain.ChannelConfig{}, err
	}
	for _, row := range overrides {
		cfg.Overrides = append(cfg.Overrides, domain.OverrideSpec{
			AlertType: row.AlertType,
			Email:     row.Email,
			Phone:     row.Phone,
			SMS:       row.SMS,
			Popup:     row.Popup,
		})
	}
	return cfg, nil
}

func (s *Service) SaveChannelConfig(ctx context.Context, propertyID snowflake.ID, defaults domain.ChannelPlan, overrides []domain.OverrideSpec) (domain.ChannelConfig, error) {
	if propertyID == 0 {
		return domain.ChannelConfig{}, domain.ErrMissingProperty
	}
	for _, spec := range overrides {
		if spec.AlertType <= 0 {
			return domain.ChannelConfig{}, domain.ErrInvalidAlertType
		}
	}

	now := s.clock.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.ChannelDefaults
		result := tx.Where("property_id = ?", propertyID).First(&existing)
		switch {
		case result.Error == nil:
			err := tx.Model(&domain.ChannelDefaults{}).
				Where("id = ?", existing.ID).
				Updates(map[string]any{
					"email":      defaults.Email,
					"phone":      defaults.Phone,
					"sms":        defaults.SMS,
					"popup":      defaults.Popup,
					"updated_at": now,
				}).Error
			if err != nil {
				return err
			}
		case errors.Is(result.Error, gorm.ErrRecordNotFound):
			row := domain.ChannelDefaults{
				ID:         s.genID.Generate(),
				PropertyID: propertyID,
				Email:      defaults.Email,
				Phone:      defaults.Phone,
				SMS:        defaults.SMS,
				Popup:      defaults.Popup,
				UpdatedAt:  now,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		default:
			return result.Error
		}

		if err := tx.Where("property_id = ?", propertyID).Delete(&domain.ChannelOverride{}).Error; err != nil {
			return err
		}
		for _, spec := range overrides {
			row := domain.ChannelOverride{
				ID:         s.genID.Generate(),
				PropertyID: propertyID,
				AlertType:  spec.AlertType,
				Email:      spec.Email,
				Phone:      spec.Phone,
				SMS:        spec.SMS,
				Popup:      spec.Popup,
				UpdatedAt:  now,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.ChannelConfig{}, err
	}
	return s.ChannelConfig(ctx, propertyID)
}
