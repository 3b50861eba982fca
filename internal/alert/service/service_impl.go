package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	alertdomain "github.com/stayware/callguard/internal/alert/domain"
	"github.com/stayware/callguard/internal/clock"
	"github.com/stayware/callguard/pkg/db/pagination"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Repo  alertdomain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  alertdomain.Repository
	clock clock.Clock
}

func NewService(p Params) alertdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("alert.service"),
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) List(ctx context.Context, req alertdomain.ListAlertsRequest) (alertdomain.ListAlertsResponse, error) {
	filter := alertdomain.ListFilter{}

	if propertyID := strings.TrimSpace(req.PropertyID); propertyID != "" {
		id, err := snowflake.ParseString(propertyID)
		if err != nil || id == 0 {
			return alertdomain.ListAlertsResponse{}, alertdomain.ErrInvalidProperty
		}
		filter.PropertyID = id
	}

	if state := strings.TrimSpace(req.AckState); state != "" {
		if state != alertdomain.AckStatePending && state != alertdomain.AckStateAcked {
			return alertdomain.ListAlertsResponse{}, alertdomain.ErrInvalidAckState
		}
		filter.AckState = state
	}

	if token := strings.TrimSpace(req.PageToken); token != "" {
		decoded, err := pagination.DecodeCursor(token)
		if err != nil {
			return alertdomain.ListAlertsResponse{}, alertdomain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil {
			return alertdomain.ListAlertsResponse{}, alertdomain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return alertdomain.ListAlertsResponse{}, alertdomain.ErrInvalidPageToken
		}
		filter.Cursor = &alertdomain.AlertCursor{ID: id, CreatedAt: createdAt}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 250 {
		pageSize = 250
	}
	filter.Limit = pageSize

	records, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return alertdomain.ListAlertsResponse{}, err
	}

	page, pageInfo, err := pagination.TrimPage(records, pageSize, func(record *alertdomain.AlertRecord) pagination.Cursor {
		return pagination.Cursor{
			ID:        record.ID.String(),
			CreatedAt: record.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
	})
	if err != nil {
		return alertdomain.ListAlertsResponse{}, err
	}

	alerts := make([]alertdomain.AlertRecord, 0, len(page))
	for _, record := range page {
		if record == nil {
			continue
		}
		alerts = append(alerts, *record)
	}

	resp := alertdomain.ListAlertsResponse{Alerts: alerts}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*alertdomain.AlertRecord, error) {
	alertID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || alertID == 0 {
		return nil, alertdomain.ErrInvalidAlertID
	}

	record, err := s.repo.FindByID(ctx, s.db, alertID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, alertdomain.ErrAlertNotFound
	}
	return record, nil
}

func (s *Service) Acknowledge(ctx context.Context, req alertdomain.AcknowledgeRequest) (*alertdomain.AlertRecord, error) {
	actor := strings.TrimSpace(req.Actor)
	if actor == "" {
		return nil, alertdomain.ErrInvalidActor
	}

	record, err := s.Get(ctx, req.AlertID)
	if err != nil {
		return nil, err
	}
	if record.Acked() {
		return record, nil
	}

	flipped, err := s.repo.Acknowledge(ctx, s.db, record.ID, actor, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !flipped {
		s.log.Debug("alert acknowledged concurrently", zap.String("alert_id", record.ID.String()))
	}

	return s.Get(ctx, req.AlertID)
}
