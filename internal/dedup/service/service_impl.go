package service

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	alertdomain "github.com/stayware/callguard/internal/alert/domain"
	dedupdomain "github.com/stayware/callguard/internal/dedup/domain"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Alerts alertdomain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	matchers []Matcher
}

func NewService(p Params) dedupdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("dedup.service"),
		matchers: []Matcher{
			&ackIPMatcher{alerts: p.Alerts},
			&naturalKeyMatcher{alerts: p.Alerts},
		},
	}
}

func (s *Service) FindDuplicate(ctx context.Context, candidate dedupdomain.Candidate) (*dedupdomain.Match, error) {
	for _, matcher := range s.matchers {
		record, err := matcher.Match(ctx, s.db, candidate)
		if err != nil {
			return nil, err
		}
		if record == nil {
			continue
		}
		s.log.Info("duplicate alert suppressed",
			zap.String("matcher", matcher.Name()),
			zap.String("property_id", candidate.PropertyID.String()),
			zap.String("matched_alert_id", record.ID.String()),
		)
		return &dedupdomain.Match{Matcher: matcher.Name(), Alert: record}, nil
	}
	return nil, nil
}
