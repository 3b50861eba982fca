package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"

	localtimedomain "github.com/stayware/callguard/internal/localtime/domain"
	propertydomain "github.com/stayware/callguard/internal/property/domain"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Properties propertydomain.Service
	Converter  localtimedomain.Converter
}

type Service struct {
	log        *zap.Logger
	properties propertydomain.Service
	converter  localtimedomain.Converter
}

func NewService(p Params) localtimedomain.Service {
	return &Service{
		log:        p.Log.Named("localtime.service"),
		properties: p.Properties,
		converter:  p.Converter,
	}
}

// Normalize derives the property-local wall-clock time for a call. The
// fallback chain is zone assignment, then the property's fixed hour offset,
// then the raw UTC instant. A broken link in the chain is logged and skipped
// rather than failing the call.
func (s *Service) Normalize(ctx context.Context, propertyID snowflake.ID, startUTC time.Time) (localtimedomain.Normalized, error) {
	startUTC = startUTC.UTC()

	tz, err := s.properties.Timezone(ctx, propertyID)
	if err != nil {
		return localtimedomain.Normalized{}, err
	}
	if tz != nil && strings.TrimSpace(tz.ZoneName) != "" {
		local, convErr := s.converter.ToZone(startUTC, tz.ZoneName)
		if convErr == nil {
			return localtimedomain.Normalized{
				LocalTime: local,
				Source:    localtimedomain.SourceZone,
				Zone:      tz.ZoneName,
			}, nil
		}
		s.log.Warn("zone conversion failed, falling back",
			zap.String("property_id", propertyID.String()),
			zap.String("zone", tz.ZoneName),
			zap.Error(convErr),
		)
	}

	raw, ok, err := s.properties.Param(ctx, propertyID, propertydomain.ParamUTCHourDiff)
	if err != nil {
		return localtimedomain.Normalized{}, err
	}
	if ok {
		hours, parseErr := strconv.Atoi(strings.TrimSpace(raw))
		if parseErr == nil {
			return localtimedomain.Normalized{
				LocalTime: startUTC.Add(time.Duration(hours) * time.Hour),
				Source:    localtimedomain.SourceUTCHourDiff,
				Zone:      fmt.Sprintf("utc%+dh", hours),
			}, nil
		}
		s.log.Warn("unparseable utc_hour_diff, falling back",
			zap.String("property_id", propertyID.String()),
			zap.String("value", raw),
		)
	}

	return localtimedomain.Normalized{
		LocalTime: startUTC,
		Source:    localtimedomain.SourceRawUTC,
		Zone:      "UTC",
	}, nil
}
