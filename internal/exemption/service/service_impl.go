package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"

	exemptiondomain "github.com/stayware/callguard/internal/exemption/domain"
	propertydomain "github.com/stayware/callguard/internal/property/domain"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Properties propertydomain.Service
}

type Service struct {
	log        *zap.Logger
	properties propertydomain.Service
}

func NewService(p Params) exemptiondomain.Service {
	return &Service{
		log:        p.Log.Named("exemption.service"),
		properties: p.Properties,
	}
}

func (s *Service) Check(ctx context.Context, propertyID snowflake.ID, dialedDigits string) (exemptiondomain.Decision, error) {
	dialedDigits = strings.TrimSpace(dialedDigits)
	if dialedDigits == "" {
		return exemptiondomain.Decision{}, nil
	}

	// A property that maintains its own list owns the whole decision: the
	// global list only applies to properties with no list at all.
	raw, ok, err := s.properties.Param(ctx, propertyID, propertydomain.ParamExemptDigits)
	if err != nil {
		return exemptiondomain.Decision{}, err
	}
	scope := exemptiondomain.ScopeProperty
	if !ok {
		raw, ok, err = s.properties.Param(ctx, propertydomain.GlobalPropertyID, propertydomain.ParamExemptDigits)
		if err != nil {
			return exemptiondomain.Decision{}, err
		}
		scope = exemptiondomain.ScopeGlobal
	}
	if !ok {
		return exemptiondomain.Decision{}, nil
	}

	for _, candidate := range strings.Split(raw, ";") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if candidate == dialedDigits {
			return exemptiondomain.Decision{
				Exempt:  true,
				Matched: candidate,
				Scope:   scope,
			}, nil
		}
	}
	return exemptiondomain.Decision{}, nil
}
