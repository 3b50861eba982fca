package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/stayware/callguard/internal/cache"
	calleventdomain "github.com/stayware/callguard/internal/callevent/domain"
	propertydomain "github.com/stayware/callguard/internal/property/domain"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Repo      propertydomain.Repository
	Cache     cache.PropertyResolverCache
	Directory propertydomain.Directory
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	repo      propertydomain.Repository
	cache     cache.PropertyResolverCache
	directory propertydomain.Directory

	strategies []strategy
}

// strategy is one entry in the ordered resolution chain. A step returns
// (nil, nil) to pass the event to the next step; any error is terminal for
// the whole chain.
type strategy struct {
	source string
	fn     func(ctx context.Context, req propertydomain.ResolveRequest) (*propertydomain.Resolution, error)
}

func NewService(p Params) propertydomain.Service {
	s := &Service{
		db:        p.DB,
		log:       p.Log.Named("property.service"),
		repo:      p.Repo,
		cache:     p.Cache,
		directory: p.Directory,
	}
	s.strategies = []strategy{
		{propertydomain.ResolutionSourceDirectory, s.resolveDirectPartner},
		{propertydomain.ResolutionSourceGatewayScan, s.resolvePartnerScan},
		{propertydomain.ResolutionSourceUserExtension, s.resolveUserExtension},
		{propertydomain.ResolutionSourceLinePort, s.resolveLinePort},
		{propertydomain.ResolutionSourceEnterpriseCode, s.resolveEnterpriseCode},
	}
	return s
}

func (s *Service) Resolve(ctx context.Context, req propertydomain.ResolveRequest) (*propertydomain.Resolution, error) {
	req.EnterpriseID = strings.TrimSpace(req.EnterpriseID)
	req.GroupID = strings.TrimSpace(req.GroupID)
	req.UserID = strings.TrimSpace(req.UserID)

	for _, st := range s.strategies {
		res, err := st.fn(ctx, req)
		if err != nil {
			return nil, err
		}
		if res == nil {
			continue
		}
		res.Source = st.source
		s.log.Debug("resolved property",
			zap.String("source", st.source),
			zap.String("property_id", res.Property.ID.String()),
		)
		return res, nil
	}
	return nil, propertydomain.ErrPropertyNotFound
}

// resolveDirectPartner consults the external partner directory for gateway
// groups registered as direct integrations. For those groups the directory
// is authoritative: a miss fails resolution instead of falling through.
func (s *Service) resolveDirectPartner(ctx context.Context, req propertydomain.ResolveRequest) (*propertydomain.Resolution, error) {
	if req.GroupID == "" {
		return nil, nil
	}

	gateway, ok := s.cache.GetPartnerGateway(req.GroupID)
	if !ok {
		var err error
		gateway, err = s.repo.FindPartnerGateway(ctx, s.db, req.GroupID)
		if err != nil {
			return nil, err
		}
		s.cache.SetPartnerGateway(req.GroupID, gateway)
	}
	if gateway == nil || gateway.Kind != propertydomain.PartnerKindDirect {
		return nil, nil
	}

	id, err := s.directory.LookupProperty(ctx, req.EnterpriseID, req.GroupID)
	if err != nil {
		if errors.Is(err, propertydomain.ErrDirectoryNoMapping) {
			return nil, propertydomain.ErrPropertyNotFound
		}
		return nil, err
	}

	property, err := s.loadProperty(ctx, id)
	if err != nil {
		return nil, err
	}
	if property == nil {
		s.log.Warn("partner directory returned unknown property",
			zap.String("group_id", req.GroupID),
			zap.String("property_id", id.String()),
		)
		return nil, propertydomain.ErrPropertyNotFound
	}
	return &propertydomain.Resolution{Property: property}, nil
}

// resolvePartnerScan handles the peerless emergency group, whose events are
// matched by the first entry of each gateway account's enterprise-code list.
// Partner traffic never falls through: no match is a terminal miss.
func (s *Service) resolvePartnerScan(ctx context.Context, req propertydomain.ResolveRequest) (*propertydomain.Resolution, error) {
	if req.GroupID != calleventdomain.GroupPeerlessEmergency {
		return nil, nil
	}

	accounts, err := s.repo.ListGatewayAccountsByGroup(ctx, s.db, req.GroupID)
	if err != nil {
		return nil, err
	}
	for _, account := range accounts {
		if account == nil || req.EnterpriseID == "" {
			continue
		}
		if account.FirstEnterpriseCode() != req.EnterpriseID {
			continue
		}
		property, err := s.loadProperty(ctx, account.PropertyID)
		if err != nil {
			return nil, err
		}
		if property == nil {
			s.log.Warn("gateway account points at missing property",
				zap.String("gateway_account_id", account.ID.String()),
				zap.String("property_id", account.PropertyID.String()),
			)
			return nil, propertydomain.ErrPartnerPropertyNotFound
		}
		return &propertydomain.Resolution{Property: property}, nil
	}
	return nil, propertydomain.ErrPartnerPropertyNotFound
}

func (s *Service) resolveUserExtension(ctx context.Context, req propertydomain.ResolveRequest) (*propertydomain.Resolution, error) {
	if req.UserID == "" {
		return nil, nil
	}

	mapping, err := s.repo.FindUserExtensionMap(ctx, s.db, req.UserID)
	if err != nil {
		return nil, err
	}
	if mapping == nil {
		return nil, nil
	}

	property, err := s.loadProperty(ctx, mapping.PropertyID)
	if err != nil {
		return nil, err
	}
	if property == nil {
		s.log.Warn("user extension map points at missing property",
			zap.String("user_id", req.UserID),
			zap.String("property_id", mapping.PropertyID.String()),
		)
		return nil, propertydomain.ErrPropertyNotFound
	}
	return &propertydomain.Resolution{Property: property, Extension: mapping.Extension}, nil
}

// resolveLinePort keys on the same user id value: some vendor feeds deliver
// the line-port identifier in the user id field.
func (s *Service) resolveLinePort(ctx context.Context, req propertydomain.ResolveRequest) (*propertydomain.Resolution, error) {
	if req.UserID == "" {
		return nil, nil
	}

	mapping, err := s.repo.FindLinePortMap(ctx, s.db, req.UserID)
	if err != nil {
		return nil, err
	}
	if mapping == nil {
		return nil, nil
	}

	property, err := s.loadProperty(ctx, mapping.PropertyID)
	if err != nil {
		return nil, err
	}
	if property == nil {
		s.log.Warn("line port map points at missing property",
			zap.String("line_port", req.UserID),
			zap.String("property_id", mapping.PropertyID.String()),
		)
		return nil, propertydomain.ErrPropertyNotFound
	}
	return &propertydomain.Resolution{Property: property, Extension: mapping.Extension}, nil
}

// resolveEnterpriseCode is the last resort: an exact match of the event's
// enterprise id against the whole stored code list, not its first entry.
func (s *Service) resolveEnterpriseCode(ctx context.Context, req propertydomain.ResolveRequest) (*propertydomain.Resolution, error) {
	if req.EnterpriseID == "" {
		return nil, nil
	}

	account, err := s.repo.FindGatewayAccountByCode(ctx, s.db, req.EnterpriseID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, nil
	}

	property, err := s.loadProperty(ctx, account.PropertyID)
	if err != nil {
		return nil, err
	}
	if property == nil {
		s.log.Warn("gateway account points at missing property",
			zap.String("gateway_account_id", account.ID.String()),
			zap.String("property_id", account.PropertyID.String()),
		)
		return nil, propertydomain.ErrPropertyNotFound
	}
	return &propertydomain.Resolution{Property: property}, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*propertydomain.Property, error) {
	property, err := s.loadProperty(ctx, id)
	if err != nil {
		return nil, err
	}
	if property == nil {
		return nil, propertydomain.ErrPropertyNotFound
	}
	return property, nil
}

func (s *Service) Param(ctx context.Context, propertyID snowflake.ID, name string) (string, bool, error) {
	if value, ok := s.cache.GetParam(propertyID, name); ok {
		return value, true, nil
	}

	param, err := s.repo.FindParam(ctx, s.db, propertyID, name)
	if err != nil {
		return "", false, err
	}
	if param == nil {
		return "", false, nil
	}
	s.cache.SetParam(propertyID, name, param.Value)
	return param.Value, true, nil
}

// Timezone returns (nil, nil) when the property has no zone assignment so
// callers can apply their own fallback chain.
func (s *Service) Timezone(ctx context.Context, propertyID snowflake.ID) (*propertydomain.PropertyTimezone, error) {
	if tz, ok := s.cache.GetTimezone(propertyID); ok {
		return tz, nil
	}

	tz, err := s.repo.FindTimezone(ctx, s.db, propertyID)
	if err != nil {
		return nil, err
	}
	if tz != nil {
		s.cache.SetTimezone(propertyID, tz)
	}
	return tz, nil
}

func (s *Service) loadProperty(ctx context.Context, id snowflake.ID) (*propertydomain.Property, error) {
	if id == 0 {
		return nil, nil
	}
	if property, ok := s.cache.GetProperty(id); ok {
		return property, nil
	}

	property, err := s.repo.FindProperty(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if property != nil {
		s.cache.SetProperty(property)
	}
	return property, nil
}
