package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	enrichmentdomain "github.com/stayware/callguard/internal/enrichment/domain"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo enrichmentdomain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo enrichmentdomain.Repository
}

func NewService(p Params) enrichmentdomain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("enrichment.service"),
		repo: p.Repo,
	}
}

func (s *Service) Enrich(ctx context.Context, propertyID snowflake.ID, extension string) (enrichmentdomain.CallContext, error) {
	result := enrichmentdomain.CallContext{
		Extension: strings.TrimSpace(extension),
	}
	if result.Extension == "" {
		result.NoLocation = true
		return result, nil
	}

	row, err := s.repo.FindExtension(ctx, s.db, propertyID, result.Extension)
	if err != nil {
		return result, err
	}

	// A secondary line rings under its primary; everything downstream keys
	// on the primary extension.
	nameRow := row
	if row != nil && strings.TrimSpace(row.PrimaryExtension) != "" {
		result.Extension = strings.TrimSpace(row.PrimaryExtension)
		primary, err := s.repo.FindExtension(ctx, s.db, propertyID, result.Extension)
		if err != nil {
			return result, err
		}
		if primary != nil {
			nameRow = primary
		}
	}

	room, err := s.repo.FindRoomByExtension(ctx, s.db, propertyID, result.Extension)
	if err != nil {
		return result, err
	}
	if room != nil {
		result.RoomNumber = room.RoomNumber

		guest, err := s.repo.FindCurrentGuest(ctx, s.db, propertyID, room.RoomNumber)
		if err != nil {
			return result, err
		}
		if guest != nil {
			result.GuestName = guest.Name
			result.GuestID = guest.ID
		} else {
			result.GuestName = enrichmentdomain.UnoccupiedRoom
		}
		return result, nil
	}

	if nameRow != nil && strings.TrimSpace(nameRow.Name) != "" {
		result.LocationName = strings.TrimSpace(nameRow.Name)
		return result, nil
	}

	result.NoLocation = true
	return result, nil
}
