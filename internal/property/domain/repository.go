package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository exposes the directory lookups resolution needs. Find methods
// return (nil, nil) when no row matches so callers can distinguish absence
// from failure.
type Repository interface {
	FindProperty(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Property, error)
	FindPartnerGateway(ctx context.Context, db *gorm.DB, groupID string) (*PartnerGateway, error)
	FindGatewayAccountByCode(ctx context.Context, db *gorm.DB, code string) (*GatewayAccount, error)
	ListGatewayAccountsByGroup(ctx context.Context, db *gorm.DB, groupID string) ([]*GatewayAccount, error)
	FindUserExtensionMap(ctx context.Context, db *gorm.DB, userID string) (*UserExtensionMap, error)
	FindLinePortMap(ctx context.Context, db *gorm.DB, linePort string) (*LinePortMap, error)
	FindTimezone(ctx context.Context, db *gorm.DB, propertyID snowflake.ID) (*PropertyTimezone, error)
	FindParam(ctx context.Context, db *gorm.DB, propertyID snowflake.ID, name string) (*PropertyParam, error)
}
