package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/stayware/callguard/internal/cache"
	localtimedomain "github.com/stayware/callguard/internal/localtime/domain"
	propertydomain "github.com/stayware/callguard/internal/property/domain"
	propertyrepo "github.com/stayware/callguard/internal/property/repository"
	propertyservice "github.com/stayware/callguard/internal/property/service"
)

func newTestNormalizer(t *testing.T) (localtimedomain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&propertydomain.Property{},
		&propertydomain.PartnerGateway{},
		&propertydomain.GatewayAccount{},
		&propertydomain.UserExtensionMap{},
		&propertydomain.LinePortMap{},
		&propertydomain.PropertyTimezone{},
		&propertydomain.PropertyParam{},
	))

	node, _ := snowflake.NewNode(1)
	properties := propertyservice.NewService(propertyservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		Repo:  propertyrepo.Provide(),
		Cache: cache.NewPropertyResolverCache(),
	})
	svc := NewService(Params{
		Log:        zap.NewNop(),
		Properties: properties,
		Converter:  NewConverter(),
	})
	return svc, db, node
}

func TestNormalizeUsesZoneAssignment(t *testing.T) {
	svc, db, node := newTestNormalizer(t)
	propertyID := node.Generate()

	require.NoError(t, db.Create(&propertydomain.PropertyTimezone{
		ID:         node.Generate(),
		PropertyID: propertyID,
		ZoneName:   "America/Chicago",
	}).Error)

	// 2026-01-15 18:30 UTC is 12:30 in Chicago (CST, UTC-6).
	start := time.Date(2026, 1, 15, 18, 30, 0, 0, time.UTC)
	got, err := svc.Normalize(context.Background(), propertyID, start)
	require.NoError(t, err)
	require.Equal(t, localtimedomain.SourceZone, got.Source)
	require.Equal(t, "America/Chicago", got.Zone)
	require.Equal(t, time.Date(2026, 1, 15, 12, 30, 0, 0, time.UTC), got.LocalTime)
}

func TestNormalizeZoneHonorsDST(t *testing.T) {
	svc, db, node := newTestNormalizer(t)
	propertyID := node.Generate()

	require.NoError(t, db.Create(&propertydomain.PropertyTimezone{
		ID:         node.Generate(),
		PropertyID: propertyID,
		ZoneName:   "America/Chicago",
	}).Error)

	// 2026-07-15 18:30 UTC is 13:30 in Chicago (CDT, UTC-5).
	start := time.Date(2026, 7, 15, 18, 30, 0, 0, time.UTC)
	got, err := svc.Normalize(context.Background(), propertyID, start)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 7, 15, 13, 30, 0, 0, time.UTC), got.LocalTime)
}

func TestNormalizeFallsBackToHourDiff(t *testing.T) {
	svc, db, node := newTestNormalizer(t)
	propertyID := node.Generate()

	require.NoError(t, db.Create(&propertydomain.PropertyParam{
		ID:         node.Generate(),
		PropertyID: propertyID,
		Name:       propertydomain.ParamUTCHourDiff,
		Value:      "-7",
	}).Error)

	start := time.Date(2026, 1, 15, 18, 30, 0, 0, time.UTC)
	got, err := svc.Normalize(context.Background(), propertyID, start)
	require.NoError(t, err)
	require.Equal(t, localtimedomain.SourceUTCHourDiff, got.Source)
	require.Equal(t, "utc-7h", got.Zone)
	require.Equal(t, time.Date(2026, 1, 15, 11, 30, 0, 0, time.UTC), got.LocalTime)
}

func TestNormalizeUnknownZoneFallsThrough(t *testing.T) {
	svc, db, node := newTestNormalizer(t)
	propertyID := node.Generate()

	require.NoError(t, db.Create(&propertydomain.PropertyTimezone{
		ID:         node.Generate(),
		PropertyID: propertyID,
		ZoneName:   "Mars/Olympus_Mons",
	}).Error)
	require.NoError(t, db.Create(&propertydomain.PropertyParam{
		ID:         node.Generate(),
		PropertyID: propertyID,
		Name:       propertydomain.ParamUTCHourDiff,
		Value:      "3",
	}).Error)

	start := time.Date(2026, 1, 15, 18, 30, 0, 0, time.UTC)
	got, err := svc.Normalize(context.Background(), propertyID, start)
	require.NoError(t, err)
	require.Equal(t, localtimedomain.SourceUTCHourDiff, got.Source)
	require.Equal(t, time.Date(2026, 1, 15, 21, 30, 0, 0, time.UTC), got.LocalTime)
}

func TestNormalizeRawUTCLastResort(t *testing.T) {
	svc, _, node := newTestNormalizer(t)

	start := time.Date(2026, 1, 15, 18, 30, 0, 0, time.UTC)
	got, err := svc.Normalize(context.Background(), node.Generate(), start)
	require.NoError(t, err)
	require.Equal(t, localtimedomain.SourceRawUTC, got.Source)
	require.Equal(t, start, got.LocalTime)
}
