package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/stayware/callguard/internal/cache"
	calleventdomain "github.com/stayware/callguard/internal/callevent/domain"
	propertydomain "github.com/stayware/callguard/internal/property/domain"
	"github.com/stayware/callguard/internal/property/repository"
)

type directoryMock struct {
	mock.Mock
}

func (m *directoryMock) LookupProperty(ctx context.Context, enterpriseID, groupID string) (snowflake.ID, error) {
	args := m.Called(ctx, enterpriseID, groupID)
	return args.Get(0).(snowflake.ID), args.Error(1)
}

func newTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func newTestService(t *testing.T, db *gorm.DB, dir propertydomain.Directory) propertydomain.Service {
	t.Helper()

	if dir == nil {
		dir = new(directoryMock)
	}
	return NewService(Params{
		DB:        db,
		Log:       zap.NewNop(),
		Repo:      repository.Provide(),
		Cache:     cache.NewPropertyResolverCache(),
		Directory: dir,
	})
}

func TestResolveUserExtensionMap(t *testing.T) {
	db := newTestDB(t)
	node, _ := snowflake.NewNode(1)

	property := &propertydomain.Property{ID: node.Generate(), Name: "Harbor View"}
	require.NoError(t, db.Create(property).Error)
	require.NoError(t, db.Create(&propertydomain.UserExtensionMap{
		ID:         node.Generate(),
		UserID:     "user-42",
		PropertyID: property.ID,
		Extension:  "301",
	}).Error)

	svc := newTestService(t, db, nil)

	res, err := svc.Resolve(context.Background(), propertydomain.ResolveRequest{UserID: "user-42"})
	require.NoError(t, err)
	require.Equal(t, property.ID, res.Property.ID)
	require.Equal(t, "301", res.Extension)
	require.Equal(t, propertydomain.ResolutionSourceUserExtension, res.Source)
}

func TestResolveLinePortFallback(t *testing.T) {
	db := newTestDB(t)
	node, _ := snowflake.NewNode(1)

	property := &propertydomain.Property{ID: node.Generate(), Name: "Harbor View"}
	require.NoError(t, db.Create(property).Error)
	require.NoError(t, db.Create(&propertydomain.LinePortMap{
		ID:         node.Generate(),
		LinePort:   "lp-1007",
		PropertyID: property.ID,
		Extension:  "107",
	}).Error)

	svc := newTestService(t, db, nil)

	res, err := svc.Resolve(context.Background(), propertydomain.ResolveRequest{UserID: "lp-1007"})
	require.NoError(t, err)
	require.Equal(t, property.ID, res.Property.ID)
	require.Equal(t, "107", res.Extension)
	require.Equal(t, propertydomain.ResolutionSourceLinePort, res.Source)
}

func TestResolveEnterpriseCodeIsExactMatch(t *testing.T) {
	db := newTestDB(t)
	node, _ := snowflake.NewNode(1)

	property := &propertydomain.Property{ID: node.Generate(), Name: "Harbor View"}
	require.NoError(t, db.Create(property).Error)
	require.NoError(t, db.Create(&propertydomain.GatewayAccount{
		ID:              node.Generate(),
		PropertyID:      property.ID,
		GroupID:         "some-gateway",
		EnterpriseCodes: "ENT-1;ENT-2",
	}).Error)

	svc := newTestService(t, db, nil)

	// A single code from inside the list does not match the stored list.
	_, err := svc.Resolve(context.Background(), propertydomain.ResolveRequest{EnterpriseID: "ENT-1"})
	require.ErrorIs(t, err, propertydomain.ErrPropertyNotFound)

	res, err := svc.Resolve(context.Background(), propertydomain.ResolveRequest{EnterpriseID: "ENT-1;ENT-2"})
	require.NoError(t, err)
	require.Equal(t, property.ID, res.Property.ID)
	require.Equal(t, propertydomain.ResolutionSourceEnterpriseCode, res.Source)
}

func TestResolvePeerlessScanMatchesFirstCode(t *testing.T) {
	db := newTestDB(t)
	node, _ := snowflake.NewNode(1)

	property := &propertydomain.Property{ID: node.Generate(), Name: "Harbor View", PBXVendor: propertydomain.VendorPeerless}
	require.NoError(t, db.Create(property).Error)
	require.NoError(t, db.Create(&propertydomain.GatewayAccount{
		ID:              node.Generate(),
		PropertyID:      property.ID,
		GroupID:         calleventdomain.GroupPeerlessEmergency,
		EnterpriseCodes: "ENT-77;ENT-78",
	}).Error)

	svc := newTestService(t, db, nil)

	res, err := svc.Resolve(context.Background(), propertydomain.ResolveRequest{
		EnterpriseID: "ENT-77",
		GroupID:      calleventdomain.GroupPeerlessEmergency,
	})
	require.NoError(t, err)
	require.Equal(t, property.ID, res.Property.ID)
	require.Equal(t, propertydomain.ResolutionSourceGatewayScan, res.Source)

	// Second list entries are not consulted by the partner scan.
	_, err = svc.Resolve(context.Background(), propertydomain.ResolveRequest{
		EnterpriseID: "ENT-78",
		GroupID:      calleventdomain.GroupPeerlessEmergency,
	})
	require.ErrorIs(t, err, propertydomain.ErrPartnerPropertyNotFound)
}

func TestResolvePeerlessMissNeverFallsThrough(t *testing.T) {
	db := newTestDB(t)
	node, _ := snowflake.NewNode(1)

	property := &propertydomain.Property{ID: node.Generate(), Name: "Harbor View"}
	require.NoError(t, db.Create(property).Error)
	// A user mapping exists that the generic strategies would match.
	require.NoError(t, db.Create(&propertydomain.UserExtensionMap{
		ID:         node.Generate(),
		UserID:     "user-42",
		PropertyID: property.ID,
	}).Error)

	svc := newTestService(t, db, nil)

	_, err := svc.Resolve(context.Background(), propertydomain.ResolveRequest{
		EnterpriseID: "ENT-UNKNOWN",
		GroupID:      calleventdomain.GroupPeerlessEmergency,
		UserID:       "user-42",
	})
	require.ErrorIs(t, err, propertydomain.ErrPartnerPropertyNotFound)
}

func TestResolveDirectPartnerUsesDirectory(t *testing.T) {
	db := newTestDB(t)
	node, _ := snowflake.NewNode(1)

	property := &propertydomain.Property{ID: node.Generate(), Name: "Harbor View", PBXVendor: propertydomain.VendorOoma}
	require.NoError(t, db.Create(property).Error)
	require.NoError(t, db.Create(&propertydomain.PartnerGateway{
		ID:      node.Generate(),
		GroupID: calleventdomain.GroupOomaEmergency,
		Kind:    propertydomain.PartnerKindDirect,
		Active:  true,
	}).Error)

	dir := new(directoryMock)
	dir.On("LookupProperty", mock.Anything, "ENT-500", calleventdomain.GroupOomaEmergency).
		Return(property.ID, nil)

	svc := newTestService(t, db, dir)

	res, err := svc.Resolve(context.Background(), propertydomain.ResolveRequest{
		EnterpriseID: "ENT-500",
		GroupID:      calleventdomain.GroupOomaEmergency,
	})
	require.NoError(t, err)
	require.Equal(t, property.ID, res.Property.ID)
	require.Equal(t, propertydomain.ResolutionSourceDirectory, res.Source)
	dir.AssertExpectations(t)
}

func TestResolveDirectPartnerMissIsTerminal(t *testing.T) {
	db := newTestDB(t)
	node, _ := snowflake.NewNode(1)

	require.NoError(t, db.Create(&propertydomain.PartnerGateway{
		ID:      node.Generate(),
		GroupID: calleventdomain.GroupOomaEmergency,
		Kind:    propertydomain.PartnerKindDirect,
		Active:  true,
	}).Error)

	dir := new(directoryMock)
	dir.On("LookupProperty", mock.Anything, "ENT-500", calleventdomain.GroupOomaEmergency).
		Return(snowflake.ID(0), propertydomain.ErrDirectoryNoMapping)

	svc := newTestService(t, db, dir)

	_, err := svc.Resolve(context.Background(), propertydomain.ResolveRequest{
		EnterpriseID: "ENT-500",
		GroupID:      calleventdomain.GroupOomaEmergency,
	})
	require.ErrorIs(t, err, propertydomain.ErrPropertyNotFound)
}

func TestResolveDirectoryOutageSurfaces(t *testing.T) {
	db := newTestDB(t)
	node, _ := snowflake.NewNode(1)

	require.NoError(t, db.Create(&propertydomain.PartnerGateway{
		ID:      node.Generate(),
		GroupID: calleventdomain.GroupOomaEmergency,
		Kind:    propertydomain.PartnerKindDirect,
		Active:  true,
	}).Error)

	dir := new(directoryMock)
	dir.On("LookupProperty", mock.Anything, mock.Anything, mock.Anything).
		Return(snowflake.ID(0), fmt.Errorf("%w: status 503", propertydomain.ErrDirectoryUnavailable))

	svc := newTestService(t, db, dir)

	_, err := svc.Resolve(context.Background(), propertydomain.ResolveRequest{
		EnterpriseID: "ENT-500",
		GroupID:      calleventdomain.GroupOomaEmergency,
	})
	require.ErrorIs(t, err, propertydomain.ErrDirectoryUnavailable)
}

func TestResolveUnmatchedEvent(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, nil)

	_, err := svc.Resolve(context.Background(), propertydomain.ResolveRequest{
		EnterpriseID: "ENT-NOBODY",
		UserID:       "user-nobody",
	})
	require.ErrorIs(t, err, propertydomain.ErrPropertyNotFound)
}

func TestParamScopedLookup(t *testing.T) {
	db := newTestDB(t)
	node, _ := snowflake.NewNode(1)

	property := &propertydomain.Property{ID: node.Generate(), Name: "Harbor View"}
	require.NoError(t, db.Create(property).Error)
	require.NoError(t, db.Create(&propertydomain.PropertyParam{
		ID:         node.Generate(),
		PropertyID: property.ID,
		Name:       propertydomain.ParamExemptDigits,
		Value:      "911;933",
	}).Error)

	svc := newTestService(t, db, nil)

	value, ok, err := svc.Param(context.Background(), property.ID, propertydomain.ParamExemptDigits)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "911;933", value)

	_, ok, err = svc.Param(context.Background(), property.ID, propertydomain.ParamUTCHourDiff)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTimezoneAbsenceIsNotAnError(t *testing.T) {
	db := newTestDB(t)
	node, _ := snowflake.NewNode(1)

	property := &propertydomain.Property{ID: node.Generate(), Name: "Harbor View"}
	require.NoError(t, db.Create(property).Error)

	svc := newTestService(t, db, nil)

	tz, err := svc.Timezone(context.Background(), property.ID)
	require.NoError(t, err)
	require.Nil(t, tz)

	require.NoError(t, db.Create(&propertydomain.PropertyTimezone{
		ID:         node.Generate(),
		PropertyID: property.ID,
		ZoneName:   "America/Chicago",
	}).Error)

	tz, err = svc.Timezone(context.Background(), property.ID)
	require.NoError(t, err)
	require.Equal(t, "America/Chicago", tz.ZoneName)
}
