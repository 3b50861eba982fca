package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	alertdomain "github.com/stayware/callguard/internal/alert/domain"
	alertrepo "github.com/stayware/callguard/internal/alert/repository"
	auditlogdomain "github.com/stayware/callguard/internal/auditlog/domain"
	auditlogservice "github.com/stayware/callguard/internal/auditlog/service"
	"github.com/stayware/callguard/internal/cache"
	calleventdomain "github.com/stayware/callguard/internal/callevent/domain"
	"github.com/stayware/callguard/internal/clock"
	"github.com/stayware/callguard/internal/config"
	dedupservice "github.com/stayware/callguard/internal/dedup/service"
	dispatchdomain "github.com/stayware/callguard/internal/dispatch/domain"
	dispatchservice "github.com/stayware/callguard/internal/dispatch/service"
	enrichmentdomain "github.com/stayware/callguard/internal/enrichment/domain"
	enrichmentrepo "github.com/stayware/callguard/internal/enrichment/repository"
	enrichmentservice "github.com/stayware/callguard/internal/enrichment/service"
	"github.com/stayware/callguard/internal/events"
	exemptionservice "github.com/stayware/callguard/internal/exemption/service"
	localtimedomain "github.com/stayware/callguard/internal/localtime/domain"
	localtimeservice "github.com/stayware/callguard/internal/localtime/service"
	notifyqdomain "github.com/stayware/callguard/internal/notifyq/domain"
	"github.com/stayware/callguard/internal/pipeline/domain"
	propertydomain "github.com/stayware/callguard/internal/property/domain"
	propertyrepo "github.com/stayware/callguard/internal/property/repository"
	propertyservice "github.com/stayware/callguard/internal/property/service"
)

type stubDirectory struct{}

func (stubDirectory) LookupProperty(context.Context, string, string) (snowflake.ID, error) {
	return 0, propertydomain.ErrDirectoryNoMapping
}

type harness struct {
	db       *gorm.DB
	node     *snowflake.Node
	clk      *clock.FakeClock
	auditDir string
	svc      domain.Service
}

func newHarness(t *testing.T) *harness {
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
		&enrichmentdomain.Extension{},
		&enrichmentdomain.Room{},
		&enrichmentdomain.Guest{},
		&alertdomain.AlertRecord{},
		&dispatchdomain.ChannelDefaults{},
		&dispatchdomain.ChannelOverride{},
		&notifyqdomain.EmailQueueItem{},
		&notifyqdomain.PhoneCallSchedule{},
		&notifyqdomain.SMSSchedule{},
		&events.EventOutbox{},
	))

	node, err := snowflake.NewNode(7)
	require.NoError(t, err)

	holder, err := config.NewStaticAlertingConfigHolder(config.AlertingConfig{
		Channels:        config.ChannelFallbacks{Email: true, Popup: true},
		SubjectPrefix:   "911 ALERT",
		AuditTimeLayout: "2006-01-02 15:04:05",
		AutoAckActor:    "auto",
	})
	require.NoError(t, err)

	log := zap.NewNop()
	clk := clock.NewFakeClock(time.Date(2026, 3, 14, 17, 0, 5, 0, time.UTC))
	auditDir := t.TempDir()

	properties := propertyservice.NewService(propertyservice.Params{
		DB:        db,
		Log:       log,
		Repo:      propertyrepo.Provide(),
		Cache:     cache.NewPropertyResolverCache(),
		Directory: stubDirectory{},
	})
	trail := auditlogservice.NewService(auditlogservice.Params{
		Log:    log,
		Config: config.Config{AuditDir: auditDir},
		Holder: holder,
	})
	svc := NewService(Params{
		Log:        log,
		Clock:      clk,
		Holder:     holder,
		Trail:      trail,
		Properties: properties,
		Exemptions: exemptionservice.NewService(exemptionservice.Params{
			Log:        log,
			Properties: properties,
		}),
		LocalTime: localtimeservice.NewService(localtimeservice.Params{
			Log:        log,
			Properties: properties,
			Converter:  localtimeservice.NewConverter(),
		}),
		Dedup: dedupservice.NewService(dedupservice.Params{
			DB:     db,
			Log:    log,
			Alerts: alertrepo.Provide(),
		}),
		Enrichment: enrichmentservice.NewService(enrichmentservice.Params{
			DB:   db,
			Log:  log,
			Repo: enrichmentrepo.Provide(),
		}),
		Dispatch: dispatchservice.NewService(dispatchservice.Params{
			DB:        db,
			Log:       log,
			GenID:     node,
			Holder:    holder,
			Clock:     clk,
			AlertRepo: alertrepo.Provide(),
			Publisher: events.NewOutbox(events.Params{DB: db, Log: log, GenID: node}),
		}),
	})

	return &harness{db: db, node: node, clk: clk, auditDir: auditDir, svc: svc}
}

func (h *harness) seedProperty(t *testing.T, userID, zoneName string) *propertydomain.Property {
	t.Helper()

	property := &propertydomain.Property{
		ID:         h.node.Generate(),
		Name:       "Harbor Lights Hotel",
		PBXVendor:  propertydomain.VendorOoma,
		AlertEmail: "frontdesk@harborlights.example",
	}
	require.NoError(t, h.db.Create(property).Error)
	require.NoError(t, h.db.Create(&propertydomain.UserExtensionMap{
		ID:         h.node.Generate(),
		UserID:     userID,
		PropertyID: property.ID,
	}).Error)
	if zoneName != "" {
		require.NoError(t, h.db.Create(&propertydomain.PropertyTimezone{
			ID:         h.node.Generate(),
			PropertyID: property.ID,
			ZoneName:   zoneName,
		}).Error)
	}
	return property
}

func (h *harness) seedRoom(t *testing.T, propertyID snowflake.ID, extension, roomNumber, guestName string) {
	t.Helper()

	require.NoError(t, h.db.Create(&enrichmentdomain.Extension{
		ID:         h.node.Generate(),
		PropertyID: propertyID,
		Extension:  extension,
	}).Error)
	require.NoError(t, h.db.Create(&enrichmentdomain.Room{
		ID:         h.node.Generate(),
		PropertyID: propertyID,
		RoomNumber: roomNumber,
		Extension:  extension,
	}).Error)
	require.NoError(t, h.db.Create(&enrichmentdomain.Guest{
		ID:         h.node.Generate(),
		PropertyID: propertyID,
		RoomNumber: roomNumber,
		Name:       guestName,
		MovedInAt:  time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC),
	}).Error)
}

func (h *harness) auditStages(t *testing.T) []string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(h.auditDir, "calls-2026-03-14.log"))
	require.NoError(t, err)

	var stages []string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		parts := strings.Split(line, "|")
		require.Len(t, parts, 8, "audit line %q", line)
		stages = append(stages, parts[1])
	}
	return stages
}

func testEvent(userID string) calleventdomain.CallEvent {
	return calleventdomain.CallEvent{
		EnterpriseID: "ENT-4410",
		GroupID:      calleventdomain.GroupOomaEmergency,
		UserID:       userID,
		Extension:    "104",
		PhoneNumber:  "+15551230104",
		DialedDigits: "911",
		StartTime:    time.Date(2026, 3, 14, 17, 0, 0, 0, time.UTC),
		CallerName:   "Front Desk",
		SourceIP:     "10.40.1.9",
		SequenceRef:  "seq-100",
	}
}

func TestProcessCreatesAlert(t *testing.T) {
	h := newHarness(t)
	property := h.seedProperty(t, "u-104", "America/New_York")
	h.seedRoom(t, property.ID, "104", "104", "J. Chen")

	outcome, err := h.svc.Process(context.Background(), testEvent("u-104"))
	require.NoError(t, err)
	require.True(t, outcome.Success())
	require.Equal(t, domain.StatusDone, outcome.Status)
	require.Equal(t, domain.ReasonAlertCreated, outcome.Reason)
	require.Equal(t, property.ID, outcome.PropertyID)
	require.NotZero(t, outcome.AlertID)

	var record alertdomain.AlertRecord
	require.NoError(t, h.db.First(&record, "id = ?", outcome.AlertID).Error)
	require.Equal(t, "104", record.Extension)
	require.Equal(t, "104", record.RoomNumber)
	require.Equal(t, "J. Chen", record.GuestName)
	require.Equal(t, localtimedomain.SourceZone, record.TimeSource)
	require.True(t, record.LocalTime.UTC().Equal(time.Date(2026, 3, 14, 13, 0, 0, 0, time.UTC)),
		"got local time %s", record.LocalTime)
	require.Equal(t, "10.40.1.9", record.AckIP)

	var emails int64
	require.NoError(t, h.db.Model(&notifyqdomain.EmailQueueItem{}).Count(&emails).Error)
	require.EqualValues(t, 1, emails)

	require.Equal(t, []string{
		auditlogdomain.StageEntry,
		auditlogdomain.StageConvertedTime,
		auditlogdomain.StageAlertCreated,
	}, h.auditStages(t))
}

func TestProcessRedeliveryCollapsesToOneAlert(t *testing.T) {
	h := newHarness(t)
	h.seedProperty(t, "u-104", "America/New_York")

	first, err := h.svc.Process(context.Background(), testEvent("u-104"))
	require.NoError(t, err)
	require.Equal(t, domain.StatusDone, first.Status)

	second, err := h.svc.Process(context.Background(), testEvent("u-104"))
	require.NoError(t, err)
	require.Equal(t, domain.StatusDuplicate, second.Status)
	require.Equal(t, domain.ReasonDuplicateNaturalKey, second.Reason)
	require.Equal(t, first.AlertID, second.AlertID)

	var alerts, emails int64
	require.NoError(t, h.db.Model(&alertdomain.AlertRecord{}).Count(&alerts).Error)
	require.NoError(t, h.db.Model(&notifyqdomain.EmailQueueItem{}).Count(&emails).Error)
	require.EqualValues(t, 1, alerts)
	require.EqualValues(t, 1, emails)

	stages := h.auditStages(t)
	require.Equal(t, auditlogdomain.StageDuplicateFound, stages[len(stages)-1])
}

func TestProcessExemptDigits(t *testing.T) {
	h := newHarness(t)
	property := h.seedProperty(t, "u-104", "America/New_York")
	require.NoError(t, h.db.Create(&propertydomain.PropertyParam{
		ID:         h.node.Generate(),
		PropertyID: propertydomain.GlobalPropertyID,
		Name:       propertydomain.ParamExemptDigits,
		Value:      "933;711",
	}).Error)

	event := testEvent("u-104")
	event.DialedDigits = "933"

	outcome, err := h.svc.Process(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, domain.StatusExempt, outcome.Status)
	require.Equal(t, domain.ReasonExemptDigits, outcome.Reason)
	require.Equal(t, property.ID, outcome.PropertyID)
	require.Zero(t, outcome.AlertID)

	var alerts int64
	require.NoError(t, h.db.Model(&alertdomain.AlertRecord{}).Count(&alerts).Error)
	require.Zero(t, alerts)

	require.Equal(t, []string{
		auditlogdomain.StageEntry,
		auditlogdomain.StageExemptDigits,
	}, h.auditStages(t))
}

func TestProcessPropertyNotFound(t *testing.T) {
	h := newHarness(t)

	outcome, err := h.svc.Process(context.Background(), testEvent("u-nobody"))
	require.Error(t, err)
	require.False(t, outcome.Success())
	require.Equal(t, domain.StatusFailed, outcome.Status)
	require.Equal(t, domain.ReasonPropertyNotFound, outcome.Reason)

	require.Equal(t, []string{auditlogdomain.StagePropertyNotFound}, h.auditStages(t))
}

func TestProcessRejectsInvalidEvent(t *testing.T) {
	h := newHarness(t)

	event := testEvent("u-104")
	event.DialedDigits = "  "

	outcome, err := h.svc.Process(context.Background(), event)
	require.ErrorIs(t, err, calleventdomain.ErrMissingDialedDigits)
	require.Equal(t, domain.StatusFailed, outcome.Status)
	require.Equal(t, domain.ReasonInvalidEvent, outcome.Reason)

	require.Equal(t, []string{auditlogdomain.StageRejected}, h.auditStages(t))
}

func TestProcessAckIPDuplicate(t *testing.T) {
	h := newHarness(t)
	property := h.seedProperty(t, "u-104", "America/New_York")

	existing := &alertdomain.AlertRecord{
		ID:         h.node.Generate(),
		AlertType:  alertdomain.AlertTypeEmergency,
		PropertyID: property.ID,
		LocalTime:  time.Date(2026, 3, 14, 12, 55, 0, 0, time.UTC),
		Extension:  "212",
		AckIP:      "10.40.1.9",
		AckState:   alertdomain.AckStatePending,
	}
	require.NoError(t, h.db.Create(existing).Error)

	// Different extension and time, same acknowledging gateway address.
	outcome, err := h.svc.Process(context.Background(), testEvent("u-104"))
	require.NoError(t, err)
	require.Equal(t, domain.StatusDuplicate, outcome.Status)
	require.Equal(t, domain.ReasonDuplicateAckIP, outcome.Reason)
	require.Equal(t, existing.ID, outcome.AlertID)

	var alerts int64
	require.NoError(t, h.db.Model(&alertdomain.AlertRecord{}).Count(&alerts).Error)
	require.EqualValues(t, 1, alerts)
}

func TestProcessMappingExtensionOverridesEvent(t *testing.T) {
	h := newHarness(t)
	property := h.seedProperty(t, "u-900", "America/New_York")
	require.NoError(t, h.db.Model(&propertydomain.UserExtensionMap{}).
		Where("user_id = ?", "u-900").
		Update("extension", "3001").Error)

	event := testEvent("u-900")
	event.Extension = "999"

	outcome, err := h.svc.Process(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, domain.StatusDone, outcome.Status)
	require.Equal(t, property.ID, outcome.PropertyID)

	var record alertdomain.AlertRecord
	require.NoError(t, h.db.First(&record, "id = ?", outcome.AlertID).Error)
	require.Equal(t, "3001", record.Extension)
}

func TestProcessWithoutTimezoneKeepsRawUTC(t *testing.T) {
	h := newHarness(t)
	h.seedProperty(t, "u-104", "")

	outcome, err := h.svc.Process(context.Background(), testEvent("u-104"))
	require.NoError(t, err)
	require.Equal(t, domain.StatusDone, outcome.Status)

	var record alertdomain.AlertRecord
	require.NoError(t, h.db.First(&record, "id = ?", outcome.AlertID).Error)
	require.Equal(t, localtimedomain.SourceRawUTC, record.TimeSource)
	require.True(t, record.LocalTime.UTC().Equal(time.Date(2026, 3, 14, 17, 0, 0, 0, time.UTC)))
}

func TestProcessTestTrafficRaisesFreshAlerts(t *testing.T) {
	h := newHarness(t)
	h.seedProperty(t, "u-104", "America/New_York")

	event := testEvent("u-104")
	event.EnterpriseID = calleventdomain.EnterpriseTestSentinel
	event.SourceIP = ""

	first, err := h.svc.Process(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, domain.StatusDone, first.Status)

	event.StartTime = event.StartTime.Add(5 * time.Second)
	second, err := h.svc.Process(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, domain.StatusDone, second.Status)
	require.NotEqual(t, first.AlertID, second.AlertID)

	var alerts int64
	require.NoError(t, h.db.Model(&alertdomain.AlertRecord{}).Count(&alerts).Error)
	require.EqualValues(t, 2, alerts)
}

func TestOutcomeSuccess(t *testing.T) {
	require.True(t, domain.Outcome{Status: domain.StatusDone}.Success())
	require.True(t, domain.Outcome{Status: domain.StatusExempt}.Success())
	require.True(t, domain.Outcome{Status: domain.StatusDuplicate}.Success())
	require.False(t, domain.Outcome{Status: domain.StatusFailed}.Success())
}
