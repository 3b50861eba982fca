package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	auditlogdomain "github.com/stayware/callguard/internal/auditlog/domain"
	"github.com/stayware/callguard/internal/config"
)

func newTestService(t *testing.T) (auditlogdomain.Service, string) {
	t.Helper()

	dir := t.TempDir()
	holder, err := config.NewAlertingConfigHolder()
	require.NoError(t, err)

	svc := NewService(Params{
		Log:    zap.NewNop(),
		Config: config.Config{AuditDir: dir},
		Holder: holder,
	})
	t.Cleanup(func() { _ = svc.Close() })
	return svc, dir
}

func TestRecordAppendsPipeDelimitedLine(t *testing.T) {
	svc, dir := newTestService(t)

	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	svc.Record(context.Background(), auditlogdomain.Entry{
		Stage:        auditlogdomain.StageEntry,
		OccurredAt:   at,
		EnterpriseID: "ENT-100",
		GroupID:      "ooma-emergency",
		UserID:       "user-9",
		Extension:    "104",
		PhoneNumber:  "911",
		Detail:       "received",
	})

	data, err := os.ReadFile(filepath.Join(dir, "calls-2026-03-14.log"))
	require.NoError(t, err)
	require.Equal(t, "2026-03-14 09:26:53|Entry|ENT-100|ooma-emergency|user-9|104|911|received\n", string(data))
}

func TestRecordRotatesByDay(t *testing.T) {
	svc, dir := newTestService(t)

	first := time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)
	second := first.Add(2 * time.Minute)

	svc.Record(context.Background(), auditlogdomain.Entry{Stage: auditlogdomain.StageEntry, OccurredAt: first})
	svc.Record(context.Background(), auditlogdomain.Entry{Stage: auditlogdomain.StageConvertedTime, OccurredAt: second})

	_, err := os.Stat(filepath.Join(dir, "calls-2026-03-14.log"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "calls-2026-03-15.log"))
	require.NoError(t, err)
}

func TestRecordStripsDelimiterFromValues(t *testing.T) {
	svc, dir := newTestService(t)

	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	svc.Record(context.Background(), auditlogdomain.Entry{
		Stage:      auditlogdomain.StageDuplicateFound,
		OccurredAt: at,
		Detail:     "matched|by\nip",
	})

	data, err := os.ReadFile(filepath.Join(dir, "calls-2026-03-14.log"))
	require.NoError(t, err)
	require.Contains(t, string(data), "|matched by ip\n")
}

func TestRecordAfterCloseDoesNotWrite(t *testing.T) {
	svc, dir := newTestService(t)
	require.NoError(t, svc.Close())

	svc.Record(context.Background(), auditlogdomain.Entry{
		Stage:      auditlogdomain.StageEntry,
		OccurredAt: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	})

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}
