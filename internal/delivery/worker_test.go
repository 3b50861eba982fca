package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/stayware/callguard/internal/clock"
	notifyqdomain "github.com/stayware/callguard/internal/notifyq/domain"
	notifyqrepo "github.com/stayware/callguard/internal/notifyq/repository"
)

type fakeProvider struct {
	mu   sync.Mutex
	sent []string
	fail map[string]error
}

func (p *fakeProvider) Send(_ context.Context, to, _, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err, ok := p.fail[to]; ok {
		return err
	}
	p.sent = append(p.sent, to)
	return nil
}

func (p *fakeProvider) sentCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

func newTestWorker(t *testing.T, provider *fakeProvider, batchSize int) (*Worker, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&notifyqdomain.EmailQueueItem{}))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	worker, err := New(Params{
		DB:     db,
		Log:    zap.NewNop(),
		Clock:  clock.NewFakeClock(time.Date(2026, 3, 14, 17, 0, 0, 0, time.UTC)),
		Queue:  notifyqrepo.Provide(),
		Mail:   provider,
		Config: Config{BatchSize: batchSize},
	})
	require.NoError(t, err)
	return worker, db, node
}

func queueEmail(t *testing.T, db *gorm.DB, node *snowflake.Node, to string, attempts int) snowflake.ID {
	t.Helper()

	item := &notifyqdomain.EmailQueueItem{
		ID:        node.Generate(),
		ToAddress: to,
		Subject:   "911 ALERT: Harbor Lights Hotel",
		Body:      "Emergency call at Harbor Lights Hotel",
		Status:    notifyqdomain.StatusPending,
		Attempts:  attempts,
	}
	require.NoError(t, db.Create(item).Error)
	return item.ID
}

func TestDrainEmailsSendsPending(t *testing.T) {
	provider := &fakeProvider{}
	worker, db, node := newTestWorker(t, provider, 10)

	queueEmail(t, db, node, "desk1@example.com", 0)
	queueEmail(t, db, node, "desk2@example.com", 0)

	require.NoError(t, worker.RunOnce(context.Background()))
	require.Equal(t, 2, provider.sentCount())

	var items []notifyqdomain.EmailQueueItem
	require.NoError(t, db.Order("id").Find(&items).Error)
	for _, item := range items {
		require.Equal(t, notifyqdomain.StatusSent, item.Status)
		require.NotNil(t, item.SentAt)
	}
}

func TestDrainEmailsRetriesFailedSend(t *testing.T) {
	provider := &fakeProvider{fail: map[string]error{
		"broken@example.com": errors.New("connection refused"),
	}}
	worker, db, node := newTestWorker(t, provider, 10)

	id := queueEmail(t, db, node, "broken@example.com", 0)

	require.NoError(t, worker.RunOnce(context.Background()))

	var item notifyqdomain.EmailQueueItem
	require.NoError(t, db.First(&item, "id = ?", id).Error)
	require.Equal(t, notifyqdomain.StatusPending, item.Status)
	require.Equal(t, 1, item.Attempts)
	require.Contains(t, item.LastError, "connection refused")

	// Provider recovers; the next run picks the row back up.
	provider.mu.Lock()
	delete(provider.fail, "broken@example.com")
	provider.mu.Unlock()

	require.NoError(t, worker.RunOnce(context.Background()))
	require.NoError(t, db.First(&item, "id = ?", id).Error)
	require.Equal(t, notifyqdomain.StatusSent, item.Status)
}

func TestDrainEmailsParksRowAtAttemptCap(t *testing.T) {
	provider := &fakeProvider{fail: map[string]error{
		"dead@example.com": errors.New("550 rejected"),
	}}
	worker, db, node := newTestWorker(t, provider, 10)

	id := queueEmail(t, db, node, "dead@example.com", notifyqdomain.MaxEmailAttempts-1)

	require.NoError(t, worker.RunOnce(context.Background()))

	var item notifyqdomain.EmailQueueItem
	require.NoError(t, db.First(&item, "id = ?", id).Error)
	require.Equal(t, notifyqdomain.StatusFailed, item.Status)
	require.Equal(t, notifyqdomain.MaxEmailAttempts, item.Attempts)

	// Parked rows are never claimed again.
	require.NoError(t, worker.RunOnce(context.Background()))
	require.Zero(t, provider.sentCount())
}

func TestDrainEmailsLoopsPastBatchSize(t *testing.T) {
	provider := &fakeProvider{}
	worker, db, node := newTestWorker(t, provider, 2)

	for i := 0; i < 5; i++ {
		queueEmail(t, db, node, fmt.Sprintf("desk%d@example.com", i), 0)
	}

	require.NoError(t, worker.RunOnce(context.Background()))
	require.Equal(t, 5, provider.sentCount())

	var pending int64
	require.NoError(t, db.Model(&notifyqdomain.EmailQueueItem{}).
		Where("status = ?", notifyqdomain.StatusPending).
		Count(&pending).Error)
	require.Zero(t, pending)
}
