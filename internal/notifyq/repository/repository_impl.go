package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/stayware/callguard/internal/notifyq/domain"
	obsmetrics "github.com/stayware/callguard/internal/observability/metrics"
)

// claimTimeout bounds the queue claim transaction so a stuck lock cannot
// stall the delivery loop.
const claimTimeout = 2 * time.Second

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FetchEmailsForWork(ctx context.Context, db *gorm.DB, limit int) ([]domain.EmailQueueItem, error) {
	if limit <= 0 {
		limit = 25
	}

	claimCtx, cancel := context.WithTimeout(ctx, claimTimeout)
	defer cancel()

	workerMetrics := obsmetrics.Worker()
	var items []domain.EmailQueueItem
	err := db.WithContext(claimCtx).Transaction(func(tx *gorm.DB) error {
		query := `SELECT id, property_id, alert_id, to_address, subject, body,
		                 status, attempts, last_error, created_at, sent_at
		          FROM email_queue
		          WHERE status = ?
		          ORDER BY id
		          LIMIT ?`
		if tx.Dialector.Name() != "sqlite" {
			query += " FOR UPDATE SKIP LOCKED"
		}

		lockStart := time.Now()
		err := tx.Raw(query, domain.StatusPending, limit).Scan(&items).Error
		workerMetrics.ObserveDBLockWait(obsmetrics.LockResourceEmailQueueForWork, time.Since(lockStart))
		return err
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) MarkEmailSent(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	now := time.Now().UTC()
	return db.WithContext(ctx).Exec(
		`UPDATE email_queue
		 SET status = ?, sent_at = ?, last_error = ''
		 WHERE id = ? AND status = ?`,
		domain.StatusSent,
		now,
		id,
		domain.StatusPending,
	).Error
}

func (r *repo) MarkEmailFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, cause string) error {
	cause = strings.TrimSpace(cause)
	return db.WithContext(ctx).Exec(
		`UPDATE email_queue
		 SET attempts = attempts + 1,
		     last_error = ?,
		     status = CASE WHEN attempts + 1 >= ? THEN ? ELSE ? END
		 WHERE id = ? AND status = ?`,
		cause,
		domain.MaxEmailAttempts,
		domain.StatusFailed,
		domain.StatusPending,
		id,
		domain.StatusPending,
	).Error
}
