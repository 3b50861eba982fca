package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is the drain-side view of the email queue. Enqueueing goes
// through the generic stores; only the delivery worker needs claim and
// settle semantics.
type Repository interface {
	// FetchEmailsForWork claims up to limit pending emails. Claimed rows are
	// skipped by concurrent workers until the claiming transaction ends.
	FetchEmailsForWork(ctx context.Context, db *gorm.DB, limit int) ([]EmailQueueItem, error)

	// MarkEmailSent settles a delivered email.
	MarkEmailSent(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	// MarkEmailFailed records a delivery error. The row returns to pending
	// until it runs out of attempts, then parks as failed.
	MarkEmailFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, cause string) error
}
