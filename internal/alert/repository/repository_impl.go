package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stayware/callguard/internal/alert/domain"
	obsmetrics "github.com/stayware/callguard/internal/observability/metrics"
	dbpkg "github.com/stayware/callguard/pkg/db"
)

// claimTimeout bounds the ack-IP stamp transaction. The stamp is advisory;
// a stuck lock must not hold up call processing.
const claimTimeout = 2 * time.Second

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) CreateIfAbsent(ctx context.Context, db *gorm.DB, record *domain.AlertRecord) (bool, *domain.AlertRecord, error) {
	if record == nil {
		return false, nil, errors.New("missing_alert_record")
	}

	created, err := r.insert(ctx, db, record)
	if err != nil && !dbpkg.IsDuplicateKeyErr(err) {
		return false, nil, err
	}
	if created {
		return true, record, nil
	}

	existing, err := r.FindByNaturalKey(ctx, db, record.AlertType, record.PropertyID, record.LocalTime, record.Extension)
	if err != nil {
		return false, nil, err
	}
	if existing == nil {
		// Lost the insert race and the winner is already gone.
		return false, nil, domain.ErrAlertNotFound
	}
	return false, existing, nil
}

func (r *repo) insert(ctx context.Context, db *gorm.DB, record *domain.AlertRecord) (bool, error) {
	if strings.EqualFold(db.Dialector.Name(), "sqlite") {
		return r.insertSQLite(ctx, db, record)
	}

	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "alert_type"},
				{Name: "property_id"},
				{Name: "local_time"},
				{Name: "extension"},
			},
			DoNothing: true,
		}).
		Create(record)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) insertSQLite(ctx context.Context, db *gorm.DB, record *domain.AlertRecord) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO alert_records (
			id, alert_type, property_id, local_time, extension, time_source,
			room_number, guest_name, caller_name, phone_number,
			enterprise_id, group_id, source_ip, ack_ip,
			ack_state, ack_by, acked_at, subject, body, legacy_message,
			raw_snapshot, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (alert_type, property_id, local_time, extension) DO NOTHING`,
		record.ID,
		record.AlertType,
		record.PropertyID,
		record.LocalTime,
		record.Extension,
		record.TimeSource,
		record.RoomNumber,
		record.GuestName,
		record.CallerName,
		record.PhoneNumber,
		record.EnterpriseID,
		record.GroupID,
		record.SourceIP,
		record.AckIP,
		record.AckState,
		record.AckBy,
		record.AckedAt,
		record.Subject,
		record.Body,
		record.LegacyMessage,
		record.RawSnapshot,
		record.CreatedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.AlertRecord, error) {
	var record domain.AlertRecord
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repo) FindByAckIP(ctx context.Context, db *gorm.DB, alertType int, propertyID snowflake.ID, ackIP string) (*domain.AlertRecord, error) {
	ackIP = strings.TrimSpace(ackIP)
	if ackIP == "" {
		return nil, nil
	}

	var record domain.AlertRecord
	err := db.WithContext(ctx).
		Where("alert_type = ? AND property_id = ? AND ack_ip = ?", alertType, propertyID, ackIP).
		Order("created_at DESC, id DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repo) FindByNaturalKey(ctx context.Context, db *gorm.DB, alertType int, propertyID snowflake.ID, localTime time.Time, extension string) (*domain.AlertRecord, error) {
	var record domain.AlertRecord
	err := db.WithContext(ctx).
		Where("alert_type = ? AND property_id = ? AND local_time = ? AND extension = ?",
			alertType, propertyID, localTime, extension).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repo) StampAckIP(ctx context.Context, db *gorm.DB, id snowflake.ID, ackIP string) (bool, error) {
	ackIP = strings.TrimSpace(ackIP)
	if ackIP == "" || id == 0 {
		return false, nil
	}

	claimCtx, cancel := context.WithTimeout(ctx, claimTimeout)
	defer cancel()

	workerMetrics := obsmetrics.Worker()
	var stamped bool
	err := db.WithContext(claimCtx).Transaction(func(tx *gorm.DB) error {
		query := `SELECT id FROM alert_records WHERE id = ?`
		if tx.Dialector.Name() != "sqlite" {
			query += " FOR UPDATE SKIP LOCKED"
		}

		lockStart := time.Now()
		var claimed struct{ ID snowflake.ID }
		if err := tx.Raw(query, id).Scan(&claimed).Error; err != nil {
			return err
		}
		workerMetrics.ObserveDBLockWait(obsmetrics.LockResourceAlertAckStamp, time.Since(lockStart))

		if claimed.ID == 0 {
			// Another worker holds the row. One attempt, no retry.
			return nil
		}

		result := tx.Exec(`UPDATE alert_records SET ack_ip = ? WHERE id = ?`, ackIP, id)
		if result.Error != nil {
			return result.Error
		}
		stamped = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return stamped, nil
}

func (r *repo) Acknowledge(ctx context.Context, db *gorm.DB, id snowflake.ID, actor string, at time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE alert_records
		 SET ack_state = ?, ack_by = ?, acked_at = ?
		 WHERE id = ? AND ack_state = ?`,
		domain.AckStateAcked,
		strings.TrimSpace(actor),
		at.UTC(),
		id,
		domain.AckStatePending,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.AlertRecord, error) {
	stmt := db.WithContext(ctx).Model(&domain.AlertRecord{})

	if filter.PropertyID != 0 {
		stmt = stmt.Where("property_id = ?", filter.PropertyID)
	}
	if state := strings.TrimSpace(filter.AckState); state != "" {
		stmt = stmt.Where("ack_state = ?", state)
	}
	if filter.AlertType != 0 {
		stmt = stmt.Where("alert_type = ?", filter.AlertType)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var records []*domain.AlertRecord
	err := stmt.Order("created_at DESC, id DESC").
		Limit(limit + 1).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
