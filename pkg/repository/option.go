package repository

import (
	"fmt"

	"github.com/stayware/callguard/pkg/db/pagination"
	"gorm.io/gorm"
)

// QueryOption tweaks a gorm statement before execution.
type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type optionFunc func(*gorm.DB) *gorm.DB

func (f optionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

// WithLimit caps the number of rows returned.
func WithLimit(n int) QueryOption {
	return optionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Limit(n)
	})
}

// WithCondition adds a raw where clause for filters the struct query cannot
// express (ranges, IS NULL, multi-column ors).
func WithCondition(query string, args ...any) QueryOption {
	return optionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	})
}

// ApplyPagination decodes the page token into a keyset predicate and fetches
// one row past the page size so callers can detect another page.
func ApplyPagination(p pagination.Pagination) QueryOption {
	return optionFunc(func(db *gorm.DB) *gorm.DB {
		size := p.PageSize
		if size <= 0 {
			size = 50
		}
		if size > 250 {
			size = 250
		}

		if p.PageToken != "" {
			if cursor, err := pagination.DecodeCursor(p.PageToken); err == nil && cursor.CreatedAt != "" {
				db = db.Where(
					"created_at < ? OR (created_at = ? AND id < ?)",
					cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
				)
			}
		}

		return db.Limit(size + 1)
	})
}

// QuerySortBy restricts client-supplied sort columns to an allow list.
type QuerySortBy struct {
	Field string
	Allow map[string]bool
}

// WithSortBy orders results newest first by the requested column, falling
// back to created_at for anything not allow-listed. The id tiebreak keeps
// keyset pagination stable across equal timestamps.
func WithSortBy(s QuerySortBy) QueryOption {
	return optionFunc(func(db *gorm.DB) *gorm.DB {
		field := s.Field
		if field == "" || !s.Allow[field] {
			field = "created_at"
		}
		return db.Order(fmt.Sprintf("%s DESC, id DESC", field))
	})
}
