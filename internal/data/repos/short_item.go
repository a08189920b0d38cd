// Package repos holds the short-entity cache store. All mutation goes
// through a compare-and-swap on the row's version column; there are no
// in-process locks.
package repos

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tokenmesh/marketplace-backend/internal/domain"
	apperr "github.com/tokenmesh/marketplace-backend/internal/pkg/errors"
	"github.com/tokenmesh/marketplace-backend/internal/pkg/logger"
)

type ShortItemRepo interface {
	Get(ctx context.Context, tx *gorm.DB, id string) (*domain.ShortItem, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*domain.ShortItem, error)
	// Save persists the row with expectedVersion as precondition.
	// expectedVersion 0 means "must not exist yet". On precondition
	// failure it returns ErrVersionConflict and the caller restarts its
	// read-decide-write cycle.
	Save(ctx context.Context, tx *gorm.DB, row *domain.ShortItem, expectedVersion int64) (*domain.ShortItem, error)
	// Delete removes the row. A non-zero expectedVersion is a
	// precondition like Save's: a concurrent write wins over a stale
	// emptiness decision. expectedVersion 0 deletes unconditionally.
	Delete(ctx context.Context, tx *gorm.DB, id string, expectedVersion int64) (int64, error)
}

type shortItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewShortItemRepo(db *gorm.DB, baseLog *logger.Logger) ShortItemRepo {
	return &shortItemRepo{db: db, log: baseLog.With("repo", "ShortItemRepo")}
}

func (r *shortItemRepo) Get(ctx context.Context, tx *gorm.DB, id string) (*domain.ShortItem, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var row domain.ShortItem
	err := t.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *shortItemRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*domain.ShortItem, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*domain.ShortItem
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *shortItemRepo) Save(ctx context.Context, tx *gorm.DB, row *domain.ShortItem, expectedVersion int64) (*domain.ShortItem, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	row.LastUpdatedAt = time.Now().UTC()
	row.Version = expectedVersion + 1

	if expectedVersion == 0 {
		if err := t.WithContext(ctx).Create(row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, apperr.ErrVersionConflict
			}
			return nil, err
		}
		return row, nil
	}

	res := t.WithContext(ctx).
		Model(&domain.ShortItem{}).
		Where("id = ? AND version = ?", row.ID, expectedVersion).
		Select("*").
		Updates(row)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperr.ErrVersionConflict
	}
	return row, nil
}

func (r *shortItemRepo) Delete(ctx context.Context, tx *gorm.DB, id string, expectedVersion int64) (int64, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(ctx).Where("id = ?", id)
	if expectedVersion > 0 {
		q = q.Where("version = ?", expectedVersion)
	}
	res := q.Delete(&domain.ShortItem{})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 && expectedVersion > 0 {
		// Row gone is fine; row present with another version is a lost
		// race.
		var count int64
		if err := t.WithContext(ctx).Model(&domain.ShortItem{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return 0, err
		}
		if count > 0 {
			return 0, apperr.ErrVersionConflict
		}
	}
	return res.RowsAffected, nil
}
