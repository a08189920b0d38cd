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

type ShortOwnershipRepo interface {
	Get(ctx context.Context, tx *gorm.DB, id string) (*domain.ShortOwnership, error)
	GetByItem(ctx context.Context, tx *gorm.DB, itemID string) ([]*domain.ShortOwnership, error)
	Save(ctx context.Context, tx *gorm.DB, row *domain.ShortOwnership, expectedVersion int64) (*domain.ShortOwnership, error)
	Delete(ctx context.Context, tx *gorm.DB, id string, expectedVersion int64) (int64, error)
}

type shortOwnershipRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewShortOwnershipRepo(db *gorm.DB, baseLog *logger.Logger) ShortOwnershipRepo {
	return &shortOwnershipRepo{db: db, log: baseLog.With("repo", "ShortOwnershipRepo")}
}

func (r *shortOwnershipRepo) Get(ctx context.Context, tx *gorm.DB, id string) (*domain.ShortOwnership, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var row domain.ShortOwnership
	err := t.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *shortOwnershipRepo) GetByItem(ctx context.Context, tx *gorm.DB, itemID string) ([]*domain.ShortOwnership, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*domain.ShortOwnership
	if itemID == "" {
		return out, nil
	}
	// Ownership ids are "<itemId>:<owner>".
	if err := t.WithContext(ctx).Where("id LIKE ?", itemID+":%").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *shortOwnershipRepo) Save(ctx context.Context, tx *gorm.DB, row *domain.ShortOwnership, expectedVersion int64) (*domain.ShortOwnership, error) {
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
		Model(&domain.ShortOwnership{}).
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

func (r *shortOwnershipRepo) Delete(ctx context.Context, tx *gorm.DB, id string, expectedVersion int64) (int64, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(ctx).Where("id = ?", id)
	if expectedVersion > 0 {
		q = q.Where("version = ?", expectedVersion)
	}
	res := q.Delete(&domain.ShortOwnership{})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 && expectedVersion > 0 {
		var count int64
		if err := t.WithContext(ctx).Model(&domain.ShortOwnership{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return 0, err
		}
		if count > 0 {
			return 0, apperr.ErrVersionConflict
		}
	}
	return res.RowsAffected, nil
}
