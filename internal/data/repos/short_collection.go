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

type ShortCollectionRepo interface {
	Get(ctx context.Context, tx *gorm.DB, id string) (*domain.ShortCollection, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*domain.ShortCollection, error)
	Save(ctx context.Context, tx *gorm.DB, row *domain.ShortCollection, expectedVersion int64) (*domain.ShortCollection, error)
	Delete(ctx context.Context, tx *gorm.DB, id string, expectedVersion int64) (int64, error)
}

type shortCollectionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewShortCollectionRepo(db *gorm.DB, baseLog *logger.Logger) ShortCollectionRepo {
	return &shortCollectionRepo{db: db, log: baseLog.With("repo", "ShortCollectionRepo")}
}

func (r *shortCollectionRepo) Get(ctx context.Context, tx *gorm.DB, id string) (*domain.ShortCollection, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var row domain.ShortCollection
	err := t.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *shortCollectionRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*domain.ShortCollection, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*domain.ShortCollection
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *shortCollectionRepo) Save(ctx context.Context, tx *gorm.DB, row *domain.ShortCollection, expectedVersion int64) (*domain.ShortCollection, error) {
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
		Model(&domain.ShortCollection{}).
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

func (r *shortCollectionRepo) Delete(ctx context.Context, tx *gorm.DB, id string, expectedVersion int64) (int64, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(ctx).Where("id = ?", id)
	if expectedVersion > 0 {
		q = q.Where("version = ?", expectedVersion)
	}
	res := q.Delete(&domain.ShortCollection{})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 && expectedVersion > 0 {
		var count int64
		if err := t.WithContext(ctx).Model(&domain.ShortCollection{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return 0, err
		}
		if count > 0 {
			return 0, apperr.ErrVersionConflict
		}
	}
	return res.RowsAffected, nil
}
