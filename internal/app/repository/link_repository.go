package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sifan077/shrtnr/internal/app/model"
	"gorm.io/gorm"
)

// ListFilter narrows and pages a link listing. Limit 0 means no limit.
type ListFilter struct {
	OwnerID *string
	Limit   int
	Offset  int
}

// LinkRepository defines the data access contract for short links.
type LinkRepository interface {
	// Create inserts the link. The unique index on code is the only arbiter of
	// code ownership; a violation returns ErrCodeTaken.
	Create(ctx context.Context, link *model.Link) error
	GetByCode(ctx context.Context, code string) (*model.Link, error)
	GetByIDs(ctx context.Context, ids []string) ([]model.Link, error)
	List(ctx context.Context, filter ListFilter) ([]model.Link, error)
	// DeleteWithClicks removes the link and all of its clicks in one transaction.
	DeleteWithClicks(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
}

type linkRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewLinkRepository returns a GORM-backed LinkRepository whose calls are each
// bounded by timeout.
func NewLinkRepository(db *gorm.DB, timeout time.Duration) LinkRepository {
	return &linkRepository{db: db, timeout: timeout}
}

func (r *linkRepository) Create(ctx context.Context, link *model.Link) error {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	if err := r.db.WithContext(ctx).Omit("Owner").Create(link).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrCodeTaken
		}
		return err
	}
	return nil
}

func (r *linkRepository) GetByCode(ctx context.Context, code string) (*model.Link, error) {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	var link model.Link
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *linkRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Link, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	var result []model.Link
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func (r *linkRepository) List(ctx context.Context, filter ListFilter) ([]model.Link, error) {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	q := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if filter.OwnerID != nil {
		q = q.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var result []model.Link
	if err := q.Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func (r *linkRepository) DeleteWithClicks(ctx context.Context, id string) error {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("link_id = ?", id).Delete(&model.Click{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&model.Link{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrLinkNotFound
		}
		return nil
	})
}

func (r *linkRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	var n int64
	err := r.db.WithContext(ctx).Model(&model.Link{}).Count(&n).Error
	return n, err
}

func (r *linkRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	var n int64
	err := r.db.WithContext(ctx).Model(&model.Link{}).
		Where("created_at >= ? AND created_at < ?", from.UTC(), to.UTC()).
		Count(&n).Error
	return n, err
}
