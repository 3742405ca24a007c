package repository

import (
	"context"
	"time"

	"github.com/sifan077/shrtnr/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DirectReferer labels clicks that arrived without a Referer header.
const DirectReferer = "Direct"

const refererLabel = "COALESCE(NULLIF(referer, ''), '" + DirectReferer + "')"

// RefererCount is one row of a referer histogram.
type RefererCount struct {
	Referer string `gorm:"column:label"`
	Count   int64  `gorm:"column:hits"`
}

// LinkClickCount pairs a link id with a click count.
type LinkClickCount struct {
	LinkID string
	Clicks int64
}

// ClickRepository defines the data access contract for click events.
type ClickRepository interface {
	// Create appends a click. A click whose id already exists is ignored; a
	// click for a missing link returns ErrLinkNotFound where the store enforces it.
	Create(ctx context.Context, click *model.Click) error
	Count(ctx context.Context) (int64, error)
	CountBetween(ctx context.Context, from, to time.Time) (int64, error)
	CountByLink(ctx context.Context, linkID string) (int64, error)
	CountByLinks(ctx context.Context, linkIDs []string) (map[string]int64, error)
	TimestampsSince(ctx context.Context, linkID string, since time.Time) ([]time.Time, error)
	// TopReferers returns up to limit referer buckets, most frequent first, ties
	// in order of each bucket's earliest click.
	TopReferers(ctx context.Context, linkID string, limit int) ([]RefererCount, error)
	// TopLinksSince ranks links by clicks at or after since.
	TopLinksSince(ctx context.Context, since time.Time, limit int) ([]LinkClickCount, error)
}

type clickRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewClickRepository returns a GORM-backed ClickRepository.
func NewClickRepository(db *gorm.DB, timeout time.Duration) ClickRepository {
	return &clickRepository{db: db, timeout: timeout}
}

func (r *clickRepository) Create(ctx context.Context, click *model.Click) error {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	err := r.db.WithContext(ctx).
		Omit("Link").
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(click).Error
	if err != nil && isForeignKeyViolation(err) {
		return ErrLinkNotFound
	}
	return err
}

func (r *clickRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	var n int64
	err := r.db.WithContext(ctx).Model(&model.Click{}).Count(&n).Error
	return n, err
}

func (r *clickRepository) CountBetween(ctx context.Context, from, to time.Time) (int64, error) {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	var n int64
	err := r.db.WithContext(ctx).Model(&model.Click{}).
		Where("clicked_at >= ? AND clicked_at < ?", from.UTC(), to.UTC()).
		Count(&n).Error
	return n, err
}

func (r *clickRepository) CountByLink(ctx context.Context, linkID string) (int64, error) {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	var n int64
	err := r.db.WithContext(ctx).Model(&model.Click{}).Where("link_id = ?", linkID).Count(&n).Error
	return n, err
}

func (r *clickRepository) CountByLinks(ctx context.Context, linkIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(linkIDs))
	if len(linkIDs) == 0 {
		return counts, nil
	}
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	var rows []LinkClickCount
	if err := r.db.WithContext(ctx).Model(&model.Click{}).
		Select("link_id, COUNT(*) AS clicks").
		Where("link_id IN ?", linkIDs).
		Group("link_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.LinkID] = row.Clicks
	}
	return counts, nil
}

func (r *clickRepository) TimestampsSince(ctx context.Context, linkID string, since time.Time) ([]time.Time, error) {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	var stamps []time.Time
	if err := r.db.WithContext(ctx).Model(&model.Click{}).
		Where("link_id = ? AND clicked_at >= ?", linkID, since.UTC()).
		Order("clicked_at").
		Pluck("clicked_at", &stamps).Error; err != nil {
		return nil, err
	}
	return stamps, nil
}

func (r *clickRepository) TopReferers(ctx context.Context, linkID string, limit int) ([]RefererCount, error) {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	var rows []RefererCount
	if err := r.db.WithContext(ctx).Model(&model.Click{}).
		Select(refererLabel+" AS label, COUNT(*) AS hits").
		Where("link_id = ?", linkID).
		Group(refererLabel).
		Order("hits DESC").
		Order("MIN(clicked_at) ASC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *clickRepository) TopLinksSince(ctx context.Context, since time.Time, limit int) ([]LinkClickCount, error) {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	var rows []LinkClickCount
	if err := r.db.WithContext(ctx).Model(&model.Click{}).
		Select("link_id, COUNT(*) AS clicks").
		Where("clicked_at >= ?", since.UTC()).
		Group("link_id").
		Order("clicks DESC").
		Order("link_id").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
