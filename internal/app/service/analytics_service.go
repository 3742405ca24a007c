package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sifan077/shrtnr/internal/app/apperror"
	"github.com/sifan077/shrtnr/internal/app/model"
	"github.com/sifan077/shrtnr/internal/app/repository"
)

const (
	day                 = 24 * time.Hour
	clicksByDayWindow   = 30 * day
	trendingWindow      = 7 * day
	topReferersLimit    = 5
	DefaultTrendingSize = 10
	dateLayout          = "2006-01-02"
)

// AnalyticsService computes read-side rollups. Counts are always derived from
// click rows, never from a stored counter.
type AnalyticsService interface {
	GlobalStats(ctx context.Context) (*GlobalStats, error)
	LinkStats(ctx context.Context, code string) (*LinkStats, error)
	Trending(ctx context.Context, limit int) ([]TrendingLink, error)
}

// GlobalStats are service-wide totals; "today" is the current UTC calendar day.
type GlobalStats struct {
	TotalLinks        int64
	TotalClicks       int64
	LinksCreatedToday int64
	ClicksToday       int64
}

// LinkStats describe one link.
type LinkStats struct {
	Link        model.Link
	ClickCount  int64
	ClicksByDay map[string]int64
	TopReferers []repository.RefererCount
}

// TrendingLink is a link ranked by clicks in the trailing window.
type TrendingLink struct {
	Link         model.Link
	RecentClicks int64
	ClickCount   int64
}

type analyticsService struct {
	links  LinkService
	linkDB repository.LinkRepository
	clicks repository.ClickRepository
	now    func() time.Time
}

// NewAnalyticsService returns an AnalyticsService reading through the registry.
func NewAnalyticsService(links LinkService, linkRepo repository.LinkRepository, clicks repository.ClickRepository) AnalyticsService {
	return &analyticsService{
		links:  links,
		linkDB: linkRepo,
		clicks: clicks,
		now:    time.Now,
	}
}

func (s *analyticsService) GlobalStats(ctx context.Context) (*GlobalStats, error) {
	now := s.now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(day)

	var (
		stats GlobalStats
		err   error
	)
	if stats.TotalLinks, err = s.linkDB.Count(ctx); err != nil {
		return nil, unavailable("count links", err)
	}
	if stats.TotalClicks, err = s.clicks.Count(ctx); err != nil {
		return nil, unavailable("count clicks", err)
	}
	if stats.LinksCreatedToday, err = s.linkDB.CountCreatedBetween(ctx, start, end); err != nil {
		return nil, unavailable("count links today", err)
	}
	if stats.ClicksToday, err = s.clicks.CountBetween(ctx, start, end); err != nil {
		return nil, unavailable("count clicks today", err)
	}
	return &stats, nil
}

func (s *analyticsService) LinkStats(ctx context.Context, code string) (*LinkStats, error) {
	link, err := s.links.ResolveLink(ctx, code)
	if err != nil {
		return nil, err
	}

	count, err := s.clicks.CountByLink(ctx, link.ID)
	if err != nil {
		return nil, unavailable("count clicks", err)
	}

	stamps, err := s.clicks.TimestampsSince(ctx, link.ID, s.now().Add(-clicksByDayWindow))
	if err != nil {
		return nil, unavailable("load click history", err)
	}
	byDay := make(map[string]int64)
	for _, ts := range stamps {
		byDay[ts.UTC().Format(dateLayout)]++
	}

	referers, err := s.clicks.TopReferers(ctx, link.ID, topReferersLimit)
	if err != nil {
		return nil, unavailable("load referers", err)
	}

	return &LinkStats{
		Link:        *link,
		ClickCount:  count,
		ClicksByDay: byDay,
		TopReferers: referers,
	}, nil
}

func (s *analyticsService) Trending(ctx context.Context, limit int) ([]TrendingLink, error) {
	if limit <= 0 {
		limit = DefaultTrendingSize
	}

	ranked, err := s.clicks.TopLinksSince(ctx, s.now().Add(-trendingWindow), limit)
	if err != nil {
		return nil, unavailable("rank links", err)
	}
	if len(ranked) == 0 {
		return []TrendingLink{}, nil
	}

	ids := make([]string, len(ranked))
	for i, r := range ranked {
		ids[i] = r.LinkID
	}
	links, err := s.linkDB.GetByIDs(ctx, ids)
	if err != nil {
		return nil, unavailable("load trending links", err)
	}
	totals, err := s.clicks.CountByLinks(ctx, ids)
	if err != nil {
		return nil, unavailable("count clicks", err)
	}

	byID := make(map[string]model.Link, len(links))
	for _, l := range links {
		byID[l.ID] = l
	}

	result := make([]TrendingLink, 0, len(ranked))
	for _, r := range ranked {
		link, ok := byID[r.LinkID]
		if !ok {
			// deleted between the two reads
			continue
		}
		result = append(result, TrendingLink{
			Link:         link,
			RecentClicks: r.Clicks,
			ClickCount:   totals[r.LinkID],
		})
	}
	return result, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w", op, apperror.Unavailable(err))
}
