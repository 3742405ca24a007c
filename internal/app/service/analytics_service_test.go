package service

import (
	"context"
	"testing"
	"time"

	"github.com/sifan077/shrtnr/internal/app/apperror"
	"github.com/sifan077/shrtnr/internal/app/model"
	"github.com/sifan077/shrtnr/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyticsService_GlobalStatsUsesUTCDay(t *testing.T) {
	reg := newRegistry(t, LinkServiceOptions{})
	ctx := context.Background()
	midnight := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	reg.analytics.now = func() time.Time { return midnight.Add(10 * time.Hour) }

	yesterday := &model.Link{Destination: "https://y.example", Code: "yday", CreatedAt: midnight.Add(-time.Hour)}
	today := &model.Link{Destination: "https://t.example", Code: "today", CreatedAt: midnight.Add(time.Hour)}
	require.NoError(t, reg.links.Create(ctx, yesterday))
	require.NoError(t, reg.links.Create(ctx, today))

	reg.click(t, yesterday, "", midnight.Add(-time.Second))
	reg.click(t, yesterday, "", midnight.Add(time.Second))
	reg.click(t, today, "", midnight.Add(2*time.Hour))

	stats, err := reg.analytics.GlobalStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &GlobalStats{
		TotalLinks:        2,
		TotalClicks:       3,
		LinksCreatedToday: 1,
		ClicksToday:       2,
	}, stats)
}

func TestAnalyticsService_LinkStats(t *testing.T) {
	reg := newRegistry(t, LinkServiceOptions{})
	ctx := context.Background()
	now := time.Date(2026, 7, 20, 15, 0, 0, 0, time.UTC)
	reg.analytics.now = func() time.Time { return now }

	link := &model.Link{Destination: "https://s.example", Code: "stats", CreatedAt: now.Add(-40 * day)}
	require.NoError(t, reg.links.Create(ctx, link))

	reg.click(t, link, "", now.Add(-35*day))
	reg.click(t, link, "https://news.example", now.Add(-2*day))
	reg.click(t, link, "https://news.example", now.Add(-2*day+time.Hour))
	reg.click(t, link, "", now.Add(-time.Hour))

	stats, err := reg.analytics.LinkStats(ctx, "stats")
	require.NoError(t, err)
	assert.Equal(t, link.ID, stats.Link.ID)
	assert.Equal(t, int64(4), stats.ClickCount)
	assert.Equal(t, map[string]int64{"2026-07-18": 2, "2026-07-20": 1}, stats.ClicksByDay)
	assert.Equal(t, []repository.RefererCount{
		{Referer: repository.DirectReferer, Count: 2},
		{Referer: "https://news.example", Count: 2},
	}, stats.TopReferers)

	// click_count is recomputed from rows
	n, err := reg.clicks.CountByLink(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, n, stats.ClickCount)

	_, err = reg.analytics.LinkStats(ctx, "STATS")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestAnalyticsService_TrendingWindow(t *testing.T) {
	reg := newRegistry(t, LinkServiceOptions{})
	ctx := context.Background()
	now := time.Now().UTC()

	mk := func(code string) *model.Link {
		link := &model.Link{Destination: "https://" + code + ".example", Code: code}
		require.NoError(t, reg.links.Create(ctx, link))
		return link
	}
	old := mk("old")
	hot := mk("hot")
	warm := mk("warm")
	mk("cold")

	reg.click(t, old, "", now.Add(-8*day))
	reg.click(t, hot, "", now.Add(-time.Hour))
	reg.click(t, hot, "", now.Add(-2*time.Hour))
	reg.click(t, hot, "", now.Add(-9*day))
	reg.click(t, warm, "", now.Add(-3*day))

	trending, err := reg.analytics.Trending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, trending, 2)
	assert.Equal(t, "hot", trending[0].Link.Code)
	assert.Equal(t, int64(2), trending[0].RecentClicks)
	assert.Equal(t, int64(3), trending[0].ClickCount)
	assert.Equal(t, "warm", trending[1].Link.Code)

	top, err := reg.analytics.Trending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "hot", top[0].Link.Code)
}

func TestAnalyticsService_TrendingEmpty(t *testing.T) {
	reg := newRegistry(t, LinkServiceOptions{})

	trending, err := reg.analytics.Trending(context.Background(), 0)
	require.NoError(t, err)
	assert.NotNil(t, trending)
	assert.Empty(t, trending)
}
