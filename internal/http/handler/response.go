package handler

import (
	"time"

	"github.com/sifan077/shrtnr/internal/app/model"
	"github.com/sifan077/shrtnr/internal/app/repository"
	"github.com/sifan077/shrtnr/internal/app/service"
	"github.com/sifan077/shrtnr/internal/http/util"
)

const trendingURLWidth = 50

// LinkResponse is the public shape of a link.
type LinkResponse struct {
	ID          string    `json:"id"`
	OriginalURL string    `json:"original_url"`
	ShortCode   string    `json:"short_code"`
	CreatedAt   time.Time `json:"created_at"`
	ClickCount  int64     `json:"click_count"`
	ShortURL    string    `json:"short_url"`
}

// RefererResponse is one top_referers entry.
type RefererResponse struct {
	Referer string `json:"referer"`
	Count   int64  `json:"count"`
}

// LinkStatsResponse describes one link's analytics.
type LinkStatsResponse struct {
	ID          string            `json:"id"`
	OriginalURL string            `json:"original_url"`
	ShortCode   string            `json:"short_code"`
	CreatedAt   time.Time         `json:"created_at"`
	ClickCount  int64             `json:"click_count"`
	ClicksByDay map[string]int64  `json:"clicks_by_day"`
	TopReferers []RefererResponse `json:"top_referers"`
}

// TrendingResponse is a link ranked by recent clicks.
type TrendingResponse struct {
	LinkResponse
	RecentClicks int64 `json:"recent_clicks"`
}

// CredentialResponse is an API key. Key holds the full token only on creation.
type CredentialResponse struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	IsActive  bool      `json:"is_active"`
}

// GlobalStatsResponse holds service-wide totals.
type GlobalStatsResponse struct {
	TotalURLs   int64 `json:"total_urls"`
	TotalClicks int64 `json:"total_clicks"`
	URLsToday   int64 `json:"urls_today"`
	ClicksToday int64 `json:"clicks_today"`
}

// QRResponse carries a PNG QR code as a data URI.
type QRResponse struct {
	QRCode string `json:"qr_code"`
}

func newLinkResponse(link model.Link, clicks int64, baseURL string) LinkResponse {
	return LinkResponse{
		ID:          link.ID,
		OriginalURL: link.Destination,
		ShortCode:   link.Code,
		CreatedAt:   link.CreatedAt,
		ClickCount:  clicks,
		ShortURL:    util.ShortURL(baseURL, link.Code),
	}
}

func newLinkStatsResponse(stats *service.LinkStats) LinkStatsResponse {
	return LinkStatsResponse{
		ID:          stats.Link.ID,
		OriginalURL: stats.Link.Destination,
		ShortCode:   stats.Link.Code,
		CreatedAt:   stats.Link.CreatedAt,
		ClickCount:  stats.ClickCount,
		ClicksByDay: stats.ClicksByDay,
		TopReferers: newRefererResponses(stats.TopReferers),
	}
}

func newRefererResponses(in []repository.RefererCount) []RefererResponse {
	out := make([]RefererResponse, len(in))
	for i, r := range in {
		out[i] = RefererResponse{Referer: r.Referer, Count: r.Count}
	}
	return out
}

func newTrendingResponse(item service.TrendingLink, baseURL string) TrendingResponse {
	resp := TrendingResponse{
		LinkResponse: newLinkResponse(item.Link, item.ClickCount, baseURL),
		RecentClicks: item.RecentClicks,
	}
	resp.OriginalURL = truncate(resp.OriginalURL, trendingURLWidth)
	return resp
}

func newCredentialResponse(cred model.Credential, key string) CredentialResponse {
	return CredentialResponse{
		ID:        cred.ID,
		Key:       key,
		Name:      cred.Label,
		CreatedAt: cred.CreatedAt,
		IsActive:  cred.Active,
	}
}

// truncate cuts s to n runes and marks the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
