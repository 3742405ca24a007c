package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sifan077/shrtnr/internal/app/model"
	"github.com/sifan077/shrtnr/internal/app/repository"
	"github.com/sifan077/shrtnr/internal/testutil"
)

type mockLinkRepository struct {
	createFn    func(ctx context.Context, link *model.Link) error
	getFn       func(ctx context.Context, code string) (*model.Link, error)
	deleteFn    func(ctx context.Context, id string) error
	createCalls int
}

func (m *mockLinkRepository) Create(ctx context.Context, link *model.Link) error {
	m.createCalls++
	if m.createFn != nil {
		return m.createFn(ctx, link)
	}
	return nil
}

func (m *mockLinkRepository) GetByCode(ctx context.Context, code string) (*model.Link, error) {
	if m.getFn != nil {
		return m.getFn(ctx, code)
	}
	return nil, repository.ErrLinkNotFound
}

func (m *mockLinkRepository) GetByIDs(context.Context, []string) ([]model.Link, error) {
	return nil, nil
}

func (m *mockLinkRepository) List(context.Context, repository.ListFilter) ([]model.Link, error) {
	return nil, nil
}

func (m *mockLinkRepository) DeleteWithClicks(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockLinkRepository) Count(context.Context) (int64, error) { return 0, nil }

func (m *mockLinkRepository) CountCreatedBetween(context.Context, time.Time, time.Time) (int64, error) {
	return 0, nil
}

type mockClickRepository struct {
	repository.ClickRepository
	createFn func(ctx context.Context, click *model.Click) error
}

func (m *mockClickRepository) Create(ctx context.Context, click *model.Click) error {
	return m.createFn(ctx, click)
}

// sequenceGenerator replays fixed codes, then repeats the last one.
type sequenceGenerator struct {
	codes []string
	next  int
}

func (g *sequenceGenerator) Generate() (string, error) {
	code := g.codes[g.next]
	if g.next < len(g.codes)-1 {
		g.next++
	}
	return code, nil
}

// pairedGenerator hands every candidate out twice, to whichever callers ask
// next. Safe for concurrent use.
type pairedGenerator struct {
	mu    sync.Mutex
	calls int
}

func (g *pairedGenerator) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	code := fmt.Sprintf("pair%02d", g.calls/2)
	g.calls++
	return code, nil
}

type recordingMetrics struct {
	mu         sync.Mutex
	created    []bool
	conflicts  int
	collisions int
	deleted    int
	clicks     map[string]int
	totals     chan [2]int64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{clicks: map[string]int{}, totals: make(chan [2]int64, 16)}
}

func (m *recordingMetrics) LinkCreated(custom bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, custom)
}

func (m *recordingMetrics) CodeConflict() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflicts++
}

func (m *recordingMetrics) CodeCollision() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collisions++
}

func (m *recordingMetrics) LinkDeleted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted++
}

func (m *recordingMetrics) ClickRecorded(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clicks[outcome]++
}

func (m *recordingMetrics) Totals(links, clicks int64) {
	select {
	case m.totals <- [2]int64{links, clicks}:
	default:
	}
}

func (m *recordingMetrics) clickCount(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clicks[outcome]
}

type registry struct {
	links     repository.LinkRepository
	clicks    repository.ClickRepository
	creds     repository.CredentialRepository
	service   LinkService
	analytics *analyticsService
}

func newRegistry(t *testing.T, opts LinkServiceOptions) *registry {
	t.Helper()
	return newRegistryWithGenerator(t, opts, nil)
}

func newRegistryWithGenerator(t *testing.T, opts LinkServiceOptions, gen Generator) *registry {
	t.Helper()
	db := testutil.NewDB(t)
	links := repository.NewLinkRepository(db, 2*time.Second)
	clicks := repository.NewClickRepository(db, 2*time.Second)
	creds := repository.NewCredentialRepository(db, 2*time.Second)
	svc := NewLinkService(links, clicks, NewArbiter(links, gen, nil, opts.Metrics), opts)
	return &registry{
		links:     links,
		clicks:    clicks,
		creds:     creds,
		service:   svc,
		analytics: NewAnalyticsService(svc, links, clicks).(*analyticsService),
	}
}

func (r *registry) click(t *testing.T, link *model.Link, referer string, at time.Time) {
	t.Helper()
	event := model.NewClickEvent(link, "203.0.113.7", "test-agent", referer)
	event.Timestamp = at
	if err := NewStoreRecorder(r.clicks, nil, nil).Record(context.Background(), event); err != nil {
		t.Fatalf("record click: %v", err)
	}
}
