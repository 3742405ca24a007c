package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sifan077/shrtnr/internal/app/apperror"
	"github.com/sifan077/shrtnr/internal/app/model"
	"github.com/sifan077/shrtnr/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDestination(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "example.com", want: "https://example.com"},
		{in: "  example.com/path?q=1  ", want: "https://example.com/path?q=1"},
		{in: "http://example.com", want: "http://example.com"},
		{in: "HTTPS://Example.com", want: "HTTPS://Example.com"},
		{in: "", wantErr: true},
		{in: "   ", wantErr: true},
		{in: "https://", wantErr: true},
	}

	for _, tc := range cases {
		got, err := NormalizeDestination(tc.in)
		if tc.wantErr {
			assert.True(t, apperror.Is(err, apperror.KindValidation), "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got)
	}
}

func TestLinkService_CreateLinkPrependsSchemeAndGeneratesCode(t *testing.T) {
	reg := newRegistry(t, LinkServiceOptions{})

	link, err := reg.service.CreateLink(context.Background(), CreateLinkInput{URL: "example.com"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", link.Destination)
	assert.Len(t, link.Code, GeneratedCodeLength)
	for i := 0; i < len(link.Code); i++ {
		assert.True(t, strings.IndexByte(Alphabet, link.Code[i]) >= 0, "unexpected char in %q", link.Code)
	}
	assert.Nil(t, link.OwnerID)

	stored, err := reg.service.ResolveLink(context.Background(), link.Code)
	require.NoError(t, err)
	assert.Equal(t, link.ID, stored.ID)
	assert.Equal(t, "https://example.com", stored.Destination)
}

func TestLinkService_CreateLinkRejectsShortCustomCode(t *testing.T) {
	repo := &mockLinkRepository{}
	svc := NewLinkService(repo, nil, NewArbiter(repo, nil, nil, nil), LinkServiceOptions{})

	_, err := svc.CreateLink(context.Background(), CreateLinkInput{URL: "https://a.com", CustomCode: "ab"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	assert.Zero(t, repo.createCalls)
}

func TestLinkService_CreateLinkRejectsEmptyDestination(t *testing.T) {
	repo := &mockLinkRepository{}
	svc := NewLinkService(repo, nil, NewArbiter(repo, nil, nil, nil), LinkServiceOptions{})

	_, err := svc.CreateLink(context.Background(), CreateLinkInput{URL: " "})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	assert.Zero(t, repo.createCalls)
}

func TestLinkService_CustomCodeClaimedTwiceConflicts(t *testing.T) {
	reg := newRegistry(t, LinkServiceOptions{})
	ctx := context.Background()

	first, err := reg.service.CreateLink(ctx, CreateLinkInput{URL: "https://one.example", CustomCode: "promo"})
	require.NoError(t, err)

	_, err = reg.service.CreateLink(ctx, CreateLinkInput{URL: "https://two.example", CustomCode: "promo"})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	got, err := reg.service.ResolveLink(ctx, "promo")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, "https://one.example", got.Destination)
}

func TestLinkService_ConcurrentCreatesYieldDistinctCodes(t *testing.T) {
	metrics := newRecordingMetrics()
	reg := newRegistryWithGenerator(t, LinkServiceOptions{Metrics: metrics}, &pairedGenerator{})
	const n = 8

	var wg sync.WaitGroup
	codes := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			link, err := reg.service.CreateLink(context.Background(), CreateLinkInput{URL: "https://example.com"})
			errs[i] = err
			if err == nil {
				codes[i] = link.Code
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[codes[i]], "duplicate code %q", codes[i])
		seen[codes[i]] = true
	}

	count, err := reg.links.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(n), count)

	// each candidate is claimed once and collides once, except possibly the last
	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	assert.GreaterOrEqual(t, metrics.collisions, n-1)
	assert.Len(t, metrics.created, n)
}

func TestLinkService_ConcurrentCustomClaimHasOneWinner(t *testing.T) {
	reg := newRegistry(t, LinkServiceOptions{})
	const n = 16

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = reg.service.CreateLink(context.Background(), CreateLinkInput{URL: "https://example.com", CustomCode: "launch"})
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case apperror.Is(err, apperror.KindConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, conflicts)
}

func TestLinkService_ResolveLink(t *testing.T) {
	repo := &mockLinkRepository{
		getFn: func(ctx context.Context, code string) (*model.Link, error) {
			switch code {
			case "found":
				return &model.Link{ID: "1", Code: code}, nil
			case "broken":
				return nil, context.DeadlineExceeded
			}
			return nil, repository.ErrLinkNotFound
		},
	}
	svc := NewLinkService(repo, nil, nil, LinkServiceOptions{})

	link, err := svc.ResolveLink(context.Background(), "found")
	require.NoError(t, err)
	assert.Equal(t, "1", link.ID)

	_, err = svc.ResolveLink(context.Background(), "missing")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = svc.ResolveLink(context.Background(), "broken")
	assert.True(t, apperror.Is(err, apperror.KindUnavailable))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLinkService_ListLinks(t *testing.T) {
	reg := newRegistry(t, LinkServiceOptions{})
	ctx := context.Background()
	owner := &model.Credential{Token: "t", Label: "owner", Active: true}
	require.NoError(t, reg.creds.Create(ctx, owner))

	older, err := reg.service.CreateLink(ctx, CreateLinkInput{URL: "https://a.example", CustomCode: "older", Owner: owner})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = reg.service.CreateLink(ctx, CreateLinkInput{URL: "https://b.example", CustomCode: "newer"})
	require.NoError(t, err)
	reg.click(t, older, "", time.Now().UTC())
	reg.click(t, older, "", time.Now().UTC())

	all, err := reg.service.ListLinks(ctx, ListLinksInput{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "newer", all[0].Code)
	assert.Equal(t, int64(0), all[0].ClickCount)
	assert.Equal(t, "older", all[1].Code)
	assert.Equal(t, int64(2), all[1].ClickCount)

	mine, err := reg.service.ListLinks(ctx, ListLinksInput{Owner: owner})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "older", mine[0].Code)

	_, err = reg.service.ListLinks(ctx, ListLinksInput{Limit: -1})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestLinkService_DeleteCascadesClicks(t *testing.T) {
	metrics := newRecordingMetrics()
	reg := newRegistry(t, LinkServiceOptions{Metrics: metrics})
	ctx := context.Background()

	link, err := reg.service.CreateLink(ctx, CreateLinkInput{URL: "https://gone.example", CustomCode: "gone"})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		reg.click(t, link, "https://ref.example", time.Now().UTC())
	}

	require.NoError(t, reg.service.DeleteLink(ctx, "gone", nil))
	assert.Equal(t, 1, metrics.deleted)

	n, err := reg.clicks.CountByLink(ctx, link.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = reg.analytics.LinkStats(ctx, "gone")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	err = reg.service.DeleteLink(ctx, "gone", nil)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestLinkService_DeleteAuthorization(t *testing.T) {
	ownerID := "owner-1"
	owned := &model.Link{ID: "l1", Code: "owned", OwnerID: &ownerID}
	public := &model.Link{ID: "l2", Code: "public"}
	owner := &model.Credential{ID: ownerID}
	stranger := &model.Credential{ID: "owner-2"}

	newSvc := func(strict bool) (LinkService, *[]string) {
		var deleted []string
		repo := &mockLinkRepository{
			getFn: func(ctx context.Context, code string) (*model.Link, error) {
				switch code {
				case "owned":
					return owned, nil
				case "public":
					return public, nil
				}
				return nil, repository.ErrLinkNotFound
			},
			deleteFn: func(ctx context.Context, id string) error {
				deleted = append(deleted, id)
				return nil
			},
		}
		return NewLinkService(repo, nil, nil, LinkServiceOptions{StrictDelete: strict}), &deleted
	}

	cases := []struct {
		name      string
		strict    bool
		code      string
		requester *model.Credential
		wantKind  apperror.Kind
	}{
		{name: "owner deletes own link", code: "owned", requester: owner},
		{name: "stranger is forbidden", code: "owned", requester: stranger, wantKind: apperror.KindForbidden},
		{name: "anonymous is forbidden on owned", code: "owned", wantKind: apperror.KindForbidden},
		{name: "anonymous deletes unowned", code: "public"},
		{name: "strict requires credential", strict: true, code: "public", wantKind: apperror.KindForbidden},
		{name: "strict accepts any credential on unowned", strict: true, code: "public", requester: stranger},
		{name: "unknown code", code: "nope", requester: owner, wantKind: apperror.KindNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, deleted := newSvc(tc.strict)
			err := svc.DeleteLink(context.Background(), tc.code, tc.requester)
			if tc.wantKind == apperror.KindInternal {
				require.NoError(t, err)
				assert.Len(t, *deleted, 1)
				return
			}
			assert.Equal(t, tc.wantKind, apperror.KindOf(err))
			assert.Empty(t, *deleted)
		})
	}
}

func TestLinkService_DeleteStoreFailureIsRetryable(t *testing.T) {
	repo := &mockLinkRepository{
		getFn: func(ctx context.Context, code string) (*model.Link, error) {
			return &model.Link{ID: "1", Code: code}, nil
		},
		deleteFn: func(ctx context.Context, id string) error {
			return errors.New("connection reset")
		},
	}
	svc := NewLinkService(repo, nil, nil, LinkServiceOptions{})

	err := svc.DeleteLink(context.Background(), "abc", nil)
	require.Error(t, err)
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.True(t, appErr.Retryable())
	assert.NotContains(t, appErr.Message, "connection reset")
}
