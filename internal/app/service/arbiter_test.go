package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sifan077/shrtnr/internal/app/apperror"
	"github.com/sifan077/shrtnr/internal/app/model"
	"github.com/sifan077/shrtnr/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArbiter_RetriesOnCollision(t *testing.T) {
	taken := map[string]bool{"AAAAAA": true, "BBBBBB": true}
	repo := &mockLinkRepository{
		createFn: func(ctx context.Context, link *model.Link) error {
			if taken[link.Code] {
				return repository.ErrCodeTaken
			}
			return nil
		},
	}
	metrics := newRecordingMetrics()
	arbiter := NewArbiter(repo, &sequenceGenerator{codes: []string{"AAAAAA", "BBBBBB", "CCCCCC"}}, nil, metrics)

	link := &model.Link{Destination: "https://example.com"}
	require.NoError(t, arbiter.Claim(context.Background(), link, ""))
	assert.Equal(t, "CCCCCC", link.Code)
	assert.Equal(t, 3, repo.createCalls)
	assert.Equal(t, 2, metrics.collisions)
	assert.Equal(t, []bool{false}, metrics.created)
}

func TestArbiter_SkipsReservedCandidates(t *testing.T) {
	repo := &mockLinkRepository{}
	arbiter := NewArbiter(repo, &sequenceGenerator{codes: []string{"health", "Zx9q2A"}}, nil, nil)

	link := &model.Link{}
	require.NoError(t, arbiter.Claim(context.Background(), link, ""))
	assert.Equal(t, "Zx9q2A", link.Code)
	assert.Equal(t, 1, repo.createCalls)
}

func TestArbiter_GivesUpAfterBoundedAttempts(t *testing.T) {
	repo := &mockLinkRepository{
		createFn: func(ctx context.Context, link *model.Link) error {
			return repository.ErrCodeTaken
		},
	}
	arbiter := NewArbiter(repo, &sequenceGenerator{codes: []string{"SAME00"}}, nil, nil)

	link := &model.Link{}
	err := arbiter.Claim(context.Background(), link, "")
	assert.True(t, apperror.Is(err, apperror.KindUnavailable))
	assert.Equal(t, maxClaimAttempts, repo.createCalls)
	assert.Empty(t, link.Code)
}

func TestArbiter_CustomCodeNeverFallsBack(t *testing.T) {
	repo := &mockLinkRepository{
		createFn: func(ctx context.Context, link *model.Link) error {
			return repository.ErrCodeTaken
		},
	}
	metrics := newRecordingMetrics()
	arbiter := NewArbiter(repo, &sequenceGenerator{codes: []string{"FRESH1"}}, nil, metrics)

	link := &model.Link{}
	err := arbiter.Claim(context.Background(), link, "promo")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindConflict))
	assert.Equal(t, "code already taken", err.(*apperror.Error).Message)
	assert.Equal(t, 1, repo.createCalls)
	assert.Equal(t, 1, metrics.conflicts)
}

func TestArbiter_StoreFailureIsUnavailable(t *testing.T) {
	boom := errors.New("dial tcp: connection refused")
	repo := &mockLinkRepository{
		createFn: func(ctx context.Context, link *model.Link) error { return boom },
	}
	arbiter := NewArbiter(repo, nil, nil, nil)

	err := arbiter.Claim(context.Background(), &model.Link{}, "")
	assert.True(t, apperror.Is(err, apperror.KindUnavailable))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, repo.createCalls)

	err = arbiter.Claim(context.Background(), &model.Link{}, "custom")
	assert.True(t, apperror.Is(err, apperror.KindUnavailable))
}
