package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sifan077/shrtnr/internal/app/apperror"
	"github.com/sifan077/shrtnr/internal/app/model"
	"github.com/sifan077/shrtnr/internal/app/repository"
	"go.uber.org/zap"
)

// maxClaimAttempts bounds the generate-and-insert loop. At 62^6 codes a single
// collision is already unlikely; running out means the store misbehaves.
const maxClaimAttempts = 16

// Arbiter assigns a code to a link by inserting it. The store's unique index
// decides every race: there is no separate existence check.
type Arbiter struct {
	links   repository.LinkRepository
	gen     Generator
	logger  *zap.Logger
	metrics Metrics
}

// NewArbiter returns an arbiter committing links through repo.
func NewArbiter(repo repository.LinkRepository, gen Generator, logger *zap.Logger, metrics Metrics) *Arbiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if gen == nil {
		gen = NewRandomGenerator()
	}
	return &Arbiter{links: repo, gen: gen, logger: logger, metrics: metrics}
}

// Claim commits link under custom when given, otherwise under a generated code.
// A taken custom code is a Conflict; it never falls back to generation.
func (a *Arbiter) Claim(ctx context.Context, link *model.Link, custom string) error {
	if custom != "" {
		return a.claimCustom(ctx, link, custom)
	}

	for attempt := 1; attempt <= maxClaimAttempts; attempt++ {
		code, err := a.gen.Generate()
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		if isReserved(code) {
			continue
		}

		link.Code = code
		err = a.links.Create(ctx, link)
		if err == nil {
			a.metrics.LinkCreated(false)
			return nil
		}
		if !errors.Is(err, repository.ErrCodeTaken) {
			return apperror.Unavailable(err)
		}

		a.metrics.CodeCollision()
		a.logger.Debug("generated code collided, retrying",
			zap.String("code", code),
			zap.Int("attempt", attempt),
		)
	}

	link.Code = ""
	return apperror.Unavailable(fmt.Errorf("no free code after %d attempts", maxClaimAttempts))
}

func (a *Arbiter) claimCustom(ctx context.Context, link *model.Link, custom string) error {
	if err := ValidateCustomCode(custom); err != nil {
		return err
	}

	link.Code = custom
	err := a.links.Create(ctx, link)
	switch {
	case err == nil:
		a.metrics.LinkCreated(true)
		return nil
	case errors.Is(err, repository.ErrCodeTaken):
		a.metrics.CodeConflict()
		return apperror.Conflict("code already taken")
	default:
		return apperror.Unavailable(err)
	}
}
