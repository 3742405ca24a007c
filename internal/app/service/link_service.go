package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/sifan077/shrtnr/internal/app/apperror"
	"github.com/sifan077/shrtnr/internal/app/model"
	"github.com/sifan077/shrtnr/internal/app/repository"
	"go.uber.org/zap"
)

// LinkService defines behaviour-level operations on links.
type LinkService interface {
	CreateLink(ctx context.Context, input CreateLinkInput) (*model.Link, error)
	ResolveLink(ctx context.Context, code string) (*model.Link, error)
	ListLinks(ctx context.Context, input ListLinksInput) ([]LinkSummary, error)
	DeleteLink(ctx context.Context, code string, requester *model.Credential) error
}

// LinkServiceOptions tunes policy decisions of the registry.
type LinkServiceOptions struct {
	// StrictDelete requires a credential for every delete, owned or not.
	StrictDelete bool
	Logger       *zap.Logger
	Metrics      Metrics
}

type linkService struct {
	links        repository.LinkRepository
	clicks       repository.ClickRepository
	arbiter      *Arbiter
	strictDelete bool
	logger       *zap.Logger
	metrics      Metrics
}

// NewLinkService returns a service implementation backed by the given repositories.
func NewLinkService(links repository.LinkRepository, clicks repository.ClickRepository, arbiter *Arbiter, opts LinkServiceOptions) LinkService {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NopMetrics()
	}
	return &linkService{
		links:        links,
		clicks:       clicks,
		arbiter:      arbiter,
		strictDelete: opts.StrictDelete,
		logger:       logger,
		metrics:      metrics,
	}
}

// CreateLinkInput captures data required to create a link.
type CreateLinkInput struct {
	URL        string
	CustomCode string
	Owner      *model.Credential
}

// ListLinksInput filters and pages a listing. A nil Owner lists every link.
type ListLinksInput struct {
	Owner  *model.Credential
	Limit  int
	Offset int
}

// LinkSummary is a link with its live click count.
type LinkSummary struct {
	model.Link
	ClickCount int64
}

// NormalizeDestination trims the URL and prepends https:// when no scheme is given.
func NormalizeDestination(raw string) (string, error) {
	dest := strings.TrimSpace(raw)
	if dest == "" {
		return "", apperror.Validation("url is required")
	}

	lower := strings.ToLower(dest)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		dest = "https://" + dest
	}

	parsed, err := url.Parse(dest)
	if err != nil || parsed.Host == "" {
		return "", apperror.Validation("url is not a valid absolute URL")
	}
	return dest, nil
}

func (s *linkService) CreateLink(ctx context.Context, input CreateLinkInput) (*model.Link, error) {
	dest, err := NormalizeDestination(input.URL)
	if err != nil {
		return nil, err
	}

	link := &model.Link{Destination: dest}
	if input.Owner != nil {
		ownerID := input.Owner.ID
		link.OwnerID = &ownerID
	}

	if err := s.arbiter.Claim(ctx, link, input.CustomCode); err != nil {
		return nil, fmt.Errorf("create link: %w", err)
	}

	s.logger.Info("link created",
		zap.String("code", link.Code),
		zap.Bool("custom", input.CustomCode != ""),
		zap.Bool("owned", link.OwnerID != nil),
	)
	return link, nil
}

func (s *linkService) ResolveLink(ctx context.Context, code string) (*model.Link, error) {
	link, err := s.links.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, apperror.NotFound("link not found")
		}
		return nil, fmt.Errorf("resolve link: %w", apperror.Unavailable(err))
	}
	return link, nil
}

func (s *linkService) ListLinks(ctx context.Context, input ListLinksInput) ([]LinkSummary, error) {
	if input.Limit < 0 || input.Offset < 0 {
		return nil, apperror.Validation("limit and offset must be non-negative")
	}

	filter := repository.ListFilter{Limit: input.Limit, Offset: input.Offset}
	if input.Owner != nil {
		ownerID := input.Owner.ID
		filter.OwnerID = &ownerID
	}

	links, err := s.links.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", apperror.Unavailable(err))
	}

	ids := make([]string, len(links))
	for i := range links {
		ids[i] = links[i].ID
	}
	counts, err := s.clicks.CountByLinks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("count clicks: %w", apperror.Unavailable(err))
	}

	result := make([]LinkSummary, len(links))
	for i, link := range links {
		result[i] = LinkSummary{Link: link, ClickCount: counts[link.ID]}
	}
	return result, nil
}

func (s *linkService) DeleteLink(ctx context.Context, code string, requester *model.Credential) error {
	link, err := s.ResolveLink(ctx, code)
	if err != nil {
		return err
	}

	if err := s.authorizeDelete(link, requester); err != nil {
		return err
	}

	if err := s.links.DeleteWithClicks(ctx, link.ID); err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return apperror.NotFound("link not found")
		}
		return fmt.Errorf("delete link: %w", apperror.Unavailable(err))
	}

	s.metrics.LinkDeleted()
	s.logger.Info("link deleted", zap.String("code", code))
	return nil
}

func (s *linkService) authorizeDelete(link *model.Link, requester *model.Credential) error {
	if link.OwnerID != nil {
		if requester == nil || !link.OwnedBy(requester.ID) {
			return apperror.Forbidden("not authorized to delete this link")
		}
		return nil
	}
	if s.strictDelete && requester == nil {
		return apperror.Forbidden("a credential is required to delete links")
	}
	return nil
}
