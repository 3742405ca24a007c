package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/sifan077/shrtnr/internal/app/apperror"
	"github.com/sifan077/shrtnr/internal/app/model"
	"github.com/sifan077/shrtnr/internal/app/repository"
)

// tokenBytes of entropy back every credential token.
const tokenBytes = 32

// CredentialService manages API keys.
type CredentialService interface {
	CreateCredential(ctx context.Context, label string) (*model.Credential, error)
	ListCredentials(ctx context.Context) ([]model.Credential, error)
	RevokeCredential(ctx context.Context, id string) error
	// Authenticate maps a bearer token to an active credential. Empty, unknown
	// and revoked tokens all yield (nil, nil): the caller is anonymous.
	Authenticate(ctx context.Context, token string) (*model.Credential, error)
}

type credentialService struct {
	repo repository.CredentialRepository
}

// NewCredentialService returns a CredentialService backed by repo.
func NewCredentialService(repo repository.CredentialRepository) CredentialService {
	return &credentialService{repo: repo}
}

func (s *credentialService) CreateCredential(ctx context.Context, label string) (*model.Credential, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, apperror.Validation("name is required")
	}

	token, err := NewToken()
	if err != nil {
		return nil, fmt.Errorf("create credential: %w", err)
	}

	cred := &model.Credential{Token: token, Label: label, Active: true}
	if err := s.repo.Create(ctx, cred); err != nil {
		return nil, fmt.Errorf("create credential: %w", apperror.Unavailable(err))
	}
	return cred, nil
}

func (s *credentialService) ListCredentials(ctx context.Context) ([]model.Credential, error) {
	creds, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", apperror.Unavailable(err))
	}
	return creds, nil
}

func (s *credentialService) RevokeCredential(ctx context.Context, id string) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			return apperror.NotFound("API key not found")
		}
		return fmt.Errorf("revoke credential: %w", apperror.Unavailable(err))
	}
	return nil
}

func (s *credentialService) Authenticate(ctx context.Context, token string) (*model.Credential, error) {
	if token == "" {
		return nil, nil
	}
	cred, err := s.repo.GetActiveByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("authenticate: %w", apperror.Unavailable(err))
	}
	return cred, nil
}

// NewToken returns a URL-safe bearer token.
func NewToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// MaskToken keeps only enough of a token to recognise it.
func MaskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}
