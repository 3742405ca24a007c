package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sifan077/shrtnr/internal/app/model"
	"gorm.io/gorm"
)

// CredentialRepository defines the data access contract for API credentials.
type CredentialRepository interface {
	Create(ctx context.Context, cred *model.Credential) error
	// GetActiveByToken returns ErrCredentialNotFound for unknown and revoked tokens alike.
	GetActiveByToken(ctx context.Context, token string) (*model.Credential, error)
	ListActive(ctx context.Context) ([]model.Credential, error)
	// Deactivate clears the active flag. Owned links are left untouched.
	Deactivate(ctx context.Context, id string) error
}

type credentialRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewCredentialRepository returns a GORM-backed CredentialRepository.
func NewCredentialRepository(db *gorm.DB, timeout time.Duration) CredentialRepository {
	return &credentialRepository{db: db, timeout: timeout}
}

func (r *credentialRepository) Create(ctx context.Context, cred *model.Credential) error {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	return r.db.WithContext(ctx).Create(cred).Error
}

func (r *credentialRepository) GetActiveByToken(ctx context.Context, token string) (*model.Credential, error) {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	var cred model.Credential
	if err := r.db.WithContext(ctx).
		Where("token = ? AND active = ?", token, true).
		First(&cred).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCredentialNotFound
		}
		return nil, err
	}
	return &cred, nil
}

func (r *credentialRepository) ListActive(ctx context.Context) ([]model.Credential, error) {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	var result []model.Credential
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("created_at DESC").
		Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func (r *credentialRepository) Deactivate(ctx context.Context, id string) error {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	result := r.db.WithContext(ctx).
		Model(&model.Credential{}).
		Where("id = ?", id).
		Update("active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCredentialNotFound
	}
	return nil
}
