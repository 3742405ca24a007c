package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Link is one shortening mapping. Rows are never updated in place.
type Link struct {
	ID          string    `gorm:"primaryKey;size:36"`
	Destination string    `gorm:"column:destination;type:text;not null"`
	Code        string    `gorm:"size:32;not null;uniqueIndex:idx_links_code"`
	OwnerID     *string   `gorm:"size:36;index"`
	CreatedAt   time.Time `gorm:"not null;index"`

	Owner *Credential `gorm:"foreignKey:OwnerID;constraint:OnDelete:RESTRICT"`
}

// BeforeCreate assigns the opaque id and creation time when unset.
func (l *Link) BeforeCreate(*gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	return nil
}

// OwnedBy reports whether the link belongs to the credential with the given id.
func (l *Link) OwnedBy(credentialID string) bool {
	return l.OwnerID != nil && *l.OwnerID == credentialID
}
