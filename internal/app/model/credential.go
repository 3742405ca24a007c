package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Credential is an API key. Revocation only clears Active; links keep their owner.
type Credential struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Token     string    `gorm:"size:64;not null;uniqueIndex"`
	Label     string    `gorm:"size:128;not null"`
	CreatedAt time.Time `gorm:"not null"`
	Active    bool      `gorm:"not null;default:true;index"`
}

func (c *Credential) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return nil
}

// All returns every model in migration order.
func All() []interface{} {
	return []interface{}{&Credential{}, &Link{}, &Click{}}
}
