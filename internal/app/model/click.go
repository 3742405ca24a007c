package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Click is one recorded visit. Clicks are append-only and die with their Link.
type Click struct {
	ID            string    `gorm:"primaryKey;size:36"`
	LinkID        string    `gorm:"size:36;not null;index:idx_clicks_link_time,priority:1"`
	ClickedAt     time.Time `gorm:"not null;index;index:idx_clicks_link_time,priority:2"`
	SourceAddress string    `gorm:"size:64"`
	UserAgent     string    `gorm:"type:text"`
	Referer       string    `gorm:"type:text"`

	Link *Link `gorm:"foreignKey:LinkID;constraint:OnDelete:RESTRICT"`
}

func (c *Click) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.ClickedAt.IsZero() {
		c.ClickedAt = time.Now().UTC()
	}
	return nil
}

// ClickEvent is the queued form of a click, published by the redirect path and
// persisted by a consumer. ID doubles as the Click primary key so a redelivered
// event is stored once.
type ClickEvent struct {
	ID            string    `json:"id"`
	LinkID        string    `json:"link_id"`
	Code          string    `json:"code"`
	SourceAddress string    `json:"ip"`
	UserAgent     string    `json:"user_agent"`
	Referer       string    `json:"referer"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewClickEvent stamps a fresh event for the given link.
func NewClickEvent(link *Link, ip, userAgent, referer string) ClickEvent {
	return ClickEvent{
		ID:            uuid.NewString(),
		LinkID:        link.ID,
		Code:          link.Code,
		SourceAddress: ip,
		UserAgent:     userAgent,
		Referer:       referer,
		Timestamp:     time.Now().UTC(),
	}
}

// Click converts the event into its persisted row.
func (e ClickEvent) Click() *Click {
	return &Click{
		ID:            e.ID,
		LinkID:        e.LinkID,
		ClickedAt:     e.Timestamp.UTC(),
		SourceAddress: e.SourceAddress,
		UserAgent:     e.UserAgent,
		Referer:       e.Referer,
	}
}

const (
	ClickStreamName     = "CLICKS"
	ClickStreamSubject  = "clicks.events"
	ClickConsumerName   = "click-recorder"
	ClickStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)
