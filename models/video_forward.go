package models

import (
	"time"

	"github.com/clipgreet/clipgreet/utils"
	"gorm.io/gorm"
)

// VideoForward represents a viewer forwarding a shared video to a third party.
// Rows are immutable once created; the submission also appends a
// forward_submitted event to the timeline.
type VideoForward struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	VideoID        uint      `gorm:"not null;index:idx_video_forwards_video_id" json:"video_id"`
	RecipientName  string    `gorm:"type:text;not null" json:"recipient_name"`
	RecipientEmail string    `gorm:"type:text;not null" json:"recipient_email"`
	Note           *string   `gorm:"type:text" json:"note,omitempty"`
	SessionID      *string   `gorm:"size:64" json:"session_id,omitempty"`
	CreatedAt      time.Time `gorm:"index:idx_video_forwards_created_at" json:"created_at"`
}

// TableName returns the table name for VideoForward
func (VideoForward) TableName() string { return "video_forwards" }

// BeforeCreate is called before creating a new record
func (f *VideoForward) BeforeCreate(tx *gorm.DB) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = utils.UTCNow()
	}
	return nil
}

// VideoForwardFilter provides filter fields for repository queries
type VideoForwardFilter struct {
	VideoID       *uint
	SessionID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
