package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/clipgreet/clipgreet/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VideoStatus represents the funnel status of an outreach video
type VideoStatus string

const (
	VideoStatusDraft      VideoStatus = "draft"
	VideoStatusProcessing VideoStatus = "processing"
	VideoStatusReady      VideoStatus = "ready"
	VideoStatusSent       VideoStatus = "sent"
	VideoStatusViewed     VideoStatus = "viewed"
	VideoStatusClicked    VideoStatus = "clicked"
	VideoStatusBooked     VideoStatus = "booked"
)

// String returns the string representation of the status
func (s VideoStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s VideoStatus) Valid() bool {
	switch s {
	case VideoStatusDraft, VideoStatusProcessing, VideoStatusReady,
		VideoStatusSent, VideoStatusViewed, VideoStatusClicked,
		VideoStatusBooked:
		return true
	default:
		return false
	}
}

// Rank returns the position of the status in the funnel total order.
// Status only ever moves toward higher ranks.
func (s VideoStatus) Rank() int {
	switch s {
	case VideoStatusDraft:
		return 0
	case VideoStatusProcessing:
		return 1
	case VideoStatusReady:
		return 2
	case VideoStatusSent:
		return 3
	case VideoStatusViewed:
		return 4
	case VideoStatusClicked:
		return 5
	case VideoStatusBooked:
		return 6
	default:
		return -1
	}
}

// Scan implements the sql.Scanner interface for VideoStatus
func (s *VideoStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = VideoStatus(v)
	case []byte:
		*s = VideoStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into VideoStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for VideoStatus
func (s VideoStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid VideoStatus: %s", s)
	}
	return string(s), nil
}

// ImpliedStatus returns the funnel status a viewer event implies, or "" when
// the event carries no funnel meaning (timeline-only kinds).
func ImpliedStatus(kind EventKind, progress *int) VideoStatus {
	switch kind {
	case EventKindPageView:
		return VideoStatusViewed
	case EventKindWatchProgress:
		if progress != nil && *progress >= 100 {
			return VideoStatusViewed
		}
		return ""
	case EventKindCTAClick, EventKindForwardClick:
		return VideoStatusClicked
	case EventKindBooking:
		return VideoStatusBooked
	default:
		return ""
	}
}

// NextStatus computes the status after an accepted event. Status is the
// furthest funnel stage reached, so it never moves backward: the result is
// max(current, implied) under the funnel total order.
func NextStatus(current VideoStatus, kind EventKind, progress *int) VideoStatus {
	implied := ImpliedStatus(kind, progress)
	if implied == "" || implied.Rank() <= current.Rank() {
		return current
	}
	return implied
}

// Video represents one outreach video sent to one recipient.
// Counters are denormalized projections of the viewer_events log and are
// repaired from it by the reconciler; they are never the source of truth.
type Video struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UUID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_videos_uuid" json:"uuid"`
	ShareToken string    `gorm:"size:64;not null;uniqueIndex:uk_videos_share_token" json:"share_token"`
	CustomerID uint      `gorm:"not null;index:idx_videos_customer_id" json:"customer_id"`

	Title            string  `gorm:"type:text;not null" json:"title"`
	RecipientName    *string `gorm:"type:text" json:"recipient_name,omitempty"`
	RecipientCompany *string `gorm:"type:text" json:"recipient_company,omitempty"`
	RecipientEmail   *string `gorm:"type:text" json:"recipient_email,omitempty"`

	CTAType  *string `gorm:"size:32" json:"cta_type,omitempty"`
	CTAURL   *string `gorm:"type:text" json:"cta_url,omitempty"`
	CTALabel *string `gorm:"type:text" json:"cta_label,omitempty"`

	VideoPath     string  `gorm:"type:text;not null" json:"video_path"`
	GifPath       *string `gorm:"type:text" json:"gif_path,omitempty"`
	ThumbnailPath *string `gorm:"type:text" json:"thumbnail_path,omitempty"`

	Status VideoStatus `gorm:"size:32;not null;default:'draft';index:idx_videos_status" json:"status"`

	StatsViews    int64 `gorm:"not null;default:0" json:"stats_views"`
	StatsClicks   int64 `gorm:"not null;default:0" json:"stats_clicks"`
	StatsWatch25  int64 `gorm:"column:stats_watch_25;not null;default:0" json:"stats_watch_25"`
	StatsWatch50  int64 `gorm:"column:stats_watch_50;not null;default:0" json:"stats_watch_50"`
	StatsWatch75  int64 `gorm:"column:stats_watch_75;not null;default:0" json:"stats_watch_75"`
	StatsWatch100 int64 `gorm:"column:stats_watch_100;not null;default:0" json:"stats_watch_100"`
	StatsBookings int64 `gorm:"not null;default:0" json:"stats_bookings"`

	CreatedAt time.Time  `gorm:"index:idx_videos_created_at" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	SentAt    *time.Time `json:"sent_at,omitempty"`

	// Relations
	Customer *Customer `gorm:"foreignKey:CustomerID;references:ID" json:"customer,omitempty"`
}

// TableName returns the table name for the model
func (Video) TableName() string {
	return "videos"
}

// BeforeCreate is called before creating a new record
func (v *Video) BeforeCreate(tx *gorm.DB) error {
	if v.UUID == uuid.Nil {
		v.UUID = uuid.New()
	}
	if v.ShareToken == "" {
		v.ShareToken = NewShareToken()
	}
	if v.Status == "" {
		v.Status = VideoStatusDraft
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (v *Video) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	v.UpdatedAt = &now
	return nil
}

// NewShareToken generates an unguessable public token usable in place of the
// video UUID on unauthenticated routes.
func NewShareToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// StatsCounter names one denormalized counter column on videos.
type StatsCounter string

const (
	CounterViews    StatsCounter = "stats_views"
	CounterClicks   StatsCounter = "stats_clicks"
	CounterWatch25  StatsCounter = "stats_watch_25"
	CounterWatch50  StatsCounter = "stats_watch_50"
	CounterWatch75  StatsCounter = "stats_watch_75"
	CounterWatch100 StatsCounter = "stats_watch_100"
	CounterBookings StatsCounter = "stats_bookings"
)

// CounterFor maps an accepted event to the counter it increments, or "" when
// the event is recorded for the timeline only.
func CounterFor(kind EventKind, progress *int) StatsCounter {
	switch kind {
	case EventKindPageView:
		return CounterViews
	case EventKindCTAClick, EventKindForwardClick:
		return CounterClicks
	case EventKindBooking:
		return CounterBookings
	case EventKindWatchProgress:
		if progress == nil {
			return ""
		}
		switch *progress {
		case 25:
			return CounterWatch25
		case 50:
			return CounterWatch50
		case 75:
			return CounterWatch75
		case 100:
			return CounterWatch100
		}
	}
	return ""
}

// VideoFilter represents filter criteria for videos
type VideoFilter struct {
	ID            *uint        `json:"id,omitempty"`
	UUID          *uuid.UUID   `json:"uuid,omitempty"`
	ShareToken    *string      `json:"share_token,omitempty"`
	CustomerID    *uint        `json:"customer_id,omitempty"`
	Status        *VideoStatus `json:"status,omitempty"`
	CreatedAfter  *time.Time   `json:"created_after,omitempty"`
	CreatedBefore *time.Time   `json:"created_before,omitempty"`
}
