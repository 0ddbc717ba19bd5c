package dto

// CreateVideoRequest represents the request to create a new outreach video
type CreateVideoRequest struct {
	CustomerID       uint    `json:"-"`
	Title            string  `json:"title" validate:"required,max=255"`
	RecipientName    *string `json:"recipient_name,omitempty" validate:"omitempty,max=255"`
	RecipientCompany *string `json:"recipient_company,omitempty" validate:"omitempty,max=255"`
	RecipientEmail   *string `json:"recipient_email,omitempty" validate:"omitempty,email,max=255"`
	CTAType          *string `json:"cta_type,omitempty" validate:"omitempty,oneof=booking link"`
	CTAURL           *string `json:"cta_url,omitempty" validate:"omitempty,url,max=2048"`
	CTALabel         *string `json:"cta_label,omitempty" validate:"omitempty,max=255"`
	VideoPath        string  `json:"video_path" validate:"required,max=2048"`
	GifPath          *string `json:"gif_path,omitempty" validate:"omitempty,max=2048"`
	ThumbnailPath    *string `json:"thumbnail_path,omitempty" validate:"omitempty,max=2048"`
}

// CreateVideoResponse represents the response to create a new outreach video
type CreateVideoResponse struct {
	UUID       string `json:"uuid"`
	ShareToken string `json:"share_token"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
}

// UpdateVideoStatusRequest represents an owner-driven status transition.
// Only the "ready" and "sent" transitions are owner-driven; the rest follow
// from viewer events.
type UpdateVideoStatusRequest struct {
	UUID       string `json:"-"`
	CustomerID uint   `json:"-"`
	Status     string `json:"status" validate:"required,oneof=ready sent"`
}

// VideoStatsResponse represents the counter snapshot for one video
type VideoStatsResponse struct {
	UUID        string `json:"uuid"`
	Status      string `json:"status"`
	Views       int64  `json:"views"`
	Clicks      int64  `json:"clicks"`
	Watch25     int64  `json:"watch_25"`
	Watch50     int64  `json:"watch_50"`
	Watch75     int64  `json:"watch_75"`
	Watch100    int64  `json:"watch_100"`
	Bookings    int64  `json:"bookings"`
	TotalEvents int64  `json:"total_events"`
}

// TimelineEventResponse represents one event on the owner-facing timeline
type TimelineEventResponse struct {
	Kind      string `json:"kind"`
	Progress  *int   `json:"progress,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	CreatedAt string `json:"created_at"`
}

// ReconcileResponse represents the result of an on-demand counter repair
type ReconcileResponse struct {
	UUID   string           `json:"uuid"`
	Counts map[string]int64 `json:"counts"`
	ByKind map[string]int64 `json:"by_kind"`
}
