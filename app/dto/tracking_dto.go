package dto

// TrackEventRequest represents one event report from the viewer-side player.
// Progress is not range-validated here: out-of-range values are clamped by
// normalization, not rejected.
type TrackEventRequest struct {
	VideoRef  string `json:"video_ref" validate:"required,max=64"`
	EventType string `json:"event_type" validate:"required,max=64"`
	SessionID string `json:"session_id,omitempty" validate:"omitempty,max=128"`
	Progress  *int   `json:"progress,omitempty"`
}

// TrackEventResponse is the public acknowledgement shape
type TrackEventResponse struct {
	OK        bool `json:"ok"`
	Duplicate bool `json:"duplicate,omitempty"`
}

// PublicError is the public-surface error shape
type PublicError struct {
	Error string `json:"error"`
}

// ForwardVideoRequest represents a viewer-submitted forward request
type ForwardVideoRequest struct {
	VideoRef       string `json:"video_ref" validate:"required,max=64"`
	RecipientName  string `json:"recipient_name,omitempty" validate:"omitempty,max=255"`
	RecipientEmail string `json:"recipient_email,omitempty" validate:"omitempty,email,max=255"`
	Note           string `json:"note,omitempty" validate:"omitempty,max=2000"`
	SessionID      string `json:"session_id,omitempty" validate:"omitempty,max=128"`
}

// SharedVideoResponse is the public landing-page payload for a share token
type SharedVideoResponse struct {
	ShareToken    string  `json:"share_token"`
	Title         string  `json:"title"`
	RecipientName *string `json:"recipient_name,omitempty"`
	CTAType       *string `json:"cta_type,omitempty"`
	CTAURL        *string `json:"cta_url,omitempty"`
	CTALabel      *string `json:"cta_label,omitempty"`
	VideoPath     string  `json:"video_path"`
	GifPath       *string `json:"gif_path,omitempty"`
	ThumbnailPath *string `json:"thumbnail_path,omitempty"`
}
