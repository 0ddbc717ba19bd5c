package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/clipgreet/clipgreet/utils"
	"gorm.io/gorm"
)

// EventKind is the canonical vocabulary of viewer and CRM timeline events.
// Client-reported kind strings are collapsed into this closed set exactly once,
// at the ingestion boundary; everything downstream consumes only EventKind.
type EventKind string

const (
	EventKindPageView        EventKind = "page_view"
	EventKindPlay            EventKind = "play"
	EventKindWatchProgress   EventKind = "watch_progress"
	EventKindCTAClick        EventKind = "cta_click"
	EventKindBooking         EventKind = "booking"
	EventKindGifClick        EventKind = "gif_click"
	EventKindForwardClick    EventKind = "forward_click"
	EventKindForwardSubmit   EventKind = "forward_submitted"
	EventKindEmailDelivered  EventKind = "email_delivered"
	EventKindEmailComposeOpn EventKind = "email_compose_opened"
	EventKindEmailSnipCopied EventKind = "email_snippet_copied"
	EventKindEmailMarkedSent EventKind = "email_marked_sent"
)

// String returns the string representation of the kind
func (k EventKind) String() string {
	return string(k)
}

// Valid checks if the kind is part of the canonical vocabulary
func (k EventKind) Valid() bool {
	switch k {
	case EventKindPageView, EventKindPlay, EventKindWatchProgress,
		EventKindCTAClick, EventKindBooking, EventKindGifClick,
		EventKindForwardClick, EventKindForwardSubmit,
		EventKindEmailDelivered, EventKindEmailComposeOpn,
		EventKindEmailSnipCopied, EventKindEmailMarkedSent:
		return true
	default:
		return false
	}
}

// Deduplicated reports whether at most one event of this kind may exist per
// (video, session) pair. Watch progress is additionally bucketed by progress.
func (k EventKind) Deduplicated() bool {
	return k == EventKindPageView || k == EventKindWatchProgress
}

// PubliclyReportable reports whether anonymous viewers may submit this kind
// through the tracking endpoint. The email_* kinds are written by the CRM
// itself (delivery markers, compose telemetry) and must never be accepted
// from the outside.
func (k EventKind) PubliclyReportable() bool {
	switch k {
	case EventKindEmailDelivered, EventKindEmailComposeOpn,
		EventKindEmailSnipCopied, EventKindEmailMarkedSent:
		return false
	default:
		return k.Valid()
	}
}

// Scan implements the sql.Scanner interface for EventKind
func (k *EventKind) Scan(value any) error {
	if value == nil {
		*k = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*k = EventKind(v)
	case []byte:
		*k = EventKind(string(v))
	default:
		return fmt.Errorf("cannot scan %T into EventKind", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for EventKind
func (k EventKind) Value() (driver.Value, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid EventKind: %s", k)
	}
	return string(k), nil
}

// CanonicalEvent is the normalized form of a client-reported event.
// Progress is set only for watch_progress.
type CanonicalEvent struct {
	Kind     EventKind
	Progress *int
}

// eventKindAliases maps legacy/client synonyms onto the canonical vocabulary.
var eventKindAliases = map[string]EventKind{
	"landing_view": EventKindPageView,
	"video_play":   EventKindPlay,
}

// discreteProgressKinds fix the watch percentage by kind; any client-supplied
// progress value is ignored for these.
var discreteProgressKinds = map[string]int{
	"progress_25":  25,
	"progress_50":  50,
	"progress_75":  75,
	"progress_100": 100,
}

// NormalizeEvent collapses a raw client-reported kind (plus optional progress)
// into a canonical event. Returns false for kinds outside the publicly
// reportable vocabulary.
func NormalizeEvent(rawKind string, progress *int) (CanonicalEvent, bool) {
	if pct, ok := discreteProgressKinds[rawKind]; ok {
		return CanonicalEvent{Kind: EventKindWatchProgress, Progress: utils.ToPtr(pct)}, true
	}

	kind := EventKind(rawKind)
	if alias, ok := eventKindAliases[rawKind]; ok {
		kind = alias
	}
	if !kind.PubliclyReportable() {
		return CanonicalEvent{}, false
	}

	if kind == EventKindWatchProgress {
		pct := 0
		if progress != nil {
			pct = *progress
		}
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		return CanonicalEvent{Kind: kind, Progress: utils.ToPtr(pct)}, true
	}

	return CanonicalEvent{Kind: kind}, true
}

// EventMetadata is the free-form provenance bag stored with each event.
// IP addresses are hashed before they reach this struct; raw addresses are
// never persisted.
type EventMetadata map[string]string

// Value implements the driver.Valuer interface for EventMetadata
func (m EventMetadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for EventMetadata
func (m *EventMetadata) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into EventMetadata", value)
	}

	return json.Unmarshal(bytes, m)
}

// ViewerEvent represents one occurrence of a viewer interacting with a shared
// video landing page, or a CRM-side timeline entry. Rows are append-only and
// immutable once created.
//
// The unique index on (video_id, session_id, dedup_key) is the authoritative
// dedup boundary; the advisory guard in the flow layer only avoids the
// constraint round trip in the common case. DedupKey is NULL for kinds that
// are never deduplicated and for anonymous (session-less) traffic, and NULL
// values never collide, so those rows always append.
type ViewerEvent struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	VideoID   uint          `gorm:"not null;index:idx_viewer_events_video_id;uniqueIndex:uk_viewer_events_dedup" json:"video_id"`
	SessionID *string       `gorm:"size:64;index:idx_viewer_events_session_id;uniqueIndex:uk_viewer_events_dedup" json:"session_id,omitempty"`
	Kind      EventKind     `gorm:"size:32;not null;index:idx_viewer_events_kind" json:"kind"`
	Progress  *int          `json:"progress,omitempty"`
	DedupKey  *string       `gorm:"size:48;uniqueIndex:uk_viewer_events_dedup" json:"-"`
	Metadata  EventMetadata `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt time.Time     `gorm:"index:idx_viewer_events_created_at" json:"created_at"`
}

// TableName returns the table name for ViewerEvent
func (ViewerEvent) TableName() string { return "viewer_events" }

// BeforeCreate is called before creating a new record
func (e *ViewerEvent) BeforeCreate(tx *gorm.DB) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = utils.UTCNow()
	}
	if e.DedupKey == nil {
		e.DedupKey = DedupKeyFor(e.SessionID, e.Kind, e.Progress)
	}
	return nil
}

// DedupKeyFor computes the uniqueness key for an event, or nil when the event
// must never be deduplicated (anonymous traffic, timeline-only kinds).
func DedupKeyFor(sessionID *string, kind EventKind, progress *int) *string {
	if sessionID == nil || *sessionID == "" || !kind.Deduplicated() {
		return nil
	}
	key := string(kind)
	if kind == EventKindWatchProgress {
		pct := 0
		if progress != nil {
			pct = *progress
		}
		key = fmt.Sprintf("%s:%d", kind, pct)
	}
	return &key
}

// ViewerEventFilter provides filter fields for repository queries
type ViewerEventFilter struct {
	VideoID       *uint
	SessionID     *string
	Kind          *EventKind
	Progress      *int
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
