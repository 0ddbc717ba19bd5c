// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/clipgreet/clipgreet/models"
	"github.com/google/uuid"
)

// contextKey is a private type for context keys used by this package
type contextKey string

// TxContextKey carries an open gorm transaction through a context
const TxContextKey contextKey = "tx"

// CustomerRepository defines data access for owner accounts
type CustomerRepository interface {
	ByID(ctx context.Context, id uint) (*models.Customer, error)
	ByUUID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	Save(ctx context.Context, customer *models.Customer) error
}

// VideoRepository defines data access for outreach videos, including the
// atomic counter and status mutations used by the projection path
type VideoRepository interface {
	ByID(ctx context.Context, id uint) (*models.Video, error)
	ByUUID(ctx context.Context, id uuid.UUID) (*models.Video, error)
	ByShareToken(ctx context.Context, token string) (*models.Video, error)
	ByFilter(ctx context.Context, filter models.VideoFilter, orderBy string, limit, offset int) ([]*models.Video, error)
	Save(ctx context.Context, video *models.Video) error

	// IncrementCounter applies an atomic per-field increment; it never reads
	// the row first, so concurrent requests for the same video cannot lose
	// updates.
	IncrementCounter(ctx context.Context, videoID uint, counter models.StatsCounter) error

	// AdvanceStatus moves the status forward to newStatus, but only when the
	// current status ranks strictly lower in the funnel order. A no-op
	// otherwise.
	AdvanceStatus(ctx context.Context, videoID uint, newStatus models.VideoStatus) error

	// MarkSent transitions ready -> sent and stamps sent_at. Returns false
	// when the video was not in ready.
	MarkSent(ctx context.Context, videoID uint, sentAt time.Time) (bool, error)

	// MarkReady transitions draft/processing -> ready (media became
	// available). Returns false when the video was already past ready.
	MarkReady(ctx context.Context, videoID uint) (bool, error)

	// ApplyCounts overwrites the denormalized counters with values recomputed
	// from the event log (reconciliation path).
	ApplyCounts(ctx context.Context, videoID uint, counts map[models.StatsCounter]int64) error
}

// EventKindCount is one row of the grouped event-count query
type EventKindCount struct {
	Kind     models.EventKind
	Progress *int
	Count    int64
}

// ViewerEventRepository defines the append-only event store
type ViewerEventRepository interface {
	// Append inserts the event. Returns false with a nil error when the row
	// collided with the dedup unique index (someone else won the race); the
	// caller must not project counters in that case.
	Append(ctx context.Context, event *models.ViewerEvent) (bool, error)

	// FindMatching returns an existing event with the same dedup identity,
	// or nil when none exists.
	FindMatching(ctx context.Context, videoID uint, sessionID string, kind models.EventKind, progress *int) (*models.ViewerEvent, error)

	ListByVideo(ctx context.Context, videoID uint, limit int) ([]*models.ViewerEvent, error)

	// CountsByVideoAndKind returns event totals per canonical kind.
	CountsByVideoAndKind(ctx context.Context, videoID uint) (map[models.EventKind]int64, error)

	// GroupedCounts returns totals per (kind, progress) pair, the input of
	// counter reconciliation.
	GroupedCounts(ctx context.Context, videoID uint) ([]EventKindCount, error)
}

// VideoForwardRepository defines data access for forward submissions
type VideoForwardRepository interface {
	Save(ctx context.Context, forward *models.VideoForward) error
	ByFilter(ctx context.Context, filter models.VideoForwardFilter, orderBy string, limit, offset int) ([]*models.VideoForward, error)
}
