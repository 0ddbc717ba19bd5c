package businessflow

import (
	"context"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/clipgreet/clipgreet/models"
	"github.com/clipgreet/clipgreet/repository"
	"github.com/clipgreet/clipgreet/utils"
)

var eventsIngestedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "clipgreet_events_ingested_total",
		Help: "Viewer events processed by the tracking gateway",
	},
	[]string{"kind", "outcome"},
)

const (
	outcomeRecorded  = "recorded"
	outcomeDuplicate = "duplicate"
	outcomeRejected  = "rejected"
	outcomeError     = "error"
)

// TrackResult is the outcome of a single tracked event.
type TrackResult struct {
	Duplicate bool
}

// TrackEventFlow is the public ingestion gateway: it resolves the target
// video, normalizes the reported event, screens duplicates and projects the
// accepted event into the store and counters.
type TrackEventFlow interface {
	TrackEvent(ctx context.Context, videoRef string, eventType string, progress *int, sessionID string, metadata *ClientMetadata) (*TrackResult, error)
}

type TrackEventFlowImpl struct {
	videoRepo repository.VideoRepository
	guard     DedupGuard
	projector EventProjector
}

func NewTrackEventFlow(
	videoRepo repository.VideoRepository,
	guard DedupGuard,
	projector EventProjector,
) TrackEventFlow {
	return &TrackEventFlowImpl{
		videoRepo: videoRepo,
		guard:     guard,
		projector: projector,
	}
}

// resolveVideoRef looks the reference up as a video UUID first and falls
// back to share token. Share tokens are dashless UUID hex, so a token can
// parse as a UUID; the fallback keeps both forms working.
func resolveVideoRef(ctx context.Context, videoRepo repository.VideoRepository, videoRef string) (*models.Video, error) {
	var video *models.Video
	if id, parseErr := uuid.Parse(videoRef); parseErr == nil {
		found, err := videoRepo.ByUUID(ctx, id)
		if err != nil {
			return nil, unavailable("failed to look up video", err)
		}
		video = found
	}
	if video == nil {
		found, err := videoRepo.ByShareToken(ctx, videoRef)
		if err != nil {
			return nil, unavailable("failed to look up video", err)
		}
		video = found
	}
	if video == nil {
		return nil, ErrVideoNotFound
	}
	return video, nil
}

func (f *TrackEventFlowImpl) TrackEvent(ctx context.Context, videoRef string, eventType string, progress *int, sessionID string, metadata *ClientMetadata) (*TrackResult, error) {
	event, ok := models.NormalizeEvent(eventType, progress)
	if !ok {
		eventsIngestedTotal.WithLabelValues(eventType, outcomeRejected).Inc()
		return nil, ErrUnknownEventKind
	}

	video, err := resolveVideoRef(ctx, f.videoRepo, videoRef)
	if err != nil {
		eventsIngestedTotal.WithLabelValues(string(event.Kind), outcomeError).Inc()
		return nil, err
	}

	if len(sessionID) > utils.SessionIDMaxLength {
		sessionID = sessionID[:utils.SessionIDMaxLength]
	}

	if sessionID != "" {
		seen, err := f.guard.Seen(ctx, video.ID, sessionID, event)
		if err != nil {
			eventsIngestedTotal.WithLabelValues(string(event.Kind), outcomeError).Inc()
			return nil, err
		}
		if seen {
			eventsIngestedTotal.WithLabelValues(string(event.Kind), outcomeDuplicate).Inc()
			return &TrackResult{Duplicate: true}, nil
		}
	}

	var sessionPtr *string
	if sessionID != "" {
		sessionPtr = &sessionID
	}

	inserted, err := f.projector.Apply(ctx, video, event, sessionPtr, metadata.Provenance())
	if err != nil {
		eventsIngestedTotal.WithLabelValues(string(event.Kind), outcomeError).Inc()
		return nil, err
	}
	if !inserted {
		// Lost a race against a concurrent duplicate.
		eventsIngestedTotal.WithLabelValues(string(event.Kind), outcomeDuplicate).Inc()
		return &TrackResult{Duplicate: true}, nil
	}

	if sessionID != "" {
		f.guard.Remember(ctx, video.ID, sessionID, event)
	}

	eventsIngestedTotal.WithLabelValues(string(event.Kind), outcomeRecorded).Inc()
	return &TrackResult{}, nil
}
