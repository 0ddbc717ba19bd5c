package businessflow

import (
	"context"

	"github.com/clipgreet/clipgreet/models"
	"github.com/clipgreet/clipgreet/repository"
)

// EventProjector appends a canonical event to the log and folds it into the
// video's denormalized counters and funnel status. Counters only move when
// the append actually inserted a row, so a lost race against a concurrent
// duplicate never double counts.
type EventProjector interface {
	// Apply records the event and updates projections. It returns true when
	// the event was newly inserted and false when the store already held a
	// matching row.
	Apply(ctx context.Context, video *models.Video, event models.CanonicalEvent, sessionID *string, metadata models.EventMetadata) (bool, error)
}

type EventProjectorImpl struct {
	eventRepo repository.ViewerEventRepository
	videoRepo repository.VideoRepository
}

func NewEventProjector(
	eventRepo repository.ViewerEventRepository,
	videoRepo repository.VideoRepository,
) EventProjector {
	return &EventProjectorImpl{
		eventRepo: eventRepo,
		videoRepo: videoRepo,
	}
}

func (p *EventProjectorImpl) Apply(ctx context.Context, video *models.Video, event models.CanonicalEvent, sessionID *string, metadata models.EventMetadata) (bool, error) {
	record := &models.ViewerEvent{
		VideoID:   video.ID,
		SessionID: sessionID,
		Kind:      event.Kind,
		Progress:  event.Progress,
		Metadata:  metadata,
	}

	inserted, err := p.eventRepo.Append(ctx, record)
	if err != nil {
		return false, unavailable("failed to append viewer event", err)
	}
	if !inserted {
		return false, nil
	}

	if counter := models.CounterFor(event.Kind, event.Progress); counter != "" {
		if err := p.videoRepo.IncrementCounter(ctx, video.ID, counter); err != nil {
			// The event is recorded; the reconciler repairs the counter later.
			return true, unavailable("failed to increment engagement counter", err)
		}
	}

	if next := models.NextStatus(video.Status, event.Kind, event.Progress); next != video.Status {
		if err := p.videoRepo.AdvanceStatus(ctx, video.ID, next); err != nil {
			return true, unavailable("failed to advance video status", err)
		}
	}

	return true, nil
}
