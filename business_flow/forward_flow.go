package businessflow

import (
	"context"
	"strings"

	"github.com/clipgreet/clipgreet/models"
	"github.com/clipgreet/clipgreet/repository"
	"github.com/clipgreet/clipgreet/utils"
)

// ForwardFlow records viewer-submitted forward requests and reflects them in
// the engagement log.
type ForwardFlow interface {
	ForwardVideo(ctx context.Context, videoRef string, recipientName, recipientEmail, note, sessionID string, metadata *ClientMetadata) error
}

type ForwardFlowImpl struct {
	videoRepo   repository.VideoRepository
	forwardRepo repository.VideoForwardRepository
	projector   EventProjector
}

func NewForwardFlow(
	videoRepo repository.VideoRepository,
	forwardRepo repository.VideoForwardRepository,
	projector EventProjector,
) ForwardFlow {
	return &ForwardFlowImpl{
		videoRepo:   videoRepo,
		forwardRepo: forwardRepo,
		projector:   projector,
	}
}

func (f *ForwardFlowImpl) ForwardVideo(ctx context.Context, videoRef string, recipientName, recipientEmail, note, sessionID string, metadata *ClientMetadata) error {
	recipientName = strings.TrimSpace(recipientName)
	recipientEmail = strings.TrimSpace(strings.ToLower(recipientEmail))
	if recipientName == "" && recipientEmail == "" {
		return ErrForwardRecipientRequired
	}

	video, err := resolveVideoRef(ctx, f.videoRepo, videoRef)
	if err != nil {
		return err
	}

	if len(sessionID) > utils.SessionIDMaxLength {
		sessionID = sessionID[:utils.SessionIDMaxLength]
	}

	var notePtr *string
	if trimmed := strings.TrimSpace(note); trimmed != "" {
		notePtr = &trimmed
	}
	var sessionPtr *string
	if sessionID != "" {
		sessionPtr = &sessionID
	}

	forward := &models.VideoForward{
		VideoID:        video.ID,
		RecipientName:  recipientName,
		RecipientEmail: recipientEmail,
		Note:           notePtr,
		SessionID:      sessionPtr,
	}
	if err := f.forwardRepo.Save(ctx, forward); err != nil {
		return unavailable("failed to save forward request", err)
	}
	event := models.CanonicalEvent{Kind: models.EventKindForwardSubmit}
	if _, err := f.projector.Apply(ctx, video, event, sessionPtr, metadata.Provenance()); err != nil {
		// The forward record is already saved; the timeline entry is best
		// effort on top of it.
		return err
	}
	return nil
}
