package businessflow

import (
	"context"

	"github.com/clipgreet/clipgreet/models"
	"github.com/clipgreet/clipgreet/repository"
)

// SharedVideoFlow resolves a public share token into the landing-page
// payload. Resolving never counts a view; the page itself reports page_view
// through the tracking gateway.
type SharedVideoFlow interface {
	Resolve(ctx context.Context, shareToken string) (*models.Video, error)
}

type SharedVideoFlowImpl struct {
	videoRepo repository.VideoRepository
}

func NewSharedVideoFlow(videoRepo repository.VideoRepository) SharedVideoFlow {
	return &SharedVideoFlowImpl{videoRepo: videoRepo}
}

func (f *SharedVideoFlowImpl) Resolve(ctx context.Context, shareToken string) (*models.Video, error) {
	video, err := f.videoRepo.ByShareToken(ctx, shareToken)
	if err != nil {
		return nil, unavailable("failed to look up shared video", err)
	}
	if video == nil {
		return nil, ErrVideoNotFound
	}
	// Draft videos have no shareable page yet.
	if video.Status == models.VideoStatusDraft || video.Status == models.VideoStatusProcessing {
		return nil, ErrVideoNotFound
	}
	return video, nil
}
