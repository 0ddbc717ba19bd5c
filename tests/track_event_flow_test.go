package tests

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	businessflow "github.com/clipgreet/clipgreet/business_flow"
	"github.com/clipgreet/clipgreet/models"
	"github.com/clipgreet/clipgreet/repository"
	testingutil "github.com/clipgreet/clipgreet/testing"
	"github.com/clipgreet/clipgreet/utils"
)

func newTrackFlow(testDB *testingutil.TestDB) (businessflow.TrackEventFlow, repository.VideoRepository, repository.ViewerEventRepository) {
	videoRepo := repository.NewVideoRepository(testDB.DB)
	eventRepo := repository.NewViewerEventRepository(testDB.DB)
	guard := businessflow.NewDedupGuard(eventRepo, nil, time.Hour)
	projector := businessflow.NewEventProjector(eventRepo, videoRepo)
	return businessflow.NewTrackEventFlow(videoRepo, guard, projector), videoRepo, eventRepo
}

func TestTrackEventFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow, videoRepo, eventRepo := newTrackFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		meta := businessflow.NewClientMetadata("203.0.113.7", "Mozilla/5.0")

		customer, err := fixtures.CreateTestCustomer()
		require.NoError(t, err)

		t.Run("PageViewCountedOncePerSession", func(t *testing.T) {
			video, err := fixtures.CreateTestVideo(customer.ID, models.VideoStatusSent)
			require.NoError(t, err)

			result, err := flow.TrackEvent(ctx, video.UUID.String(), "page_view", nil, "sess-1", meta)
			require.NoError(t, err)
			assert.False(t, result.Duplicate)

			result, err = flow.TrackEvent(ctx, video.UUID.String(), "page_view", nil, "sess-1", meta)
			require.NoError(t, err)
			assert.True(t, result.Duplicate)

			found, err := videoRepo.ByID(ctx, video.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(1), found.StatsViews)
			assert.Equal(t, models.VideoStatusViewed, found.Status)
		})

		t.Run("SeparateSessionsBothCount", func(t *testing.T) {
			video, err := fixtures.CreateTestVideo(customer.ID, models.VideoStatusSent)
			require.NoError(t, err)

			for _, session := range []string{"sess-a", "sess-b"} {
				result, err := flow.TrackEvent(ctx, video.UUID.String(), "page_view", nil, session, meta)
				require.NoError(t, err)
				assert.False(t, result.Duplicate)
			}

			found, err := videoRepo.ByID(ctx, video.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(2), found.StatsViews)
		})

		t.Run("AnonymousNeverDeduplicated", func(t *testing.T) {
			video, err := fixtures.CreateTestVideo(customer.ID, models.VideoStatusSent)
			require.NoError(t, err)

			for i := 0; i < 3; i++ {
				result, err := flow.TrackEvent(ctx, video.UUID.String(), "page_view", nil, "", meta)
				require.NoError(t, err)
				assert.False(t, result.Duplicate)
			}

			found, err := videoRepo.ByID(ctx, video.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(3), found.StatsViews)
		})

		t.Run("MilestoneCountedOncePerBucket", func(t *testing.T) {
			video, err := fixtures.CreateTestVideo(customer.ID, models.VideoStatusSent)
			require.NoError(t, err)

			reports := []struct {
				progress  int
				duplicate bool
			}{
				{25, false},
				{25, true},
				{50, false},
				{75, false},
				{75, true},
			}
			for _, report := range reports {
				result, err := flow.TrackEvent(ctx, video.UUID.String(), "watch_progress", utils.ToPtr(report.progress), "sess-w", meta)
				require.NoError(t, err)
				assert.Equal(t, report.duplicate, result.Duplicate, "progress %d", report.progress)
			}

			found, err := videoRepo.ByID(ctx, video.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(1), found.StatsWatch25)
			assert.Equal(t, int64(1), found.StatsWatch50)
			assert.Equal(t, int64(1), found.StatsWatch75)
			assert.Equal(t, int64(0), found.StatsWatch100)
		})

		t.Run("DiscreteMilestoneAliases", func(t *testing.T) {
			video, err := fixtures.CreateTestVideo(customer.ID, models.VideoStatusSent)
			require.NoError(t, err)

			result, err := flow.TrackEvent(ctx, video.UUID.String(), "progress_100", nil, "sess-d", meta)
			require.NoError(t, err)
			assert.False(t, result.Duplicate)

			// The canonical form of the same bucket is the same event.
			result, err = flow.TrackEvent(ctx, video.UUID.String(), "watch_progress", utils.ToPtr(100), "sess-d", meta)
			require.NoError(t, err)
			assert.True(t, result.Duplicate)

			found, err := videoRepo.ByID(ctx, video.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(1), found.StatsWatch100)
			// Full watch implies the video was viewed.
			assert.Equal(t, models.VideoStatusViewed, found.Status)
		})

		t.Run("ProgressClamped", func(t *testing.T) {
			video, err := fixtures.CreateTestVideo(customer.ID, models.VideoStatusSent)
			require.NoError(t, err)

			_, err = flow.TrackEvent(ctx, video.UUID.String(), "watch_progress", utils.ToPtr(250), "sess-c", meta)
			require.NoError(t, err)

			found, err := videoRepo.ByID(ctx, video.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(1), found.StatsWatch100)

			_, err = flow.TrackEvent(ctx, video.UUID.String(), "watch_progress", utils.ToPtr(-5), "sess-c", meta)
			require.NoError(t, err)
			events, err := eventRepo.ListByVideo(ctx, video.ID, 0)
			require.NoError(t, err)
			require.NotEmpty(t, events)
			require.NotNil(t, events[0].Progress)
			assert.Equal(t, 0, *events[0].Progress)
		})

		t.Run("ShareTokenResolvesVideo", func(t *testing.T) {
			video, err := fixtures.CreateTestVideo(customer.ID, models.VideoStatusSent)
			require.NoError(t, err)

			result, err := flow.TrackEvent(ctx, video.ShareToken, "cta_click", nil, "sess-t", meta)
			require.NoError(t, err)
			assert.False(t, result.Duplicate)

			found, err := videoRepo.ByID(ctx, video.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(1), found.StatsClicks)
			assert.Equal(t, models.VideoStatusClicked, found.Status)
		})

		t.Run("StatusNeverMovesBackward", func(t *testing.T) {
			video, err := fixtures.CreateTestVideo(customer.ID, models.VideoStatusSent)
			require.NoError(t, err)

			_, err = flow.TrackEvent(ctx, video.UUID.String(), "booking", nil, "sess-s", meta)
			require.NoError(t, err)

			found, err := videoRepo.ByID(ctx, video.ID)
			require.NoError(t, err)
			require.Equal(t, models.VideoStatusBooked, found.Status)

			// Later page views still count but cannot demote the status.
			_, err = flow.TrackEvent(ctx, video.UUID.String(), "page_view", nil, "sess-s2", meta)
			require.NoError(t, err)

			found, err = videoRepo.ByID(ctx, video.ID)
			require.NoError(t, err)
			assert.Equal(t, models.VideoStatusBooked, found.Status)
			assert.Equal(t, int64(1), found.StatsViews)
		})

		t.Run("TimelineOnlyKindsLeaveStatusAlone", func(t *testing.T) {
			video, err := fixtures.CreateTestVideo(customer.ID, models.VideoStatusSent)
			require.NoError(t, err)

			_, err = flow.TrackEvent(ctx, video.UUID.String(), "video_play", nil, "sess-p", meta)
			require.NoError(t, err)

			found, err := videoRepo.ByID(ctx, video.ID)
			require.NoError(t, err)
			assert.Equal(t, models.VideoStatusSent, found.Status)

			counts, err := eventRepo.CountsByVideoAndKind(ctx, video.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(1), counts[models.EventKindPlay])
		})

		t.Run("ProvenanceStoredWithoutRawIP", func(t *testing.T) {
			video, err := fixtures.CreateTestVideo(customer.ID, models.VideoStatusSent)
			require.NoError(t, err)

			_, err = flow.TrackEvent(ctx, video.UUID.String(), "page_view", nil, "sess-m", meta)
			require.NoError(t, err)

			events, err := eventRepo.ListByVideo(ctx, video.ID, 1)
			require.NoError(t, err)
			require.Len(t, events, 1)
			assert.Equal(t, businessflow.HashVisitor("203.0.113.7"), events[0].Metadata["visitor_hash"])
			assert.Equal(t, "Mozilla/5.0", events[0].Metadata["user_agent"])
			for _, value := range events[0].Metadata {
				assert.NotContains(t, value, "203.0.113.7")
			}
		})

		t.Run("UnknownVideoRejected", func(t *testing.T) {
			_, err := flow.TrackEvent(ctx, uuid.New().String(), "page_view", nil, "sess-x", meta)
			require.Error(t, err)
			assert.True(t, businessflow.IsVideoNotFound(err))
		})

		t.Run("UnknownKindRejectedWithoutSideEffects", func(t *testing.T) {
			video, err := fixtures.CreateTestVideo(customer.ID, models.VideoStatusSent)
			require.NoError(t, err)

			_, err = flow.TrackEvent(ctx, video.UUID.String(), "mystery_event", nil, "sess-y", meta)
			require.Error(t, err)
			assert.True(t, businessflow.IsUnknownEventKind(err))

			events, err := eventRepo.ListByVideo(ctx, video.ID, 0)
			require.NoError(t, err)
			assert.Empty(t, events)

			found, err := videoRepo.ByID(ctx, video.ID)
			require.NoError(t, err)
			assert.Equal(t, models.VideoStatusSent, found.Status)
		})

		t.Run("InternalKindsCannotBeForged", func(t *testing.T) {
			video, err := fixtures.CreateTestVideo(customer.ID, models.VideoStatusSent)
			require.NoError(t, err)

			// Delivery markers and compose telemetry are written by the CRM
			// itself; a viewer reporting them is invalid input.
			for _, kind := range []string{"email_delivered", "email_compose_opened", "email_snippet_copied", "email_marked_sent"} {
				_, err := flow.TrackEvent(ctx, video.UUID.String(), kind, nil, "sess-z", meta)
				require.Error(t, err, "%s", kind)
				assert.True(t, businessflow.IsUnknownEventKind(err), "%s", kind)
			}

			events, err := eventRepo.ListByVideo(ctx, video.ID, 0)
			require.NoError(t, err)
			assert.Empty(t, events)
		})

		t.Run("OversizedSessionTruncated", func(t *testing.T) {
			video, err := fixtures.CreateTestVideo(customer.ID, models.VideoStatusSent)
			require.NoError(t, err)

			long := ""
			for len(long) < utils.SessionIDMaxLength+20 {
				long += "s"
			}
			result, err := flow.TrackEvent(ctx, video.UUID.String(), "page_view", nil, long, meta)
			require.NoError(t, err)
			assert.False(t, result.Duplicate)

			// The truncated form is a stable identity for dedup.
			result, err = flow.TrackEvent(ctx, video.UUID.String(), "page_view", nil, long+"tail", meta)
			require.NoError(t, err)
			assert.True(t, result.Duplicate)
		})

		return nil
	})
	require.NoError(t, err)
}
