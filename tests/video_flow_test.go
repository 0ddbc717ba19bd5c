package tests

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	businessflow "github.com/clipgreet/clipgreet/business_flow"
	"github.com/clipgreet/clipgreet/models"
	"github.com/clipgreet/clipgreet/repository"
	testingutil "github.com/clipgreet/clipgreet/testing"
	"github.com/clipgreet/clipgreet/utils"
)

func newVideoFlow(testDB *testingutil.TestDB) (businessflow.VideoFlow, repository.VideoRepository, repository.ViewerEventRepository) {
	videoRepo := repository.NewVideoRepository(testDB.DB)
	eventRepo := repository.NewViewerEventRepository(testDB.DB)
	customerRepo := repository.NewCustomerRepository(testDB.DB)
	return businessflow.NewVideoFlow(videoRepo, eventRepo, customerRepo), videoRepo, eventRepo
}

func TestVideoFlowLifecycle(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow, videoRepo, _ := newVideoFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		customer, err := fixtures.CreateTestCustomer()
		require.NoError(t, err)

		t.Run("CreateVideoStartsAsDraft", func(t *testing.T) {
			video, err := flow.CreateVideo(ctx, customer.ID, &businessflow.CreateVideoInput{
				Title:         "Hello Acme",
				RecipientName: utils.ToPtr("Pat"),
				CTAType:       utils.ToPtr("booking"),
				CTAURL:        utils.ToPtr("https://cal.example.com/jane"),
				VideoPath:     "videos/acme.mp4",
			})
			require.NoError(t, err)
			assert.Equal(t, models.VideoStatusDraft, video.Status)
			assert.NotEmpty(t, video.UUID)
			assert.Len(t, video.ShareToken, 32)
			assert.Equal(t, customer.ID, video.CustomerID)
		})

		t.Run("CreateVideoRequiresTitle", func(t *testing.T) {
			_, err := flow.CreateVideo(ctx, customer.ID, &businessflow.CreateVideoInput{
				VideoPath: "videos/x.mp4",
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, businessflow.ErrVideoTitleRequired)
		})

		t.Run("CreateVideoRequiresPath", func(t *testing.T) {
			_, err := flow.CreateVideo(ctx, customer.ID, &businessflow.CreateVideoInput{
				Title: "No media yet",
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, businessflow.ErrVideoPathRequired)
		})

		t.Run("CreateVideoRequiresKnownCustomer", func(t *testing.T) {
			_, err := flow.CreateVideo(ctx, 999999, &businessflow.CreateVideoInput{
				Title:     "Orphaned",
				VideoPath: "videos/orphan.mp4",
			})
			require.Error(t, err)
			assert.True(t, businessflow.IsCustomerNotFound(err))
		})

		t.Run("CreateVideoRejectsInactiveAccount", func(t *testing.T) {
			inactive, err := fixtures.CreateTestCustomer()
			require.NoError(t, err)
			require.NoError(t, testDB.DB.Model(inactive).Update("is_active", false).Error)

			_, err = flow.CreateVideo(ctx, inactive.ID, &businessflow.CreateVideoInput{
				Title:     "From a disabled account",
				VideoPath: "videos/x.mp4",
			})
			require.Error(t, err)
			assert.True(t, businessflow.IsAccountInactive(err))
		})

		t.Run("MarkReady", func(t *testing.T) {
			video, err := fixtures.CreateTestVideo(customer.ID, models.VideoStatusDraft)
			require.NoError(t, err)

			updated, err := flow.MarkReady(ctx, customer.ID, video.UUID)
			require.NoError(t, err)
			assert.Equal(t, models.VideoStatusReady, updated.Status)
		})

		t.Run("MarkSentFromReady", func(t *testing.T) {
			video, err := fixtures.CreateTestVideo(customer.ID, models.VideoStatusReady)
			require.NoError(t, err)

			updated, err := flow.MarkSent(ctx, customer.ID, video.UUID)
			require.NoError(t, err)
			assert.Equal(t, models.VideoStatusSent, updated.Status)
			require.NotNil(t, updated.SentAt)
			assert.WithinDuration(t, time.Now().UTC(), *updated.SentAt, 10*time.Second)

			// Sending leaves a synthetic delivery marker on the timeline.
			events, err := flow.Timeline(ctx, customer.ID, video.UUID, 0)
			require.NoError(t, err)
			require.Len(t, events, 1)
			assert.Equal(t, models.EventKindEmailDelivered, events[0].Kind)
			assert.Equal(t, "system", events[0].Metadata["source"])
		})

		t.Run("MarkSentRejectedUnlessReady", func(t *testing.T) {
			video, err := fixtures.CreateTestVideo(customer.ID, models.VideoStatusDraft)
			require.NoError(t, err)

			_, err = flow.MarkSent(ctx, customer.ID, video.UUID)
			require.Error(t, err)
			assert.True(t, businessflow.IsVideoNotReady(err))

			found, err := videoRepo.ByID(ctx, video.ID)
			require.NoError(t, err)
			assert.Equal(t, models.VideoStatusDraft, found.Status)
		})

		t.Run("MarkSentIsNotRepeatable", func(t *testing.T) {
			video, err := fixtures.CreateTestVideo(customer.ID, models.VideoStatusReady)
			require.NoError(t, err)

			_, err = flow.MarkSent(ctx, customer.ID, video.UUID)
			require.NoError(t, err)

			_, err = flow.MarkSent(ctx, customer.ID, video.UUID)
			require.Error(t, err)
			assert.True(t, businessflow.IsVideoNotReady(err))
		})

		t.Run("OwnershipEnforced", func(t *testing.T) {
			stranger, err := fixtures.CreateTestCustomer()
			require.NoError(t, err)
			video, err := fixtures.CreateTestVideo(customer.ID, models.VideoStatusReady)
			require.NoError(t, err)

			_, err = flow.MarkSent(ctx, stranger.ID, video.UUID)
			require.Error(t, err)
			assert.True(t, businessflow.IsVideoAccessDenied(err))

			_, err = flow.Stats(ctx, stranger.ID, video.UUID)
			require.Error(t, err)
			assert.True(t, businessflow.IsVideoAccessDenied(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestVideoFlowStatsAndTimeline(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow, _, _ := newVideoFlow(testDB)
		trackFlow, _, _ := newTrackFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		meta := businessflow.NewClientMetadata("203.0.113.9", "Mozilla/5.0")

		customer, err := fixtures.CreateTestCustomer()
		require.NoError(t, err)
		video, err := fixtures.CreateTestVideo(customer.ID, models.VideoStatusSent)
		require.NoError(t, err)

		track := func(kind string, progress *int, session string) {
			_, err := trackFlow.TrackEvent(ctx, video.UUID.String(), kind, progress, session, meta)
			require.NoError(t, err)
		}
		track("page_view", nil, "sess-1")
		track("page_view", nil, "sess-2")
		track("watch_progress", utils.ToPtr(25), "sess-1")
		track("watch_progress", utils.ToPtr(100), "sess-1")
		track("cta_click", nil, "sess-1")
		track("booking", nil, "sess-1")

		t.Run("Stats", func(t *testing.T) {
			stats, err := flow.Stats(ctx, customer.ID, video.UUID)
			require.NoError(t, err)
			assert.Equal(t, video.UUID, stats.UUID)
			assert.Equal(t, models.VideoStatusBooked, stats.Status)
			assert.Equal(t, int64(2), stats.Views)
			assert.Equal(t, int64(1), stats.Clicks)
			assert.Equal(t, int64(1), stats.Watch25)
			assert.Equal(t, int64(0), stats.Watch50)
			assert.Equal(t, int64(1), stats.Watch100)
			assert.Equal(t, int64(1), stats.Bookings)
			assert.Equal(t, int64(6), stats.TotalEvent)
		})

		t.Run("TimelineNewestFirst", func(t *testing.T) {
			events, err := flow.Timeline(ctx, customer.ID, video.UUID, 0)
			require.NoError(t, err)
			require.Len(t, events, 6)
			assert.Equal(t, models.EventKindBooking, events[0].Kind)
			assert.Equal(t, models.EventKindPageView, events[len(events)-1].Kind)

			limited, err := flow.Timeline(ctx, customer.ID, video.UUID, 2)
			require.NoError(t, err)
			assert.Len(t, limited, 2)
		})

		t.Run("ExportTimeline", func(t *testing.T) {
			content, filename, err := flow.ExportTimeline(ctx, customer.ID, video.UUID)
			require.NoError(t, err)
			assert.NotEmpty(t, content)
			assert.Contains(t, filename, video.UUID.String())
			assert.Contains(t, filename, ".xlsx")
			// xlsx files are zip archives.
			assert.Equal(t, []byte{'P', 'K'}, content[:2])
		})

		t.Run("NotFoundForUnknownVideo", func(t *testing.T) {
			other, err := fixtures.CreateTestVideo(customer.ID, "")
			require.NoError(t, err)
			require.NoError(t, testDB.DB.Delete(&models.Video{}, other.ID).Error)

			_, err = flow.Stats(ctx, customer.ID, other.UUID)
			require.Error(t, err)
			assert.True(t, businessflow.IsVideoNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestVideoFlowReconcile(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow, videoRepo, _ := newVideoFlow(testDB)
		trackFlow, _, _ := newTrackFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		meta := businessflow.NewClientMetadata("203.0.113.9", "Mozilla/5.0")

		customer, err := fixtures.CreateTestCustomer()
		require.NoError(t, err)
		video, err := fixtures.CreateTestVideo(customer.ID, models.VideoStatusSent)
		require.NoError(t, err)

		for _, session := range []string{"sess-1", "sess-2", "sess-3"} {
			_, err := trackFlow.TrackEvent(ctx, video.UUID.String(), "page_view", nil, session, meta)
			require.NoError(t, err)
		}
		_, err = trackFlow.TrackEvent(ctx, video.UUID.String(), "watch_progress", utils.ToPtr(50), "sess-1", meta)
		require.NoError(t, err)

		// Corrupt the denormalized counters behind the projector's back.
		require.NoError(t, testDB.DB.Model(&models.Video{}).Where("id = ?", video.ID).
			Updates(map[string]any{"stats_views": 99, "stats_bookings": 5}).Error)

		result, err := flow.Reconcile(ctx, customer.ID, video.UUID)
		require.NoError(t, err)
		assert.Equal(t, video.UUID, result.VideoUUID)
		assert.Equal(t, int64(3), result.Counts[models.CounterViews])
		assert.Equal(t, int64(1), result.Counts[models.CounterWatch50])
		assert.Equal(t, int64(3), result.ByKind[models.EventKindPageView])

		found, err := videoRepo.ByID(ctx, video.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), found.StatsViews)
		assert.Equal(t, int64(1), found.StatsWatch50)
		assert.Equal(t, int64(0), found.StatsBookings)

		return nil
	})
	require.NoError(t, err)
}
