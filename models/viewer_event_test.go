package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipgreet/clipgreet/utils"
)

func TestNormalizeEvent(t *testing.T) {
	tests := []struct {
		name         string
		rawKind      string
		progress     *int
		wantKind     EventKind
		wantProgress *int
		wantOK       bool
	}{
		{"canonical page view", "page_view", nil, EventKindPageView, nil, true},
		{"landing view alias", "landing_view", nil, EventKindPageView, nil, true},
		{"video play alias", "video_play", nil, EventKindPlay, nil, true},
		{"discrete quarter milestone", "progress_25", nil, EventKindWatchProgress, utils.ToPtr(25), true},
		{"discrete half milestone", "progress_50", nil, EventKindWatchProgress, utils.ToPtr(50), true},
		{"discrete three quarter milestone", "progress_75", nil, EventKindWatchProgress, utils.ToPtr(75), true},
		{"discrete full milestone", "progress_100", nil, EventKindWatchProgress, utils.ToPtr(100), true},
		{"discrete kind overrides reported progress", "progress_50", utils.ToPtr(3), EventKindWatchProgress, utils.ToPtr(50), true},
		{"watch progress passes through", "watch_progress", utils.ToPtr(75), EventKindWatchProgress, utils.ToPtr(75), true},
		{"negative progress clamps to zero", "watch_progress", utils.ToPtr(-20), EventKindWatchProgress, utils.ToPtr(0), true},
		{"excess progress clamps to hundred", "watch_progress", utils.ToPtr(250), EventKindWatchProgress, utils.ToPtr(100), true},
		{"missing progress defaults to zero", "watch_progress", nil, EventKindWatchProgress, utils.ToPtr(0), true},
		{"booking", "booking", nil, EventKindBooking, nil, true},
		{"unknown kind rejected", "mystery_event", nil, "", nil, false},
		{"empty kind rejected", "", nil, "", nil, false},
		{"internal delivery marker rejected", "email_delivered", nil, "", nil, false},
		{"internal compose telemetry rejected", "email_compose_opened", nil, "", nil, false},
		{"internal snippet telemetry rejected", "email_snippet_copied", nil, "", nil, false},
		{"internal marked-sent rejected", "email_marked_sent", nil, "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, ok := NormalizeEvent(tt.rawKind, tt.progress)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantKind, event.Kind)
			if tt.wantProgress == nil {
				assert.Nil(t, event.Progress)
			} else {
				require.NotNil(t, event.Progress)
				assert.Equal(t, *tt.wantProgress, *event.Progress)
			}
		})
	}
}

func TestEventKindPubliclyReportable(t *testing.T) {
	public := []EventKind{
		EventKindPageView, EventKindPlay, EventKindWatchProgress,
		EventKindCTAClick, EventKindBooking, EventKindGifClick,
		EventKindForwardClick, EventKindForwardSubmit,
	}
	for _, kind := range public {
		assert.True(t, kind.PubliclyReportable(), "%s", kind)
	}

	internal := []EventKind{
		EventKindEmailDelivered, EventKindEmailComposeOpn,
		EventKindEmailSnipCopied, EventKindEmailMarkedSent,
	}
	for _, kind := range internal {
		// Valid for internal writes, never acceptable from a viewer.
		assert.True(t, kind.Valid(), "%s", kind)
		assert.False(t, kind.PubliclyReportable(), "%s", kind)
	}

	assert.False(t, EventKind("mystery_event").PubliclyReportable())
}

func TestEventKindDeduplicated(t *testing.T) {
	assert.True(t, EventKindPageView.Deduplicated())
	assert.True(t, EventKindWatchProgress.Deduplicated())

	assert.False(t, EventKindPlay.Deduplicated())
	assert.False(t, EventKindCTAClick.Deduplicated())
	assert.False(t, EventKindBooking.Deduplicated())
	assert.False(t, EventKindForwardSubmit.Deduplicated())
}

func TestDedupKeyFor(t *testing.T) {
	session := utils.ToPtr("sess-1")
	empty := utils.ToPtr("")

	t.Run("anonymous events never carry a key", func(t *testing.T) {
		assert.Nil(t, DedupKeyFor(nil, EventKindPageView, nil))
		assert.Nil(t, DedupKeyFor(empty, EventKindPageView, nil))
		assert.Nil(t, DedupKeyFor(nil, EventKindWatchProgress, utils.ToPtr(50)))
	})

	t.Run("repeatable kinds never carry a key", func(t *testing.T) {
		assert.Nil(t, DedupKeyFor(session, EventKindPlay, nil))
		assert.Nil(t, DedupKeyFor(session, EventKindCTAClick, nil))
		assert.Nil(t, DedupKeyFor(session, EventKindBooking, nil))
	})

	t.Run("page view keyed per session", func(t *testing.T) {
		key := DedupKeyFor(session, EventKindPageView, nil)
		require.NotNil(t, key)
		assert.Equal(t, "page_view", *key)
	})

	t.Run("milestones keyed per bucket", func(t *testing.T) {
		key := DedupKeyFor(session, EventKindWatchProgress, utils.ToPtr(75))
		require.NotNil(t, key)
		assert.Equal(t, "watch_progress:75", *key)

		other := DedupKeyFor(session, EventKindWatchProgress, utils.ToPtr(100))
		require.NotNil(t, other)
		assert.NotEqual(t, *key, *other)
	})
}
