package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipgreet/clipgreet/utils"
)

func TestVideoStatusRank(t *testing.T) {
	ordered := []VideoStatus{
		VideoStatusDraft,
		VideoStatusProcessing,
		VideoStatusReady,
		VideoStatusSent,
		VideoStatusViewed,
		VideoStatusClicked,
		VideoStatusBooked,
	}

	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, ordered[i].Rank(), ordered[i-1].Rank(),
			"%s must rank above %s", ordered[i], ordered[i-1])
	}

	assert.Equal(t, -1, VideoStatus("bogus").Rank())
}

func TestImpliedStatus(t *testing.T) {
	tests := []struct {
		name     string
		kind     EventKind
		progress *int
		want     VideoStatus
	}{
		{"page view implies viewed", EventKindPageView, nil, VideoStatusViewed},
		{"full watch implies viewed", EventKindWatchProgress, utils.ToPtr(100), VideoStatusViewed},
		{"partial watch implies nothing", EventKindWatchProgress, utils.ToPtr(75), ""},
		{"cta click implies clicked", EventKindCTAClick, nil, VideoStatusClicked},
		{"forward click implies clicked", EventKindForwardClick, nil, VideoStatusClicked},
		{"booking implies booked", EventKindBooking, nil, VideoStatusBooked},
		{"play is timeline only", EventKindPlay, nil, ""},
		{"gif click is timeline only", EventKindGifClick, nil, ""},
		{"email delivered is timeline only", EventKindEmailDelivered, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ImpliedStatus(tt.kind, tt.progress))
		})
	}
}

func TestNextStatusIsForwardOnly(t *testing.T) {
	// A page view on a booked video must not demote it to viewed.
	assert.Equal(t, VideoStatusBooked, NextStatus(VideoStatusBooked, EventKindPageView, nil))

	// An event implying a later stage advances the status.
	assert.Equal(t, VideoStatusClicked, NextStatus(VideoStatusViewed, EventKindCTAClick, nil))
	assert.Equal(t, VideoStatusBooked, NextStatus(VideoStatusSent, EventKindBooking, nil))

	// Timeline-only events leave the status untouched.
	assert.Equal(t, VideoStatusSent, NextStatus(VideoStatusSent, EventKindPlay, nil))

	// Same stage is a no-op, not an error.
	assert.Equal(t, VideoStatusViewed, NextStatus(VideoStatusViewed, EventKindPageView, nil))
}

func TestCounterFor(t *testing.T) {
	assert.Equal(t, CounterViews, CounterFor(EventKindPageView, nil))
	assert.Equal(t, CounterClicks, CounterFor(EventKindCTAClick, nil))
	assert.Equal(t, CounterClicks, CounterFor(EventKindForwardClick, nil))
	assert.Equal(t, CounterBookings, CounterFor(EventKindBooking, nil))

	assert.Equal(t, CounterWatch25, CounterFor(EventKindWatchProgress, utils.ToPtr(25)))
	assert.Equal(t, CounterWatch50, CounterFor(EventKindWatchProgress, utils.ToPtr(50)))
	assert.Equal(t, CounterWatch75, CounterFor(EventKindWatchProgress, utils.ToPtr(75)))
	assert.Equal(t, CounterWatch100, CounterFor(EventKindWatchProgress, utils.ToPtr(100)))

	// Non-milestone progress and timeline-only kinds count nothing.
	assert.Equal(t, StatsCounter(""), CounterFor(EventKindWatchProgress, utils.ToPtr(60)))
	assert.Equal(t, StatsCounter(""), CounterFor(EventKindWatchProgress, nil))
	assert.Equal(t, StatsCounter(""), CounterFor(EventKindPlay, nil))
	assert.Equal(t, StatsCounter(""), CounterFor(EventKindForwardSubmit, nil))
}

func TestNewShareToken(t *testing.T) {
	token := NewShareToken()
	require.Len(t, token, 32)
	assert.NotContains(t, token, "-")
	assert.NotEqual(t, token, NewShareToken())
}
