package status_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-BookingSync/internal/domain"
	"github.com/m04kA/SMC-BookingSync/internal/service/status"
)

func TestClassify_Table(t *testing.T) {
	tests := []struct {
		status   domain.BookingStatus
		coarse   domain.CoarseStatus
		progress int
	}{
		{domain.StatusPending, domain.CoarseUpcoming, 0},
		{domain.StatusConfirmed, domain.CoarseUpcoming, 0},
		{domain.StatusEnRoute, domain.CoarseActive, 25},
		{domain.StatusArrived, domain.CoarseActive, 50},
		{domain.StatusInProgress, domain.CoarseActive, 75},
		{domain.StatusCompleted, domain.CoarseCompleted, 100},
		{domain.StatusCancelled, domain.CoarseCompleted, 100},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			got := status.Classify(tt.status)
			assert.Equal(t, tt.coarse, got.Coarse)
			assert.Equal(t, tt.progress, got.Progress)
		})
	}
}

func TestClassify_EveryKnownStatusIsHandled(t *testing.T) {
	for _, s := range domain.AllStatuses {
		got := status.Classify(s)
		require.NotEmpty(t, got.Milestones, s)
		assert.NotEqual(t, "Status unknown", got.Milestones[0].Title, "status %s fell through to unknown", s)
	}
}

func TestClassify_ProgressMonotonicAlongLifecycle(t *testing.T) {
	prev := -1
	for _, s := range domain.LifecycleOrder {
		p := status.Classify(s).Progress
		assert.GreaterOrEqual(t, p, prev, "progress decreased at %s", s)
		prev = p
	}
}

func TestClassify_UnknownStatus(t *testing.T) {
	got := status.Classify(domain.BookingStatus("teleported"))

	assert.Equal(t, domain.CoarseUpcoming, got.Coarse)
	assert.Equal(t, 0, got.Progress)
	require.Len(t, got.Milestones, 1)
	assert.Equal(t, "Status unknown", got.Milestones[0].Title)
	assert.False(t, got.Milestones[0].Completed)
}

func TestClassify_ArrivedHasThreeOfFourMilestones(t *testing.T) {
	got := status.Classify(domain.StatusArrived)

	require.Len(t, got.Milestones, 4)
	completed := 0
	for _, m := range got.Milestones {
		if m.Completed {
			completed++
		}
	}
	assert.Equal(t, 3, completed)
	assert.Equal(t, 50, got.Progress)
	assert.False(t, got.Milestones[3].Completed)
}

func TestClassify_CancelledAppendsTerminalMilestone(t *testing.T) {
	got := status.Classify(domain.StatusCancelled)

	require.Len(t, got.Milestones, 5)
	last := got.Milestones[4]
	assert.Equal(t, "Booking cancelled", last.Title)
	assert.True(t, last.Completed)
}

func TestStamp(t *testing.T) {
	created := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	updated := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

	ms := status.Stamp(status.Classify(domain.StatusEnRoute).Milestones, domain.StatusEnRoute, created, updated)

	require.NotNil(t, ms[0].At)
	assert.Equal(t, created, *ms[0].At)
	require.NotNil(t, ms[1].At)
	assert.Equal(t, updated, *ms[1].At)
	assert.Nil(t, ms[2].At)
	assert.Nil(t, ms[3].At)
}

func TestMerge_NeverRegresses(t *testing.T) {
	at := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	prev := status.Stamp(status.Classify(domain.StatusInProgress).Milestones, domain.StatusInProgress, at, at)
	stale := status.Classify(domain.StatusConfirmed).Milestones

	merged := status.Merge(prev, stale)

	for i := 0; i < 3; i++ {
		assert.True(t, merged[i].Completed, "milestone %d regressed", i)
	}
	assert.False(t, merged[3].Completed)
	require.NotNil(t, merged[0].At)
	assert.Equal(t, at, *merged[0].At)
}
