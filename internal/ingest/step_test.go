package ingest

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tokscribe/tokscribe/internal/models"
)

func newItem() *models.Item {
	return &models.Item{ID: "vid-001", Title: "a video", Status: models.ItemQueued}
}

func TestAdvanceItem_ForwardOrder(t *testing.T) {
	item := newItem()
	sequence := []models.ItemStatus{
		models.ItemFetchingMetadata,
		models.ItemDownloading,
		models.ItemTranscribing,
		models.ItemExtractingTopics,
		models.ItemEmbedding,
		models.ItemComplete,
	}
	for _, step := range sequence {
		require.NoError(t, AdvanceItem(item, step, 0))
		assert.Equal(t, step, item.Status)
		assert.Equal(t, float64(0), item.StepProgress)
	}
	assert.True(t, item.Status.Terminal())
}

func TestAdvanceItem_SkippingStepsForwardIsAllowed(t *testing.T) {
	item := newItem()
	// The collaborator may report coarse steps, e.g. straight to
	// downloading without a fetching_metadata report.
	require.NoError(t, AdvanceItem(item, models.ItemDownloading, 25))
	assert.Equal(t, models.ItemDownloading, item.Status)
	assert.Equal(t, float64(25), item.StepProgress)
}

func TestAdvanceItem_BackwardIsRejected(t *testing.T) {
	item := newItem()
	require.NoError(t, AdvanceItem(item, models.ItemTranscribing, 10))

	err := AdvanceItem(item, models.ItemDownloading, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, models.ItemTranscribing, item.Status)
}

func TestAdvanceItem_ProgressClampingWithinStep(t *testing.T) {
	item := newItem()
	require.NoError(t, AdvanceItem(item, models.ItemTranscribing, 0))

	require.NoError(t, AdvanceItem(item, models.ItemTranscribing, 40))
	assert.Equal(t, float64(40), item.StepProgress)

	// An out-of-order report must not move the bar backwards.
	require.NoError(t, AdvanceItem(item, models.ItemTranscribing, 15))
	assert.Equal(t, float64(40), item.StepProgress)

	require.NoError(t, AdvanceItem(item, models.ItemTranscribing, 90))
	assert.Equal(t, float64(90), item.StepProgress)

	// Over-100 reports are clamped to 100.
	require.NoError(t, AdvanceItem(item, models.ItemTranscribing, 250))
	assert.Equal(t, float64(100), item.StepProgress)
}

func TestAdvanceItem_ProgressResetsOnStepChange(t *testing.T) {
	item := newItem()
	require.NoError(t, AdvanceItem(item, models.ItemDownloading, 0))
	require.NoError(t, AdvanceItem(item, models.ItemDownloading, 95))
	require.NoError(t, AdvanceItem(item, models.ItemTranscribing, 0))
	assert.Equal(t, float64(0), item.StepProgress)
}

func TestAdvanceItem_SkipOnlyFromQueued(t *testing.T) {
	item := newItem()
	require.NoError(t, AdvanceItem(item, models.ItemSkipped, 0))
	assert.Equal(t, models.ItemSkipped, item.Status)

	started := newItem()
	require.NoError(t, AdvanceItem(started, models.ItemDownloading, 0))
	err := AdvanceItem(started, models.ItemSkipped, 0)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}

func TestAdvanceItem_TerminalIsImmutable(t *testing.T) {
	for _, terminal := range []models.ItemStatus{models.ItemComplete, models.ItemSkipped, models.ItemFailed} {
		item := newItem()
		item.Status = terminal
		err := AdvanceItem(item, models.ItemDownloading, 0)
		assert.True(t, errors.Is(err, ErrInvalidTransition), "from %s", terminal)
	}
}

func TestFailItem(t *testing.T) {
	item := newItem()
	require.NoError(t, AdvanceItem(item, models.ItemEmbedding, 80))
	require.NoError(t, FailItem(item, errors.New("gpu fell over")))
	assert.Equal(t, models.ItemFailed, item.Status)
	assert.Equal(t, "gpu fell over", item.Error)
	assert.Equal(t, float64(0), item.StepProgress)

	// Failing twice is a transition violation.
	err := FailItem(item, errors.New("again"))
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, "gpu fell over", item.Error)
}

// Property: over any random sequence of transition attempts, step progress
// never decreases while the status stays the same and is zero right after
// every status change.
func TestAdvanceItem_ProgressMonotonicProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	steps := []models.ItemStatus{
		models.ItemQueued,
		models.ItemFetchingMetadata,
		models.ItemDownloading,
		models.ItemTranscribing,
		models.ItemExtractingTopics,
		models.ItemEmbedding,
		models.ItemComplete,
		models.ItemSkipped,
	}

	for run := 0; run < 200; run++ {
		item := newItem()
		item.ID = fmt.Sprintf("vid-%03d", run)
		prevStatus := item.Status
		prevProgress := item.StepProgress

		for op := 0; op < 50; op++ {
			next := steps[rng.Intn(len(steps))]
			progress := rng.Float64()*140 - 20 // deliberately out of range sometimes
			_ = AdvanceItem(item, next, progress)

			if item.Status == prevStatus {
				assert.GreaterOrEqual(t, item.StepProgress, prevProgress,
					"progress regressed within step %s", item.Status)
			}
			assert.GreaterOrEqual(t, item.StepProgress, float64(0))
			assert.LessOrEqual(t, item.StepProgress, float64(100))

			prevStatus = item.Status
			prevProgress = item.StepProgress
		}
	}
}
