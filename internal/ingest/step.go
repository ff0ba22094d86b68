package ingest

import (
	"fmt"

	"github.com/tokscribe/tokscribe/internal/models"
)

// stepRank fixes the pipeline ordering. An item may only move to a status
// with a higher rank (or report progress within its current one).
var stepRank = map[models.ItemStatus]int{
	models.ItemQueued:           0,
	models.ItemFetchingMetadata: 1,
	models.ItemDownloading:      2,
	models.ItemTranscribing:     3,
	models.ItemExtractingTopics: 4,
	models.ItemEmbedding:        5,
	models.ItemComplete:         6,
}

// AdvanceItem moves an item to the next pipeline step with the given step
// progress. Transitions are forward-only; moving backwards or out of a
// terminal state returns ErrInvalidTransition. StepProgress resets to zero
// whenever the step changes and is monotonically non-decreasing within a
// step: a regressing progress report keeps the last value rather than
// moving a user-visible bar backwards.
//
// Failures are recorded with FailItem, not AdvanceItem.
func AdvanceItem(item *models.Item, next models.ItemStatus, progress float64) error {
	cur := item.Status
	if cur.Terminal() {
		return fmt.Errorf("%w: item %s is already %s", ErrInvalidTransition, item.ID, cur)
	}

	if next == models.ItemSkipped {
		// Skipping is a filter decision made before processing begins.
		if cur != models.ItemQueued {
			return fmt.Errorf("%w: cannot skip item %s from %s", ErrInvalidTransition, item.ID, cur)
		}
		item.Status = models.ItemSkipped
		item.StepProgress = 0
		return nil
	}
	if next == models.ItemFailed {
		return fmt.Errorf("%w: failures must be recorded via FailItem", ErrInvalidTransition)
	}

	nextRank, ok := stepRank[next]
	if !ok {
		return fmt.Errorf("%w: unknown step %q", ErrInvalidTransition, next)
	}
	curRank := stepRank[cur]

	switch {
	case nextRank < curRank:
		return fmt.Errorf("%w: item %s cannot move %s -> %s", ErrInvalidTransition, item.ID, cur, next)
	case nextRank == curRank:
		// Progress update within the current step. Out-of-order reports
		// are clamped to the last value.
		if p := clampProgress(progress); p > item.StepProgress {
			item.StepProgress = p
		}
		return nil
	default:
		item.Status = next
		item.StepProgress = 0
		if next != models.ItemComplete {
			item.StepProgress = clampProgress(progress)
		}
		return nil
	}
}

// FailItem forces an item into the failed terminal state, recording the
// cause. Reachable from any non-terminal status.
func FailItem(item *models.Item, cause error) error {
	if item.Status.Terminal() {
		return fmt.Errorf("%w: item %s is already %s", ErrInvalidTransition, item.ID, item.Status)
	}
	item.Status = models.ItemFailed
	item.StepProgress = 0
	if cause != nil {
		item.Error = cause.Error()
	} else {
		item.Error = "unknown error"
	}
	return nil
}

func clampProgress(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
