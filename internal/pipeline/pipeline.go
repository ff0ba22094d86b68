// Package pipeline defines the boundary to the per-item processing
// collaborator. The actual download/transcription/topic/embedding work
// lives outside this repository; the scheduler only consumes its
// (step, progress) reports.
package pipeline

import (
	"context"

	"github.com/tokscribe/tokscribe/internal/models"
)

// ReportFunc receives step progress while an item is being processed. The
// step value is one of the in-progress ItemStatus constants; progress is
// 0-100 within that step.
type ReportFunc func(step models.ItemStatus, progress float64)

// Runner advances one item through the pipeline step sequence, reporting
// progress along the way. A nil return means the item completed; an error
// fails that item only. Implementations must honor ctx cancellation at
// step boundaries; a step already in flight is allowed to finish.
type Runner interface {
	Run(ctx context.Context, username string, item models.ItemMetadata, settings models.Settings, report ReportFunc) error
}
