// A simulated pipeline runner for development and testing. It walks every
// item through the real step sequence with synthetic progress ticks, without
// touching the network or any ML model.
package simulated

import (
	"context"
	"fmt"
	"time"

	"github.com/tokscribe/tokscribe/internal/models"
	"github.com/tokscribe/tokscribe/internal/pipeline"
)

var steps = []models.ItemStatus{
	models.ItemFetchingMetadata,
	models.ItemDownloading,
	models.ItemTranscribing,
	models.ItemExtractingTopics,
	models.ItemEmbedding,
}

type Runner struct {
	// TickDelay is the pause between progress reports. Zero makes the
	// runner synchronous, which is what tests want.
	TickDelay time.Duration
	// FailAt maps item id to the step at which processing should fail.
	FailAt map[string]models.ItemStatus
}

func New(tickDelay time.Duration) *Runner {
	return &Runner{TickDelay: tickDelay}
}

func (r *Runner) Run(ctx context.Context, username string, item models.ItemMetadata, settings models.Settings, report pipeline.ReportFunc) error {
	for _, step := range steps {
		// Cancellation is cooperative and only observed between steps.
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, progress := range []float64{0, 50, 100} {
			report(step, progress)
			if r.TickDelay > 0 {
				time.Sleep(r.TickDelay)
			}
		}
		if failStep, ok := r.FailAt[item.ID]; ok && failStep == step {
			return fmt.Errorf("simulated %s failure for item %s", step, item.ID)
		}
	}
	return nil
}
