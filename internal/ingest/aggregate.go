// Pure aggregation over the job/account/item hierarchy. Progress, elapsed
// time and ETA are always re-derived from current state so the reported
// numbers can never drift from their inputs.

package ingest

import (
	"math"
	"time"

	"github.com/tokscribe/tokscribe/internal/models"
)

// RecomputeAccount re-derives the account's counters and coarse status from
// its items. A metadata-level failure (account.Error set) is sticky.
func RecomputeAccount(a *models.Account) {
	var processed, skipped, failed, terminal int
	for _, it := range a.Items {
		switch it.Status {
		case models.ItemComplete:
			processed++
		case models.ItemSkipped:
			skipped++
		case models.ItemFailed:
			failed++
		}
		if it.Status.Terminal() {
			terminal++
		}
	}
	a.ProcessedItems = processed
	a.SkippedItems = skipped
	a.FailedItems = failed

	if a.Error != "" {
		a.Status = models.AccountFailed
		return
	}

	allTerminal := len(a.Items) > 0 && terminal == len(a.Items)
	switch {
	case allTerminal && failed > 0:
		a.Status = models.AccountFailed
	case allTerminal:
		a.Status = models.AccountComplete
	case a.FilteredItems > 0:
		a.Status = models.AccountRunning
	default:
		a.Status = models.AccountQueued
	}
}

// CurrentItem returns the first item in discovery order that is actively
// being processed (neither terminal nor still queued), or nil.
func CurrentItem(a *models.Account) *models.Item {
	for _, it := range a.Items {
		if !it.Status.Terminal() && it.Status != models.ItemQueued {
			return it
		}
	}
	return nil
}

// AccountProgress is the account's 0-100 completion percentage. Items that
// reached any terminal state count as done; division by zero is defined as
// zero progress, not an error.
func AccountProgress(a *models.Account) int {
	if a.FilteredItems == 0 {
		return 0
	}
	done := a.ProcessedItems + a.SkippedItems + a.FailedItems
	pct := int(math.Round(float64(done) / float64(a.FilteredItems) * 100))
	if pct > 100 {
		pct = 100
	}
	return pct
}

// OverallProgress averages account progress with equal weight per account
// (not per item). Zero accounts means zero progress.
func OverallProgress(job *models.Job) int {
	if len(job.Accounts) == 0 {
		return 0
	}
	var total int
	for _, a := range job.Accounts {
		total += AccountProgress(a)
	}
	return int(math.Round(float64(total) / float64(len(job.Accounts))))
}

// Elapsed is the job's wall-clock running time: zero before it starts,
// live while running, frozen at completed-started once terminal.
func Elapsed(job *models.Job, now time.Time) time.Duration {
	if job.StartedAt == nil {
		return 0
	}
	if job.CompletedAt != nil {
		return job.CompletedAt.Sub(*job.StartedAt)
	}
	return now.Sub(*job.StartedAt)
}

// ETASeconds extrapolates the remaining time linearly from elapsed time and
// progress: eta = elapsed * (100-p) / p. It is a heuristic, not a promise.
// Returns nil (absent) while progress is zero or the job has not started.
func ETASeconds(elapsed time.Duration, progress int) *int64 {
	if elapsed <= 0 || progress <= 0 {
		return nil
	}
	if progress >= 100 {
		zero := int64(0)
		return &zero
	}
	eta := int64(math.Round(elapsed.Seconds() / float64(progress) * float64(100-progress)))
	return &eta
}

// BuildSnapshot deep-copies the job into its polling DTO, recomputing every
// derived field as of now. The returned snapshot shares no memory with the
// live job.
func BuildSnapshot(job *models.Job, now time.Time) *models.JobSnapshot {
	snap := &models.JobSnapshot{
		JobID:       job.ID,
		Status:      job.Status,
		Usernames:   append([]string(nil), job.Usernames...),
		CreatedAt:   job.CreatedAt,
		StartedAt:   copyTime(job.StartedAt),
		CompletedAt: copyTime(job.CompletedAt),
		Accounts:    make([]models.AccountSnapshot, 0, len(job.Accounts)),
	}

	for _, a := range job.Accounts {
		as := models.AccountSnapshot{
			Username:        a.Username,
			Status:          a.Status,
			OverallProgress: AccountProgress(a),
			TotalItems:      a.TotalItems,
			FilteredItems:   a.FilteredItems,
			ProcessedItems:  a.ProcessedItems,
			SkippedItems:    a.SkippedItems,
			FailedItems:     a.FailedItems,
			Counters: models.AccountCounters{
				Total:     a.FilteredItems,
				Processed: a.ProcessedItems,
				Skipped:   a.SkippedItems,
				Failed:    a.FailedItems,
			},
			Items: make([]models.ItemSnapshot, 0, len(a.Items)),
			Error: a.Error,
		}
		for _, it := range a.Items {
			as.Items = append(as.Items, itemSnapshot(it))
		}
		if cur := CurrentItem(a); cur != nil {
			cs := itemSnapshot(cur)
			as.CurrentItem = &cs
		}
		snap.Accounts = append(snap.Accounts, as)
	}

	elapsed := Elapsed(job, now)
	snap.ElapsedSeconds = math.Round(elapsed.Seconds()*10) / 10
	snap.OverallProgress = OverallProgress(job)
	snap.EtaSeconds = ETASeconds(elapsed, snap.OverallProgress)
	return snap
}

func itemSnapshot(it *models.Item) models.ItemSnapshot {
	return models.ItemSnapshot{
		ID:              it.ID,
		Title:           it.Title,
		DurationSeconds: it.DurationSeconds,
		Status:          it.Status,
		StepProgress:    it.StepProgress,
		Error:           it.Error,
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
