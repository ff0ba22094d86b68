// The job registry owns every ingestion job's lifecycle: creation,
// asynchronous dispatch across accounts with bounded parallelism, pause,
// resume, cooperative cancellation and snapshotting for polling observers.
//
// Concurrency discipline: each job has exactly one RWMutex. All mutation
// funnels through jobHandle.mutate, which holds the write lock and refuses
// to touch a terminal job, so a late worker write after cancellation is a
// no-op. Snapshots take the read lock and deep-copy, so polling never
// stalls behind a long pipeline step (steps run outside any lock).

package ingest

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tokscribe/tokscribe/internal/ingest/providers"
	"github.com/tokscribe/tokscribe/internal/models"
	"github.com/tokscribe/tokscribe/internal/pipeline"
)

// pausePollInterval is how often a paused worker re-checks the job status.
const pausePollInterval = 100 * time.Millisecond

// History receives one record per job when it reaches a terminal state.
// The registry tolerates a nil History.
type History interface {
	RecordJob(snap *models.JobSnapshot) error
}

type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*jobHandle
	// order preserves creation order for listing.
	order []string

	provider providers.Provider
	runner   pipeline.Runner
	history  History
	workers  int
}

type jobHandle struct {
	mu       sync.RWMutex
	job      *models.Job
	cancel   context.CancelFunc
	archived bool
}

// NewRegistry creates a registry dispatching up to workers accounts of one
// job in parallel. history may be nil.
func NewRegistry(provider providers.Provider, runner pipeline.Runner, workers int, history History) *Registry {
	if workers < 1 {
		workers = 1
	}
	return &Registry{
		jobs:     make(map[string]*jobHandle),
		provider: provider,
		runner:   runner,
		history:  history,
		workers:  workers,
	}
}

// Create validates the request, allocates a queued job with one queued
// account per username and returns its id immediately. Item discovery and
// processing run asynchronously.
func (r *Registry) Create(usernames []string, filter models.ItemFilter, settings models.Settings) (string, error) {
	cleaned := make([]string, 0, len(usernames))
	for _, u := range usernames {
		u = strings.TrimPrefix(strings.TrimSpace(u), "@")
		if u != "" {
			cleaned = append(cleaned, u)
		}
	}
	if len(cleaned) == 0 {
		return "", fmt.Errorf("%w: at least one username is required", ErrInvalidInput)
	}
	if err := ValidateFilter(filter); err != nil {
		return "", err
	}

	job := &models.Job{
		ID:        uuid.NewString(),
		Usernames: cleaned,
		Filter:    filter,
		Settings:  settings,
		Status:    models.JobQueued,
		CreatedAt: time.Now(),
	}
	for _, u := range cleaned {
		job.Accounts = append(job.Accounts, &models.Account{
			Username: u,
			Status:   models.AccountQueued,
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &jobHandle{job: job, cancel: cancel}

	r.mu.Lock()
	r.jobs[job.ID] = h
	r.order = append(r.order, job.ID)
	r.mu.Unlock()

	go r.run(ctx, h)
	return job.ID, nil
}

// Snapshot returns a consistent point-in-time copy of the job. It is
// side-effect free and safe to call concurrently with ongoing mutation.
func (r *Registry) Snapshot(id string) (*models.JobSnapshot, error) {
	h, err := r.handle(id)
	if err != nil {
		return nil, err
	}
	return h.snapshot(), nil
}

// List returns summaries for all live jobs, newest first.
func (r *Registry) List() []models.JobSummary {
	r.mu.RLock()
	handles := make([]*jobHandle, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		if h, ok := r.jobs[r.order[i]]; ok {
			handles = append(handles, h)
		}
	}
	r.mu.RUnlock()

	summaries := make([]models.JobSummary, 0, len(handles))
	for _, h := range handles {
		h.mu.RLock()
		summaries = append(summaries, models.JobSummary{
			JobID:        h.job.ID,
			Status:       h.job.Status,
			Usernames:    append([]string(nil), h.job.Usernames...),
			CreatedAt:    h.job.CreatedAt,
			AccountCount: len(h.job.Accounts),
		})
		h.mu.RUnlock()
	}
	return summaries
}

// Cancel marks the job cancelled, signals in-flight workers to stop after
// their current atomic step and freezes all state. Cancelling a terminal
// job returns ErrAlreadyTerminal.
func (r *Registry) Cancel(id string) (*models.JobSnapshot, error) {
	h, err := r.handle(id)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	if h.job.Status.Terminal() {
		status := h.job.Status
		h.mu.Unlock()
		return nil, fmt.Errorf("%w: job %s is %s", ErrAlreadyTerminal, id, status)
	}
	now := time.Now()
	h.job.Status = models.JobCancelled
	h.job.CompletedAt = &now
	h.mu.Unlock()

	h.cancel()
	r.archive(h)
	return h.snapshot(), nil
}

// Pause stops dispatching further work at the next step boundary. State is
// retained and no progress accrues while paused.
func (r *Registry) Pause(id string) (*models.JobSnapshot, error) {
	h, err := r.handle(id)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	switch {
	case h.job.Status.Terminal():
		err = fmt.Errorf("%w: job %s is %s", ErrAlreadyTerminal, id, h.job.Status)
	case h.job.Status == models.JobPaused:
		err = fmt.Errorf("%w: job %s is already paused", ErrInvalidTransition, id)
	default:
		h.job.Status = models.JobPaused
	}
	h.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return h.snapshot(), nil
}

// Resume re-opens the dispatch gate of a paused job.
func (r *Registry) Resume(id string) (*models.JobSnapshot, error) {
	h, err := r.handle(id)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	if h.job.Status != models.JobPaused {
		status := h.job.Status
		h.mu.Unlock()
		return nil, fmt.Errorf("%w: job %s is %s, not paused", ErrInvalidTransition, id, status)
	}
	if h.job.StartedAt != nil {
		h.job.Status = models.JobRunning
	} else {
		h.job.Status = models.JobQueued
	}
	h.mu.Unlock()
	return h.snapshot(), nil
}

// Metadata fetches and returns an account's item list without creating a
// job. Used by the dashboard's preview endpoint.
func (r *Registry) Metadata(ctx context.Context, username string) (*models.AccountMetadata, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	return r.provider.FetchMetadata(ctx, username)
}

// PruneTerminal evicts terminal jobs that completed before the cutoff from
// the in-memory registry. Their history records remain. Returns the number
// of jobs removed.
func (r *Registry) PruneTerminal(olderThan time.Duration) int {
	cutoff := time.Now().Add(-olderThan)

	r.mu.Lock()
	defer r.mu.Unlock()

	var kept []string
	removed := 0
	for _, id := range r.order {
		h := r.jobs[id]
		h.mu.RLock()
		prune := h.job.Status.Terminal() && h.job.CompletedAt != nil && h.job.CompletedAt.Before(cutoff)
		h.mu.RUnlock()
		if prune {
			delete(r.jobs, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
	return removed
}

func (r *Registry) handle(id string) (*jobHandle, error) {
	r.mu.RLock()
	h, ok := r.jobs[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return h, nil
}

// run is the single scheduling goroutine of one job. It drives a bounded
// pool of per-account workers and settles the job once they drain.
func (r *Registry) run(ctx context.Context, h *jobHandle) {
	defer func() {
		// A panic in the scheduler is a job-level failure: record it and
		// leave completed work untouched.
		if rec := recover(); rec != nil {
			log.Printf("ingestion job %s panicked: %v", h.id(), rec)
			h.mu.Lock()
			if !h.job.Status.Terminal() {
				now := time.Now()
				h.job.Status = models.JobFailed
				h.job.CompletedAt = &now
			}
			h.mu.Unlock()
			r.archive(h)
		}
	}()

	if st := h.waitWhilePaused(ctx); st.Terminal() {
		return
	}

	h.mu.Lock()
	if h.job.Status.Terminal() {
		h.mu.Unlock()
		return
	}
	now := time.Now()
	h.job.Status = models.JobRunning
	h.job.StartedAt = &now
	accounts := append([]*models.Account(nil), h.job.Accounts...)
	h.mu.Unlock()

	queue := make(chan *models.Account)
	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for acc := range queue {
				r.processAccount(ctx, h, acc)
			}
		}()
	}

feed:
	for _, acc := range accounts {
		select {
		case <-ctx.Done():
			break feed
		case queue <- acc:
		}
	}
	close(queue)
	wg.Wait()

	r.finish(h)
}

// processAccount runs one account end to end: metadata fetch, filtering,
// then strictly sequential item processing in discovery order.
func (r *Registry) processAccount(ctx context.Context, h *jobHandle, acc *models.Account) {
	if ctx.Err() != nil {
		return
	}
	if st := h.waitWhilePaused(ctx); st.Terminal() {
		return
	}

	h.mutate(func(job *models.Job) {
		now := time.Now()
		acc.StartedAt = &now
	})

	var filter models.ItemFilter
	var settings models.Settings
	h.mu.RLock()
	filter = h.job.Filter
	settings = h.job.Settings
	h.mu.RUnlock()

	meta, err := r.provider.FetchMetadata(ctx, acc.Username)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Printf("metadata fetch failed for @%s: %v", acc.Username, err)
		h.mutate(func(job *models.Job) {
			acc.Error = fmt.Sprintf("metadata fetch failed: %v", err)
			now := time.Now()
			acc.CompletedAt = &now
			RecomputeAccount(acc)
		})
		return
	}

	filtered := ApplyFilter(meta, filter)
	if len(filtered) == 0 {
		// Nothing to process: the account must still settle in a
		// terminal state so it cannot hold the job open.
		h.mutate(func(job *models.Job) {
			acc.TotalItems = len(meta.Items)
			acc.Error = "no items found for this account"
			now := time.Now()
			acc.CompletedAt = &now
			RecomputeAccount(acc)
		})
		return
	}
	ok := h.mutate(func(job *models.Job) {
		acc.TotalItems = len(meta.Items)
		acc.FilteredItems = len(filtered)
		for _, im := range filtered {
			acc.Items = append(acc.Items, &models.Item{
				ID:              im.ID,
				Title:           im.Title,
				DurationSeconds: im.DurationSeconds,
				Status:          models.ItemQueued,
			})
		}
		RecomputeAccount(acc)
	})
	if !ok {
		// Job went terminal before the item list was recorded.
		return
	}

	for i, im := range filtered {
		if ctx.Err() != nil {
			return
		}
		if st := h.waitWhilePaused(ctx); st.Terminal() {
			return
		}

		item := acc.Items[i]

		if filter.SkipNoSpeech && !im.HasSpeech {
			h.advance(acc, item, models.ItemSkipped, 0)
			continue
		}

		err := r.runner.Run(ctx, acc.Username, im, settings, func(step models.ItemStatus, progress float64) {
			// Pause takes effect at step boundaries too, not only
			// between items.
			h.waitWhilePaused(ctx)
			h.advance(acc, item, step, progress)
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			h.mutate(func(job *models.Job) {
				if ferr := FailItem(item, err); ferr != nil {
					log.Printf("could not record failure for item %s: %v", item.ID, ferr)
				}
				RecomputeAccount(acc)
			})
			continue
		}
		h.advance(acc, item, models.ItemComplete, 100)
	}

	h.mutate(func(job *models.Job) {
		now := time.Now()
		acc.CompletedAt = &now
		RecomputeAccount(acc)
	})
}

// finish settles the job after all account workers drained. Failed accounts
// do not block completion; a cancelled job keeps its cancelled status.
func (r *Registry) finish(h *jobHandle) {
	h.mu.Lock()
	if h.job.Status.Terminal() {
		h.mu.Unlock()
		return
	}
	now := time.Now()
	h.job.Status = models.JobComplete
	h.job.CompletedAt = &now
	h.mu.Unlock()

	r.archive(h)
}

// archive records the terminal job into the history store exactly once.
func (r *Registry) archive(h *jobHandle) {
	h.mu.Lock()
	if h.archived || !h.job.Status.Terminal() {
		h.mu.Unlock()
		return
	}
	h.archived = true
	h.mu.Unlock()

	if r.history == nil {
		return
	}
	if err := r.history.RecordJob(h.snapshot()); err != nil {
		log.Printf("failed to archive job %s: %v", h.id(), err)
	}
}

func (h *jobHandle) id() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.job.ID
}

func (h *jobHandle) snapshot() *models.JobSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return BuildSnapshot(h.job, time.Now())
}

// mutate applies f under the job's write lock unless the job is terminal.
// Every worker write goes through here, which is what makes late writes
// after cancellation no-ops.
func (h *jobHandle) mutate(f func(job *models.Job)) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.job.Status.Terminal() {
		return false
	}
	f(h.job)
	return true
}

// advance applies one step transition. An ordering violation is a
// programming error in the collaborator: it is logged and the item is
// forced to failed rather than left inconsistent.
func (h *jobHandle) advance(acc *models.Account, item *models.Item, step models.ItemStatus, progress float64) {
	h.mutate(func(job *models.Job) {
		if err := AdvanceItem(item, step, progress); err != nil {
			log.Printf("invalid step transition for item %s: %v", item.ID, err)
			if ferr := FailItem(item, err); ferr != nil {
				log.Printf("could not fail item %s: %v", item.ID, ferr)
			}
		}
		RecomputeAccount(acc)
	})
}

// waitWhilePaused blocks while the job is paused, re-checking on a short
// interval. It returns the job status that ended the wait.
func (h *jobHandle) waitWhilePaused(ctx context.Context) models.JobStatus {
	for {
		h.mu.RLock()
		st := h.job.Status
		h.mu.RUnlock()
		if st != models.JobPaused {
			return st
		}
		select {
		case <-ctx.Done():
			h.mu.RLock()
			st = h.job.Status
			h.mu.RUnlock()
			return st
		case <-time.After(pausePollInterval):
		}
	}
}

// sortSummaries orders summaries newest first; used when merging live and
// archived rows.
func sortSummaries(s []models.JobSummary) {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].CreatedAt.After(s[j].CreatedAt)
	})
}

// MergeSummaries combines live registry rows with archived history rows,
// preferring the live entry when a job appears in both.
func MergeSummaries(live, archived []models.JobSummary) []models.JobSummary {
	seen := make(map[string]bool, len(live))
	out := append([]models.JobSummary(nil), live...)
	for _, s := range live {
		seen[s.JobID] = true
	}
	for _, s := range archived {
		if !seen[s.JobID] {
			out = append(out, s)
		}
	}
	sortSummaries(out)
	return out
}
