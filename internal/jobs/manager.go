package jobs

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/tokscribe/tokscribe/internal/config"
	"github.com/tokscribe/tokscribe/internal/ingest"
	"github.com/tokscribe/tokscribe/internal/store"
)

// JobContext provides the dependencies a maintenance task needs to run.
// The core.App struct implements this interface.
type JobContext interface {
	Config() *config.Config
	Registry() *ingest.Registry
	Store() *store.Store
	JobManager() *JobManager
}

type jobTask func(ctx JobContext)

// JobStatus describes one registered maintenance task for the admin
// endpoint.
type JobStatus struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"` // "idle", "running", "success", "failed"
	Message   string    `json:"message"`
	StartTime time.Time `json:"start_time,omitempty"`
	EndTime   time.Time `json:"end_time,omitempty"`
}

// JobManager serializes maintenance tasks: only one runs at a time so a
// manual trigger cannot race a scheduled run.
type JobManager struct {
	mu      sync.Mutex
	jobs    map[string]jobTask
	status  map[string]*JobStatus
	order   []string
	running bool
}

func NewManager() *JobManager {
	return &JobManager{
		jobs:   make(map[string]jobTask),
		status: make(map[string]*JobStatus),
	}
}

func (jm *JobManager) Register(id, name string, task jobTask) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	jm.jobs[id] = task
	jm.status[id] = &JobStatus{ID: id, Name: name, Status: "idle"}
	jm.order = append(jm.order, id)
}

// RunJob starts the named task in the background. It refuses to start while
// another task is still running.
func (jm *JobManager) RunJob(id string, ctx JobContext) error {
	jm.mu.Lock()
	if jm.running {
		jm.mu.Unlock()
		return fmt.Errorf("a maintenance job is already running")
	}

	task, ok := jm.jobs[id]
	if !ok {
		jm.mu.Unlock()
		return fmt.Errorf("job '%s' not found", id)
	}

	jm.running = true
	status := jm.status[id]
	status.Status = "running"
	status.StartTime = time.Now()
	status.Message = "Job started..."
	jm.mu.Unlock()

	log.Printf("Starting maintenance job: %s", id)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Maintenance job '%s' panicked: %v", id, r)
				status.Status = "failed"
				status.Message = fmt.Sprintf("Job panicked: %v", r)
			}

			jm.mu.Lock()
			status.EndTime = time.Now()
			if status.Status == "running" {
				status.Status = "success"
				status.Message = "Job completed successfully."
			}
			jm.running = false
			jm.mu.Unlock()
			log.Printf("Finished maintenance job: %s", id)
		}()

		task(ctx)
	}()
	return nil
}

// GetStatus returns the status of every registered task in registration
// order.
func (jm *JobManager) GetStatus() []*JobStatus {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	statuses := make([]*JobStatus, 0, len(jm.order))
	for _, id := range jm.order {
		copied := *jm.status[id]
		statuses = append(statuses, &copied)
	}
	return statuses
}
