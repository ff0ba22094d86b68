package jobs

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// historyRetention is how long archived job rows stay in the database
// before the prune job deletes them.
const historyRetention = 90 * 24 * time.Hour

// RegistryPruneJobID is the id of the task that evicts old terminal jobs
// from the in-memory registry.
const RegistryPruneJobID = "registry-prune"

// RegisterJobs registers all maintenance tasks with the manager.
func RegisterJobs(jm *JobManager) {
	jm.Register(RegistryPruneJobID, "Registry prune", runRegistryPrune)
}

// StartJobs starts the background maintenance scheduler.
func StartJobs(app JobContext) {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	scheduleRegistryPrune(s, app)

	log.Println("Starting maintenance job scheduler...")
	s.StartAsync()
}

func scheduleRegistryPrune(s *gocron.Scheduler, app JobContext) {
	interval := app.Config().Ingest.PruneIntervalMinutes
	if interval == 0 {
		log.Println("Registry prune interval is 0, scheduled pruning is disabled.")
		return
	}

	log.Printf("Scheduling job: '%s' to run every %d minutes.", RegistryPruneJobID, interval)

	_, err := s.Every(interval).Minutes().Do(func() {
		// Submit through the manager so a manual trigger and the
		// schedule never overlap.
		if err := app.JobManager().RunJob(RegistryPruneJobID, app); err != nil {
			log.Printf("Scheduled job '%s' could not start: %v", RegistryPruneJobID, err)
		}
	})
	if err != nil {
		log.Printf("Error scheduling '%s' job: %v", RegistryPruneJobID, err)
	}
}

// runRegistryPrune evicts terminal jobs past the retention window from the
// in-memory registry and trims very old rows from the history table. The
// archived rows remain pollable through the jobs listing until they age out.
func runRegistryPrune(ctx JobContext) {
	retention := time.Duration(ctx.Config().Ingest.RetentionMinutes) * time.Minute
	removed := ctx.Registry().PruneTerminal(retention)
	if removed > 0 {
		log.Printf("Pruned %d terminal jobs from the registry", removed)
	}

	pruned, err := ctx.Store().PruneJobHistory(time.Now().Add(-historyRetention))
	if err != nil {
		log.Printf("Failed to prune job history: %v", err)
		return
	}
	if pruned > 0 {
		log.Printf("Pruned %d archived job rows", pruned)
	}
}
