// The data access layer for the job history archive. The in-memory registry
// stays authoritative while a job lives; a row lands here exactly once when
// the job reaches a terminal state.

package store

import (
	"database/sql"
	"strings"
	"time"

	"github.com/tokscribe/tokscribe/internal/models"
)

// Store provides all functions to interact with the database.
type Store struct {
	db *sql.DB
}

// New creates a new Store instance.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// RecordJob persists the terminal summary of a job. Re-recording the same
// job id overwrites the previous row, so retries are harmless.
func (s *Store) RecordJob(snap *models.JobSnapshot) error {
	var processed, skipped, failed int
	for _, acc := range snap.Accounts {
		processed += acc.ProcessedItems
		skipped += acc.SkippedItems
		failed += acc.FailedItems
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO job_history
			(job_id, status, usernames, account_count, overall_progress,
			 items_processed, items_skipped, items_failed, elapsed_seconds,
			 created_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.JobID, string(snap.Status), strings.Join(snap.Usernames, ","),
		len(snap.Accounts), snap.OverallProgress,
		processed, skipped, failed, snap.ElapsedSeconds,
		snap.CreatedAt, snap.StartedAt, snap.CompletedAt,
	)
	return err
}

// ListJobHistory returns archived job summaries, newest first.
func (s *Store) ListJobHistory(limit int) ([]models.JobSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`
		SELECT job_id, status, usernames, account_count, created_at
		FROM job_history
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []models.JobSummary
	for rows.Next() {
		var (
			summary   models.JobSummary
			status    string
			usernames string
			createdAt time.Time
		)
		if err := rows.Scan(&summary.JobID, &status, &usernames, &summary.AccountCount, &createdAt); err != nil {
			return nil, err
		}
		summary.Status = models.JobStatus(status)
		summary.CreatedAt = createdAt
		summary.Archived = true
		if usernames != "" {
			summary.Usernames = strings.Split(usernames, ",")
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

// PruneJobHistory deletes archived rows older than the cutoff. Returns the
// number of rows removed.
func (s *Store) PruneJobHistory(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM job_history WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
