// Defines the core data structures for ingestion jobs: the job/account/item
// hierarchy, their status enums, filter and settings payloads, and the
// snapshot DTOs served to polling observers.

package models

import "time"

// ItemStatus is the lifecycle state of a single content item. The
// in-progress values double as the pipeline step names.
type ItemStatus string

const (
	ItemQueued           ItemStatus = "queued"
	ItemFetchingMetadata ItemStatus = "fetching_metadata"
	ItemDownloading      ItemStatus = "downloading"
	ItemTranscribing     ItemStatus = "transcribing"
	ItemExtractingTopics ItemStatus = "extracting_topics"
	ItemEmbedding        ItemStatus = "embedding"
	ItemComplete         ItemStatus = "complete"
	ItemSkipped          ItemStatus = "skipped"
	ItemFailed           ItemStatus = "failed"
)

// Terminal reports whether no further transitions are allowed for the item.
func (s ItemStatus) Terminal() bool {
	return s == ItemComplete || s == ItemSkipped || s == ItemFailed
}

// AccountStatus is the coarse, derived state of one account within a job.
type AccountStatus string

const (
	AccountQueued   AccountStatus = "queued"
	AccountRunning  AccountStatus = "running"
	AccountComplete AccountStatus = "complete"
	AccountFailed   AccountStatus = "failed"
)

// Terminal reports whether the account has finished, successfully or not.
func (s AccountStatus) Terminal() bool {
	return s == AccountComplete || s == AccountFailed
}

// JobStatus is the lifecycle state of an ingestion job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobPaused    JobStatus = "paused"
	JobComplete  JobStatus = "complete"
	JobCancelled JobStatus = "cancelled"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether the job has finished. No job, account or item
// mutation is permitted once the job is terminal.
func (s JobStatus) Terminal() bool {
	return s == JobComplete || s == JobCancelled || s == JobFailed
}

// Item is one unit of content (e.g. a video) owned by exactly one account.
type Item struct {
	ID              string
	Title           string
	DurationSeconds float64
	Status          ItemStatus
	// StepProgress is 0-100 and only meaningful while Status is an
	// in-progress step. It resets to zero on every step change.
	StepProgress float64
	Error        string
}

// Account is one ingestion target within a job. Its counters and status are
// derived from its items; the items slice is kept in discovery order.
type Account struct {
	Username       string
	Status         AccountStatus
	TotalItems     int
	FilteredItems  int
	ProcessedItems int
	SkippedItems   int
	FailedItems    int
	Items          []*Item
	Error          string
	StartedAt      *time.Time
	CompletedAt    *time.Time
}

// Job is one ingestion run spanning one or more accounts. It is owned
// exclusively by the job registry and dies with it.
type Job struct {
	ID          string
	Usernames   []string
	Filter      ItemFilter
	Settings    Settings
	Status      JobStatus
	Accounts    []*Account
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// ItemFilter narrows an account's item list before processing starts.
// All fields are optional; the zero value filters nothing.
type ItemFilter struct {
	// LastN keeps only the N most recent items.
	LastN int `json:"last_n,omitempty"`
	// TopPercent keeps the top X% of items by view count, in (0,100].
	TopPercent float64 `json:"top_percent,omitempty"`
	DateFrom   *time.Time `json:"date_from,omitempty"`
	DateTo     *time.Time `json:"date_to,omitempty"`
	// HistoryStart/HistoryEnd select a window of the account's history as
	// fractions in [0,1], 0 being the oldest item and 1 the newest.
	HistoryStart *float64 `json:"history_start,omitempty"`
	HistoryEnd   *float64 `json:"history_end,omitempty"`
	// OnlyWithSpeech drops speechless items from the filtered list
	// entirely; SkipNoSpeech keeps them listed but marks them skipped
	// before processing begins.
	OnlyWithSpeech   bool     `json:"only_with_speech,omitempty"`
	SkipNoSpeech     bool     `json:"skip_no_speech,omitempty"`
	RequiredTags     []string `json:"required_tags,omitempty"`
	RequiredCategory string   `json:"required_category,omitempty"`
}

// Settings controls ingestion behavior for a job.
type Settings struct {
	WhisperMode        string `json:"whisper_mode,omitempty"` // fast, balanced, accurate, ultra
	SkipExisting       bool   `json:"skip_existing,omitempty"`
	MaxDurationMinutes int    `json:"max_duration_minutes,omitempty"`
}

// ItemMetadata is the provider-side description of one item, used for
// filtering before any processing starts.
type ItemMetadata struct {
	ID              string    `json:"item_id"`
	Title           string    `json:"title"`
	DurationSeconds float64   `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
	ViewCount       int64     `json:"view_count"`
	HasSpeech       bool      `json:"has_speech"`
	Tags            []string  `json:"tags,omitempty"`
}

// AccountMetadata is what a metadata provider returns for one username.
type AccountMetadata struct {
	Username string         `json:"username"`
	Category string         `json:"category,omitempty"`
	Items    []ItemMetadata `json:"items"`
}

// ProviderInfo identifies a registered metadata provider.
type ProviderInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ItemSnapshot is the point-in-time view of one item.
type ItemSnapshot struct {
	ID              string     `json:"item_id"`
	Title           string     `json:"title"`
	DurationSeconds float64    `json:"duration_seconds"`
	Status          ItemStatus `json:"status"`
	StepProgress    float64    `json:"step_progress"`
	Error           string     `json:"error,omitempty"`
}

// AccountCounters groups the per-account item counters in the shape the
// dashboard consumes.
type AccountCounters struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// AccountSnapshot is the point-in-time view of one account.
type AccountSnapshot struct {
	Username        string          `json:"username"`
	Status          AccountStatus   `json:"status"`
	OverallProgress int             `json:"overall_progress"`
	TotalItems      int             `json:"total_items"`
	FilteredItems   int             `json:"filtered_items"`
	ProcessedItems  int             `json:"processed_items"`
	SkippedItems    int             `json:"skipped_items"`
	FailedItems     int             `json:"failed_items"`
	Counters        AccountCounters `json:"counters"`
	CurrentItem     *ItemSnapshot   `json:"current_item,omitempty"`
	Items           []ItemSnapshot  `json:"items"`
	Error           string          `json:"error,omitempty"`
}

// JobSnapshot is the full job view served to polling observers. Derived
// fields (progress, elapsed, ETA) are recomputed on every snapshot, never
// cached between polls.
type JobSnapshot struct {
	JobID           string            `json:"job_id"`
	Status          JobStatus         `json:"status"`
	OverallProgress int               `json:"overall_progress"`
	EtaSeconds      *int64            `json:"eta_seconds"`
	ElapsedSeconds  float64           `json:"elapsed_seconds"`
	Usernames       []string          `json:"usernames"`
	CreatedAt       time.Time         `json:"created_at"`
	StartedAt       *time.Time        `json:"started_at,omitempty"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
	Accounts        []AccountSnapshot `json:"accounts"`
}

// JobSummary is the compact row used by the job listing endpoint. Archived
// rows come from the history store after a job has been pruned from memory.
type JobSummary struct {
	JobID        string    `json:"job_id"`
	Status       JobStatus `json:"status"`
	Usernames    []string  `json:"usernames"`
	CreatedAt    time.Time `json:"created_at"`
	AccountCount int       `json:"account_count"`
	Archived     bool      `json:"archived,omitempty"`
}
