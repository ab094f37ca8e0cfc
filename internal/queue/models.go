package queue

import "time"

// ResolutionStatus represents the lifecycle of a queued worker resolution.
// The only transition is pending -> synced, and synced records are removed
// shortly after the transition; the value is a transient marker, not a
// long-lived state.
type ResolutionStatus string

const (
	StatusPending ResolutionStatus = "pending"
	StatusSynced  ResolutionStatus = "synced"
)

// Report is a citizen-submitted issue awaiting first delivery. It exists only
// while undelivered and never carries a server-assigned identifier.
type Report struct {
	ID             int64
	CategoryID     string
	Lat            float64
	Lng            float64
	ReporterEmail  string
	Photo          []byte
	Description    string
	IdempotencyKey string
	CreatedAt      time.Time
	ClaimedAt      *time.Time
}

// NewReport carries the fields supplied by the report-submission surface.
type NewReport struct {
	CategoryID    string
	Lat           float64
	Lng           float64
	ReporterEmail string
	Photo         []byte
	Description   string
}

// TaskSnapshot is optional task metadata captured at enqueue time. It feeds
// optimistic UI only and is never treated as authoritative.
type TaskSnapshot struct {
	CategoryName string
	Priority     string
}

// Resolution is a worker's photographic proof of task completion awaiting
// delivery to the server-tracked issue it references.
type Resolution struct {
	ID             int64
	IssueID        string
	Photo          []byte
	Status         ResolutionStatus
	Snapshot       TaskSnapshot
	IdempotencyKey string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ClaimedAt      *time.Time
}

// HealthSummary describes aggregated queue counts.
type HealthSummary struct {
	Reports            int
	PendingResolutions int
	SyncedResolutions  int
	Total              int
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TablesPresent    []string
	MissingTables    []string
	IntegrityCheck   bool
	TotalRecords     int
	Error            string
}
