package ipc

import "time"

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents daemon runtime information.
type StatusResponse struct {
	Running            bool      `json:"running"`
	Online             bool      `json:"online"`
	AttachedClients    int       `json:"attached_clients"`
	PendingReports     int       `json:"pending_reports"`
	PendingResolutions int       `json:"pending_resolutions"`
	LastSync           time.Time `json:"last_sync"`
	LastSyncError      string    `json:"last_sync_error"`
	QueueDBPath        string    `json:"queue_db_path"`
	LockPath           string    `json:"lock_path"`
	PID                int       `json:"pid"`
}

// StopRequest shuts the daemon down.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// SyncNowRequest asks for an immediate flush pass.
type SyncNowRequest struct{}

// SyncNowResponse reports the outcome of a synchronous flush pass. Ran is
// false when the trigger was absorbed by a pass already in flight or the
// daemon believes it is offline.
type SyncNowResponse struct {
	Ran       bool `json:"ran"`
	Delivered int  `json:"delivered"`
	Rejected  int  `json:"rejected"`
	Pending   int  `json:"pending"`
}

// ReportAddRequest queues a citizen report.
type ReportAddRequest struct {
	CategoryID    string  `json:"category_id"`
	Lat           float64 `json:"lat"`
	Lng           float64 `json:"lng"`
	ReporterEmail string  `json:"reporter_email"`
	Photo         []byte  `json:"photo"`
	Description   string  `json:"description"`
}

// ReportAddResponse returns the queued report's local identity.
type ReportAddResponse struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// ResolutionAddRequest queues a worker resolution.
type ResolutionAddRequest struct {
	IssueID      string `json:"issue_id"`
	Photo        []byte `json:"photo"`
	CategoryName string `json:"category_name"`
	Priority     string `json:"priority"`
}

// ResolutionAddResponse returns the queued resolution's local identity.
// AlreadyPending is set when the issue had another resolution queued before
// this one.
type ResolutionAddResponse struct {
	ID             int64     `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	AlreadyPending bool      `json:"already_pending"`
}

// Report is the wire form of a queued citizen report. The photo itself never
// crosses the socket, only its size.
type Report struct {
	ID            int64     `json:"id"`
	CategoryID    string    `json:"category_id"`
	Lat           float64   `json:"lat"`
	Lng           float64   `json:"lng"`
	ReporterEmail string    `json:"reporter_email"`
	Description   string    `json:"description"`
	PhotoBytes    int       `json:"photo_bytes"`
	CreatedAt     time.Time `json:"created_at"`
	Claimed       bool      `json:"claimed"`
}

// Resolution is the wire form of a queued worker resolution.
type Resolution struct {
	ID           int64     `json:"id"`
	IssueID      string    `json:"issue_id"`
	Status       string    `json:"status"`
	CategoryName string    `json:"category_name"`
	Priority     string    `json:"priority"`
	PhotoBytes   int       `json:"photo_bytes"`
	CreatedAt    time.Time `json:"created_at"`
	Claimed      bool      `json:"claimed"`
}

// QueueListRequest fetches both queues.
type QueueListRequest struct{}

// QueueListResponse contains queued records.
type QueueListResponse struct {
	Reports     []Report     `json:"reports"`
	Resolutions []Resolution `json:"resolutions"`
}

// QueueRemoveRequest drops one record without submitting it.
type QueueRemoveRequest struct {
	Kind string `json:"kind"`
	ID   int64  `json:"id"`
}

// QueueRemoveResponse reports whether the record existed.
type QueueRemoveResponse struct {
	Removed bool `json:"removed"`
}

// QueueClearRequest removes every queued record.
type QueueClearRequest struct{}

// QueueClearResponse reports number of removed records.
type QueueClearResponse struct {
	Removed int64 `json:"removed"`
}

// QueueHealthRequest fetches aggregate diagnostics.
type QueueHealthRequest struct{}

// QueueHealthResponse reports queue health information.
type QueueHealthResponse struct {
	Reports            int `json:"reports"`
	PendingResolutions int `json:"pending_resolutions"`
	SyncedResolutions  int `json:"synced_resolutions"`
	Total              int `json:"total"`
}

// DatabaseHealthRequest fetches detailed database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse reports database health information.
type DatabaseHealthResponse struct {
	DBPath           string   `json:"db_path"`
	DatabaseExists   bool     `json:"database_exists"`
	DatabaseReadable bool     `json:"database_readable"`
	TablesPresent    []string `json:"tables_present"`
	MissingTables    []string `json:"missing_tables"`
	IntegrityCheck   bool     `json:"integrity_check"`
	TotalRecords     int      `json:"total_records"`
	Error            string   `json:"error"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
