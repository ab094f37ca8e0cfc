// Package notify delivers coordinator outcomes to interested subscribers:
// in-process subscriptions for badge counters and CLI output, and an optional
// ntfy push sink. The same outcome may be observed twice, once locally and
// once via the cross-context broadcast; deduplication by subject and kind is
// the consumer's responsibility.
package notify

// Kind classifies a sync outcome.
type Kind string

const (
	KindSynced Kind = "synced"
	KindFailed Kind = "failed"
)

// Subject identifies which queue a subject id refers to.
type Subject string

const (
	SubjectReport     Subject = "report"
	SubjectResolution Subject = "resolution"
)

// Event is one coordinator outcome. SubjectID is the issue identifier for
// resolutions and the store-local identifier for reports.
type Event struct {
	Kind      Kind    `json:"kind"`
	Subject   Subject `json:"subject"`
	SubjectID string  `json:"subject_id"`
	Reason    string  `json:"reason,omitempty"`
}
