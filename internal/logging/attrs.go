package logging

import (
	"log/slog"
	"time"
)

type Attr = slog.Attr

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// Queue identifier attributes. Constructors keep the keys consistent across
// the store, the coordinators, and the daemon.

func ReportID(id int64) Attr { return slog.Int64("report_id", id) }

func ResolutionID(id int64) Attr { return slog.Int64("resolution_id", id) }

func IssueID(id string) Attr { return slog.String("issue_id", id) }
