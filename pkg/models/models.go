package models

import (
	"encoding/json"
	"time"
)

// Application statuses.
const (
	StatusQueued    = "queued"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
)

// Application is a persisted join application. PayloadJSON holds the
// normalized payload exactly as it was accepted.
type Application struct {
	ID            string          `json:"id" db:"id"`
	Email         string          `json:"email" db:"email"`
	PayloadJSON   json.RawMessage `json:"payload" db:"payload_json"`
	SchemaVersion string          `json:"schema_version" db:"schema_version"`
	Status        string          `json:"status" db:"status"`
	ScreeningJSON json.RawMessage `json:"screening,omitempty" db:"screening_json"`
	ClientIP      string          `json:"client_ip,omitempty" db:"client_ip"`
	LastError     string          `json:"last_error,omitempty" db:"last_error"`
	Created       int64           `json:"created" db:"created"`
	Updated       int64           `json:"updated" db:"updated"`
}

type WaitlistEntry struct {
	ID      int64  `json:"id" db:"id"`
	Email   string `json:"email" db:"email"`
	Created int64  `json:"created" db:"created"`
}

type Schema struct {
	ID          int64  `json:"id" db:"id"`
	Version     string `json:"version" db:"version"`
	Description string `json:"description,omitempty" db:"description"`
	SchemaJSON  string `json:"schema_json" db:"schema_json"`
	Created     int64  `json:"created" db:"created"`
	Updated     int64  `json:"updated" db:"updated"`
}

type Template struct {
	ID          int64   `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Version     string  `json:"version" db:"version"`
	TemplateTxt string  `json:"template_text" db:"template_text"`
	SchemaVer   *string `json:"schema_version,omitempty" db:"schema_version"`
	Metadata    *string `json:"metadata,omitempty" db:"metadata"`
	Created     int64   `json:"created" db:"created"`
	Updated     int64   `json:"updated" db:"updated"`
}

// Job statuses.
const (
	JobQueued  = "queued"
	JobRunning = "running"
	JobRetry   = "retry"
	JobDone    = "done"
	JobFailed  = "failed"
)

type BackgroundJob struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Status      string          `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	Priority    int             `json:"priority"`
	ScheduledAt time.Time       `json:"scheduled_at"`
	NextTryAt   *time.Time      `json:"next_try_at,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	Created     time.Time       `json:"created"`
	Updated     time.Time       `json:"updated"`
}

type DeadLetterJob struct {
	ID        int64           `json:"id"`
	JobID     int64           `json:"job_id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	LastError string          `json:"last_error,omitempty"`
	FailedAt  time.Time       `json:"failed_at"`
}
