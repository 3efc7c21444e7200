package model

import (
	"time"
)

type EmailJobStatus string

const (
	EmailJobStatusPending EmailJobStatus = "pending"
	EmailJobStatusSending EmailJobStatus = "sending"
	EmailJobStatusSent    EmailJobStatus = "sent"
	EmailJobStatusFailed  EmailJobStatus = "failed"
)

const DefaultMaxAttempts = 3

// EmailJob is one durable unit of outbound mail work. Rows are only
// mutated through the queue repository: claim moves pending to sending,
// recording an outcome moves sending to sent, back to pending, or to
// failed once attempts reach max_attempts. Failed rows are kept for
// audit rather than deleted.
type EmailJob struct {
	ID            int64          `db:"id" json:"id"`
	Recipient     string         `db:"recipient" json:"recipient"`
	RecipientName string         `db:"recipient_name" json:"recipient_name,omitempty"`
	Subject       string         `db:"subject" json:"subject"`
	HTMLBody      string         `db:"html_body" json:"html_body"`
	Status        EmailJobStatus `db:"status" json:"status"`
	Attempts      int            `db:"attempts" json:"attempts"`
	MaxAttempts   int            `db:"max_attempts" json:"max_attempts"`
	LastError     *string        `db:"last_error" json:"last_error,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	LastAttemptAt *time.Time     `db:"last_attempt_at" json:"last_attempt_at,omitempty"`
	SentAt        *time.Time     `db:"sent_at" json:"sent_at,omitempty"`
}

// Terminal reports whether the processor may still touch this job.
func (j *EmailJob) Terminal() bool {
	return j.Status == EmailJobStatusSent || j.Status == EmailJobStatusFailed
}
