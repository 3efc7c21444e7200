package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/lifelink/donor-api/internal/model"
	"github.com/lifelink/donor-api/internal/repository"
)

type emailQueueRepository struct {
	BaseRepository
}

func NewEmailQueueRepository(base BaseRepository) repository.EmailQueueRepository {
	return &emailQueueRepository{base}
}

func (r *emailQueueRepository) Enqueue(ctx context.Context, recipient, recipientName, subject, htmlBody string, maxAttempts int) (int64, error) {
	if recipient == "" {
		return 0, fmt.Errorf("recipient cannot be empty")
	}
	if maxAttempts <= 0 {
		maxAttempts = model.DefaultMaxAttempts
	}

	query := `
		INSERT INTO email_jobs (
			recipient, recipient_name, subject, html_body, status, attempts, max_attempts, created_at
		) VALUES (
			$1, $2, $3, $4, $5, 0, $6, NOW()
		)
		RETURNING id
	`

	var id int64
	err := r.db.GetContext(ctx, &id, query,
		recipient,
		recipientName,
		subject,
		htmlBody,
		model.EmailJobStatusPending,
		maxAttempts,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue email job: %w", err)
	}
	return id, nil
}

// ClaimBatch atomically moves up to limit pending jobs to sending and
// returns them oldest first. FOR UPDATE SKIP LOCKED keeps concurrent
// processor runs from claiming the same row.
func (r *emailQueueRepository) ClaimBatch(ctx context.Context, limit int) ([]*model.EmailJob, error) {
	query := `
		UPDATE email_jobs
		SET status = $1, last_attempt_at = NOW()
		WHERE id IN (
			SELECT id FROM email_jobs
			WHERE status = $2
			ORDER BY created_at ASC
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, recipient, recipient_name, subject, html_body, status,
			attempts, max_attempts, last_error, created_at, last_attempt_at, sent_at
	`

	var jobs []*model.EmailJob
	err := r.db.SelectContext(ctx, &jobs, query,
		model.EmailJobStatusSending, model.EmailJobStatusPending, limit)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim email jobs: %w", err)
	}
	sortByCreated(jobs)
	return jobs, nil
}

// UPDATE ... RETURNING does not preserve the subquery's ORDER BY, so the
// claimed batch is sorted here before it reaches the processor.
func sortByCreated(jobs []*model.EmailJob) {
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
}

// Release returns a claimed job to pending without charging a delivery
// attempt. The processor uses it for jobs it claimed but never handed
// to a provider, e.g. when a run is cut short by shutdown.
func (r *emailQueueRepository) Release(ctx context.Context, id int64) error {
	query := `
		UPDATE email_jobs
		SET status = $1
		WHERE id = $2 AND status = $3
	`
	_, err := r.db.ExecContext(ctx, query,
		model.EmailJobStatusPending, id, model.EmailJobStatusSending)
	if err != nil {
		return fmt.Errorf("failed to release email job: %w", err)
	}
	return nil
}

// RecordOutcome finalizes one delivery attempt. Success marks the job
// sent; failure increments attempts and returns the job to pending until
// attempts reach max_attempts, at which point it is terminally failed.
func (r *emailQueueRepository) RecordOutcome(ctx context.Context, id int64, success bool, errMsg *string) error {
	if success {
		query := `
			UPDATE email_jobs
			SET status = $1, sent_at = NOW(), attempts = attempts + 1, last_error = NULL
			WHERE id = $2 AND status = $3
		`
		_, err := r.db.ExecContext(ctx, query, model.EmailJobStatusSent, id, model.EmailJobStatusSending)
		if err != nil {
			return fmt.Errorf("failed to record sent outcome: %w", err)
		}
		return nil
	}

	query := `
		UPDATE email_jobs
		SET attempts = attempts + 1,
			last_error = $1,
			status = CASE WHEN attempts + 1 >= max_attempts THEN $2::text ELSE $3::text END
		WHERE id = $4 AND status = $5
	`
	_, err := r.db.ExecContext(ctx, query,
		errMsg,
		model.EmailJobStatusFailed,
		model.EmailJobStatusPending,
		id,
		model.EmailJobStatusSending,
	)
	if err != nil {
		return fmt.Errorf("failed to record failed outcome: %w", err)
	}
	return nil
}

// ReclaimStale returns jobs orphaned in sending (e.g. by a crash mid
// run) to pending once they are older than the grace period.
func (r *emailQueueRepository) ReclaimStale(ctx context.Context, grace time.Duration) (int64, error) {
	query := `
		UPDATE email_jobs
		SET status = $1
		WHERE status = $2 AND last_attempt_at < $3
	`
	result, err := r.db.ExecContext(ctx, query,
		model.EmailJobStatusPending,
		model.EmailJobStatusSending,
		time.Now().Add(-grace),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reclaim stale jobs: %w", err)
	}
	return result.RowsAffected()
}

func (r *emailQueueRepository) Get(ctx context.Context, id int64) (*model.EmailJob, error) {
	query := `SELECT * FROM email_jobs WHERE id = $1`

	var job model.EmailJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("email job %d not found", id)
		}
		return nil, fmt.Errorf("failed to get email job: %w", err)
	}
	return &job, nil
}

func (r *emailQueueRepository) List(ctx context.Context, status string, limit, offset int) ([]*model.EmailJob, error) {
	query := `SELECT * FROM email_jobs WHERE 1=1`
	var args []interface{}

	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	query += " ORDER BY created_at DESC"
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	var jobs []*model.EmailJob
	if err := r.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list email jobs: %w", err)
	}
	return jobs, nil
}

func (r *emailQueueRepository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM email_jobs WHERE status = $1`, model.EmailJobStatusPending)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending jobs: %w", err)
	}
	return count, nil
}

// RetryFailed is an admin action: it puts a terminally failed job back
// on the queue with a fresh attempt budget.
func (r *emailQueueRepository) RetryFailed(ctx context.Context, id int64) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			UPDATE email_jobs
			SET status = $1, attempts = 0, last_error = NULL
			WHERE id = $2 AND status = $3
		`
		result, err := tx.ExecContext(ctx, query,
			model.EmailJobStatusPending, id, model.EmailJobStatusFailed)
		if err != nil {
			return fmt.Errorf("failed to retry email job: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("email job %d is not in failed state", id)
		}
		return nil
	})
}
