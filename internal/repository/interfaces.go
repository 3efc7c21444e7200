package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lifelink/donor-api/internal/model"
)

// All repository interfaces in one file
type (
	// EmailQueueRepository is the durable queue of outbound mail jobs.
	// ClaimBatch must be exclusive: two concurrent processors never
	// receive the same job.
	EmailQueueRepository interface {
		Enqueue(ctx context.Context, recipient, recipientName, subject, htmlBody string, maxAttempts int) (int64, error)
		ClaimBatch(ctx context.Context, limit int) ([]*model.EmailJob, error)
		RecordOutcome(ctx context.Context, id int64, success bool, errMsg *string) error
		Release(ctx context.Context, id int64) error
		ReclaimStale(ctx context.Context, grace time.Duration) (int64, error)
		Get(ctx context.Context, id int64) (*model.EmailJob, error)
		List(ctx context.Context, status string, limit, offset int) ([]*model.EmailJob, error)
		CountPending(ctx context.Context) (int64, error)
		RetryFailed(ctx context.Context, id int64) error
	}

	// DonorRepository owns donor rows including the reminder state
	// columns last_donation_date and last_reminder_sent.
	DonorRepository interface {
		Create(ctx context.Context, donor *model.Donor) error
		Get(ctx context.Context, id uuid.UUID) (*model.Donor, error)
		GetByEmail(ctx context.Context, email string) (*model.Donor, error)
		List(ctx context.Context, filters *model.DonorFilters) ([]*model.Donor, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.DonorStatus) error
		MarkEmailVerified(ctx context.Context, id uuid.UUID) error
		RecordDonation(ctx context.Context, id uuid.UUID, date time.Time) error
		ListReminderDue(ctx context.Context, targetDate time.Time) ([]*model.Donor, error)
		MarkReminderSent(ctx context.Context, id uuid.UUID, sentOn time.Time) error
	}

	AuditRepository interface {
		Create(ctx context.Context, log *model.AuditLog) error
		List(ctx context.Context, filters *model.AuditFilters) ([]*model.AuditLog, error)
		Cleanup(ctx context.Context, before time.Time) (int64, error)
	}

	PageRepository interface {
		Get(ctx context.Context, slug string) (*model.Page, error)
		Upsert(ctx context.Context, page *model.Page) error
		List(ctx context.Context) ([]*model.Page, error)
	}

	AdminRepository interface {
		GetByEmail(ctx context.Context, email string) (*model.AdminUser, error)
		SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expires time.Time) error
		UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	}
)
