package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lifelink/donor-api/internal/model"
	"github.com/lifelink/donor-api/internal/repository"
)

type donorRepository struct {
	BaseRepository
}

func NewDonorRepository(base BaseRepository) repository.DonorRepository {
	return &donorRepository{base}
}

func (r *donorRepository) Create(ctx context.Context, donor *model.Donor) error {
	if donor == nil {
		return fmt.Errorf("donor cannot be nil")
	}

	query := `
		INSERT INTO donors (
			id, name, email, email_verified, phone, blood_type,
			reference_code, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	donor.ID = uuid.New()
	donor.CreatedAt = time.Now()
	donor.UpdatedAt = time.Now()
	if donor.Status == "" {
		donor.Status = model.DonorStatusPending
	}

	_, err := r.db.ExecContext(ctx, query,
		donor.ID,
		donor.Name,
		donor.Email,
		donor.EmailVerified,
		donor.Phone,
		donor.BloodType,
		donor.ReferenceCode,
		donor.Status,
		donor.CreatedAt,
		donor.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create donor: %w", err)
	}
	return nil
}

func (r *donorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Donor, error) {
	var donor model.Donor
	err := r.db.GetContext(ctx, &donor, `SELECT * FROM donors WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("donor %s not found", id)
		}
		return nil, fmt.Errorf("failed to get donor: %w", err)
	}
	return &donor, nil
}

func (r *donorRepository) GetByEmail(ctx context.Context, email string) (*model.Donor, error) {
	var donor model.Donor
	err := r.db.GetContext(ctx, &donor, `SELECT * FROM donors WHERE email = $1`, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get donor by email: %w", err)
	}
	return &donor, nil
}

func (r *donorRepository) List(ctx context.Context, filters *model.DonorFilters) ([]*model.Donor, error) {
	query := `SELECT * FROM donors WHERE 1=1`
	var args []interface{}

	if filters != nil {
		if filters.Status != "" {
			args = append(args, filters.Status)
			query += fmt.Sprintf(" AND status = $%d", len(args))
		}
		if filters.BloodType != "" {
			args = append(args, filters.BloodType)
			query += fmt.Sprintf(" AND blood_type = $%d", len(args))
		}
	}

	query += " ORDER BY created_at DESC"

	limit, offset := 50, 0
	if filters != nil && filters.Limit > 0 {
		limit = filters.Limit
	}
	if filters != nil && filters.Offset > 0 {
		offset = filters.Offset
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	var donors []*model.Donor
	if err := r.db.SelectContext(ctx, &donors, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list donors: %w", err)
	}
	return donors, nil
}

func (r *donorRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.DonorStatus) error {
	query := `UPDATE donors SET status = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update donor status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("donor %s not found", id)
	}
	return nil
}

func (r *donorRepository) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE donors SET email_verified = TRUE, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}
	return nil
}

// RecordDonation opens a new eligibility window; a reminder already
// sent for a previous donation no longer blocks the next one.
func (r *donorRepository) RecordDonation(ctx context.Context, id uuid.UUID, date time.Time) error {
	query := `
		UPDATE donors
		SET last_donation_date = $1, status = $2, updated_at = NOW()
		WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, date, model.DonorStatusServed, id)
	if err != nil {
		return fmt.Errorf("failed to record donation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("donor %s not found", id)
	}
	return nil
}

// ListReminderDue selects donors whose last donation is on or before
// targetDate and who have not yet received a reminder for it. The check
// is re-derived from durable state on every sweep.
func (r *donorRepository) ListReminderDue(ctx context.Context, targetDate time.Time) ([]*model.Donor, error) {
	query := `
		SELECT * FROM donors
		WHERE status = $1
		AND email_verified = TRUE
		AND email <> ''
		AND last_donation_date IS NOT NULL
		AND last_donation_date <= $2
		AND (last_reminder_sent IS NULL OR last_reminder_sent < last_donation_date)
		ORDER BY last_donation_date ASC
	`

	var donors []*model.Donor
	err := r.db.SelectContext(ctx, &donors, query, model.DonorStatusServed, targetDate)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminder-due donors: %w", err)
	}
	return donors, nil
}

func (r *donorRepository) MarkReminderSent(ctx context.Context, id uuid.UUID, sentOn time.Time) error {
	query := `UPDATE donors SET last_reminder_sent = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, sentOn, id)
	if err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	return nil
}
