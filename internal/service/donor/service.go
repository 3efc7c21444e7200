package donor

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/lifelink/donor-api/internal/email"
	"github.com/lifelink/donor-api/internal/model"
	"github.com/lifelink/donor-api/internal/repository"
	"github.com/lifelink/donor-api/internal/service/audit"
	"github.com/lifelink/donor-api/pkg/logger"
)

type Service interface {
	Register(ctx context.Context, req *model.RegisterDonorRequest) (*model.Donor, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Donor, error)
	List(ctx context.Context, filters *model.DonorFilters) ([]*model.Donor, error)
	UpdateStatus(ctx context.Context, actor string, id uuid.UUID, status model.DonorStatus) error
	RecordDonation(ctx context.Context, actor string, id uuid.UUID, date time.Time) error
	VerifyEmail(ctx context.Context, id uuid.UUID) error
}

// Mailer is the narrow slice of the mail service the donor flow needs.
type Mailer interface {
	SendTransactional(ctx context.Context, to, subject, htmlBody, toName string) bool
	Enqueue(ctx context.Context, to, toName, subject, htmlBody string) (int64, error)
}

type service struct {
	repo    repository.DonorRepository
	mailer  Mailer
	auditor audit.Recorder
	logger  *logger.Logger
}

func NewService(repo repository.DonorRepository, mailer Mailer, auditor audit.Recorder, logger *logger.Logger) Service {
	return &service{
		repo:    repo,
		mailer:  mailer,
		auditor: auditor,
		logger:  logger,
	}
}

// Register creates a donor record and sends the confirmation email
// synchronously. The registration succeeds even if the confirmation
// cannot be delivered; the send outcome is only logged.
func (s *service) Register(ctx context.Context, req *model.RegisterDonorRequest) (*model.Donor, error) {
	existing, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing donor: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("a donor with this email already exists")
	}

	d := &model.Donor{
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		BloodType:     req.BloodType,
		ReferenceCode: generateReferenceCode(),
		Status:        model.DonorStatusPending,
	}

	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}

	if err := s.auditor.Record(ctx, d.Email, model.AuditActionCreate, model.AuditEntityDonor, d.ID.String(), d); err != nil {
		s.logger.Error(err, "failed to record donor registration audit", "donor_id", d.ID.String())
	}

	body, err := email.RenderConfirmation(d.Name, d.ReferenceCode, d.BloodType)
	if err != nil {
		s.logger.Error(err, "failed to render confirmation email", "donor_id", d.ID.String())
		return d, nil
	}
	if ok := s.mailer.SendTransactional(ctx, d.Email, "Thank you for registering as a donor", body, d.Name); !ok {
		s.logger.Warn(nil, "confirmation email not delivered", "donor_id", d.ID.String())
	}

	return d, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*model.Donor, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) List(ctx context.Context, filters *model.DonorFilters) ([]*model.Donor, error) {
	return s.repo.List(ctx, filters)
}

func (s *service) UpdateStatus(ctx context.Context, actor string, id uuid.UUID, status model.DonorStatus) error {
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return err
	}

	// Approval notifications go through the durable queue so a provider
	// outage cannot lose them.
	if status == model.DonorStatusApproved {
		if d, err := s.repo.Get(ctx, id); err == nil {
			if body, err := email.RenderApproval(d.Name, d.ReferenceCode); err == nil {
				if _, err := s.mailer.Enqueue(ctx, d.Email, d.Name, "Your donor application was approved", body); err != nil {
					s.logger.Error(err, "failed to enqueue approval email", "donor_id", id.String())
				}
			}
		}
	}

	return s.auditor.Record(ctx, actor, model.AuditActionUpdate, model.AuditEntityDonor, id.String(),
		map[string]interface{}{"status": status})
}

func (s *service) RecordDonation(ctx context.Context, actor string, id uuid.UUID, date time.Time) error {
	if date.After(time.Now()) {
		return fmt.Errorf("donation date cannot be in the future")
	}
	if err := s.repo.RecordDonation(ctx, id, date); err != nil {
		return err
	}
	return s.auditor.Record(ctx, actor, model.AuditActionUpdate, model.AuditEntityDonor, id.String(),
		map[string]interface{}{"last_donation_date": date.Format("2006-01-02")})
}

func (s *service) VerifyEmail(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkEmailVerified(ctx, id)
}

const refCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func generateReferenceCode() string {
	code := make([]byte, 8)
	max := big.NewInt(int64(len(refCodeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			code[i] = refCodeAlphabet[0]
			continue
		}
		code[i] = refCodeAlphabet[n.Int64()]
	}
	return "DN-" + string(code)
}
