package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/lifelink/donor-api/internal/email"
	"github.com/lifelink/donor-api/internal/model"
	"github.com/lifelink/donor-api/internal/repository"
	"github.com/lifelink/donor-api/internal/service/audit"
	"github.com/lifelink/donor-api/pkg/auth"
	"github.com/lifelink/donor-api/pkg/security"
)

var (
	ErrInvalidCredentials = fmt.Errorf("invalid email or password")
	ErrInvalidResetToken  = fmt.Errorf("invalid or expired reset token")
)

const resetTokenTTL = time.Hour

type Service interface {
	Login(ctx context.Context, email, password string) (*model.LoginResponse, error)
	ValidateToken(token string) (*auth.Claims, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, token, newPassword string) error
}

// Mailer is the narrow slice of the mail service the auth flow needs.
type Mailer interface {
	SendTransactional(ctx context.Context, to, subject, htmlBody, toName string) bool
}

type service struct {
	repo    repository.AdminRepository
	jwt     auth.JWTService
	hasher  security.PasswordHasher
	auditor audit.Recorder
	mailer  Mailer
}

func NewService(repo repository.AdminRepository, jwt auth.JWTService, hasher security.PasswordHasher, auditor audit.Recorder, mailer Mailer) Service {
	return &service{
		repo:    repo,
		jwt:     jwt,
		hasher:  hasher,
		auditor: auditor,
		mailer:  mailer,
	}
}

func (s *service) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	admin, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := s.hasher.Compare(admin.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateAccessToken(admin.ID, admin.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	// Audit failure does not block login.
	_ = s.auditor.Record(ctx, admin.Email, model.AuditActionLogin, model.AuditEntityAdmin, admin.ID.String(), nil)

	return &model.LoginResponse{Token: token, Admin: admin}, nil
}

func (s *service) ValidateToken(token string) (*auth.Claims, error) {
	return s.jwt.ValidateToken(token)
}

// ForgotPassword issues a reset token and emails it. The return value
// never reveals whether the address belongs to an admin.
func (s *service) ForgotPassword(ctx context.Context, emailAddr string) error {
	admin, err := s.repo.GetByEmail(ctx, emailAddr)
	if err != nil {
		return nil
	}

	token, err := generateResetToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	tokenHash, err := s.hasher.Hash(token)
	if err != nil {
		return fmt.Errorf("failed to hash reset token: %w", err)
	}

	if err := s.repo.SetResetToken(ctx, admin.ID, tokenHash, time.Now().Add(resetTokenTTL)); err != nil {
		return err
	}

	body, err := email.RenderPasswordReset(token)
	if err != nil {
		return err
	}
	if ok := s.mailer.SendTransactional(ctx, admin.Email, "Password reset", body, admin.Name); !ok {
		return fmt.Errorf("failed to deliver reset email")
	}
	return nil
}

func (s *service) ResetPassword(ctx context.Context, emailAddr, token, newPassword string) error {
	admin, err := s.repo.GetByEmail(ctx, emailAddr)
	if err != nil {
		return ErrInvalidResetToken
	}
	if admin.ResetTokenHash == nil || admin.ResetTokenExpires == nil {
		return ErrInvalidResetToken
	}
	if time.Now().After(*admin.ResetTokenExpires) {
		return ErrInvalidResetToken
	}
	if err := s.hasher.Compare(*admin.ResetTokenHash, token); err != nil {
		return ErrInvalidResetToken
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, admin.ID, passwordHash); err != nil {
		return err
	}

	_ = s.auditor.Record(ctx, admin.Email, model.AuditActionUpdate, model.AuditEntityAdmin, admin.ID.String(),
		map[string]interface{}{"event": "password_reset"})
	return nil
}

func generateResetToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
