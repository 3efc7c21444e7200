package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifelink/donor-api/internal/model"
	jwtauth "github.com/lifelink/donor-api/pkg/auth"
	"github.com/lifelink/donor-api/pkg/security"
)

type stubAdminRepo struct {
	admin *model.AdminUser
}

func (r *stubAdminRepo) GetByEmail(_ context.Context, email string) (*model.AdminUser, error) {
	if r.admin == nil || r.admin.Email != email {
		return nil, fmt.Errorf("admin user not found")
	}
	return r.admin, nil
}

func (r *stubAdminRepo) SetResetToken(_ context.Context, id uuid.UUID, tokenHash string, expires time.Time) error {
	if r.admin == nil || r.admin.ID != id {
		return fmt.Errorf("admin user not found")
	}
	r.admin.ResetTokenHash = &tokenHash
	r.admin.ResetTokenExpires = &expires
	return nil
}

func (r *stubAdminRepo) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	if r.admin == nil || r.admin.ID != id {
		return fmt.Errorf("admin user not found")
	}
	r.admin.PasswordHash = passwordHash
	r.admin.ResetTokenHash = nil
	r.admin.ResetTokenExpires = nil
	return nil
}

type noopRecorder struct{}

func (noopRecorder) Record(_ context.Context, _, _, _, _ string, _ interface{}) error {
	return nil
}

type captureMailer struct {
	sent []string
	ok   bool
}

func (m *captureMailer) SendTransactional(_ context.Context, to, _, _, _ string) bool {
	m.sent = append(m.sent, to)
	return m.ok
}

func newTestService(t *testing.T, password string) (Service, *stubAdminRepo, *captureMailer) {
	hasher := security.NewBcryptHasher(4)
	hash, err := hasher.Hash(password)
	require.NoError(t, err)

	repo := &stubAdminRepo{admin: &model.AdminUser{
		ID:           uuid.New(),
		Email:        "admin@example.com",
		PasswordHash: hash,
	}}
	mailer := &captureMailer{ok: true}
	jwtSvc := jwtauth.NewJWTService("test-secret", time.Hour)
	return NewService(repo, jwtSvc, hasher, noopRecorder{}, mailer), repo, mailer
}

func TestLoginSuccess(t *testing.T) {
	svc, repo, _ := newTestService(t, "super secret password")

	resp, err := svc.Login(context.Background(), "admin@example.com", "super secret password")
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, repo.admin.ID, resp.Admin.ID)

	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, repo.admin.ID, claims.AdminID)
	assert.True(t, claims.IsAdmin)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _ := newTestService(t, "super secret password")

	_, err := svc.Login(context.Background(), "admin@example.com", "not the password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _, _ := newTestService(t, "super secret password")

	_, err := svc.Login(context.Background(), "nobody@example.com", "super secret password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestForgotPasswordStoresTokenAndSendsMail(t *testing.T) {
	svc, repo, mailer := newTestService(t, "super secret password")

	require.NoError(t, svc.ForgotPassword(context.Background(), "admin@example.com"))
	assert.Equal(t, []string{"admin@example.com"}, mailer.sent)
	require.NotNil(t, repo.admin.ResetTokenHash)
	require.NotNil(t, repo.admin.ResetTokenExpires)
	assert.True(t, repo.admin.ResetTokenExpires.After(time.Now()))
}

func TestForgotPasswordUnknownEmailIsSilent(t *testing.T) {
	svc, _, mailer := newTestService(t, "super secret password")

	require.NoError(t, svc.ForgotPassword(context.Background(), "nobody@example.com"))
	assert.Empty(t, mailer.sent)
}

func TestResetPasswordRejectsBadToken(t *testing.T) {
	svc, _, _ := newTestService(t, "super secret password")

	require.NoError(t, svc.ForgotPassword(context.Background(), "admin@example.com"))
	err := svc.ResetPassword(context.Background(), "admin@example.com", "wrong-token", "new password here")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestResetPasswordRejectsExpiredToken(t *testing.T) {
	svc, repo, _ := newTestService(t, "super secret password")

	require.NoError(t, svc.ForgotPassword(context.Background(), "admin@example.com"))
	expired := time.Now().Add(-time.Minute)
	repo.admin.ResetTokenExpires = &expired

	err := svc.ResetPassword(context.Background(), "admin@example.com", "any-token", "new password here")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestResetPasswordWithValidTokenUpdatesCredentials(t *testing.T) {
	hasher := security.NewBcryptHasher(4)
	oldHash, err := hasher.Hash("super secret password")
	require.NoError(t, err)

	repo := &stubAdminRepo{admin: &model.AdminUser{
		ID:           uuid.New(),
		Email:        "admin@example.com",
		PasswordHash: oldHash,
	}}
	tokenHash, err := hasher.Hash("known-reset-token")
	require.NoError(t, err)
	expires := time.Now().Add(time.Hour)
	repo.admin.ResetTokenHash = &tokenHash
	repo.admin.ResetTokenExpires = &expires

	svc := NewService(repo, jwtauth.NewJWTService("test-secret", time.Hour), hasher, noopRecorder{}, &captureMailer{ok: true})

	require.NoError(t, svc.ResetPassword(context.Background(), "admin@example.com", "known-reset-token", "brand new password"))
	assert.Nil(t, repo.admin.ResetTokenHash, "token must be single use")

	_, err = svc.Login(context.Background(), "admin@example.com", "super secret password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "admin@example.com", "brand new password")
	assert.NoError(t, err)
}
