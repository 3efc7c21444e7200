package email

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifelink/donor-api/internal/config"
	"github.com/lifelink/donor-api/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
}

type stubProvider struct {
	name  string
	err   *DeliveryError
	calls int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Send(_ context.Context, _ *Message) *DeliveryError {
	p.calls++
	return p.err
}

func TestRouterStopsAtFirstSuccess(t *testing.T) {
	primary := &stubProvider{name: "primary"}
	backup := &stubProvider{name: "backup"}
	r := NewRouter([]Provider{primary, backup}, testLogger(), nil)

	provider, err := r.Send(context.Background(), &Message{To: "donor@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "primary", provider)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, backup.calls, "backup must not be tried after a success")
}

func TestRouterFallsBackToNextProvider(t *testing.T) {
	primary := &stubProvider{
		name: "primary",
		err:  &DeliveryError{Kind: ErrKindNetwork, Provider: "primary", Message: "connection refused"},
	}
	backup := &stubProvider{name: "backup"}
	r := NewRouter([]Provider{primary, backup}, testLogger(), nil)

	provider, err := r.Send(context.Background(), &Message{To: "donor@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "backup", provider)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, backup.calls)
}

func TestRouterExhaustedAggregatesErrors(t *testing.T) {
	primary := &stubProvider{
		name: "primary",
		err:  &DeliveryError{Kind: ErrKindAuth, Provider: "primary", Message: "bad credentials"},
	}
	backup := &stubProvider{
		name: "backup",
		err:  &DeliveryError{Kind: ErrKindRateLimited, Provider: "backup", Message: "slow down"},
	}
	r := NewRouter([]Provider{primary, backup}, testLogger(), nil)

	provider, err := r.Send(context.Background(), &Message{To: "donor@example.com"})
	require.Error(t, err)
	assert.Empty(t, provider)

	exhausted, ok := err.(*ExhaustedError)
	require.True(t, ok, "expected *ExhaustedError, got %T", err)
	require.Len(t, exhausted.Errors, 2)
	assert.Equal(t, ErrKindAuth, exhausted.Errors[0].Kind)
	assert.Equal(t, ErrKindRateLimited, exhausted.Errors[1].Kind)
	assert.Contains(t, err.Error(), "primary")
	assert.Contains(t, err.Error(), "backup")
}

func TestBuildProvidersOrderAndDedup(t *testing.T) {
	cfg := config.EmailConfig{
		Provider:        "smtp",
		BackupProviders: []string{"smtp", "sendgrid"},
		FromAddress:     "noreply@example.com",
		SMTP:            config.SMTPConfig{Host: "localhost", Port: 2525},
		SendGrid:        config.SendGridConfig{APIKey: "SG.test"},
	}

	providers, err := BuildProviders(cfg)
	require.NoError(t, err)
	require.Len(t, providers, 2)
	assert.Equal(t, "smtp", providers[0].Name())
	assert.Equal(t, "sendgrid", providers[1].Name())
}

// Mirrors the shipped config file: smtp primary, no backups, no ESP
// credentials. This chain must build so a fresh checkout boots.
func TestBuildProvidersSMTPOnlyWithoutESPCredentials(t *testing.T) {
	cfg := config.EmailConfig{
		Provider:        "smtp",
		BackupProviders: []string{},
		FromAddress:     "noreply@lifelink.example",
		SMTP:            config.SMTPConfig{Host: "localhost", Port: 587},
	}

	providers, err := BuildProviders(cfg)
	require.NoError(t, err)
	require.Len(t, providers, 1)
	assert.Equal(t, "smtp", providers[0].Name())
}

func TestBuildProvidersRejectsUnknownName(t *testing.T) {
	cfg := config.EmailConfig{Provider: "carrier-pigeon"}
	_, err := BuildProviders(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestBuildProvidersRejectsMissingCredentials(t *testing.T) {
	cfg := config.EmailConfig{
		Provider: "mailgun",
		Mailgun:  config.MailgunConfig{APIKey: "key-test"},
	}
	_, err := BuildProviders(cfg)
	require.Error(t, err)
}

func TestBuildProvidersRequiresAtLeastOne(t *testing.T) {
	_, err := BuildProviders(config.EmailConfig{})
	require.Error(t, err)
}
