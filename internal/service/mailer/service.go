package mailer

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/lifelink/donor-api/internal/email"
	"github.com/lifelink/donor-api/internal/model"
	"github.com/lifelink/donor-api/internal/repository"
	"github.com/lifelink/donor-api/pkg/logger"
)

// Service is the collaborator interface the rest of the application
// uses for outbound mail. Registration and password-reset flows use the
// synchronous best-effort path; everything else should enqueue.
type Service interface {
	// SendTransactional sends synchronously through the provider chain
	// and reports success as a boolean. A false return means delivery
	// was not confirmed; callers must not assume the mail went out.
	SendTransactional(ctx context.Context, to, subject, htmlBody, toName string) bool

	// Enqueue records a durable email job for the queue processor.
	Enqueue(ctx context.Context, to, toName, subject, htmlBody string) (int64, error)
}

type service struct {
	router      *email.Router
	queue       repository.EmailQueueRepository
	logger      *logger.Logger
	maxAttempts int
}

func NewService(router *email.Router, queue repository.EmailQueueRepository, maxAttempts int, logger *logger.Logger) Service {
	if maxAttempts <= 0 {
		maxAttempts = model.DefaultMaxAttempts
	}
	return &service{
		router:      router,
		queue:       queue,
		logger:      logger,
		maxAttempts: maxAttempts,
	}
}

func (s *service) SendTransactional(ctx context.Context, to, subject, htmlBody, toName string) bool {
	msg := &email.Message{
		To:      to,
		ToName:  toName,
		Subject: subject,
		HTML:    htmlBody,
	}

	operation := func() error {
		_, err := s.router.Send(ctx, msg)
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		s.logger.Error(err, "transactional send failed", "recipient", to, "subject", subject)
		return false
	}
	return true
}

func (s *service) Enqueue(ctx context.Context, to, toName, subject, htmlBody string) (int64, error) {
	if _, err := mail.ParseAddress(to); err != nil {
		return 0, fmt.Errorf("invalid recipient address %q: %w", to, err)
	}

	id, err := s.queue.Enqueue(ctx, to, toName, subject, htmlBody, s.maxAttempts)
	if err != nil {
		return 0, err
	}
	s.logger.Debug("email job enqueued", "job_id", id, "recipient", to)
	return id, nil
}
