package email

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/lifelink/donor-api/internal/config"
)

type smtpProvider struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
	timeout  time.Duration
}

func newSMTPProvider(cfg config.SMTPConfig, from, fromName string, timeout time.Duration) (*smtpProvider, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	port := cfg.Port
	if port == 0 {
		port = 587
	}

	dialer := gomail.NewDialer(cfg.Host, port, cfg.Username, cfg.Password)
	if strings.EqualFold(cfg.Encryption, "ssl") {
		dialer.SSL = true
	}

	return &smtpProvider{
		dialer:   dialer,
		from:     from,
		fromName: fromName,
		timeout:  timeout,
	}, nil
}

func (p *smtpProvider) Name() string { return "smtp" }

// Send makes a single SMTP delivery attempt. gomail has no context
// support, so the dial-and-send runs in a goroutine bounded by the
// configured timeout; an expired deadline is reported as a network
// error and the message may or may not have left the relay.
func (p *smtpProvider) Send(ctx context.Context, msg *Message) *DeliveryError {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", p.from, p.fromName)
	m.SetAddressHeader("To", msg.To, msg.ToName)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- p.dialer.DialAndSend(m)
	}()

	select {
	case <-ctx.Done():
		return &DeliveryError{
			Kind:     ErrKindNetwork,
			Provider: p.Name(),
			Message:  "smtp send timed out",
		}
	case err := <-done:
		if err == nil {
			return nil
		}
		return &DeliveryError{
			Kind:     classifySMTPError(err),
			Provider: p.Name(),
			Message:  err.Error(),
		}
	}
}

func classifySMTPError(err error) ErrorKind {
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return ErrKindNetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "535") || strings.Contains(msg, "authentication"):
		return ErrKindAuth
	case strings.Contains(msg, "550") || strings.Contains(msg, "recipient"):
		return ErrKindInvalidRecipient
	case strings.Contains(msg, "421") || strings.Contains(msg, "too many"):
		return ErrKindRateLimited
	case strings.Contains(msg, "connection") || strings.Contains(msg, "dial"):
		return ErrKindNetwork
	default:
		return ErrKindUnknown
	}
}
