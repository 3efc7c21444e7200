package email

import (
	"context"
	"fmt"
	"time"

	"github.com/lifelink/donor-api/internal/config"
	"github.com/lifelink/donor-api/pkg/logger"
	"github.com/lifelink/donor-api/pkg/metrics"
)

// Router tries providers in priority order until one succeeds. The
// chain is an ordered list of uniform Provider handles; there is no
// type-specific branching. An ambiguous timeout counts as a failure,
// so a retry by the processor may duplicate a delivery: the design is
// at-least-once, not at-most-once.
type Router struct {
	providers []Provider
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

func NewRouter(providers []Provider, logger *logger.Logger, metrics *metrics.Metrics) *Router {
	return &Router{
		providers: providers,
		logger:    logger,
		metrics:   metrics,
	}
}

// BuildProviders constructs the provider chain from configuration:
// primary first, then backups in their configured order. A provider
// named in the config but missing credentials is a setup error.
func BuildProviders(cfg config.EmailConfig) ([]Provider, error) {
	names := append([]string{cfg.Provider}, cfg.BackupProviders...)

	seen := make(map[string]bool, len(names))
	providers := make([]Provider, 0, len(names))
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		p, err := buildProvider(name, cfg)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", name, err)
		}
		providers = append(providers, p)
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no email provider configured")
	}
	return providers, nil
}

func buildProvider(name string, cfg config.EmailConfig) (Provider, error) {
	switch name {
	case "smtp":
		return newSMTPProvider(cfg.SMTP, cfg.FromAddress, cfg.FromName, cfg.Timeout())
	case "sendgrid":
		return newSendGridProvider(cfg.SendGrid, cfg.FromAddress, cfg.FromName, cfg.Timeout())
	case "mailgun":
		return newMailgunProvider(cfg.Mailgun, cfg.FromAddress, cfg.FromName, cfg.Timeout())
	default:
		return nil, fmt.Errorf("unknown provider")
	}
}

// Send attempts delivery through each provider in order and returns the
// name of the provider that succeeded. If every provider fails it
// returns an ExhaustedError carrying all per-provider errors.
func (r *Router) Send(ctx context.Context, msg *Message) (string, error) {
	var errs []*DeliveryError

	for _, p := range r.providers {
		start := time.Now()
		derr := p.Send(ctx, msg)
		latency := time.Since(start)

		if r.metrics != nil {
			r.metrics.DeliveryLatency.WithLabelValues(p.Name()).Observe(latency.Seconds())
		}

		if derr == nil {
			if r.metrics != nil {
				r.metrics.ProviderAttempts.WithLabelValues(p.Name(), "success").Inc()
			}
			r.logger.Info("delivery attempt succeeded",
				"provider", p.Name(),
				"recipient", msg.To,
				"latency_ms", latency.Milliseconds())
			return p.Name(), nil
		}

		if r.metrics != nil {
			r.metrics.ProviderAttempts.WithLabelValues(p.Name(), string(derr.Kind)).Inc()
		}
		r.logger.Warn(derr, "delivery attempt failed",
			"provider", p.Name(),
			"recipient", msg.To,
			"kind", string(derr.Kind),
			"latency_ms", latency.Milliseconds())
		errs = append(errs, derr)

		if ctx.Err() != nil {
			break
		}
	}

	exhausted := &ExhaustedError{Errors: errs}
	r.logger.Error(exhausted, "all providers exhausted", "recipient", msg.To)
	return "", exhausted
}
