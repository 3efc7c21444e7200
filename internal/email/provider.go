package email

import (
	"context"
	"fmt"
	"strings"
)

// ErrorKind classifies an ordinary provider rejection.
type ErrorKind string

const (
	ErrKindAuth             ErrorKind = "auth"
	ErrKindRateLimited      ErrorKind = "rate_limited"
	ErrKindInvalidRecipient ErrorKind = "invalid_recipient"
	ErrKindNetwork          ErrorKind = "network"
	ErrKindUnknown          ErrorKind = "unknown"
)

// DeliveryError models an ordinary send rejection. Provider adapters
// return these instead of raising; only malformed configuration is a
// programmer error and surfaces as a plain error from the constructor.
type DeliveryError struct {
	Kind     ErrorKind
	Provider string
	Message  string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Kind)
}

// Message is a provider-agnostic email message.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
}

// Provider attempts exactly one delivery per Send call. Retries are the
// router's and processor's responsibility, never the adapter's.
type Provider interface {
	Name() string
	Send(ctx context.Context, msg *Message) *DeliveryError
}

// ExhaustedError aggregates the per-provider errors after every
// configured provider has been tried.
type ExhaustedError struct {
	Errors []*DeliveryError
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, de := range e.Errors {
		parts = append(parts, de.Error())
	}
	return "all providers failed: " + strings.Join(parts, "; ")
}
