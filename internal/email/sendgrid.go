package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lifelink/donor-api/internal/config"
)

const sendgridSendURL = "https://api.sendgrid.com/v3/mail/send"

type sendgridProvider struct {
	apiKey   string
	from     string
	fromName string
	client   *http.Client
	baseURL  string
}

func newSendGridProvider(cfg config.SendGridConfig, from, fromName string, timeout time.Duration) (*sendgridProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("sendgrid api_key is required")
	}
	return &sendgridProvider{
		apiKey:   cfg.APIKey,
		from:     from,
		fromName: fromName,
		client:   &http.Client{Timeout: timeout},
		baseURL:  sendgridSendURL,
	}, nil
}

func (p *sendgridProvider) Name() string { return "sendgrid" }

func (p *sendgridProvider) Send(ctx context.Context, msg *Message) *DeliveryError {
	payload := map[string]interface{}{
		"personalizations": []map[string]interface{}{
			{
				"to": []map[string]string{
					{"email": msg.To, "name": msg.ToName},
				},
			},
		},
		"from":    map[string]string{"email": p.from, "name": p.fromName},
		"subject": msg.Subject,
		"content": []map[string]string{
			{"type": "text/html", "value": msg.HTML},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return &DeliveryError{Kind: ErrKindUnknown, Provider: p.Name(), Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{Kind: ErrKindUnknown, Provider: p.Name(), Message: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return &DeliveryError{Kind: ErrKindNetwork, Provider: p.Name(), Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK {
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &DeliveryError{
		Kind:     classifyHTTPStatus(resp.StatusCode),
		Provider: p.Name(),
		Message:  fmt.Sprintf("status %d: %s", resp.StatusCode, string(respBody)),
	}
}

func classifyHTTPStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrKindAuth
	case status == http.StatusTooManyRequests:
		return ErrKindRateLimited
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return ErrKindInvalidRecipient
	case status >= 500:
		return ErrKindNetwork
	default:
		return ErrKindUnknown
	}
}
