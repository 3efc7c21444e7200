package email

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lifelink/donor-api/internal/config"
)

const mailgunAPIBase = "https://api.mailgun.net/v3"

type mailgunProvider struct {
	apiKey   string
	domain   string
	from     string
	fromName string
	client   *http.Client
	baseURL  string
}

func newMailgunProvider(cfg config.MailgunConfig, from, fromName string, timeout time.Duration) (*mailgunProvider, error) {
	if cfg.APIKey == "" || cfg.Domain == "" {
		return nil, fmt.Errorf("mailgun api_key and domain are required")
	}
	return &mailgunProvider{
		apiKey:   cfg.APIKey,
		domain:   cfg.Domain,
		from:     from,
		fromName: fromName,
		client:   &http.Client{Timeout: timeout},
		baseURL:  mailgunAPIBase,
	}, nil
}

func (p *mailgunProvider) Name() string { return "mailgun" }

func (p *mailgunProvider) Send(ctx context.Context, msg *Message) *DeliveryError {
	form := url.Values{}
	form.Set("from", fmt.Sprintf("%s <%s>", p.fromName, p.from))
	if msg.ToName != "" {
		form.Set("to", fmt.Sprintf("%s <%s>", msg.ToName, msg.To))
	} else {
		form.Set("to", msg.To)
	}
	form.Set("subject", msg.Subject)
	form.Set("html", msg.HTML)

	endpoint := fmt.Sprintf("%s/%s/messages", p.baseURL, p.domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return &DeliveryError{Kind: ErrKindUnknown, Provider: p.Name(), Message: err.Error()}
	}
	req.SetBasicAuth("api", p.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return &DeliveryError{Kind: ErrKindNetwork, Provider: p.Name(), Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &DeliveryError{
		Kind:     classifyHTTPStatus(resp.StatusCode),
		Provider: p.Name(),
		Message:  fmt.Sprintf("status %d: %s", resp.StatusCode, string(respBody)),
	}
}
