package email

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifelink/donor-api/internal/config"
)

func TestSendGridSendSuccess(t *testing.T) {
	var gotAuth string
	var gotPayload map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	p, err := newSendGridProvider(config.SendGridConfig{APIKey: "SG.test"},
		"noreply@example.com", "LifeLink", 5*time.Second)
	require.NoError(t, err)
	p.baseURL = srv.URL

	derr := p.Send(context.Background(), &Message{
		To:      "donor@example.com",
		ToName:  "Dana Donor",
		Subject: "Welcome",
		HTML:    "<p>hi</p>",
	})
	require.Nil(t, derr)

	assert.Equal(t, "Bearer SG.test", gotAuth)
	assert.Equal(t, "Welcome", gotPayload["subject"])
}

func TestSendGridStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		kind   ErrorKind
	}{
		{http.StatusUnauthorized, ErrKindAuth},
		{http.StatusForbidden, ErrKindAuth},
		{http.StatusTooManyRequests, ErrKindRateLimited},
		{http.StatusBadRequest, ErrKindInvalidRecipient},
		{http.StatusInternalServerError, ErrKindNetwork},
		{http.StatusTeapot, ErrKindUnknown},
	}

	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))

		p, err := newSendGridProvider(config.SendGridConfig{APIKey: "SG.test"},
			"noreply@example.com", "LifeLink", 5*time.Second)
		require.NoError(t, err)
		p.baseURL = srv.URL

		derr := p.Send(context.Background(), &Message{To: "donor@example.com"})
		require.NotNil(t, derr, "status %d", tc.status)
		assert.Equal(t, tc.kind, derr.Kind, "status %d", tc.status)
		assert.Equal(t, "sendgrid", derr.Provider)
		srv.Close()
	}
}

func TestSendGridRequiresAPIKey(t *testing.T) {
	_, err := newSendGridProvider(config.SendGridConfig{}, "noreply@example.com", "LifeLink", time.Second)
	require.Error(t, err)
}

func TestMailgunSendSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "api", user)
		assert.Equal(t, "key-test", pass)
		assert.Equal(t, "/mg.example.com/messages", r.URL.Path)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "Dana Donor <donor@example.com>", r.PostFormValue("to"))
		assert.Equal(t, "LifeLink <noreply@example.com>", r.PostFormValue("from"))
		assert.Equal(t, "Welcome", r.PostFormValue("subject"))

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p, err := newMailgunProvider(config.MailgunConfig{APIKey: "key-test", Domain: "mg.example.com"},
		"noreply@example.com", "LifeLink", 5*time.Second)
	require.NoError(t, err)
	p.baseURL = srv.URL

	derr := p.Send(context.Background(), &Message{
		To:      "donor@example.com",
		ToName:  "Dana Donor",
		Subject: "Welcome",
		HTML:    "<p>hi</p>",
	})
	require.Nil(t, derr)
}

func TestMailgunRejectionMapsKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p, err := newMailgunProvider(config.MailgunConfig{APIKey: "key-test", Domain: "mg.example.com"},
		"noreply@example.com", "LifeLink", 5*time.Second)
	require.NoError(t, err)
	p.baseURL = srv.URL

	derr := p.Send(context.Background(), &Message{To: "donor@example.com"})
	require.NotNil(t, derr)
	assert.Equal(t, ErrKindAuth, derr.Kind)
	assert.Equal(t, "mailgun", derr.Provider)
}

func TestMailgunRequiresDomain(t *testing.T) {
	_, err := newMailgunProvider(config.MailgunConfig{APIKey: "key-test"},
		"noreply@example.com", "LifeLink", time.Second)
	require.Error(t, err)
}

func TestClassifySMTPError(t *testing.T) {
	cases := []struct {
		err  error
		kind ErrorKind
	}{
		{errors.New("535 5.7.8 authentication failed"), ErrKindAuth},
		{errors.New("550 no such recipient here"), ErrKindInvalidRecipient},
		{errors.New("421 too many connections"), ErrKindRateLimited},
		{errors.New("dial tcp 127.0.0.1:587: connection refused"), ErrKindNetwork},
		{errors.New("something else went wrong"), ErrKindUnknown},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.kind, classifySMTPError(tc.err), "error %q", tc.err)
	}
}
