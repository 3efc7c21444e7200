package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReminderEligible(t *testing.T) {
	window := 90 * 24 * time.Hour
	today := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	exactBoundary := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	dayInside := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	reminderDay := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	beforeDonation := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	base := func() Donor {
		return Donor{
			Email:            "donor@example.com",
			EmailVerified:    true,
			Status:           DonorStatusServed,
			LastDonationDate: &exactBoundary,
		}
	}

	tests := []struct {
		name   string
		mutate func(*Donor)
		want   bool
	}{
		{"donation exactly window days ago", func(d *Donor) {}, true},
		{"donation inside window", func(d *Donor) { d.LastDonationDate = &dayInside }, false},
		{"no donation recorded", func(d *Donor) { d.LastDonationDate = nil }, false},
		{"reminder already sent this cycle", func(d *Donor) { d.LastReminderSent = &reminderDay }, false},
		{"reminder from previous cycle", func(d *Donor) { d.LastReminderSent = &beforeDonation }, true},
		{"email not verified", func(d *Donor) { d.EmailVerified = false }, false},
		{"empty email", func(d *Donor) { d.Email = "" }, false},
		{"not served", func(d *Donor) { d.Status = DonorStatusPending }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := base()
			tt.mutate(&d)
			assert.Equal(t, tt.want, d.ReminderEligible(today, window))
		})
	}
}

func TestEmailJobTerminal(t *testing.T) {
	assert.False(t, (&EmailJob{Status: EmailJobStatusPending}).Terminal())
	assert.False(t, (&EmailJob{Status: EmailJobStatusSending}).Terminal())
	assert.True(t, (&EmailJob{Status: EmailJobStatusSent}).Terminal())
	assert.True(t, (&EmailJob{Status: EmailJobStatusFailed}).Terminal())
}
