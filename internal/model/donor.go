package model

import (
	"time"

	"github.com/google/uuid"
)

type DonorStatus string

const (
	DonorStatusPending  DonorStatus = "pending"
	DonorStatusApproved DonorStatus = "approved"
	DonorStatusServed   DonorStatus = "served"
	DonorStatusRejected DonorStatus = "rejected"
)

var BloodTypes = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

type Donor struct {
	ID               uuid.UUID   `db:"id" json:"id"`
	Name             string      `db:"name" json:"name"`
	Email            string      `db:"email" json:"email"`
	EmailVerified    bool        `db:"email_verified" json:"email_verified"`
	Phone            string      `db:"phone" json:"phone,omitempty"`
	BloodType        string      `db:"blood_type" json:"blood_type"`
	ReferenceCode    string      `db:"reference_code" json:"reference_code"`
	Status           DonorStatus `db:"status" json:"status"`
	LastDonationDate *time.Time  `db:"last_donation_date" json:"last_donation_date,omitempty"`
	LastReminderSent *time.Time  `db:"last_reminder_sent" json:"last_reminder_sent,omitempty"`
	CreatedAt        time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at" json:"updated_at"`
}

// ReminderEligible reports whether a follow-up reminder may be sent as of
// today, given the configured window. At most one reminder goes out per
// donation cycle: once last_reminder_sent is at or after the current
// donation date, the donor stays ineligible until a new donation is
// recorded.
func (d *Donor) ReminderEligible(today time.Time, window time.Duration) bool {
	if d.Status != DonorStatusServed || !d.EmailVerified || d.Email == "" {
		return false
	}
	if d.LastDonationDate == nil {
		return false
	}
	if d.LastDonationDate.After(today.Add(-window)) {
		return false
	}
	if d.LastReminderSent != nil && !d.LastReminderSent.Before(*d.LastDonationDate) {
		return false
	}
	return true
}

type RegisterDonorRequest struct {
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone"`
	BloodType string `json:"blood_type" binding:"required,bloodtype"`
}

type UpdateDonorStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending approved served rejected"`
}

type RecordDonationRequest struct {
	DonationDate string `json:"donation_date" binding:"required,datetime=2006-01-02"`
}

type DonorFilters struct {
	Status    string
	BloodType string
	Limit     int
	Offset    int
}
