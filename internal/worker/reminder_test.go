package worker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifelink/donor-api/internal/email"
	"github.com/lifelink/donor-api/internal/model"
)

type fakeDonorRepo struct {
	mu     sync.Mutex
	donors map[uuid.UUID]*model.Donor
}

func newFakeDonorRepo() *fakeDonorRepo {
	return &fakeDonorRepo{donors: make(map[uuid.UUID]*model.Donor)}
}

func (r *fakeDonorRepo) add(donor *model.Donor) *model.Donor {
	r.mu.Lock()
	defer r.mu.Unlock()
	if donor.ID == uuid.Nil {
		donor.ID = uuid.New()
	}
	r.donors[donor.ID] = donor
	return donor
}

func (r *fakeDonorRepo) Create(_ context.Context, donor *model.Donor) error {
	r.add(donor)
	return nil
}

func (r *fakeDonorRepo) Get(_ context.Context, id uuid.UUID) (*model.Donor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	donor, ok := r.donors[id]
	if !ok {
		return nil, fmt.Errorf("donor %s not found", id)
	}
	copied := *donor
	return &copied, nil
}

func (r *fakeDonorRepo) GetByEmail(_ context.Context, email string) (*model.Donor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, donor := range r.donors {
		if donor.Email == email {
			copied := *donor
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeDonorRepo) List(_ context.Context, _ *model.DonorFilters) ([]*model.Donor, error) {
	return nil, nil
}

func (r *fakeDonorRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.DonorStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	donor, ok := r.donors[id]
	if !ok {
		return fmt.Errorf("donor %s not found", id)
	}
	donor.Status = status
	return nil
}

func (r *fakeDonorRepo) MarkEmailVerified(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if donor, ok := r.donors[id]; ok {
		donor.EmailVerified = true
	}
	return nil
}

func (r *fakeDonorRepo) RecordDonation(_ context.Context, id uuid.UUID, date time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	donor, ok := r.donors[id]
	if !ok {
		return fmt.Errorf("donor %s not found", id)
	}
	donor.LastDonationDate = &date
	donor.Status = model.DonorStatusServed
	return nil
}

func (r *fakeDonorRepo) ListReminderDue(_ context.Context, targetDate time.Time) ([]*model.Donor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []*model.Donor
	for _, d := range r.donors {
		if d.Status != model.DonorStatusServed || !d.EmailVerified || d.Email == "" {
			continue
		}
		if d.LastDonationDate == nil || d.LastDonationDate.After(targetDate) {
			continue
		}
		if d.LastReminderSent != nil && !d.LastReminderSent.Before(*d.LastDonationDate) {
			continue
		}
		copied := *d
		due = append(due, &copied)
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].LastDonationDate.Before(*due[j].LastDonationDate)
	})
	return due, nil
}

func (r *fakeDonorRepo) MarkReminderSent(_ context.Context, id uuid.UUID, sentOn time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	donor, ok := r.donors[id]
	if !ok {
		return fmt.Errorf("donor %s not found", id)
	}
	donor.LastReminderSent = &sentOn
	return nil
}

func servedDonor(emailAddr string, lastDonation time.Time) *model.Donor {
	return &model.Donor{
		Name:             "Dana Donor",
		Email:            emailAddr,
		EmailVerified:    true,
		BloodType:        "O+",
		ReferenceCode:    "DN-ABCD2345",
		Status:           model.DonorStatusServed,
		LastDonationDate: &lastDonation,
	}
}

func newTestScheduler(repo *fakeDonorRepo, provider email.Provider, recorder *fakeRecorder) *ReminderScheduler {
	router := email.NewRouter([]email.Provider{provider}, testLogger(), nil)
	return NewReminderScheduler(repo, router, nil, recorder, ReminderSchedulerConfig{
		Window:        90 * 24 * time.Hour,
		SweepInterval: 24 * time.Hour,
	}, testLogger(), nil)
}

func TestReminderSweepWindowBoundary(t *testing.T) {
	repo := newFakeDonorRepo()
	today := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	// Exactly 90 days before today: due.
	repo.add(servedDonor("due@example.com", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)))
	// 89 days before today: not due yet.
	repo.add(servedDonor("early@example.com", time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)))

	provider := &scriptedProvider{}
	s := newTestScheduler(repo, provider, &fakeRecorder{})

	sent, err := s.RunOnce(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{"due@example.com"}, provider.sentTo())
}

func TestReminderSweepSkipsIneligibleDonors(t *testing.T) {
	repo := newFakeDonorRepo()
	today := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	lastDonation := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	unverified := servedDonor("unverified@example.com", lastDonation)
	unverified.EmailVerified = false
	repo.add(unverified)

	pending := servedDonor("pending@example.com", lastDonation)
	pending.Status = model.DonorStatusPending
	repo.add(pending)

	never := servedDonor("never@example.com", lastDonation)
	never.LastDonationDate = nil
	repo.add(never)

	provider := &scriptedProvider{}
	s := newTestScheduler(repo, provider, &fakeRecorder{})

	sent, err := s.RunOnce(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Empty(t, provider.sentTo())
}

func TestReminderAtMostOncePerCycle(t *testing.T) {
	repo := newFakeDonorRepo()
	today := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	d := repo.add(servedDonor("due@example.com", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	provider := &scriptedProvider{}
	recorder := &fakeRecorder{}
	s := newTestScheduler(repo, provider, recorder)

	sent, err := s.RunOnce(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Contains(t, recorder.entries, fmt.Sprintf("send:reminder:%s", d.ID))

	// The same cycle never yields a second reminder, no matter how
	// many sweeps run.
	for day := 1; day <= 3; day++ {
		sent, err = s.RunOnce(context.Background(), today.AddDate(0, 0, day))
		require.NoError(t, err)
		assert.Equal(t, 0, sent)
	}
	assert.Equal(t, []string{"due@example.com"}, provider.sentTo())
}

func TestReminderFailedSendLeavesDonorEligible(t *testing.T) {
	repo := newFakeDonorRepo()
	today := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	d := repo.add(servedDonor("due@example.com", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	failing := &scriptedProvider{fail: true}
	s := newTestScheduler(repo, failing, &fakeRecorder{})

	sent, err := s.RunOnce(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)

	got, err := repo.Get(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LastReminderSent)

	// Next sweep with a healthy provider delivers it.
	working := &scriptedProvider{}
	s = newTestScheduler(repo, working, &fakeRecorder{})
	sent, err = s.RunOnce(context.Background(), today.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestReminderNewDonationReopensEligibility(t *testing.T) {
	repo := newFakeDonorRepo()
	ctx := context.Background()
	today := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	d := repo.add(servedDonor("due@example.com", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	provider := &scriptedProvider{}
	s := newTestScheduler(repo, provider, &fakeRecorder{})

	sent, err := s.RunOnce(ctx, today)
	require.NoError(t, err)
	require.Equal(t, 1, sent)

	// A fresh donation starts a new cycle; 90 days later the donor is
	// due again.
	require.NoError(t, repo.RecordDonation(ctx, d.ID, time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)))

	sent, err = s.RunOnce(ctx, time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{"due@example.com", "due@example.com"}, provider.sentTo())
}
