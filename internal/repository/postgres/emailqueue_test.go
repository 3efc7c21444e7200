package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lifelink/donor-api/internal/model"
)

func TestSortByCreatedOrdersOldestFirst(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	jobs := []*model.EmailJob{
		{ID: 3, CreatedAt: base.Add(2 * time.Second)},
		{ID: 1, CreatedAt: base},
		{ID: 2, CreatedAt: base.Add(time.Second)},
	}

	sortByCreated(jobs)

	var ids []int64
	for _, job := range jobs {
		ids = append(ids, job.ID)
	}
	assert.Equal(t, []int64{1, 2, 3}, ids)
}

func TestSortByCreatedBreaksTiesByID(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	jobs := []*model.EmailJob{
		{ID: 9, CreatedAt: base},
		{ID: 4, CreatedAt: base},
		{ID: 7, CreatedAt: base},
	}

	sortByCreated(jobs)

	var ids []int64
	for _, job := range jobs {
		ids = append(ids, job.ID)
	}
	assert.Equal(t, []int64{4, 7, 9}, ids)
}
