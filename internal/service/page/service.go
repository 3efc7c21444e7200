package page

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/lifelink/donor-api/internal/model"
	"github.com/lifelink/donor-api/internal/repository"
	"github.com/lifelink/donor-api/internal/service/audit"
)

// Service serves admin-editable content pages with a read-through
// cache. Writes invalidate the cached entry.
type Service struct {
	repo    repository.PageRepository
	auditor audit.Recorder
	cache   *gocache.Cache
}

func NewService(repo repository.PageRepository, auditor audit.Recorder) *Service {
	return &Service{
		repo:    repo,
		auditor: auditor,
		cache:   gocache.New(5*time.Minute, 10*time.Minute),
	}
}

func (s *Service) Get(ctx context.Context, slug string) (*model.Page, error) {
	if cached, found := s.cache.Get(slug); found {
		return cached.(*model.Page), nil
	}

	page, err := s.repo.Get(ctx, slug)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(slug, page)
	return page, nil
}

func (s *Service) Upsert(ctx context.Context, actor string, page *model.Page) error {
	page.UpdatedBy = actor
	if err := s.repo.Upsert(ctx, page); err != nil {
		return err
	}
	s.cache.Delete(page.Slug)

	return s.auditor.Record(ctx, actor, model.AuditActionUpdate, model.AuditEntityPage, page.Slug,
		map[string]interface{}{"title": page.Title})
}

func (s *Service) List(ctx context.Context) ([]*model.Page, error) {
	return s.repo.List(ctx)
}
