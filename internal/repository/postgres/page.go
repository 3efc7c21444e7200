package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lifelink/donor-api/internal/model"
	"github.com/lifelink/donor-api/internal/repository"
)

type pageRepository struct {
	BaseRepository
}

func NewPageRepository(base BaseRepository) repository.PageRepository {
	return &pageRepository{base}
}

func (r *pageRepository) Get(ctx context.Context, slug string) (*model.Page, error) {
	var page model.Page
	err := r.db.GetContext(ctx, &page, `SELECT * FROM pages WHERE slug = $1`, slug)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("page %q not found", slug)
		}
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	return &page, nil
}

func (r *pageRepository) Upsert(ctx context.Context, page *model.Page) error {
	query := `
		INSERT INTO pages (slug, title, body, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (slug) DO UPDATE
		SET title = EXCLUDED.title,
			body = EXCLUDED.body,
			updated_by = EXCLUDED.updated_by,
			updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query, page.Slug, page.Title, page.Body, page.UpdatedBy)
	if err != nil {
		return fmt.Errorf("failed to upsert page: %w", err)
	}
	return nil
}

func (r *pageRepository) List(ctx context.Context) ([]*model.Page, error) {
	var pages []*model.Page
	err := r.db.SelectContext(ctx, &pages, `SELECT * FROM pages ORDER BY slug ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	return pages, nil
}
