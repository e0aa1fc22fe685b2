package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"feed_syncer/internal/domain"
)

type CategoryStore struct {
	db *sqlx.DB
}

func NewCategoryStore(db *sqlx.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

func (s *CategoryStore) Create(ctx context.Context, name string) (*domain.Category, error) {
	var category domain.Category
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &category,
		`INSERT INTO categories (name) VALUES ($1) RETURNING id, name, created_at`, name)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("category %q", name))
	}
	return &category, nil
}

// GetOrCreate returns the category called name, creating it if needed. When
// a concurrent caller creates the same name first, the insert does nothing
// and the committed row is read back.
func (s *CategoryStore) GetOrCreate(ctx context.Context, name string) (*domain.Category, error) {
	category, err := s.GetByName(ctx, name)
	if err == nil {
		return category, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	var created domain.Category
	err = sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &created, `
		INSERT INTO categories (name) VALUES ($1)
		ON CONFLICT (name) DO NOTHING
		RETURNING id, name, created_at`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return s.GetByName(ctx, name)
	}
	if err != nil {
		return nil, translate(err, fmt.Sprintf("category %q", name))
	}
	return &created, nil
}

func (s *CategoryStore) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	var category domain.Category
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &category,
		`SELECT id, name, created_at FROM categories WHERE id = $1`, id)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("category %d", id))
	}
	return &category, nil
}

func (s *CategoryStore) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	var category domain.Category
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &category,
		`SELECT id, name, created_at FROM categories WHERE name = $1`, name)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("category %q", name))
	}
	return &category, nil
}

func (s *CategoryStore) List(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &categories,
		`SELECT id, name, created_at FROM categories ORDER BY name`)
	return categories, err
}

func (s *CategoryStore) Rename(ctx context.Context, id int64, name string) error {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		`UPDATE categories SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return translate(err, fmt.Sprintf("category %q", name))
	}
	return expectAffected(res, fmt.Sprintf("category %d", id))
}

func (s *CategoryStore) Delete(ctx context.Context, id int64) error {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res, fmt.Sprintf("category %d", id))
}
