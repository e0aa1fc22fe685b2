package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"feed_syncer/internal/domain"
)

type FeedStore interface {
	Create(ctx context.Context, feed *domain.FeedSource) error
	GetByID(ctx context.Context, id int64) (*domain.FeedSource, error)
	GetByURL(ctx context.Context, url string) (*domain.FeedSource, error)
	List(ctx context.Context) ([]domain.FeedSource, error)
	UpdateSyncMetadata(ctx context.Context, id int64, title, description string, syncedAt time.Time) error
	SetCategory(ctx context.Context, feedID int64, categoryID *int64) error
	DetachCategory(ctx context.Context, categoryID int64) (int64, error)
	Delete(ctx context.Context, id int64) error
}

type EntryStore interface {
	InsertBatch(ctx context.Context, entries []domain.Entry) ([]domain.Entry, error)
	LinksByFeed(ctx context.Context, feedID int64) (map[string]struct{}, error)
	List(ctx context.Context, filter domain.EntryFilter) ([]domain.Entry, error)
	CountUnread(ctx context.Context) (int64, error)
	ToggleRead(ctx context.Context, id int64) (bool, error)
}

type CategoryStore interface {
	Create(ctx context.Context, name string) (*domain.Category, error)
	GetOrCreate(ctx context.Context, name string) (*domain.Category, error)
	GetByID(ctx context.Context, id int64) (*domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
	Rename(ctx context.Context, id int64, name string) error
	Delete(ctx context.Context, id int64) error
}

type Parser interface {
	Parse(ctx context.Context, feedURL string) (*domain.Document, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	PublishEntries(ctx context.Context, entries []domain.Entry) error
	PublishFeed(ctx context.Context, feed *domain.FeedSource) error
	Close() error
}
