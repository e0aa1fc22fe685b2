package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"feed_syncer/internal/domain"
)

const feedColumns = `id, url, title, description, last_synced_at, category_id, created_at`

type FeedStore struct {
	db *sqlx.DB
}

func NewFeedStore(db *sqlx.DB) *FeedStore {
	return &FeedStore{db: db}
}

// Create inserts feed and fills in its generated fields. A URL that is
// already registered yields domain.ErrDuplicate.
func (s *FeedStore) Create(ctx context.Context, feed *domain.FeedSource) error {
	query := `
		INSERT INTO feeds (url, title, description, last_synced_at, category_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, last_synced_at, created_at`

	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		feed.URL,
		feed.Title,
		feed.Description,
		feed.LastSyncedAt,
		feed.CategoryID,
	).Scan(&feed.ID, &feed.LastSyncedAt, &feed.CreatedAt)

	return translate(err, fmt.Sprintf("feed %q", feed.URL))
}

func (s *FeedStore) GetByID(ctx context.Context, id int64) (*domain.FeedSource, error) {
	var feed domain.FeedSource
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &feed,
		`SELECT `+feedColumns+` FROM feeds WHERE id = $1`, id)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("feed %d", id))
	}
	return &feed, nil
}

func (s *FeedStore) GetByURL(ctx context.Context, url string) (*domain.FeedSource, error) {
	var feed domain.FeedSource
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &feed,
		`SELECT `+feedColumns+` FROM feeds WHERE url = $1`, url)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("feed %q", url))
	}
	return &feed, nil
}

func (s *FeedStore) List(ctx context.Context) ([]domain.FeedSource, error) {
	var feeds []domain.FeedSource
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &feeds,
		`SELECT `+feedColumns+` FROM feeds ORDER BY title, id`)
	return feeds, err
}

func (s *FeedStore) UpdateSyncMetadata(ctx context.Context, id int64, title, description string, syncedAt time.Time) error {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, `
		UPDATE feeds
		SET title = $2, description = $3, last_synced_at = $4
		WHERE id = $1`,
		id, title, description, syncedAt,
	)
	if err != nil {
		return err
	}
	return expectAffected(res, fmt.Sprintf("feed %d", id))
}

// SetCategory assigns the feed to categoryID; nil uncategorizes it.
func (s *FeedStore) SetCategory(ctx context.Context, feedID int64, categoryID *int64) error {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		`UPDATE feeds SET category_id = $2 WHERE id = $1`, feedID, categoryID)
	if err != nil {
		return err
	}
	return expectAffected(res, fmt.Sprintf("feed %d", feedID))
}

// DetachCategory uncategorizes every feed in categoryID and reports how many moved.
func (s *FeedStore) DetachCategory(ctx context.Context, categoryID int64) (int64, error) {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		`UPDATE feeds SET category_id = NULL WHERE category_id = $1`, categoryID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete removes the feed; its entries go with it through the foreign key.
func (s *FeedStore) Delete(ctx context.Context, id int64) error {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, `DELETE FROM feeds WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res, fmt.Sprintf("feed %d", id))
}
