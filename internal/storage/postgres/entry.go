package postgres

import (
	"context"
	"fmt"
	"time"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"feed_syncer/internal/domain"
)

// insertChunkSize keeps a batch well under the 65535 bind parameter limit.
const insertChunkSize = 1000

type EntryStore struct {
	db *sqlx.DB
}

func NewEntryStore(db *sqlx.DB) *EntryStore {
	return &EntryStore{db: db}
}

type insertedEntry struct {
	ID        int64     `db:"id"`
	Link      string    `db:"link"`
	CreatedAt time.Time `db:"created_at"`
}

// InsertBatch inserts entries, skipping any whose (feed_id, link) already
// exists. It returns the rows actually written, in input order, with their
// generated fields set.
func (s *EntryStore) InsertBatch(ctx context.Context, entries []domain.Entry) ([]domain.Entry, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	exec := GetExecutor(ctx, s.db)
	var inserted []domain.Entry

	for _, chunk := range lo.Chunk(entries, insertChunkSize) {
		ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
		ib.InsertInto("entries").Cols("feed_id", "title", "link", "published_at", "content")
		for _, e := range chunk {
			ib.Values(e.FeedID, e.Title, e.Link, e.PublishedAt, e.Content)
		}
		ib.SQL("ON CONFLICT (feed_id, link) DO NOTHING RETURNING id, link, created_at")

		query, args := ib.Build()

		var rows []insertedEntry
		if err := sqlx.SelectContext(ctx, exec, &rows, query, args...); err != nil {
			return nil, fmt.Errorf("insert entries: %w", err)
		}

		written := lo.KeyBy(rows, func(r insertedEntry) string { return r.Link })
		for _, e := range chunk {
			row, ok := written[e.Link]
			if !ok {
				continue
			}
			delete(written, e.Link)
			e.ID = row.ID
			e.CreatedAt = row.CreatedAt
			inserted = append(inserted, e)
		}
	}

	return inserted, nil
}

// LinksByFeed returns every link already stored for feedID.
func (s *EntryStore) LinksByFeed(ctx context.Context, feedID int64) (map[string]struct{}, error) {
	var links []string
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &links,
		`SELECT link FROM entries WHERE feed_id = $1`, feedID)
	if err != nil {
		return nil, err
	}

	result := make(map[string]struct{}, len(links))
	for _, l := range links {
		result[l] = struct{}{}
	}
	return result, nil
}

func (s *EntryStore) List(ctx context.Context, filter domain.EntryFilter) ([]domain.Entry, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("e.id", "e.feed_id", "e.title", "e.link", "e.published_at", "e.content", "e.is_read", "e.created_at").
		From("entries e")

	if filter.CategoryID != nil {
		sb.Join("feeds f", "f.id = e.feed_id")
		sb.Where(sb.Equal("f.category_id", *filter.CategoryID))
	}
	if filter.FeedID != nil {
		sb.Where(sb.Equal("e.feed_id", *filter.FeedID))
	}
	if filter.UnreadOnly {
		sb.Where("NOT e.is_read")
	}

	sb.OrderBy("e.published_at DESC NULLS LAST", "e.id DESC")
	if filter.Limit > 0 {
		sb.Limit(filter.Limit)
	}

	query, args := sb.Build()

	var entries []domain.Entry
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

func (s *EntryStore) CountUnread(ctx context.Context) (int64, error) {
	var count int64
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &count,
		`SELECT COUNT(*) FROM entries WHERE NOT is_read`)
	return count, err
}

// ToggleRead flips the read flag and returns its new value.
func (s *EntryStore) ToggleRead(ctx context.Context, id int64) (bool, error) {
	var isRead bool
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx,
		`UPDATE entries SET is_read = NOT is_read WHERE id = $1 RETURNING is_read`, id,
	).Scan(&isRead)
	if err != nil {
		return false, translate(err, fmt.Sprintf("entry %d", id))
	}
	return isRead, nil
}
