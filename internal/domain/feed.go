package domain

import "time"

type FeedSource struct {
	ID           int64     `db:"id" json:"id"`
	URL          string    `db:"url" json:"url"`
	Title        string    `db:"title" json:"title"`
	Description  string    `db:"description" json:"description"`
	LastSyncedAt time.Time `db:"last_synced_at" json:"last_synced_at"`
	CategoryID   *int64    `db:"category_id" json:"category_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type Entry struct {
	ID          int64      `db:"id" json:"id"`
	FeedID      int64      `db:"feed_id" json:"feed_id"`
	Title       string     `db:"title" json:"title"`
	Link        string     `db:"link" json:"link"` // unique within FeedID
	PublishedAt *time.Time `db:"published_at" json:"published_at,omitempty"`
	Content     string     `db:"content" json:"content"`
	IsRead      bool       `db:"is_read" json:"is_read"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

type Category struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// EntryFilter narrows an entry listing. Nil fields are not applied.
type EntryFilter struct {
	FeedID     *int64
	CategoryID *int64
	UnreadOnly bool
	Limit      int
}
