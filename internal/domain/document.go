package domain

import "time"

// Document is a fetched feed normalized for ingestion: every entry has an
// absolute link and a publication time.
type Document struct {
	Title       string
	Description string
	SiteURL     string
	Entries     []DocumentEntry
	// Fallback marks a placeholder synthesized for a site whose feed did not
	// parse. Its title and description carry no information about the feed.
	Fallback bool
}

type DocumentEntry struct {
	Title       string
	Link        string
	PublishedAt time.Time
	Content     string
}

// NewEntry builds the catalog entry for feedID from a parsed document entry.
func (e DocumentEntry) NewEntry(feedID int64) Entry {
	published := e.PublishedAt
	return Entry{
		FeedID:      feedID,
		Title:       e.Title,
		Link:        e.Link,
		PublishedAt: &published,
		Content:     e.Content,
	}
}
