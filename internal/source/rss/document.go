package rss

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/samber/lo"

	"feed_syncer/internal/domain"
)

// maxLinkLen keeps links well under the btree key limit of the
// (feed_id, link) unique index.
const maxLinkLen = 2048

func (p *Parser) normalize(feed *gofeed.Feed, feedURL *url.URL) (*domain.Document, error) {
	title := sanitizeText(feed.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: feed has no title", domain.ErrFormat)
	}
	if len(feed.Items) == 0 {
		return nil, fmt.Errorf("%w: feed has no entries", domain.ErrFormat)
	}

	base := siteRoot(feedURL)
	parsedAt := p.now().UTC()

	entries := make([]domain.DocumentEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}

		link, ok := resolveLink(base, itemLink(item))
		if !ok {
			p.logger.Debug("dropping entry without usable link",
				"feed_url", feedURL.String(),
				"title", sanitizeText(item.Title),
			)
			continue
		}
		if len(link) > maxLinkLen {
			p.logger.Debug("dropping entry with oversized link",
				"feed_url", feedURL.String(),
				"link_len", len(link),
			)
			continue
		}

		entryTitle := sanitizeText(item.Title)
		if entryTitle == "" {
			entryTitle = link
		}

		entries = append(entries, domain.DocumentEntry{
			Title:       entryTitle,
			Link:        link,
			PublishedAt: publishedAt(item, parsedAt),
			Content:     sanitizeText(lo.Ternary(item.Description != "", item.Description, item.Content)),
		})
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: feed has no entries with links", domain.ErrFormat)
	}

	return &domain.Document{
		Title:       title,
		Description: sanitizeText(feed.Description),
		SiteURL:     feed.Link,
		Entries:     entries,
	}, nil
}

// sanitizeText drops NUL bytes and invalid UTF-8, neither of which a
// Postgres TEXT column accepts.
func sanitizeText(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.TrimSpace(strings.ToValidUTF8(s, ""))
}

func itemLink(item *gofeed.Item) string {
	if link := strings.TrimSpace(item.Link); link != "" {
		return link
	}
	for _, l := range item.Links {
		if l = strings.TrimSpace(l); l != "" {
			return l
		}
	}
	if guid, err := url.Parse(strings.TrimSpace(item.GUID)); err == nil && guid.IsAbs() {
		return guid.String()
	}
	return ""
}

func publishedAt(item *gofeed.Item, fallback time.Time) time.Time {
	switch {
	case item.PublishedParsed != nil:
		return item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.UTC()
	default:
		return fallback
	}
}

// siteRoot returns scheme://host of the feed URL.
func siteRoot(feedURL *url.URL) *url.URL {
	return &url.URL{Scheme: feedURL.Scheme, Host: feedURL.Host, Path: "/"}
}

// resolveLink makes link absolute against base. Only http(s) results are usable.
func resolveLink(base *url.URL, link string) (string, bool) {
	if link == "" {
		return "", false
	}
	ref, err := url.Parse(link)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	if resolved.Host == "" {
		return "", false
	}
	return resolved.String(), true
}

type fallbackPolicy struct {
	hosts map[string]struct{}
	title string
}

func newFallbackPolicy(hosts []string, title string) fallbackPolicy {
	normalized := lo.Map(hosts, func(h string, _ int) string {
		return strings.ToLower(strings.TrimSpace(h))
	})
	return fallbackPolicy{
		hosts: lo.Associate(normalized, func(h string) (string, struct{}) { return h, struct{}{} }),
		title: title,
	}
}

func (f fallbackPolicy) applies(feedURL *url.URL) bool {
	_, ok := f.hosts[strings.ToLower(feedURL.Hostname())]
	return ok
}

// document synthesizes a single-entry document pointing at the site root.
func (f fallbackPolicy) document(feedURL *url.URL, now time.Time) *domain.Document {
	root := siteRoot(feedURL).String()
	title := f.title
	if title == "" {
		title = root
	}
	return &domain.Document{
		Title:    feedURL.Hostname(),
		SiteURL:  root,
		Fallback: true,
		Entries:  []domain.DocumentEntry{{
			Title:       title,
			Link:        root,
			PublishedAt: now.UTC(),
		}},
	}
}
