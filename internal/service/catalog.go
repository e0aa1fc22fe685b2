package service

import (
	"context"
	"fmt"
	"log/slog"

	"feed_syncer/internal/domain"
)

// CatalogService serves read paths and the small mutations a reader makes
// on the catalog.
type CatalogService struct {
	feeds   FeedStore
	entries EntryStore
	logger  *slog.Logger
}

func NewCatalogService(feeds FeedStore, entries EntryStore, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		feeds:   feeds,
		entries: entries,
		logger:  logger.With("component", "catalog"),
	}
}

func (s *CatalogService) ListFeeds(ctx context.Context) ([]domain.FeedSource, error) {
	return s.feeds.List(ctx)
}

func (s *CatalogService) GetFeed(ctx context.Context, id int64) (*domain.FeedSource, error) {
	return s.feeds.GetByID(ctx, id)
}

func (s *CatalogService) ListEntries(ctx context.Context, filter domain.EntryFilter) ([]domain.Entry, error) {
	if filter.Limit < 0 {
		return nil, fmt.Errorf("%w: negative limit", domain.ErrInvalidArgument)
	}
	return s.entries.List(ctx, filter)
}

func (s *CatalogService) UnreadCount(ctx context.Context) (int64, error) {
	return s.entries.CountUnread(ctx)
}

// ToggleRead flips the entry's read flag and returns the new value.
func (s *CatalogService) ToggleRead(ctx context.Context, entryID int64) (bool, error) {
	isRead, err := s.entries.ToggleRead(ctx, entryID)
	if err != nil {
		return false, err
	}
	s.logger.Debug("entry read state toggled", "entry_id", entryID, "is_read", isRead)
	return isRead, nil
}

// DeleteFeed removes the feed together with its entries.
func (s *CatalogService) DeleteFeed(ctx context.Context, id int64) error {
	if err := s.feeds.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("feed deleted", "feed_id", id)
	return nil
}
