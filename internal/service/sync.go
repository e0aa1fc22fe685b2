package service

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"feed_syncer/internal/config"
	"feed_syncer/internal/domain"
	"feed_syncer/internal/logctx"
	"feed_syncer/internal/metrics"
)

type SyncService struct {
	parser    Parser
	feeds     FeedStore
	entries   EntryStore
	txManager TransactionManager
	publisher Publisher
	logger    *slog.Logger
	config    config.SyncConfig
	now       func() time.Time
}

func NewSyncService(
	parser Parser,
	feeds FeedStore,
	entries EntryStore,
	txManager TransactionManager,
	publisher Publisher,
	logger *slog.Logger,
	cfg config.SyncConfig,
) *SyncService {
	return &SyncService{
		parser:    parser,
		feeds:     feeds,
		entries:   entries,
		txManager: txManager,
		publisher: publisher,
		logger:    logger.With("component", "synchronizer"),
		config:    cfg,
		now:       time.Now,
	}
}

// Sync reconciles one feed with its upstream document. Fetch and format
// failures leave the feed untouched and are reported as skipped; storage
// failures roll back every write of this pass and are reported as failed.
func (s *SyncService) Sync(ctx context.Context, feed domain.FeedSource) (result domain.FeedSyncResult) {
	startTime := time.Now()
	logger := logctx.Logger(ctx, s.logger).With("feed_id", feed.ID, "feed_url", feed.URL)

	result = domain.FeedSyncResult{FeedID: feed.ID}
	defer func() {
		result.Duration = time.Since(startTime)
		if result.Status == "" {
			return
		}
		metrics.SyncTotal.WithLabelValues(string(result.Status)).Inc()
		metrics.SyncDuration.Observe(result.Duration.Seconds())
	}()

	doc, err := s.parser.Parse(ctx, feed.URL)
	if err != nil {
		logger.Warn("feed unavailable, keeping previous state", "error", err)
		result.Status = domain.SyncStatusSkipped
		result.Err = err
		return result
	}
	result.Fetched = len(doc.Entries)

	var inserted []domain.Entry
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		known, err := s.entries.LinksByFeed(txCtx, feed.ID)
		if err != nil {
			return fmt.Errorf("load known links: %w", err)
		}

		staged := stageEntries(feed.ID, doc.Entries, known)

		inserted, err = s.entries.InsertBatch(txCtx, staged)
		if err != nil {
			return fmt.Errorf("insert entries: %w", err)
		}

		title, description := refreshedMetadata(feed, doc)
		if err := s.feeds.UpdateSyncMetadata(txCtx, feed.ID, title, description, s.now().UTC()); err != nil {
			return fmt.Errorf("update feed metadata: %w", err)
		}

		return nil
	})
	if err != nil {
		logger.Error("sync failed, changes rolled back", "error", err)
		result.Status = domain.SyncStatusFailed
		result.Err = err
		return result
	}

	result.Status = domain.SyncStatusSynced
	result.New = len(inserted)
	result.Skipped = result.Fetched - result.New
	metrics.EntriesInserted.Add(float64(result.New))

	s.publishEntries(ctx, logger, inserted)

	logger.Info("feed synced",
		"fetched", result.Fetched,
		"new", result.New,
		"skipped", result.Skipped,
		"duration", time.Since(startTime),
	)

	return result
}

// SyncAll runs Sync over a snapshot of every registered feed using a bounded
// number of workers. Only a failure to list the feeds is returned.
func (s *SyncService) SyncAll(ctx context.Context) (*domain.SyncStats, error) {
	startTime := time.Now()
	logger := logctx.Logger(ctx, s.logger)

	feeds, err := s.feeds.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list feeds: %w", err)
	}

	logger.Info("starting sync pass", "feeds", len(feeds), "workers", s.config.Workers)

	results := make([]domain.FeedSyncResult, len(feeds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.config.Workers, 1))

	for i := range feeds {
		g.Go(func() error {
			results[i] = s.syncIsolated(gctx, feeds[i])
			return nil
		})
	}
	_ = g.Wait()

	stats := &domain.SyncStats{}
	for _, r := range results {
		stats.Add(r)
	}
	stats.Duration = time.Since(startTime)

	logger.Info("sync pass completed",
		"feeds", stats.Feeds,
		"synced", stats.Synced,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"new", stats.New,
		"duration", stats.Duration,
	)

	return stats, nil
}

func (s *SyncService) syncIsolated(ctx context.Context, feed domain.FeedSource) (result domain.FeedSyncResult) {
	defer func() {
		if r := recover(); r != nil {
			logctx.Logger(ctx, s.logger).Error("panic while syncing feed",
				"feed_id", feed.ID,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			result = domain.FeedSyncResult{
				FeedID: feed.ID,
				Status: domain.SyncStatusFailed,
				Err:    fmt.Errorf("panic: %v", r),
			}
		}
	}()

	return s.Sync(ctx, feed)
}

func (s *SyncService) publishEntries(ctx context.Context, logger *slog.Logger, entries []domain.Entry) {
	if s.publisher == nil || len(entries) == 0 {
		return
	}
	if err := s.publisher.PublishEntries(ctx, entries); err != nil {
		metrics.PublishErrors.Inc()
		logger.Warn("publish entries", "count", len(entries), "error", err)
	}
}

// refreshedMetadata returns the title and description to store after a
// successful parse. A fallback document keeps what the feed already has.
func refreshedMetadata(feed domain.FeedSource, doc *domain.Document) (string, string) {
	if doc.Fallback {
		return feed.Title, feed.Description
	}
	return doc.Title, lo.Ternary(doc.Description != "", doc.Description, feed.Description)
}

// stageEntries returns the document entries whose links are neither in known
// nor repeated earlier in the document, in document order.
func stageEntries(feedID int64, docEntries []domain.DocumentEntry, known map[string]struct{}) []domain.Entry {
	fresh := lo.Filter(docEntries, func(e domain.DocumentEntry, _ int) bool {
		_, ok := known[e.Link]
		return !ok
	})
	fresh = lo.UniqBy(fresh, func(e domain.DocumentEntry) string {
		return e.Link
	})
	return lo.Map(fresh, func(e domain.DocumentEntry, _ int) domain.Entry {
		return e.NewEntry(feedID)
	})
}
