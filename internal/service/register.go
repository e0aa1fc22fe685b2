package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"

	"feed_syncer/internal/domain"
	"feed_syncer/internal/logctx"
	"feed_syncer/internal/metrics"
)

type RegistrationService struct {
	parser     Parser
	feeds      FeedStore
	entries    EntryStore
	categories CategoryStore
	txManager  TransactionManager
	publisher  Publisher
	seedLimit  int
	logger     *slog.Logger
	now        func() time.Time
}

func NewRegistrationService(
	parser Parser,
	feeds FeedStore,
	entries EntryStore,
	categories CategoryStore,
	txManager TransactionManager,
	publisher Publisher,
	seedLimit int,
	logger *slog.Logger,
) *RegistrationService {
	return &RegistrationService{
		parser:     parser,
		feeds:      feeds,
		entries:    entries,
		categories: categories,
		txManager:  txManager,
		publisher:  publisher,
		seedLimit:  seedLimit,
		logger:     logger.With("component", "registration"),
		now:        time.Now,
	}
}

// Register onboards the feed at feedURL, optionally filing it under
// categoryName, and seeds it with the first entries of its document. Every
// failure is a *domain.RegistrationError; nothing is stored unless the feed
// and its seed entries are stored together.
func (s *RegistrationService) Register(ctx context.Context, feedURL, categoryName string) (*domain.FeedSource, error) {
	feedURL = strings.TrimSpace(feedURL)
	categoryName = strings.TrimSpace(categoryName)
	logger := logctx.Logger(ctx, s.logger).With("feed_url", feedURL)

	feed, seeded, err := s.register(ctx, feedURL, categoryName)
	if err != nil {
		regErr := &domain.RegistrationError{URL: feedURL, Err: err}
		if isRejection(err) {
			metrics.RegistrationsTotal.WithLabelValues("rejected").Inc()
			logger.Info("registration rejected", "cause", regErr.Cause())
		} else {
			metrics.RegistrationsTotal.WithLabelValues("failed").Inc()
			logger.Error("registration failed", "error", err)
		}
		return nil, regErr
	}

	metrics.RegistrationsTotal.WithLabelValues("ok").Inc()
	metrics.EntriesInserted.Add(float64(len(seeded)))

	logger.Info("feed registered",
		"feed_id", feed.ID,
		"title", feed.Title,
		"entries", len(seeded),
	)

	s.publish(ctx, logger, feed, seeded)

	return feed, nil
}

func (s *RegistrationService) register(ctx context.Context, feedURL, categoryName string) (*domain.FeedSource, []domain.Entry, error) {
	if feedURL == "" {
		return nil, nil, fmt.Errorf("%w: empty url", domain.ErrInvalidArgument)
	}
	if categoryName != "" {
		if _, err := validateCategoryName(categoryName); err != nil {
			return nil, nil, err
		}
	}

	if _, err := s.feeds.GetByURL(ctx, feedURL); err == nil {
		return nil, nil, fmt.Errorf("feed %q: %w", feedURL, domain.ErrDuplicate)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, nil, fmt.Errorf("check existing feed: %w", err)
	}

	doc, err := s.parser.Parse(ctx, feedURL)
	if err != nil {
		return nil, nil, err
	}

	feed := &domain.FeedSource{
		URL:          feedURL,
		Title:        doc.Title,
		Description:  doc.Description,
		LastSyncedAt: s.now().UTC(),
	}

	var seeded []domain.Entry
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if categoryName != "" {
			category, err := s.categories.GetOrCreate(txCtx, categoryName)
			if err != nil {
				return fmt.Errorf("resolve category: %w", err)
			}
			feed.CategoryID = lo.ToPtr(category.ID)
		}

		if err := s.feeds.Create(txCtx, feed); err != nil {
			return fmt.Errorf("create feed: %w", err)
		}

		seeded, err = s.entries.InsertBatch(txCtx, seedEntries(feed.ID, doc.Entries, s.seedLimit))
		if err != nil {
			return fmt.Errorf("insert seed entries: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return feed, seeded, nil
}

func (s *RegistrationService) publish(ctx context.Context, logger *slog.Logger, feed *domain.FeedSource, seeded []domain.Entry) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishFeed(ctx, feed); err != nil {
		metrics.PublishErrors.Inc()
		logger.Warn("publish feed", "error", err)
	}
	if len(seeded) == 0 {
		return
	}
	if err := s.publisher.PublishEntries(ctx, seeded); err != nil {
		metrics.PublishErrors.Inc()
		logger.Warn("publish entries", "count", len(seeded), "error", err)
	}
}

// seedEntries keeps the first limit distinct links in document order.
func seedEntries(feedID int64, docEntries []domain.DocumentEntry, limit int) []domain.Entry {
	unique := lo.UniqBy(docEntries, func(e domain.DocumentEntry) string {
		return e.Link
	})
	if limit > 0 && len(unique) > limit {
		unique = unique[:limit]
	}
	return lo.Map(unique, func(e domain.DocumentEntry, _ int) domain.Entry {
		return e.NewEntry(feedID)
	})
}

// isRejection reports caller-caused failures as opposed to storage faults.
func isRejection(err error) bool {
	return errors.Is(err, domain.ErrDuplicate) ||
		errors.Is(err, domain.ErrFetch) ||
		errors.Is(err, domain.ErrFormat) ||
		errors.Is(err, domain.ErrInvalidArgument)
}
