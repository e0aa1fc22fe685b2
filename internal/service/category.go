package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"

	"feed_syncer/internal/domain"
)

const maxCategoryNameLen = 100

type CategoryService struct {
	categories CategoryStore
	feeds      FeedStore
	txManager  TransactionManager
	logger     *slog.Logger
}

func NewCategoryService(categories CategoryStore, feeds FeedStore, txManager TransactionManager, logger *slog.Logger) *CategoryService {
	return &CategoryService{
		categories: categories,
		feeds:      feeds,
		txManager:  txManager,
		logger:     logger.With("component", "categories"),
	}
}

func (s *CategoryService) Create(ctx context.Context, name string) (*domain.Category, error) {
	name, err := validateCategoryName(name)
	if err != nil {
		return nil, err
	}

	category, err := s.categories.Create(ctx, name)
	if err != nil {
		return nil, err
	}

	s.logger.Info("category created", "category_id", category.ID, "name", category.Name)
	return category, nil
}

func (s *CategoryService) Rename(ctx context.Context, id int64, name string) error {
	name, err := validateCategoryName(name)
	if err != nil {
		return err
	}

	if err := s.categories.Rename(ctx, id, name); err != nil {
		return err
	}

	s.logger.Info("category renamed", "category_id", id, "name", name)
	return nil
}

// Delete detaches every feed filed under the category, then removes it.
func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	var detached int64
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.categories.GetByID(txCtx, id); err != nil {
			return err
		}

		n, err := s.feeds.DetachCategory(txCtx, id)
		if err != nil {
			return fmt.Errorf("detach feeds: %w", err)
		}
		detached = n

		return s.categories.Delete(txCtx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("category deleted", "category_id", id, "detached_feeds", detached)
	return nil
}

// MoveFeed files the feed under categoryID, or uncategorizes it when
// categoryID is nil.
func (s *CategoryService) MoveFeed(ctx context.Context, feedID int64, categoryID *int64) error {
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.feeds.GetByID(txCtx, feedID); err != nil {
			return err
		}
		if categoryID != nil {
			if _, err := s.categories.GetByID(txCtx, *categoryID); err != nil {
				return err
			}
		}
		return s.feeds.SetCategory(txCtx, feedID, categoryID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("feed moved", "feed_id", feedID, "category_id", lo.FromPtr(categoryID))
	return nil
}

func (s *CategoryService) List(ctx context.Context) ([]domain.Category, error) {
	return s.categories.List(ctx)
}

func validateCategoryName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: category name is empty", domain.ErrInvalidArgument)
	}
	if utf8.RuneCountInString(name) > maxCategoryNameLen {
		return "", fmt.Errorf("%w: category name longer than %d characters", domain.ErrInvalidArgument, maxCategoryNameLen)
	}
	return name, nil
}
