package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"

	e "github.com/gartstein/ems/internal/ems/errors"
	"github.com/gartstein/ems/internal/ems/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ItemRepository interface {
	CreateItem(ctx context.Context, item *models.Item) error
	GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error)
	UpdateItem(ctx context.Context, update *models.ItemUpdate) error
	DeleteItem(ctx context.Context, id uuid.UUID) error
	ListItems(ctx context.Context, q models.ListQuery) ([]models.Item, int64, error)
}

type ItemService struct {
	repo      ItemRepository
	validator Validator
	logger    *zap.Logger
}

func NewItemService(repo ItemRepository, validator Validator, logger *zap.Logger) *ItemService {
	return &ItemService{
		repo:      repo,
		validator: validator,
		logger:    logger.Named("item_service"),
	}
}

func (s *ItemService) CreateItem(ctx context.Context, input *models.ItemInput) (*models.Item, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}

	item := &models.Item{
		ID:          uuid.New(),
		Name:        input.Name,
		Description: input.Description,
		Price:       decimal.Zero,
		Tags:        []string{},
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, e.Invalid("price", "Price must not be negative")
		}
		item.Price = *input.Price
	}
	if input.Tags != nil {
		item.Tags = input.Tags
	}

	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	s.logger.Info("item created", zap.String("item_id", item.ID.String()))
	return item, nil
}

func (s *ItemService) GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

func (s *ItemService) UpdateItem(ctx context.Context, update *models.ItemUpdate) (*models.Item, error) {
	if update.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: invalid item ID", e.ErrInvalidInput)
	}
	if update.Name != nil {
		*update.Name = strings.TrimSpace(*update.Name)
		if err := s.validator.ValidateVar("name", *update.Name, "required,max=200"); err != nil {
			return nil, err
		}
	}
	if update.Description != nil {
		if err := s.validator.ValidateVar("description", *update.Description, "max=3000"); err != nil {
			return nil, err
		}
	}
	if update.Price != nil && update.Price.IsNegative() {
		return nil, e.Invalid("price", "Price must not be negative")
	}
	if update.Tags != nil && *update.Tags == nil {
		update.Tags = &[]string{}
	}

	if err := s.repo.UpdateItem(ctx, update); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	return s.GetItem(ctx, update.ID)
}

func (s *ItemService) DeleteItem(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteItem(ctx, id); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

func (s *ItemService) ListItems(ctx context.Context, q models.ListQuery) (*models.Page[models.Item], error) {
	q = q.Normalize()
	items, total, err := s.repo.ListItems(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return &models.Page[models.Item]{Data: items, Total: total, Page: q.Page, Limit: q.Limit}, nil
}
