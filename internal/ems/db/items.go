package db

import (
	"context"

	e "github.com/gartstein/ems/internal/ems/errors"
	"github.com/gartstein/ems/internal/ems/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var itemSortColumns = map[string]string{
	"name":      "name",
	"price":     "price",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

func (r *Repository) CreateItem(ctx context.Context, item *models.Item) error {
	result := r.db.WithContext(ctx).Create(item)
	if result.Error != nil {
		return translateError(result.Error)
	}
	return nil
}

func (r *Repository) GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	result := r.db.WithContext(ctx).First(&item, "id = ?", id)
	if result.Error != nil {
		return nil, translateError(result.Error)
	}
	return &item, nil
}

// UpdateItem writes the present fields through the struct so the tags
// serializer applies.
func (r *Repository) UpdateItem(ctx context.Context, update *models.ItemUpdate) error {
	values := models.Item{}
	var columns []string
	if update.Name != nil {
		values.Name = *update.Name
		columns = append(columns, "name")
	}
	if update.Description != nil {
		values.Description = *update.Description
		columns = append(columns, "description")
	}
	if update.Price != nil {
		values.Price = *update.Price
		columns = append(columns, "price")
	}
	if update.Tags != nil {
		values.Tags = *update.Tags
		columns = append(columns, "tags")
	}
	if len(columns) == 0 {
		_, err := r.GetItem(ctx, update.ID)
		return err
	}

	result := r.db.WithContext(ctx).Model(&models.Item{ID: update.ID}).
		Select(columns).
		Updates(&values)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteItem(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Item{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// ListItems returns one page of items whose name or description contains
// the query.
func (r *Repository) ListItems(ctx context.Context, q models.ListQuery) ([]models.Item, int64, error) {
	q = q.Normalize()

	filtered := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&models.Item{})
		if q.Query != "" {
			pattern := likePattern(q.Query)
			query = query.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, pattern, pattern)
		}
		return query
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, desc := SanitizeSort(q.Sort, itemSortColumns)
	items := make([]models.Item, 0, q.Limit)
	result := filtered().
		Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: desc}).
		Order("id").
		Offset(q.Offset()).
		Limit(q.Limit).
		Find(&items)
	if result.Error != nil {
		return nil, 0, result.Error
	}
	return items, total, nil
}
