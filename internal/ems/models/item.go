package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is a generic catalogue record.
type Item struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string          `gorm:"size:200;not null" json:"name"`
	Description string          `gorm:"size:3000;not null" json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"price"`
	Tags        []string        `gorm:"type:text;serializer:json" json:"tags"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ItemInput is the payload for creating an item.
type ItemInput struct {
	Name        string           `json:"name" validate:"required,max=200"`
	Description string           `json:"description" validate:"max=3000"`
	Price       *decimal.Decimal `json:"price"`
	Tags        []string         `json:"tags"`
}

// ItemUpdate represents the fields that can be updated for an Item.
// Pointer types are used to allow partial updates.
type ItemUpdate struct {
	ID          uuid.UUID
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Tags        *[]string
}
