package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateStockItemRequest entrada para crear un ítem de catálogo.
type CreateStockItemRequest struct {
	Name            string           `json:"name" validate:"required,max=200"`
	Model           string           `json:"model" validate:"max=200"`
	InitialQuantity int64            `json:"initial_quantity" validate:"min=0"`
	Cost            *decimal.Decimal `json:"cost"`
	SalePrice       *decimal.Decimal `json:"sale_price"`
	MinQuantity     int64            `json:"min_quantity" validate:"min=0"`
	WarrantyMonths  int              `json:"warranty_months" validate:"min=0"`
}

// UpdateStockItemRequest actualiza datos descriptivos y comerciales.
// No incluye cantidades: el stock solo cambia por movimientos.
type UpdateStockItemRequest struct {
	Name           *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Model          *string          `json:"model" validate:"omitempty,max=200"`
	Cost           *decimal.Decimal `json:"cost"`
	SalePrice      *decimal.Decimal `json:"sale_price"`
	MinQuantity    *int64           `json:"min_quantity" validate:"omitempty,min=0"`
	WarrantyMonths *int             `json:"warranty_months" validate:"omitempty,min=0"`
}

// StockItemResponse salida de un ítem con sus contadores.
type StockItemResponse struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Model           string    `json:"model"`
	InitialQuantity int64     `json:"initial_quantity"`
	Received        int64     `json:"received"`
	Withdrawn       int64     `json:"withdrawn"`
	OnHand          int64     `json:"on_hand"`
	Cost            string    `json:"cost"`
	SalePrice       string    `json:"sale_price"`
	MinQuantity     int64     `json:"min_quantity"`
	BelowMinimum    bool      `json:"below_minimum"`
	WarrantyMonths  int       `json:"warranty_months"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// StockItemListResponse lista paginada de ítems.
type StockItemListResponse struct {
	Items []StockItemResponse `json:"items"`
	Page  PageResponse        `json:"page"`
}
