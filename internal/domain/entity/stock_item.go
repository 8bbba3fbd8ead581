package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockItem es una entrada del catálogo (batería, equipo de audio) con sus contadores de stock.
// Received, Withdrawn y OnHand solo los modifica el motor de movimientos.
type StockItem struct {
	ID              int64           `db:"id"`
	Name            string          `db:"name"`     // producto
	Model           string          `db:"model"`    // modelo/variante
	NameKey         string          `db:"name_key"` // Name normalizado (sin acentos, minúsculas) para asociar garantías
	ModelKey        string          `db:"model_key"`
	InitialQuantity int64           `db:"initial_quantity"` // fijo desde la creación
	Received        int64           `db:"received"`         // suma de RECEIPT
	Withdrawn       int64           `db:"withdrawn"`        // suma de WITHDRAWAL
	OnHand          int64           `db:"on_hand"`          // InitialQuantity + Received - Withdrawn
	Cost            decimal.Decimal `db:"cost"`
	SalePrice       decimal.Decimal `db:"sale_price"`
	MinQuantity     int64           `db:"min_quantity"`
	WarrantyMonths  int             `db:"warranty_months"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// BelowMinimum indica si el stock disponible quedó por debajo del mínimo configurado.
func (s *StockItem) BelowMinimum() bool {
	return s.MinQuantity > 0 && s.OnHand < s.MinQuantity
}
