package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de stock.
const (
	MovementKindReceipt    = "RECEIPT"    // entrada
	MovementKindWithdrawal = "WITHDRAWAL" // salida
)

// ValidMovementKind indica si kind es uno de los tipos aceptados.
func ValidMovementKind(kind string) bool {
	return kind == MovementKindReceipt || kind == MovementKindWithdrawal
}

// Movement es un evento del diario de stock. No se edita; borrarlo revierte su efecto.
type Movement struct {
	ID              int64           `db:"id"`
	ItemID          int64           `db:"item_id"`
	Kind            string          `db:"kind"`
	Quantity        int64           `db:"quantity"` // siempre positivo; el signo lo da Kind
	Amount          decimal.Decimal `db:"amount"`   // dos decimales, 0 si no se informó
	OccurredAt      time.Time       `db:"occurred_at"`
	Reference       string          `db:"reference"`         // ej. "GARANTIA-12"
	WarrantyClaimID *int64          `db:"warranty_claim_id"` // préstamo originado por una garantía
	CreatedBy       string          `db:"created_by"`
	CreatedAt       time.Time       `db:"created_at"`
}
