package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ApplyMovementRequest body para POST /api/movements.
type ApplyMovementRequest struct {
	ItemID     int64            `json:"item_id" validate:"required,gt=0"`
	Kind       string           `json:"kind" validate:"required,oneof=RECEIPT WITHDRAWAL"`
	Quantity   int64            `json:"quantity" validate:"required,gt=0"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	OccurredAt *time.Time       `json:"occurred_at,omitempty"`
	Reference  string           `json:"reference,omitempty" validate:"max=100"`
}

// MovementResponse salida de un movimiento persistido.
type MovementResponse struct {
	ID              int64     `json:"id"`
	ItemID          int64     `json:"item_id"`
	Kind            string    `json:"kind"`
	Quantity        int64     `json:"quantity"`
	Amount          string    `json:"amount"`
	OccurredAt      time.Time `json:"occurred_at"`
	Reference       string    `json:"reference,omitempty"`
	WarrantyClaimID *int64    `json:"warranty_claim_id,omitempty"`
	CreatedBy       string    `json:"created_by,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// MovementListResponse lista paginada del diario.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// LedgerCheckResponse compara los contadores guardados con las sumas del diario.
type LedgerCheckResponse struct {
	ItemID           int64 `json:"item_id"`
	InitialQuantity  int64 `json:"initial_quantity"`
	StoredReceived   int64 `json:"stored_received"`
	StoredWithdrawn  int64 `json:"stored_withdrawn"`
	StoredOnHand     int64 `json:"stored_on_hand"`
	JournalReceived  int64 `json:"journal_received"`
	JournalWithdrawn int64 `json:"journal_withdrawn"`
	JournalOnHand    int64 `json:"journal_on_hand"`
	JournalMovements int64 `json:"journal_movements"`
	Consistent       bool  `json:"consistent"`
}
