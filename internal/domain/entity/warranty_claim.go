package entity

import "time"

// Estados de una garantía.
const (
	ClaimStatusOpen        = "OPEN"
	ClaimStatusUnderReview = "UNDER_REVIEW"
	ClaimStatusApproved    = "APPROVED"
	ClaimStatusRejected    = "REJECTED"
	ClaimStatusClosed      = "CLOSED"
)

// ValidClaimStatus indica si status pertenece a la enumeración.
func ValidClaimStatus(status string) bool {
	switch status {
	case ClaimStatusOpen, ClaimStatusUnderReview, ClaimStatusApproved, ClaimStatusRejected, ClaimStatusClosed:
		return true
	}
	return false
}

// WarrantyClaim es una solicitud de garantía de un cliente.
// StockItemID es una asociación por nombre/modelo, no una clave fuerte.
type WarrantyClaim struct {
	ID                 int64      `db:"id"`
	CustomerName       string     `db:"customer_name"`
	CustomerDocument   string     `db:"customer_document"`
	CustomerPhone      string     `db:"customer_phone"`
	CustomerAddress    string     `db:"customer_address"`
	ProductCode        string     `db:"product_code"`
	ProductDescription string     `db:"product_description"`
	StockItemID        *int64     `db:"stock_item_id"`
	OpenedAt           time.Time  `db:"opened_at"`
	LimitDate          time.Time  `db:"limit_date"`
	PurchaseDate       *time.Time `db:"purchase_date"`
	Status             string     `db:"status"`
	ProblemDescription string     `db:"problem_description"`
	LoanActive         bool       `db:"loan_active"` // solo se procesa al crear
	LoanQuantity       int64      `db:"loan_quantity"`
	CreatedBy          string     `db:"created_by"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}
