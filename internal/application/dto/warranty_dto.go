package dto

import "time"

// LoanRequest préstamo de una unidad sustituta al abrir la garantía.
type LoanRequest struct {
	Active   bool  `json:"active"`
	Quantity int64 `json:"quantity" validate:"min=0"`
}

// CreateClaimRequest body para POST /api/warranty-claims.
// Fechas en formato YYYY-MM-DD.
type CreateClaimRequest struct {
	CustomerName       string       `json:"customer_name" validate:"required,max=200"`
	CustomerDocument   string       `json:"customer_document" validate:"required,max=40"`
	CustomerPhone      string       `json:"customer_phone" validate:"max=40"`
	CustomerAddress    string       `json:"customer_address" validate:"max=300"`
	ProductCode        string       `json:"product_code" validate:"required,max=200"`
	ProductDescription string       `json:"product_description" validate:"required,max=300"`
	OpenedAt           string       `json:"opened_at" validate:"omitempty,datetime=2006-01-02"`
	LimitDate          string       `json:"limit_date" validate:"required,datetime=2006-01-02"`
	PurchaseDate       string       `json:"purchase_date" validate:"omitempty,datetime=2006-01-02"`
	Status             string       `json:"status" validate:"omitempty,oneof=OPEN UNDER_REVIEW APPROVED REJECTED CLOSED"`
	ProblemDescription string       `json:"problem_description" validate:"max=2000"`
	Loan               *LoanRequest `json:"loan,omitempty"`
}

// UpdateClaimRequest body para PATCH /api/warranty-claims/:id. El préstamo no se reevalúa.
type UpdateClaimRequest struct {
	CustomerName       *string `json:"customer_name" validate:"omitempty,min=1,max=200"`
	CustomerDocument   *string `json:"customer_document" validate:"omitempty,min=1,max=40"`
	CustomerPhone      *string `json:"customer_phone" validate:"omitempty,max=40"`
	CustomerAddress    *string `json:"customer_address" validate:"omitempty,max=300"`
	ProductDescription *string `json:"product_description" validate:"omitempty,min=1,max=300"`
	LimitDate          *string `json:"limit_date" validate:"omitempty,datetime=2006-01-02"`
	PurchaseDate       *string `json:"purchase_date" validate:"omitempty,datetime=2006-01-02"`
	Status             *string `json:"status" validate:"omitempty,oneof=OPEN UNDER_REVIEW APPROVED REJECTED CLOSED"`
	ProblemDescription *string `json:"problem_description" validate:"omitempty,max=2000"`
}

// ClaimResponse salida de una garantía; LoanMovement solo viene al crear con préstamo aplicado.
type ClaimResponse struct {
	ID                 int64             `json:"id"`
	CustomerName       string            `json:"customer_name"`
	CustomerDocument   string            `json:"customer_document"`
	CustomerPhone      string            `json:"customer_phone,omitempty"`
	CustomerAddress    string            `json:"customer_address,omitempty"`
	ProductCode        string            `json:"product_code"`
	ProductDescription string            `json:"product_description"`
	StockItemID        *int64            `json:"stock_item_id"`
	OpenedAt           string            `json:"opened_at"`
	LimitDate          string            `json:"limit_date"`
	PurchaseDate       string            `json:"purchase_date,omitempty"`
	Status             string            `json:"status"`
	ProblemDescription string            `json:"problem_description,omitempty"`
	LoanActive         bool              `json:"loan_active"`
	LoanQuantity       int64             `json:"loan_quantity"`
	LoanMovement       *MovementResponse `json:"loan_movement,omitempty"`
	CreatedBy          string            `json:"created_by,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// ClaimListResponse lista paginada de garantías.
type ClaimListResponse struct {
	Items []ClaimResponse `json:"items"`
	Page  PageResponse    `json:"page"`
}
