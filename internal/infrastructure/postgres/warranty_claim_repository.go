package postgres

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/jhoicas/inventario-garantias/internal/domain"
	"github.com/jhoicas/inventario-garantias/internal/domain/entity"
	"github.com/jhoicas/inventario-garantias/internal/domain/repository"
)

var _ repository.WarrantyClaimRepository = (*WarrantyClaimRepo)(nil)

var claimColumns = []string{
	"id", "customer_name", "customer_document", "customer_phone", "customer_address",
	"product_code", "product_description", "stock_item_id",
	"opened_at", "limit_date", "purchase_date", "status", "problem_description",
	"loan_active", "loan_quantity", "created_by", "created_at", "updated_at",
}

// WarrantyClaimRepo implementación de garantías sobre PostgreSQL.
type WarrantyClaimRepo struct {
	q Querier
}

// NewWarrantyClaimRepository construye el adaptador. Pasar pool o tx (Querier).
func NewWarrantyClaimRepository(q Querier) *WarrantyClaimRepo {
	return &WarrantyClaimRepo{q: q}
}

// Create inserta la garantía.
func (r *WarrantyClaimRepo) Create(ctx context.Context, c *entity.WarrantyClaim) error {
	query := `
		INSERT INTO warranty_claims (customer_name, customer_document, customer_phone, customer_address,
		                             product_code, product_description, stock_item_id,
		                             opened_at, limit_date, purchase_date, status, problem_description,
		                             loan_active, loan_quantity, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at`
	err := r.q.QueryRow(ctx, query,
		c.CustomerName, c.CustomerDocument, c.CustomerPhone, c.CustomerAddress,
		c.ProductCode, c.ProductDescription, c.StockItemID,
		c.OpenedAt, c.LimitDate, c.PurchaseDate, c.Status, c.ProblemDescription,
		c.LoanActive, c.LoanQuantity, c.CreatedBy,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return mapError("create warranty claim", err)
}

// GetByID obtiene una garantía. nil, nil si no existe.
func (r *WarrantyClaimRepo) GetByID(ctx context.Context, id int64) (*entity.WarrantyClaim, error) {
	query, args, err := psql.Select(claimColumns...).From("warranty_claims").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, mapError("build get warranty claim", err)
	}
	var c entity.WarrantyClaim
	if err := pgxscan.Get(ctx, r.q, &c, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, mapError("get warranty claim", err)
	}
	return &c, nil
}

// Update parcha datos y estado. stock_item_id y el préstamo no se modifican.
func (r *WarrantyClaimRepo) Update(ctx context.Context, c *entity.WarrantyClaim) error {
	query := `
		UPDATE warranty_claims
		SET customer_name = $2, customer_document = $3, customer_phone = $4, customer_address = $5,
		    product_description = $6, limit_date = $7, purchase_date = $8, status = $9,
		    problem_description = $10, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`
	err := r.q.QueryRow(ctx, query,
		c.ID, c.CustomerName, c.CustomerDocument, c.CustomerPhone, c.CustomerAddress,
		c.ProductDescription, c.LimitDate, c.PurchaseDate, c.Status, c.ProblemDescription,
	).Scan(&c.UpdatedAt)
	if pgxscan.NotFound(err) {
		return domain.ErrNotFound
	}
	return mapError("update warranty claim", err)
}

// List lista garantías, más recientes primero.
func (r *WarrantyClaimRepo) List(ctx context.Context, filter repository.WarrantyClaimFilter) ([]*entity.WarrantyClaim, error) {
	query, args, err := buildClaimList(filter).ToSql()
	if err != nil {
		return nil, mapError("build list warranty claims", err)
	}
	var list []*entity.WarrantyClaim
	if err := pgxscan.Select(ctx, r.q, &list, query, args...); err != nil {
		return nil, mapError("list warranty claims", err)
	}
	return list, nil
}

func buildClaimList(filter repository.WarrantyClaimFilter) squirrel.SelectBuilder {
	q := psql.Select(claimColumns...).From("warranty_claims")
	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.StockItemID != nil {
		q = q.Where(squirrel.Eq{"stock_item_id": *filter.StockItemID})
	}
	q = q.OrderBy("id DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	return q
}
