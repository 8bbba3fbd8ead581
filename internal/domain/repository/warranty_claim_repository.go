package repository

import (
	"context"

	"github.com/jhoicas/inventario-garantias/internal/domain/entity"
)

// WarrantyClaimFilter filtros del listado de garantías.
type WarrantyClaimFilter struct {
	Status      string
	StockItemID *int64
	Limit       int
	Offset      int
}

// WarrantyClaimRepository define el puerto de persistencia para garantías.
type WarrantyClaimRepository interface {
	Create(ctx context.Context, claim *entity.WarrantyClaim) error
	GetByID(ctx context.Context, id int64) (*entity.WarrantyClaim, error)
	Update(ctx context.Context, claim *entity.WarrantyClaim) error
	List(ctx context.Context, filter WarrantyClaimFilter) ([]*entity.WarrantyClaim, error)
}
