package warranty

import (
	"context"

	"github.com/jhoicas/inventario-garantias/internal/application/inventory"
	"github.com/jhoicas/inventario-garantias/internal/domain/entity"
	"github.com/jhoicas/inventario-garantias/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción que incluye repos de inventario y garantías.
type TxRunner interface {
	RunWarranty(ctx context.Context, fn func(
		movRepo repository.MovementRepository,
		itemRepo repository.StockItemRepository,
		claimRepo repository.WarrantyClaimRepository,
	) error) error
}

// StockEngine interfaz para integrar garantías con el motor de stock.
// ApplyMovementInTx usa los repositorios del caller (misma transacción).
// Si retorna error (ej: ErrInsufficientStock), el caller debe hacer rollback.
type StockEngine interface {
	ApplyMovementInTx(
		ctx context.Context,
		movRepo repository.MovementRepository,
		itemRepo repository.StockItemRepository,
		in inventory.MovementInput,
	) (*entity.Movement, error)
}

// Metrics contadores del flujo de garantías. nil desactiva.
type Metrics interface {
	ClaimCreated(linked, withLoan bool)
	LoanRejected(reason string)
	MovementApplied(kind string, quantity int64)
}
