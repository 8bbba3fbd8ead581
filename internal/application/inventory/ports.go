package inventory

import (
	"context"

	"github.com/jhoicas/inventario-garantias/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza atomicidad para el motor de stock: si fn devuelve error no queda nada persistido.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		movRepo repository.MovementRepository,
		itemRepo repository.StockItemRepository,
	) error) error
}

// Metrics observa el resultado de las operaciones del motor. Puede ser nil.
type Metrics interface {
	MovementApplied(kind string, quantity int64)
	MovementRejected(kind, reason string)
	MovementReversed(kind string)
	ItemDeleteBlocked()
}
