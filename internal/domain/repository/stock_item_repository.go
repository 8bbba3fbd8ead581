package repository

import (
	"context"

	"github.com/jhoicas/inventario-garantias/internal/domain/entity"
)

// StockItemFilter filtros del listado de catálogo.
type StockItemFilter struct {
	Query  string // subcadena sobre nombre o modelo
	Limit  int
	Offset int
}

// StockItemRepository define el puerto de persistencia para StockItem.
// UpdateCounters es de uso exclusivo del motor de movimientos, dentro de una transacción
// que ya bloqueó la fila con GetForUpdate.
type StockItemRepository interface {
	Create(ctx context.Context, item *entity.StockItem) error
	GetByID(ctx context.Context, id int64) (*entity.StockItem, error)
	// GetForUpdate bloquea la fila (SELECT FOR UPDATE) hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id int64) (*entity.StockItem, error)
	UpdateDetails(ctx context.Context, item *entity.StockItem) error
	UpdateCounters(ctx context.Context, item *entity.StockItem) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter StockItemFilter) ([]*entity.StockItem, error)
	// FindFirstByKeys devuelve el ítem de menor ID cuyo name_key o model_key esté en keys.
	FindFirstByKeys(ctx context.Context, keys []string) (*entity.StockItem, error)
}
