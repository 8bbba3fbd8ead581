package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-garantias/internal/domain/entity"
)

// MovementFilter filtros del diario de movimientos.
type MovementFilter struct {
	ItemID *int64
	Kind   string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// JournalTotals sumas del diario por tipo para un ítem.
type JournalTotals struct {
	Received  int64
	Withdrawn int64
	Count     int64
}

// MovementRepository define el puerto de persistencia del diario de movimientos.
type MovementRepository interface {
	// Create inserta y completa ID, OccurredAt (si venía vacío) y CreatedAt.
	Create(ctx context.Context, movement *entity.Movement) error
	GetByID(ctx context.Context, id int64) (*entity.Movement, error)
	GetForUpdate(ctx context.Context, id int64) (*entity.Movement, error)
	Delete(ctx context.Context, id int64) error
	CountByItem(ctx context.Context, itemID int64) (int64, error)
	TotalsByItem(ctx context.Context, itemID int64) (JournalTotals, error)
	List(ctx context.Context, filter MovementFilter) ([]*entity.Movement, error)
}
