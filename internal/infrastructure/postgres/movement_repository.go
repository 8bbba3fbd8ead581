package postgres

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/jhoicas/inventario-garantias/internal/domain"
	"github.com/jhoicas/inventario-garantias/internal/domain/entity"
	"github.com/jhoicas/inventario-garantias/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

var movementColumns = []string{
	"id", "item_id", "kind", "quantity", "amount", "occurred_at",
	"reference", "warranty_claim_id", "created_by", "created_at",
}

const movementSelect = `
	SELECT id, item_id, kind, quantity, amount, occurred_at,
	       reference, warranty_claim_id, created_by, created_at
	FROM movements`

// MovementRepo implementación del diario de movimientos sobre PostgreSQL.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Create inserta el movimiento; occurred_at vacío toma now() en la base.
func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	var occurredAt any
	if !m.OccurredAt.IsZero() {
		occurredAt = m.OccurredAt
	}
	query := `
		INSERT INTO movements (item_id, kind, quantity, amount, occurred_at, reference, warranty_claim_id, created_by)
		VALUES ($1, $2, $3, $4, COALESCE($5::timestamptz, now()), $6, $7, $8)
		RETURNING id, occurred_at, created_at`
	err := r.q.QueryRow(ctx, query,
		m.ItemID, m.Kind, m.Quantity, m.Amount, occurredAt, m.Reference, m.WarrantyClaimID, m.CreatedBy,
	).Scan(&m.ID, &m.OccurredAt, &m.CreatedAt)
	return mapError("create movement", err)
}

// GetByID obtiene un movimiento. nil, nil si no existe.
func (r *MovementRepo) GetByID(ctx context.Context, id int64) (*entity.Movement, error) {
	return r.getOne(ctx, "get movement", movementSelect+` WHERE id = $1`, id)
}

// GetForUpdate bloquea la fila del movimiento; se toma antes que la del ítem.
func (r *MovementRepo) GetForUpdate(ctx context.Context, id int64) (*entity.Movement, error) {
	return r.getOne(ctx, "get movement for update", movementSelect+` WHERE id = $1 FOR UPDATE`, id)
}

func (r *MovementRepo) getOne(ctx context.Context, op, query string, args ...any) (*entity.Movement, error) {
	var m entity.Movement
	if err := pgxscan.Get(ctx, r.q, &m, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, mapError(op, err)
	}
	return &m, nil
}

// Delete elimina el movimiento.
func (r *MovementRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM movements WHERE id = $1`, id)
	if err != nil {
		return mapError("delete movement", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CountByItem cuenta los movimientos que referencian al ítem.
func (r *MovementRepo) CountByItem(ctx context.Context, itemID int64) (int64, error) {
	var n int64
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM movements WHERE item_id = $1`, itemID).Scan(&n)
	if err != nil {
		return 0, mapError("count movements", err)
	}
	return n, nil
}

// TotalsByItem suma el diario por tipo.
func (r *MovementRepo) TotalsByItem(ctx context.Context, itemID int64) (repository.JournalTotals, error) {
	query := `
		SELECT COALESCE(SUM(quantity) FILTER (WHERE kind = 'RECEIPT'), 0),
		       COALESCE(SUM(quantity) FILTER (WHERE kind = 'WITHDRAWAL'), 0),
		       COUNT(*)
		FROM movements WHERE item_id = $1`
	var t repository.JournalTotals
	if err := r.q.QueryRow(ctx, query, itemID).Scan(&t.Received, &t.Withdrawn, &t.Count); err != nil {
		return t, mapError("movement totals", err)
	}
	return t, nil
}

// List devuelve el diario, más reciente primero.
func (r *MovementRepo) List(ctx context.Context, filter repository.MovementFilter) ([]*entity.Movement, error) {
	query, args, err := buildMovementList(filter).ToSql()
	if err != nil {
		return nil, mapError("build list movements", err)
	}
	var list []*entity.Movement
	if err := pgxscan.Select(ctx, r.q, &list, query, args...); err != nil {
		return nil, mapError("list movements", err)
	}
	return list, nil
}

func buildMovementList(filter repository.MovementFilter) squirrel.SelectBuilder {
	q := psql.Select(movementColumns...).From("movements")
	if filter.ItemID != nil {
		q = q.Where(squirrel.Eq{"item_id": *filter.ItemID})
	}
	if filter.Kind != "" {
		q = q.Where(squirrel.Eq{"kind": filter.Kind})
	}
	if filter.From != nil {
		q = q.Where(squirrel.GtOrEq{"occurred_at": *filter.From})
	}
	if filter.To != nil {
		q = q.Where(squirrel.LtOrEq{"occurred_at": *filter.To})
	}
	q = q.OrderBy("occurred_at DESC", "id DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	return q
}
