package postgres

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/jhoicas/inventario-garantias/internal/domain"
	"github.com/jhoicas/inventario-garantias/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-garantias/internal/domain/inventory"
	"github.com/jhoicas/inventario-garantias/internal/domain/repository"
)

var _ repository.StockItemRepository = (*StockItemRepo)(nil)

// psql genera SQL con placeholders $n.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var stockItemColumns = []string{
	"id", "name", "model", "name_key", "model_key",
	"initial_quantity", "received", "withdrawn", "on_hand",
	"cost", "sale_price", "min_quantity", "warranty_months",
	"created_at", "updated_at",
}

const stockItemSelect = `
	SELECT id, name, model, name_key, model_key,
	       initial_quantity, received, withdrawn, on_hand,
	       cost, sale_price, min_quantity, warranty_months,
	       created_at, updated_at
	FROM stock_items`

// StockItemRepo implementación de StockItemRepository sobre PostgreSQL (usable con pool o tx).
type StockItemRepo struct {
	q Querier
}

// NewStockItemRepository construye el adaptador de ítems. Pasar pool o tx (Querier).
func NewStockItemRepository(q Querier) *StockItemRepo {
	return &StockItemRepo{q: q}
}

// Create inserta el ítem con contadores en cero y on_hand = initial_quantity.
func (r *StockItemRepo) Create(ctx context.Context, item *entity.StockItem) error {
	query := `
		INSERT INTO stock_items (name, model, name_key, model_key, initial_quantity, received, withdrawn, on_hand,
		                         cost, sale_price, min_quantity, warranty_months)
		VALUES ($1, $2, $3, $4, $5, 0, 0, $5, $6, $7, $8, $9)
		RETURNING id, received, withdrawn, on_hand, created_at, updated_at`
	err := r.q.QueryRow(ctx, query,
		item.Name, item.Model, item.NameKey, item.ModelKey, item.InitialQuantity,
		item.Cost, item.SalePrice, item.MinQuantity, item.WarrantyMonths,
	).Scan(&item.ID, &item.Received, &item.Withdrawn, &item.OnHand, &item.CreatedAt, &item.UpdatedAt)
	return mapError("create stock item", err)
}

// GetByID obtiene un ítem. nil, nil si no existe.
func (r *StockItemRepo) GetByID(ctx context.Context, id int64) (*entity.StockItem, error) {
	return r.getOne(ctx, "get stock item", stockItemSelect+` WHERE id = $1`, id)
}

// GetForUpdate obtiene el ítem y bloquea la fila (SELECT FOR UPDATE) hasta el fin de la tx.
func (r *StockItemRepo) GetForUpdate(ctx context.Context, id int64) (*entity.StockItem, error) {
	return r.getOne(ctx, "get stock item for update", stockItemSelect+` WHERE id = $1 FOR UPDATE`, id)
}

func (r *StockItemRepo) getOne(ctx context.Context, op, query string, args ...any) (*entity.StockItem, error) {
	var item entity.StockItem
	if err := pgxscan.Get(ctx, r.q, &item, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, mapError(op, err)
	}
	return &item, nil
}

// UpdateDetails actualiza solo columnas descriptivas y comerciales.
func (r *StockItemRepo) UpdateDetails(ctx context.Context, item *entity.StockItem) error {
	query := `
		UPDATE stock_items
		SET name = $2, model = $3, name_key = $4, model_key = $5,
		    cost = $6, sale_price = $7, min_quantity = $8, warranty_months = $9, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`
	err := r.q.QueryRow(ctx, query,
		item.ID, item.Name, item.Model, item.NameKey, item.ModelKey,
		item.Cost, item.SalePrice, item.MinQuantity, item.WarrantyMonths,
	).Scan(&item.UpdatedAt)
	if pgxscan.NotFound(err) {
		return domain.ErrNotFound
	}
	return mapError("update stock item", err)
}

// UpdateCounters escribe received/withdrawn/on_hand. Los CHECK de la tabla rechazan
// cualquier combinación que rompa on_hand = initial + received - withdrawn.
func (r *StockItemRepo) UpdateCounters(ctx context.Context, item *entity.StockItem) error {
	query := `
		UPDATE stock_items
		SET received = $2, withdrawn = $3, on_hand = $4, updated_at = now()
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, item.ID, item.Received, item.Withdrawn, item.OnHand)
	if err != nil {
		return mapError("update stock counters", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete elimina el ítem. movements.item_id es ON DELETE RESTRICT (23503 -> ErrConflict).
func (r *StockItemRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM stock_items WHERE id = $1`, id)
	if err != nil {
		return mapError("delete stock item", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List lista el catálogo; Query filtra por subcadena sobre las claves normalizadas.
func (r *StockItemRepo) List(ctx context.Context, filter repository.StockItemFilter) ([]*entity.StockItem, error) {
	query, args, err := buildStockItemList(filter).ToSql()
	if err != nil {
		return nil, mapError("build list stock items", err)
	}
	var items []*entity.StockItem
	if err := pgxscan.Select(ctx, r.q, &items, query, args...); err != nil {
		return nil, mapError("list stock items", err)
	}
	return items, nil
}

func buildStockItemList(filter repository.StockItemFilter) squirrel.SelectBuilder {
	q := psql.Select(stockItemColumns...).From("stock_items")
	if key := domaininv.SearchKey(filter.Query); key != "" {
		pattern := "%" + key + "%"
		q = q.Where(squirrel.Or{
			squirrel.Like{"name_key": pattern},
			squirrel.Like{"model_key": pattern},
		})
	}
	q = q.OrderBy("name ASC", "id ASC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	return q
}

// FindFirstByKeys asocia por nombre, modelo o "nombre modelo" normalizados; gana el menor ID.
func (r *StockItemRepo) FindFirstByKeys(ctx context.Context, keys []string) (*entity.StockItem, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	query := stockItemSelect + `
		WHERE name_key = ANY($1)
		   OR (model_key <> '' AND model_key = ANY($1))
		   OR btrim(name_key || ' ' || model_key) = ANY($1)
		ORDER BY id ASC
		LIMIT 1`
	return r.getOne(ctx, "find stock item by keys", query, keys)
}
