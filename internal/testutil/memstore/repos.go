package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jhoicas/inventario-garantias/internal/domain"
	"github.com/jhoicas/inventario-garantias/internal/domain/entity"
	"github.com/jhoicas/inventario-garantias/internal/domain/inventory"
	"github.com/jhoicas/inventario-garantias/internal/domain/repository"
)

var (
	_ repository.StockItemRepository     = (*itemRepo)(nil)
	_ repository.MovementRepository      = (*movementRepo)(nil)
	_ repository.WarrantyClaimRepository = (*claimRepo)(nil)
)

func itemKey(id int64) string     { return fmt.Sprintf("item:%d", id) }
func movementKey(id int64) string { return fmt.Sprintf("movement:%d", id) }
func claimKey(id int64) string    { return fmt.Sprintf("claim:%d", id) }

// forUpdate bloquea la fila; en autocommit solo espera a que esté libre.
func (tx *Tx) forUpdate(ctx context.Context, key string) error {
	if tx.auto {
		return tx.waitRow(ctx, key)
	}
	return tx.lock(ctx, key)
}

type itemRepo struct{ tx *Tx }

func (r *itemRepo) Create(ctx context.Context, item *entity.StockItem) error {
	if err := r.tx.s.check("item.create"); err != nil {
		return err
	}
	now := r.tx.s.now()
	item.ID = r.tx.nextID(&r.tx.s.seqItem)
	item.CreatedAt, item.UpdatedAt = now, now
	c := cloneItem(item)
	r.tx.write(
		func() { r.tx.items[c.ID] = c },
		func() { r.tx.s.items[c.ID] = cloneItem(c) },
	)
	return nil
}

func (r *itemRepo) GetByID(ctx context.Context, id int64) (*entity.StockItem, error) {
	if err := r.tx.s.check("item.get"); err != nil {
		return nil, err
	}
	return r.tx.item(id), nil
}

func (r *itemRepo) GetForUpdate(ctx context.Context, id int64) (*entity.StockItem, error) {
	if err := r.tx.s.check("item.get_for_update"); err != nil {
		return nil, err
	}
	if err := r.tx.forUpdate(ctx, itemKey(id)); err != nil {
		return nil, err
	}
	return r.tx.item(id), nil
}

func (r *itemRepo) UpdateDetails(ctx context.Context, item *entity.StockItem) error {
	if err := r.tx.s.check("item.update_details"); err != nil {
		return err
	}
	if err := r.tx.forUpdate(ctx, itemKey(item.ID)); err != nil {
		return err
	}
	cur := r.tx.item(item.ID)
	if cur == nil {
		return domain.ErrNotFound
	}
	item.UpdatedAt = r.tx.s.now()
	c := cloneItem(item)
	setDetails := func(dst *entity.StockItem) {
		dst.Name, dst.Model = c.Name, c.Model
		dst.NameKey, dst.ModelKey = c.NameKey, c.ModelKey
		dst.Cost, dst.SalePrice = c.Cost, c.SalePrice
		dst.MinQuantity, dst.WarrantyMonths = c.MinQuantity, c.WarrantyMonths
		dst.UpdatedAt = c.UpdatedAt
	}
	r.tx.write(
		func() { setDetails(cur); r.tx.items[cur.ID] = cur },
		func() {
			if dst, ok := r.tx.s.items[c.ID]; ok {
				setDetails(dst)
			}
		},
	)
	item.Received, item.Withdrawn, item.OnHand = cur.Received, cur.Withdrawn, cur.OnHand
	return nil
}

func (r *itemRepo) UpdateCounters(ctx context.Context, item *entity.StockItem) error {
	if err := r.tx.s.check("item.update_counters"); err != nil {
		return err
	}
	cur := r.tx.item(item.ID)
	if cur == nil {
		return domain.ErrNotFound
	}
	// CHECK constraints de la tabla.
	if err := inventory.CountersOf(item).Check(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	}
	item.UpdatedAt = r.tx.s.now()
	c := cloneItem(item)
	setCounters := func(dst *entity.StockItem) {
		dst.Received, dst.Withdrawn, dst.OnHand = c.Received, c.Withdrawn, c.OnHand
		dst.UpdatedAt = c.UpdatedAt
	}
	r.tx.write(
		func() { setCounters(cur); r.tx.items[cur.ID] = cur },
		func() {
			if dst, ok := r.tx.s.items[c.ID]; ok {
				setCounters(dst)
			}
		},
	)
	return nil
}

func (r *itemRepo) Delete(ctx context.Context, id int64) error {
	if err := r.tx.s.check("item.delete"); err != nil {
		return err
	}
	if err := r.tx.forUpdate(ctx, itemKey(id)); err != nil {
		return err
	}
	if r.tx.item(id) == nil {
		return domain.ErrNotFound
	}
	// ON DELETE RESTRICT
	for _, m := range r.tx.allMovements() {
		if m.ItemID == id {
			return fmt.Errorf("%w: movimientos referencian el ítem", domain.ErrConflict)
		}
	}
	unlink := func(claims map[int64]*entity.WarrantyClaim) {
		for _, c := range claims {
			if c.StockItemID != nil && *c.StockItemID == id {
				c.StockItemID = nil
			}
		}
	}
	r.tx.write(
		func() {
			r.tx.deletedItems[id] = true
			delete(r.tx.items, id)
			unlink(r.tx.claims)
		},
		func() {
			delete(r.tx.s.items, id)
			unlink(r.tx.s.claims) // ON DELETE SET NULL
		},
	)
	return nil
}

func (r *itemRepo) List(ctx context.Context, filter repository.StockItemFilter) ([]*entity.StockItem, error) {
	if err := r.tx.s.check("item.list"); err != nil {
		return nil, err
	}
	q := inventory.SearchKey(filter.Query)
	var out []*entity.StockItem
	for _, it := range r.tx.allItems() {
		if q != "" && !strings.Contains(it.NameKey, q) && !strings.Contains(it.ModelKey, q) {
			continue
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return page(out, filter.Limit, filter.Offset), nil
}

func (r *itemRepo) FindFirstByKeys(ctx context.Context, keys []string) (*entity.StockItem, error) {
	if err := r.tx.s.check("item.find_by_keys"); err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	var best *entity.StockItem
	for _, it := range r.tx.allItems() {
		full := strings.TrimSpace(it.NameKey + " " + it.ModelKey)
		if !want[it.NameKey] && !(it.ModelKey != "" && want[it.ModelKey]) && !want[full] {
			continue
		}
		if best == nil || it.ID < best.ID {
			best = it
		}
	}
	return best, nil
}

type movementRepo struct{ tx *Tx }

func (r *movementRepo) Create(ctx context.Context, m *entity.Movement) error {
	if err := r.tx.s.check("movement.create"); err != nil {
		return err
	}
	if r.tx.item(m.ItemID) == nil {
		return fmt.Errorf("%w: ítem inexistente", domain.ErrConflict)
	}
	if m.WarrantyClaimID != nil && r.tx.claim(*m.WarrantyClaimID) == nil {
		return fmt.Errorf("%w: garantía inexistente", domain.ErrConflict)
	}
	now := r.tx.s.now()
	m.ID = r.tx.nextID(&r.tx.s.seqMov)
	if m.OccurredAt.IsZero() {
		m.OccurredAt = now
	}
	m.CreatedAt = now
	c := cloneMovement(m)
	r.tx.write(
		func() { r.tx.movements[c.ID] = c },
		func() { r.tx.s.movements[c.ID] = cloneMovement(c) },
	)
	return nil
}

func (r *movementRepo) GetByID(ctx context.Context, id int64) (*entity.Movement, error) {
	if err := r.tx.s.check("movement.get"); err != nil {
		return nil, err
	}
	return r.tx.movement(id), nil
}

func (r *movementRepo) GetForUpdate(ctx context.Context, id int64) (*entity.Movement, error) {
	if err := r.tx.s.check("movement.get_for_update"); err != nil {
		return nil, err
	}
	if err := r.tx.forUpdate(ctx, movementKey(id)); err != nil {
		return nil, err
	}
	return r.tx.movement(id), nil
}

func (r *movementRepo) Delete(ctx context.Context, id int64) error {
	if err := r.tx.s.check("movement.delete"); err != nil {
		return err
	}
	if r.tx.movement(id) == nil {
		return domain.ErrNotFound
	}
	r.tx.write(
		func() {
			r.tx.deletedMovs[id] = true
			delete(r.tx.movements, id)
		},
		func() { delete(r.tx.s.movements, id) },
	)
	return nil
}

func (r *movementRepo) CountByItem(ctx context.Context, itemID int64) (int64, error) {
	if err := r.tx.s.check("movement.count"); err != nil {
		return 0, err
	}
	var n int64
	for _, m := range r.tx.allMovements() {
		if m.ItemID == itemID {
			n++
		}
	}
	return n, nil
}

func (r *movementRepo) TotalsByItem(ctx context.Context, itemID int64) (repository.JournalTotals, error) {
	if err := r.tx.s.check("movement.totals"); err != nil {
		return repository.JournalTotals{}, err
	}
	var t repository.JournalTotals
	for _, m := range r.tx.allMovements() {
		if m.ItemID != itemID {
			continue
		}
		t.Count++
		switch m.Kind {
		case entity.MovementKindReceipt:
			t.Received += m.Quantity
		case entity.MovementKindWithdrawal:
			t.Withdrawn += m.Quantity
		}
	}
	return t, nil
}

func (r *movementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.Movement, error) {
	if err := r.tx.s.check("movement.list"); err != nil {
		return nil, err
	}
	var out []*entity.Movement
	for _, m := range r.tx.allMovements() {
		if f.ItemID != nil && m.ItemID != *f.ItemID {
			continue
		}
		if f.Kind != "" && m.Kind != f.Kind {
			continue
		}
		if f.From != nil && m.OccurredAt.Before(*f.From) {
			continue
		}
		if f.To != nil && m.OccurredAt.After(*f.To) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.After(out[j].OccurredAt)
		}
		return out[i].ID > out[j].ID
	})
	return page(out, f.Limit, f.Offset), nil
}

type claimRepo struct{ tx *Tx }

func (r *claimRepo) Create(ctx context.Context, c *entity.WarrantyClaim) error {
	if err := r.tx.s.check("claim.create"); err != nil {
		return err
	}
	if c.StockItemID != nil && r.tx.item(*c.StockItemID) == nil {
		return fmt.Errorf("%w: ítem inexistente", domain.ErrConflict)
	}
	now := r.tx.s.now()
	c.ID = r.tx.nextID(&r.tx.s.seqClaim)
	c.CreatedAt, c.UpdatedAt = now, now
	cp := cloneClaim(c)
	r.tx.write(
		func() { r.tx.claims[cp.ID] = cp },
		func() { r.tx.s.claims[cp.ID] = cloneClaim(cp) },
	)
	return nil
}

func (r *claimRepo) GetByID(ctx context.Context, id int64) (*entity.WarrantyClaim, error) {
	if err := r.tx.s.check("claim.get"); err != nil {
		return nil, err
	}
	return r.tx.claim(id), nil
}

func (r *claimRepo) Update(ctx context.Context, c *entity.WarrantyClaim) error {
	if err := r.tx.s.check("claim.update"); err != nil {
		return err
	}
	if err := r.tx.forUpdate(ctx, claimKey(c.ID)); err != nil {
		return err
	}
	if r.tx.claim(c.ID) == nil {
		return domain.ErrNotFound
	}
	c.UpdatedAt = r.tx.s.now()
	cp := cloneClaim(c)
	r.tx.write(
		func() { r.tx.claims[cp.ID] = cp },
		func() {
			if cur, ok := r.tx.s.claims[cp.ID]; ok {
				// El préstamo y la asociación al ítem no se modifican por update.
				next := cloneClaim(cp)
				next.StockItemID = cur.StockItemID
				next.LoanActive, next.LoanQuantity = cur.LoanActive, cur.LoanQuantity
				r.tx.s.claims[cp.ID] = next
			}
		},
	)
	return nil
}

func (r *claimRepo) List(ctx context.Context, f repository.WarrantyClaimFilter) ([]*entity.WarrantyClaim, error) {
	if err := r.tx.s.check("claim.list"); err != nil {
		return nil, err
	}
	var out []*entity.WarrantyClaim
	for _, c := range r.tx.allClaims() {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.StockItemID != nil && (c.StockItemID == nil || *c.StockItemID != *f.StockItemID) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, f.Limit, f.Offset), nil
}

func page[T any](list []T, limit, offset int) []T {
	if offset >= len(list) {
		return nil
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
