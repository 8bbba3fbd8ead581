package memstore

import (
	"context"
	"errors"

	"github.com/jhoicas/inventario-garantias/internal/domain"
	"github.com/jhoicas/inventario-garantias/internal/domain/entity"
)

// Tx es una transacción en curso. En modo autocommit cada escritura se confirma al instante.
type Tx struct {
	s    *Store
	ctx  context.Context
	auto bool

	held     []chan struct{}
	heldKeys map[string]bool

	items        map[int64]*entity.StockItem
	deletedItems map[int64]bool
	movements    map[int64]*entity.Movement
	deletedMovs  map[int64]bool
	claims       map[int64]*entity.WarrantyClaim

	// ops se aplican sobre el estado confirmado al hacer commit, con s.mu tomado.
	ops []func()
}

func (s *Store) begin(ctx context.Context) *Tx {
	return &Tx{
		s:            s,
		ctx:          ctx,
		heldKeys:     make(map[string]bool),
		items:        make(map[int64]*entity.StockItem),
		deletedItems: make(map[int64]bool),
		movements:    make(map[int64]*entity.Movement),
		deletedMovs:  make(map[int64]bool),
		claims:       make(map[int64]*entity.WarrantyClaim),
	}
}

func (s *Store) autocommit() *Tx {
	tx := s.begin(context.Background())
	tx.auto = true
	return tx
}

// lock toma el bloqueo de fila y lo mantiene hasta commit/rollback. Respeta la cancelación del contexto.
func (tx *Tx) lock(ctx context.Context, key string) error {
	if tx.heldKeys[key] {
		return nil
	}
	l := tx.s.lockFor(key)
	select {
	case l <- struct{}{}:
	case <-ctx.Done():
		return errors.Join(domain.ErrTransient, ctx.Err())
	}
	tx.held = append(tx.held, l)
	tx.heldKeys[key] = true
	return nil
}

// waitRow espera a que la fila quede libre, como un UPDATE en autocommit.
func (tx *Tx) waitRow(ctx context.Context, key string) error {
	l := tx.s.lockFor(key)
	select {
	case l <- struct{}{}:
		<-l
		return nil
	case <-ctx.Done():
		return errors.Join(domain.ErrTransient, ctx.Err())
	}
}

func (tx *Tx) release() {
	for i := len(tx.held) - 1; i >= 0; i-- {
		<-tx.held[i]
	}
	tx.held = nil
	tx.heldKeys = map[string]bool{}
}

func (tx *Tx) commit() {
	tx.s.mu.Lock()
	for _, op := range tx.ops {
		op()
	}
	tx.s.mu.Unlock()
	tx.ops = nil
}

// write registra la mutación en la vista local y difiere la confirmación; en autocommit confirma ya.
func (tx *Tx) write(view func(), apply func()) {
	if tx.auto {
		tx.s.mu.Lock()
		apply()
		tx.s.mu.Unlock()
		return
	}
	view()
	tx.ops = append(tx.ops, apply)
}

func (tx *Tx) nextID(seq *int64) int64 {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	*seq++
	return *seq
}

func (tx *Tx) item(id int64) *entity.StockItem {
	if tx.deletedItems[id] {
		return nil
	}
	if it, ok := tx.items[id]; ok {
		return cloneItem(it)
	}
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	if it, ok := tx.s.items[id]; ok {
		return cloneItem(it)
	}
	return nil
}

func (tx *Tx) allItems() map[int64]*entity.StockItem {
	tx.s.mu.Lock()
	out := make(map[int64]*entity.StockItem, len(tx.s.items))
	for id, it := range tx.s.items {
		out[id] = cloneItem(it)
	}
	tx.s.mu.Unlock()
	for id, it := range tx.items {
		out[id] = cloneItem(it)
	}
	for id := range tx.deletedItems {
		delete(out, id)
	}
	return out
}

func (tx *Tx) movement(id int64) *entity.Movement {
	if tx.deletedMovs[id] {
		return nil
	}
	if m, ok := tx.movements[id]; ok {
		return cloneMovement(m)
	}
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	if m, ok := tx.s.movements[id]; ok {
		return cloneMovement(m)
	}
	return nil
}

func (tx *Tx) allMovements() map[int64]*entity.Movement {
	tx.s.mu.Lock()
	out := make(map[int64]*entity.Movement, len(tx.s.movements))
	for id, m := range tx.s.movements {
		out[id] = cloneMovement(m)
	}
	tx.s.mu.Unlock()
	for id, m := range tx.movements {
		out[id] = cloneMovement(m)
	}
	for id := range tx.deletedMovs {
		delete(out, id)
	}
	return out
}

func (tx *Tx) claim(id int64) *entity.WarrantyClaim {
	if c, ok := tx.claims[id]; ok {
		return cloneClaim(c)
	}
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	if c, ok := tx.s.claims[id]; ok {
		return cloneClaim(c)
	}
	return nil
}

func (tx *Tx) allClaims() map[int64]*entity.WarrantyClaim {
	tx.s.mu.Lock()
	out := make(map[int64]*entity.WarrantyClaim, len(tx.s.claims))
	for id, c := range tx.s.claims {
		out[id] = cloneClaim(c)
	}
	tx.s.mu.Unlock()
	for id, c := range tx.claims {
		out[id] = cloneClaim(c)
	}
	return out
}

func cloneItem(it *entity.StockItem) *entity.StockItem {
	c := *it
	return &c
}

func cloneMovement(m *entity.Movement) *entity.Movement {
	c := *m
	if m.WarrantyClaimID != nil {
		id := *m.WarrantyClaimID
		c.WarrantyClaimID = &id
	}
	return &c
}

func cloneClaim(cl *entity.WarrantyClaim) *entity.WarrantyClaim {
	c := *cl
	if cl.StockItemID != nil {
		id := *cl.StockItemID
		c.StockItemID = &id
	}
	if cl.PurchaseDate != nil {
		d := *cl.PurchaseDate
		c.PurchaseDate = &d
	}
	return &c
}
