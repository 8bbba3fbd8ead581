// Package memstore es un almacén en memoria con semántica transaccional para tests:
// bloqueos de fila que se mantienen hasta el fin de la transacción, escrituras invisibles
// hasta el commit y rollback completo ante cualquier error.
package memstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jhoicas/inventario-garantias/internal/domain"
	"github.com/jhoicas/inventario-garantias/internal/domain/entity"
	"github.com/jhoicas/inventario-garantias/internal/domain/repository"
)

// FaultFunc se invoca antes de cada operación ("item.update_counters", "movement.create",
// "claim.create", "commit", ...). Un error no nil simula una falla de infraestructura.
type FaultFunc func(op string) error

// Store es el estado confirmado.
type Store struct {
	mu        sync.Mutex
	items     map[int64]*entity.StockItem
	movements map[int64]*entity.Movement
	claims    map[int64]*entity.WarrantyClaim
	locks     map[string]chan struct{}
	seqItem   int64
	seqMov    int64
	seqClaim  int64
	fault     FaultFunc
	now       func() time.Time
}

// New crea un almacén vacío.
func New() *Store {
	return &Store{
		items:     make(map[int64]*entity.StockItem),
		movements: make(map[int64]*entity.Movement),
		claims:    make(map[int64]*entity.WarrantyClaim),
		locks:     make(map[string]chan struct{}),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetFault instala (o quita, con nil) el inyector de fallas.
func (s *Store) SetFault(f FaultFunc) {
	s.mu.Lock()
	s.fault = f
	s.mu.Unlock()
}

func (s *Store) check(op string) error {
	s.mu.Lock()
	f := s.fault
	s.mu.Unlock()
	if f == nil {
		return nil
	}
	if err := f(op); err != nil {
		return errors.Join(domain.ErrTransient, err)
	}
	return nil
}

// Items repositorio de ítems fuera de transacción (autocommit).
func (s *Store) Items() repository.StockItemRepository { return &itemRepo{tx: s.autocommit()} }

// Movements repositorio del diario fuera de transacción (autocommit).
func (s *Store) Movements() repository.MovementRepository { return &movementRepo{tx: s.autocommit()} }

// Claims repositorio de garantías fuera de transacción (autocommit).
func (s *Store) Claims() repository.WarrantyClaimRepository { return &claimRepo{tx: s.autocommit()} }

// Run implementa inventory.TxRunner.
func (s *Store) Run(ctx context.Context, fn func(
	movRepo repository.MovementRepository,
	itemRepo repository.StockItemRepository,
) error) error {
	return s.inTx(ctx, func(tx *Tx) error {
		return fn(&movementRepo{tx: tx}, &itemRepo{tx: tx})
	})
}

// RunWarranty implementa warranty.TxRunner.
func (s *Store) RunWarranty(ctx context.Context, fn func(
	movRepo repository.MovementRepository,
	itemRepo repository.StockItemRepository,
	claimRepo repository.WarrantyClaimRepository,
) error) error {
	return s.inTx(ctx, func(tx *Tx) error {
		return fn(&movementRepo{tx: tx}, &itemRepo{tx: tx}, &claimRepo{tx: tx})
	})
}

func (s *Store) inTx(ctx context.Context, fn func(tx *Tx) error) error {
	if err := ctx.Err(); err != nil {
		return errors.Join(domain.ErrTransient, err)
	}
	tx := s.begin(ctx)
	defer tx.release()
	if err := fn(tx); err != nil {
		return err
	}
	if err := s.check("commit"); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// Snapshot de lectura directa para aserciones.

// Item devuelve una copia del ítem confirmado.
func (s *Store) Item(id int64) *entity.StockItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it, ok := s.items[id]; ok {
		return cloneItem(it)
	}
	return nil
}

// MovementCount total de movimientos confirmados.
func (s *Store) MovementCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.movements)
}

// ClaimCount total de garantías confirmadas.
func (s *Store) ClaimCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.claims)
}

// CorruptCounters escribe contadores sin pasar por el motor (solo para probar la verificación del diario).
func (s *Store) CorruptCounters(id int64, received, withdrawn, onHand int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it, ok := s.items[id]; ok {
		it.Received, it.Withdrawn, it.OnHand = received, withdrawn, onHand
	}
}

func (s *Store) lockFor(key string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[key] = l
	}
	return l
}
