package inventory_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-garantias/internal/application/dto"
	"github.com/jhoicas/inventario-garantias/internal/application/inventory"
	"github.com/jhoicas/inventario-garantias/internal/domain"
	"github.com/jhoicas/inventario-garantias/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-garantias/internal/domain/inventory"
	"github.com/jhoicas/inventario-garantias/internal/domain/repository"
	"github.com/jhoicas/inventario-garantias/internal/testutil/memstore"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

type spyMetrics struct {
	mu       sync.Mutex
	applied  map[string]int64
	rejected map[string]int
	reversed int
	blocked  int
}

func newSpyMetrics() *spyMetrics {
	return &spyMetrics{applied: map[string]int64{}, rejected: map[string]int{}}
}

func (s *spyMetrics) MovementApplied(kind string, qty int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied[kind] += qty
}

func (s *spyMetrics) MovementRejected(kind, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejected[reason]++
}

func (s *spyMetrics) MovementReversed(string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reversed++
}

func (s *spyMetrics) ItemDeleteBlocked() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocked++
}

type fixture struct {
	store   *memstore.Store
	metrics *spyMetrics
	items   *inventory.StockItemUseCase
	engine  *inventory.MovementUseCase
}

func newFixture() *fixture {
	st := memstore.New()
	m := newSpyMetrics()
	return &fixture{
		store:   st,
		metrics: m,
		items:   inventory.NewStockItemUseCase(st, st.Items(), m, nil),
		engine:  inventory.NewMovementUseCase(st, st.Items(), st.Movements(), m, nil),
	}
}

func (f *fixture) createItem(t *testing.T, name string, initial int64) int64 {
	t.Helper()
	res, err := f.items.Create(context.Background(), dto.CreateStockItemRequest{
		Name:            name,
		Model:           "STD",
		InitialQuantity: initial,
	})
	require.NoError(t, err)
	return res.ID
}

func (f *fixture) apply(t *testing.T, itemID int64, kind string, qty int64) (*dto.MovementResponse, error) {
	t.Helper()
	return f.engine.ApplyMovement(context.Background(), inventory.MovementInput{
		ItemID:   itemID,
		Kind:     kind,
		Quantity: qty,
		UserID:   "u-1",
	})
}

func assertInvariant(t *testing.T, it *entity.StockItem) {
	t.Helper()
	assert.Equal(t, it.InitialQuantity+it.Received-it.Withdrawn, it.OnHand, "onHand debe cuadrar con el diario")
	assert.GreaterOrEqual(t, it.OnHand, int64(0), "onHand nunca es negativo")
}

// ──────────────────────────────────────────────────────────────────────────────
// ApplyMovement
// ──────────────────────────────────────────────────────────────────────────────

// Caso 1: entrada y salida actualizan los tres contadores.
func TestApplyMovement_EntradaYSalida(t *testing.T) {
	f := newFixture()
	id := f.createItem(t, "Batería Moura", 10)

	_, err := f.apply(t, id, entity.MovementKindReceipt, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(15), f.store.Item(id).OnHand)

	mov, err := f.apply(t, id, entity.MovementKindWithdrawal, 3)
	require.NoError(t, err)
	assert.Equal(t, "0.00", mov.Amount)
	assert.False(t, mov.OccurredAt.IsZero(), "occurred_at por defecto es ahora")

	it := f.store.Item(id)
	assert.Equal(t, int64(12), it.OnHand)
	assert.Equal(t, int64(5), it.Received)
	assert.Equal(t, int64(3), it.Withdrawn)
	assertInvariant(t, it)
	assert.Equal(t, int64(5), f.metrics.applied[entity.MovementKindReceipt])
	assert.Equal(t, int64(3), f.metrics.applied[entity.MovementKindWithdrawal])
}

// Caso 2: salida mayor al disponible no deja rastro.
func TestApplyMovement_StockInsuficienteSinEfectos(t *testing.T) {
	f := newFixture()
	id := f.createItem(t, "Parlante JBL", 2)

	_, err := f.apply(t, id, entity.MovementKindWithdrawal, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	var insuf *domain.InsufficientStockError
	require.True(t, errors.As(err, &insuf))
	assert.Equal(t, int64(2), insuf.OnHand)
	assert.Equal(t, int64(5), insuf.Requested)

	it := f.store.Item(id)
	assert.Equal(t, int64(2), it.OnHand)
	assert.Equal(t, int64(0), it.Withdrawn)
	assert.Equal(t, 0, f.store.MovementCount())
	assert.Equal(t, 1, f.metrics.rejected["insufficient_stock"])
}

func TestApplyMovement_EntradaInvalida(t *testing.T) {
	f := newFixture()
	id := f.createItem(t, "Batería", 1)
	neg := decimal.NewFromInt(-1)

	cases := []struct {
		name string
		in   inventory.MovementInput
	}{
		{"cantidad cero", inventory.MovementInput{ItemID: id, Kind: entity.MovementKindReceipt, Quantity: 0}},
		{"cantidad negativa", inventory.MovementInput{ItemID: id, Kind: entity.MovementKindReceipt, Quantity: -4}},
		{"tipo desconocido", inventory.MovementInput{ItemID: id, Kind: "ADJUST", Quantity: 1}},
		{"monto negativo", inventory.MovementInput{ItemID: id, Kind: entity.MovementKindReceipt, Quantity: 1, Amount: &neg}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.engine.ApplyMovement(context.Background(), tc.in)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
	assert.Equal(t, 0, f.store.MovementCount())
	assert.Equal(t, int64(1), f.store.Item(id).OnHand)
}

// Una entrada enorme se rechaza como inválida y el ítem queda intacto.
func TestApplyMovement_EntradaQueDesborda(t *testing.T) {
	f := newFixture()
	id := f.createItem(t, "Batería", 10)

	_, err := f.apply(t, id, entity.MovementKindReceipt, math.MaxInt64)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, "invalid_input", inventory.RejectReason(err))

	it := f.store.Item(id)
	assert.Equal(t, int64(10), it.OnHand)
	assert.Equal(t, int64(0), it.Received)
	assert.Equal(t, 0, f.store.MovementCount())
	assert.Equal(t, 1, f.metrics.rejected["invalid_input"])
}

func TestApplyMovement_ItemInexistente(t *testing.T) {
	f := newFixture()
	_, err := f.apply(t, 999, entity.MovementKindReceipt, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 1, f.metrics.rejected["not_found"])

	for _, id := range []int64{0, -3} {
		_, err := f.apply(t, id, entity.MovementKindReceipt, 1)
		assert.ErrorIs(t, err, domain.ErrNotFound, "item_id %d", id)
		assert.NotErrorIs(t, err, domain.ErrInvalidInput)
	}
	assert.Equal(t, 3, f.metrics.rejected["not_found"])
	assert.Equal(t, 0, f.store.MovementCount())
}

func TestApplyMovement_MontoRedondeadoYFecha(t *testing.T) {
	f := newFixture()
	id := f.createItem(t, "Batería", 0)
	amount := decimal.RequireFromString("120000.456")
	when := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	mov, err := f.engine.ApplyMovement(context.Background(), inventory.MovementInput{
		ItemID: id, Kind: entity.MovementKindReceipt, Quantity: 4, Amount: &amount, OccurredAt: &when, Reference: "FAC-77",
	})
	require.NoError(t, err)
	assert.Equal(t, "120000.46", mov.Amount)
	assert.True(t, when.Equal(mov.OccurredAt))
	assert.Equal(t, "FAC-77", mov.Reference)
}

// Falla de infraestructura a mitad de la transacción: nada queda persistido.
func TestApplyMovement_FallaTransitoriaRevierte(t *testing.T) {
	f := newFixture()
	id := f.createItem(t, "Batería", 5)
	f.store.SetFault(func(op string) error {
		if op == "item.update_counters" {
			return errors.New("conexión perdida")
		}
		return nil
	})

	_, err := f.apply(t, id, entity.MovementKindWithdrawal, 2)
	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.Equal(t, 0, f.store.MovementCount())
	assert.Equal(t, int64(5), f.store.Item(id).OnHand)

	f.store.SetFault(nil)
	_, err = f.apply(t, id, entity.MovementKindWithdrawal, 2)
	require.NoError(t, err, "reintentar la operación completa es seguro")
	assert.Equal(t, int64(3), f.store.Item(id).OnHand)
}

func TestApplyMovement_ContextoCancelado(t *testing.T) {
	f := newFixture()
	id := f.createItem(t, "Batería", 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.engine.ApplyMovement(ctx, inventory.MovementInput{ItemID: id, Kind: entity.MovementKindWithdrawal, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.Equal(t, int64(5), f.store.Item(id).OnHand)
}

// N salidas concurrentes de q contra (N-1)*q: exactamente N-1 confirman.
func TestApplyMovement_SalidasConcurrentes(t *testing.T) {
	const (
		n = 20
		q = 3
	)
	f := newFixture()
	id := f.createItem(t, "Batería Willard", (n-1)*q)

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.ApplyMovement(context.Background(), inventory.MovementInput{
				ItemID: id, Kind: entity.MovementKindWithdrawal, Quantity: q,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, insufficient int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientStock):
			insufficient++
		default:
			t.Fatalf("error inesperado: %v", err)
		}
	}
	assert.Equal(t, n-1, ok)
	assert.Equal(t, 1, insufficient)

	it := f.store.Item(id)
	assert.Equal(t, int64(0), it.OnHand)
	assert.Equal(t, int64((n-1)*q), it.Withdrawn)
	assertInvariant(t, it)
	assert.Equal(t, n-1, f.store.MovementCount())
}

// Ítems distintos no se bloquean entre sí.
func TestApplyMovement_ItemsDistintosEnParalelo(t *testing.T) {
	f := newFixture()
	a := f.createItem(t, "A", 100)
	b := f.createItem(t, "B", 100)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); _, _ = f.apply(t, a, entity.MovementKindWithdrawal, 1) }()
		go func() { defer wg.Done(); _, _ = f.apply(t, b, entity.MovementKindReceipt, 1) }()
	}
	wg.Wait()

	assert.Equal(t, int64(50), f.store.Item(a).OnHand)
	assert.Equal(t, int64(150), f.store.Item(b).OnHand)
	assertInvariant(t, f.store.Item(a))
	assertInvariant(t, f.store.Item(b))
}

// ──────────────────────────────────────────────────────────────────────────────
// ApplyMovementInTx
// ──────────────────────────────────────────────────────────────────────────────

// El error dentro de una transacción ajena revierte también lo que hizo el caller.
func TestApplyMovementInTx_ComparteTransaccion(t *testing.T) {
	f := newFixture()
	id := f.createItem(t, "Batería", 3)

	err := f.store.Run(context.Background(), func(movRepo repository.MovementRepository, itemRepo repository.StockItemRepository) error {
		if _, err := f.engine.ApplyMovementInTx(context.Background(), movRepo, itemRepo, inventory.MovementInput{
			ItemID: id, Kind: entity.MovementKindWithdrawal, Quantity: 2,
		}); err != nil {
			return err
		}
		_, err := f.engine.ApplyMovementInTx(context.Background(), movRepo, itemRepo, inventory.MovementInput{
			ItemID: id, Kind: entity.MovementKindWithdrawal, Quantity: 2,
		})
		return err
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(3), f.store.Item(id).OnHand)
	assert.Equal(t, 0, f.store.MovementCount())
}

// ──────────────────────────────────────────────────────────────────────────────
// DeleteMovement
// ──────────────────────────────────────────────────────────────────────────────

// Crear y borrar un movimiento deja los contadores como estaban.
func TestDeleteMovement_ReversionExacta(t *testing.T) {
	f := newFixture()
	id := f.createItem(t, "Batería", 12)
	mov, err := f.apply(t, id, entity.MovementKindWithdrawal, 4)
	require.NoError(t, err)
	require.Equal(t, int64(8), f.store.Item(id).OnHand)

	require.NoError(t, f.engine.DeleteMovement(context.Background(), mov.ID))

	it := f.store.Item(id)
	assert.Equal(t, int64(12), it.OnHand)
	assert.Equal(t, int64(0), it.Withdrawn)
	assert.Equal(t, 0, f.store.MovementCount())
	assert.Equal(t, 1, f.metrics.reversed)
}

// Caso 5: inicial 10, entrada 5, salida 3; borrar la entrada deja solo la salida.
func TestDeleteMovement_ReversionDeEntrada(t *testing.T) {
	f := newFixture()
	id := f.createItem(t, "Batería", 10)
	rec, err := f.apply(t, id, entity.MovementKindReceipt, 5)
	require.NoError(t, err)
	_, err = f.apply(t, id, entity.MovementKindWithdrawal, 3)
	require.NoError(t, err)
	require.Equal(t, int64(12), f.store.Item(id).OnHand)

	require.NoError(t, f.engine.DeleteMovement(context.Background(), rec.ID))

	it := f.store.Item(id)
	assert.Equal(t, int64(0), it.Received)
	assert.Equal(t, int64(3), it.Withdrawn)
	assert.Equal(t, int64(7), it.OnHand)
	assertInvariant(t, it)
	assert.Equal(t, 1, f.store.MovementCount())
}

// Borrados y altas concurrentes sobre el mismo ítem se serializan sin perder contadores.
func TestDeleteMovement_ConcurrenteConAltas(t *testing.T) {
	const n = 20
	f := newFixture()
	id := f.createItem(t, "Batería", 50)
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		mov, err := f.apply(t, id, entity.MovementKindWithdrawal, 1)
		require.NoError(t, err)
		ids = append(ids, mov.ID)
	}
	require.Equal(t, int64(30), f.store.Item(id).OnHand)

	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for _, movID := range ids {
		wg.Add(2)
		go func(movID int64) {
			defer wg.Done()
			errs <- f.engine.DeleteMovement(context.Background(), movID)
		}(movID)
		go func() {
			defer wg.Done()
			_, err := f.engine.ApplyMovement(context.Background(), inventory.MovementInput{
				ItemID: id, Kind: entity.MovementKindReceipt, Quantity: 2,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	it := f.store.Item(id)
	assert.Equal(t, int64(2*n), it.Received)
	assert.Equal(t, int64(0), it.Withdrawn)
	assert.Equal(t, int64(50+2*n), it.OnHand)
	assertInvariant(t, it)
	assert.Equal(t, n, f.store.MovementCount())
}

// Borrar una entrada mientras otra salida la consume: solo una de las dos confirma.
func TestDeleteMovement_CompiteConSalida(t *testing.T) {
	f := newFixture()
	id := f.createItem(t, "Batería", 10)
	rec, err := f.apply(t, id, entity.MovementKindReceipt, 5)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var delErr, applyErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		delErr = f.engine.DeleteMovement(context.Background(), rec.ID)
	}()
	go func() {
		defer wg.Done()
		_, applyErr = f.apply(t, id, entity.MovementKindWithdrawal, 12)
	}()
	wg.Wait()

	it := f.store.Item(id)
	assertInvariant(t, it)
	switch {
	case delErr == nil:
		assert.ErrorIs(t, applyErr, domain.ErrInsufficientStock)
		assert.Equal(t, domaininv.Counters{Initial: 10, OnHand: 10}, domaininv.CountersOf(it))
		assert.Equal(t, 0, f.store.MovementCount())
	case applyErr == nil:
		assert.ErrorIs(t, delErr, domain.ErrInsufficientStock)
		assert.Equal(t, domaininv.Counters{Initial: 10, Received: 5, Withdrawn: 12, OnHand: 3}, domaininv.CountersOf(it))
		assert.Equal(t, 2, f.store.MovementCount())
	default:
		t.Fatalf("ninguna operación confirmó: delete=%v apply=%v", delErr, applyErr)
	}
}

func TestDeleteMovement_EntradaYaConsumida(t *testing.T) {
	f := newFixture()
	id := f.createItem(t, "Batería", 0)
	rec, err := f.apply(t, id, entity.MovementKindReceipt, 5)
	require.NoError(t, err)
	_, err = f.apply(t, id, entity.MovementKindWithdrawal, 4)
	require.NoError(t, err)

	err = f.engine.DeleteMovement(context.Background(), rec.ID)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	it := f.store.Item(id)
	assert.Equal(t, int64(1), it.OnHand)
	assert.Equal(t, int64(5), it.Received)
	assert.Equal(t, 2, f.store.MovementCount())
}

func TestDeleteMovement_Inexistente(t *testing.T) {
	f := newFixture()
	assert.ErrorIs(t, f.engine.DeleteMovement(context.Background(), 42), domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Consultas
// ──────────────────────────────────────────────────────────────────────────────

func TestListMovements_FiltrosYValidacion(t *testing.T) {
	f := newFixture()
	a := f.createItem(t, "A", 10)
	b := f.createItem(t, "B", 10)
	_, _ = f.apply(t, a, entity.MovementKindReceipt, 1)
	_, _ = f.apply(t, a, entity.MovementKindWithdrawal, 1)
	_, _ = f.apply(t, b, entity.MovementKindWithdrawal, 2)

	res, err := f.engine.ListMovements(context.Background(), repository.MovementFilter{ItemID: &a})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
	assert.Equal(t, 20, res.Page.Limit)

	res, err = f.engine.ListMovements(context.Background(), repository.MovementFilter{Kind: entity.MovementKindWithdrawal})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)

	_, err = f.engine.ListMovements(context.Background(), repository.MovementFilter{Kind: "X"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	from := time.Now().Add(time.Hour)
	to := time.Now()
	_, err = f.engine.ListMovements(context.Background(), repository.MovementFilter{From: &from, To: &to})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGetMovement(t *testing.T) {
	f := newFixture()
	id := f.createItem(t, "A", 1)
	mov, err := f.apply(t, id, entity.MovementKindReceipt, 1)
	require.NoError(t, err)

	got, err := f.engine.GetMovement(context.Background(), mov.ID)
	require.NoError(t, err)
	assert.Equal(t, mov.ID, got.ID)

	_, err = f.engine.GetMovement(context.Background(), mov.ID+100)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCheckLedger(t *testing.T) {
	f := newFixture()
	id := f.createItem(t, "Batería", 3)
	_, _ = f.apply(t, id, entity.MovementKindReceipt, 7)
	_, _ = f.apply(t, id, entity.MovementKindWithdrawal, 4)

	res, err := f.engine.CheckLedger(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, res.Consistent)
	assert.Equal(t, int64(6), res.JournalOnHand)
	assert.Equal(t, int64(2), res.JournalMovements)

	f.store.CorruptCounters(id, 7, 4, 9)
	res, err = f.engine.CheckLedger(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, res.Consistent)
	assert.Equal(t, int64(9), res.StoredOnHand)
	assert.Equal(t, int64(6), res.JournalOnHand)

	_, err = f.engine.CheckLedger(context.Background(), 555)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRejectReason(t *testing.T) {
	assert.Equal(t, "insufficient_stock", inventory.RejectReason(&domain.InsufficientStockError{}))
	assert.Equal(t, "invalid_input", inventory.RejectReason(domain.Invalid("x")))
	assert.Equal(t, "conflict", inventory.RejectReason(domain.ErrItemHasMovements))
	assert.Equal(t, "transient", inventory.RejectReason(errors.Join(domain.ErrTransient, errors.New("x"))))
	assert.Equal(t, "internal", inventory.RejectReason(errors.New("x")))
}
