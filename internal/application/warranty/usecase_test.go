package warranty_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-garantias/internal/application/dto"
	"github.com/jhoicas/inventario-garantias/internal/application/inventory"
	"github.com/jhoicas/inventario-garantias/internal/application/warranty"
	"github.com/jhoicas/inventario-garantias/internal/domain"
	"github.com/jhoicas/inventario-garantias/internal/domain/entity"
	"github.com/jhoicas/inventario-garantias/internal/domain/repository"
	"github.com/jhoicas/inventario-garantias/internal/testutil/memstore"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

type spyMetrics struct {
	created      int
	linked       int
	withLoan     int
	loanRejected map[string]int
	applied      int64
}

func (s *spyMetrics) ClaimCreated(linked, withLoan bool) {
	s.created++
	if linked {
		s.linked++
	}
	if withLoan {
		s.withLoan++
	}
}

func (s *spyMetrics) LoanRejected(reason string) { s.loanRejected[reason]++ }

func (s *spyMetrics) MovementApplied(_ string, qty int64) { s.applied += qty }

type fixture struct {
	store   *memstore.Store
	items   *inventory.StockItemUseCase
	claims  *warranty.ClaimUseCase
	metrics *spyMetrics
}

func newFixture() *fixture {
	st := memstore.New()
	m := &spyMetrics{loanRejected: map[string]int{}}
	engine := inventory.NewMovementUseCase(st, st.Items(), st.Movements(), nil, nil)
	return &fixture{
		store:   st,
		items:   inventory.NewStockItemUseCase(st, st.Items(), nil, nil),
		claims:  warranty.NewClaimUseCase(st, engine, st.Claims(), m, nil),
		metrics: m,
	}
}

func (f *fixture) createItem(t *testing.T, name, model string, initial int64) int64 {
	t.Helper()
	res, err := f.items.Create(context.Background(), dto.CreateStockItemRequest{Name: name, Model: model, InitialQuantity: initial})
	require.NoError(t, err)
	return res.ID
}

func validClaim(code string, loan *dto.LoanRequest) dto.CreateClaimRequest {
	return dto.CreateClaimRequest{
		CustomerName:       "Ana Pérez",
		CustomerDocument:   "1020304050",
		CustomerPhone:      "3001234567",
		ProductCode:        code,
		ProductDescription: "Batería que no retiene carga",
		OpenedAt:           "2024-05-02",
		LimitDate:          "2024-06-01",
		Loan:               loan,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// CreateClaim
// ──────────────────────────────────────────────────────────────────────────────

// Caso 1: préstamo con stock suficiente crea garantía y salida juntas.
func TestCreateClaim_PrestamoAplicado(t *testing.T) {
	f := newFixture()
	id := f.createItem(t, "Batería Moura", "M22GD", 5)

	res, err := f.claims.CreateClaim(context.Background(), "u-7", validClaim("M22GD", &dto.LoanRequest{Active: true, Quantity: 2}))
	require.NoError(t, err)

	require.NotNil(t, res.StockItemID)
	assert.Equal(t, id, *res.StockItemID)
	assert.Equal(t, entity.ClaimStatusOpen, res.Status)
	assert.Equal(t, "2024-06-01", res.LimitDate)
	require.NotNil(t, res.LoanMovement)
	assert.Equal(t, entity.MovementKindWithdrawal, res.LoanMovement.Kind)
	assert.Equal(t, int64(2), res.LoanMovement.Quantity)
	assert.Equal(t, "GARANTIA-1", res.LoanMovement.Reference)
	require.NotNil(t, res.LoanMovement.WarrantyClaimID)
	assert.Equal(t, res.ID, *res.LoanMovement.WarrantyClaimID)
	assert.Equal(t, "u-7", res.LoanMovement.CreatedBy)

	it := f.store.Item(id)
	assert.Equal(t, int64(3), it.OnHand)
	assert.Equal(t, int64(2), it.Withdrawn)
	assert.Equal(t, 1, f.store.ClaimCount())
	assert.Equal(t, 1, f.store.MovementCount())
	assert.Equal(t, 1, f.metrics.withLoan)
	assert.Equal(t, int64(2), f.metrics.applied)
}

// Caso 2: préstamo mayor al disponible: ni garantía ni movimiento.
func TestCreateClaim_PrestamoSinStockRevierteTodo(t *testing.T) {
	f := newFixture()
	id := f.createItem(t, "Batería Moura", "M22GD", 1)

	_, err := f.claims.CreateClaim(context.Background(), "u-7", validClaim("M22GD", &dto.LoanRequest{Active: true, Quantity: 2}))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	var insuf *domain.InsufficientStockError
	require.True(t, errors.As(err, &insuf))
	assert.Equal(t, int64(1), insuf.OnHand)

	assert.Equal(t, 0, f.store.ClaimCount())
	assert.Equal(t, 0, f.store.MovementCount())
	assert.Equal(t, int64(1), f.store.Item(id).OnHand)
	assert.Equal(t, 1, f.metrics.loanRejected["insufficient_stock"])
	assert.Equal(t, 0, f.metrics.created)
}

// Una falla al insertar el movimiento también revierte la garantía.
func TestCreateClaim_FallaTransitoriaRevierte(t *testing.T) {
	f := newFixture()
	f.createItem(t, "Batería Moura", "M22GD", 5)
	f.store.SetFault(func(op string) error {
		if op == "movement.create" {
			return errors.New("conexión perdida")
		}
		return nil
	})

	_, err := f.claims.CreateClaim(context.Background(), "u-7", validClaim("M22GD", &dto.LoanRequest{Active: true, Quantity: 1}))
	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.Equal(t, 0, f.store.ClaimCount())
	assert.Equal(t, 0, f.store.MovementCount())
	assert.Equal(t, 1, f.metrics.loanRejected["transient"])
}

// Si la falla ocurre antes de intentar la salida, no cuenta como préstamo rechazado.
func TestCreateClaim_FallaAntesDelPrestamoNoCuentaRechazo(t *testing.T) {
	f := newFixture()
	f.createItem(t, "Batería Moura", "M22GD", 5)
	f.store.SetFault(func(op string) error {
		if op == "claim.create" {
			return errors.New("conexión perdida")
		}
		return nil
	})

	for _, code := range []string{"M22GD", "ZZZ-999"} {
		_, err := f.claims.CreateClaim(context.Background(), "u-7", validClaim(code, &dto.LoanRequest{Active: true, Quantity: 1}))
		assert.ErrorIs(t, err, domain.ErrTransient, "código %s", code)
	}
	assert.Empty(t, f.metrics.loanRejected)
	assert.Equal(t, 0, f.store.ClaimCount())
	assert.Equal(t, 0, f.store.MovementCount())
}

func TestCreateClaim_CamposFaltantes(t *testing.T) {
	f := newFixture()
	_, err := f.claims.CreateClaim(context.Background(), "u-7", dto.CreateClaimRequest{CustomerName: "Ana", ProductCode: "  "})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.ElementsMatch(t, []string{"customer_document", "product_code", "product_description", "limit_date"}, verr.Fields)
	assert.Equal(t, 0, f.store.ClaimCount())
}

func TestCreateClaim_EntradasInvalidas(t *testing.T) {
	f := newFixture()
	cases := []struct {
		name  string
		mut   func(*dto.CreateClaimRequest)
		field string
	}{
		{"préstamo negativo", func(r *dto.CreateClaimRequest) { r.Loan = &dto.LoanRequest{Active: true, Quantity: -1} }, "loan.quantity"},
		{"estado desconocido", func(r *dto.CreateClaimRequest) { r.Status = "LOST" }, "status"},
		{"fecha mal formada", func(r *dto.CreateClaimRequest) { r.LimitDate = "01/06/2024" }, "limit_date"},
		{"límite antes de apertura", func(r *dto.CreateClaimRequest) { r.LimitDate = "2024-01-01" }, "limit_date"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validClaim("X", nil)
			tc.mut(&in)
			_, err := f.claims.CreateClaim(context.Background(), "u-7", in)
			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr), "se esperaba ValidationError, llegó %v", err)
			assert.Contains(t, verr.Fields, tc.field)
		})
	}
	assert.Equal(t, 0, f.store.ClaimCount())
}

// Sin ítem asociado la garantía se crea sin préstamo aunque se haya pedido.
func TestCreateClaim_SinItemAsociado(t *testing.T) {
	f := newFixture()
	f.createItem(t, "Parlante", "JBL-5", 5)

	res, err := f.claims.CreateClaim(context.Background(), "u-7", validClaim("ZZZ-999", &dto.LoanRequest{Active: true, Quantity: 1}))
	require.NoError(t, err)
	assert.Nil(t, res.StockItemID)
	assert.Nil(t, res.LoanMovement)
	assert.True(t, res.LoanActive)
	assert.Equal(t, 0, f.store.MovementCount())
}

func TestCreateClaim_PrestamoInactivoOCero(t *testing.T) {
	f := newFixture()
	id := f.createItem(t, "Batería Moura", "M22GD", 5)

	for _, loan := range []*dto.LoanRequest{nil, {Active: false, Quantity: 2}, {Active: true, Quantity: 0}} {
		res, err := f.claims.CreateClaim(context.Background(), "u-7", validClaim("m22gd", loan))
		require.NoError(t, err)
		require.NotNil(t, res.StockItemID)
		assert.Nil(t, res.LoanMovement)
	}
	assert.Equal(t, int64(5), f.store.Item(id).OnHand)
	assert.Equal(t, 0, f.store.MovementCount())
	assert.Equal(t, 3, f.metrics.linked)
}

// Asociación por nombre sin acentos; con varios candidatos gana el de menor ID.
func TestCreateClaim_ResolucionPorNombre(t *testing.T) {
	f := newFixture()
	first := f.createItem(t, "Batería Moura", "A", 1)
	f.createItem(t, "Bateria moura", "B", 1)

	in := validClaim("sin código", nil)
	in.ProductDescription = "BATERIA MOURA"
	res, err := f.claims.CreateClaim(context.Background(), "u-7", in)
	require.NoError(t, err)
	require.NotNil(t, res.StockItemID)
	assert.Equal(t, first, *res.StockItemID)
}

// ──────────────────────────────────────────────────────────────────────────────
// UpdateClaim / consultas
// ──────────────────────────────────────────────────────────────────────────────

// El préstamo no se reevalúa al actualizar.
func TestUpdateClaim_NoReevaluaPrestamo(t *testing.T) {
	f := newFixture()
	id := f.createItem(t, "Batería Moura", "M22GD", 5)
	created, err := f.claims.CreateClaim(context.Background(), "u-7", validClaim("M22GD", &dto.LoanRequest{Active: true, Quantity: 1}))
	require.NoError(t, err)

	status := entity.ClaimStatusApproved
	limit := "2024-07-15"
	res, err := f.claims.UpdateClaim(context.Background(), created.ID, dto.UpdateClaimRequest{Status: &status, LimitDate: &limit})
	require.NoError(t, err)
	assert.Equal(t, entity.ClaimStatusApproved, res.Status)
	assert.Equal(t, "2024-07-15", res.LimitDate)

	assert.Equal(t, int64(4), f.store.Item(id).OnHand)
	assert.Equal(t, 1, f.store.MovementCount())
}

func TestUpdateClaim_Validaciones(t *testing.T) {
	f := newFixture()
	created, err := f.claims.CreateClaim(context.Background(), "u-7", validClaim("X", nil))
	require.NoError(t, err)

	bad := "PERDIDA"
	_, err = f.claims.UpdateClaim(context.Background(), created.ID, dto.UpdateClaimRequest{Status: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	blank := "   "
	_, err = f.claims.UpdateClaim(context.Background(), created.ID, dto.UpdateClaimRequest{CustomerName: &blank})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	status := entity.ClaimStatusClosed
	_, err = f.claims.UpdateClaim(context.Background(), 999, dto.UpdateClaimRequest{Status: &status})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetYListClaims(t *testing.T) {
	f := newFixture()
	id := f.createItem(t, "Batería Moura", "M22GD", 5)
	a, err := f.claims.CreateClaim(context.Background(), "u-7", validClaim("M22GD", nil))
	require.NoError(t, err)
	in := validClaim("otro", nil)
	in.Status = entity.ClaimStatusUnderReview
	_, err = f.claims.CreateClaim(context.Background(), "u-7", in)
	require.NoError(t, err)

	got, err := f.claims.GetClaim(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Pérez", got.CustomerName)

	_, err = f.claims.GetClaim(context.Background(), 404)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := f.claims.ListClaims(context.Background(), repository.WarrantyClaimFilter{StockItemID: &id})
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)

	list, err = f.claims.ListClaims(context.Background(), repository.WarrantyClaimFilter{Status: entity.ClaimStatusUnderReview})
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)

	_, err = f.claims.ListClaims(context.Background(), repository.WarrantyClaimFilter{Status: "X"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// Borrar el ítem deja la garantía sin asociación.
func TestClaim_ItemBorradoDesasocia(t *testing.T) {
	f := newFixture()
	id := f.createItem(t, "Batería Moura", "M22GD", 5)
	created, err := f.claims.CreateClaim(context.Background(), "u-7", validClaim("M22GD", nil))
	require.NoError(t, err)
	require.NotNil(t, created.StockItemID)

	require.NoError(t, f.items.Delete(context.Background(), id))
	got, err := f.claims.GetClaim(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Nil(t, got.StockItemID)
}
