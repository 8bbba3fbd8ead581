package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-garantias/internal/application/dto"
	"github.com/jhoicas/inventario-garantias/internal/domain"
	"github.com/jhoicas/inventario-garantias/internal/domain/entity"
	"github.com/jhoicas/inventario-garantias/internal/domain/inventory"
	"github.com/jhoicas/inventario-garantias/internal/domain/repository"
	"github.com/jhoicas/inventario-garantias/pkg/logger"
)

// MovementUseCase es el motor de stock: registra entradas y salidas de forma transaccional
// con bloqueo de fila (SELECT FOR UPDATE) sobre el ítem, y revierte movimientos borrados.
type MovementUseCase struct {
	txRunner TxRunner
	itemRepo repository.StockItemRepository
	movRepo  repository.MovementRepository
	metrics  Metrics
	log      *logger.Logger
}

// NewMovementUseCase construye el caso de uso. itemRepo y movRepo se usan solo para lecturas fuera de tx.
func NewMovementUseCase(
	txRunner TxRunner,
	itemRepo repository.StockItemRepository,
	movRepo repository.MovementRepository,
	metrics Metrics,
	log *logger.Logger,
) *MovementUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &MovementUseCase{
		txRunner: txRunner,
		itemRepo: itemRepo,
		movRepo:  movRepo,
		metrics:  metrics,
		log:      log.Named("stock_engine"),
	}
}

// MovementInput entrada del motor. Amount y OccurredAt son opcionales.
type MovementInput struct {
	ItemID          int64
	Kind            string
	Quantity        int64
	Amount          *decimal.Decimal
	OccurredAt      *time.Time
	UserID          string
	Reference       string
	WarrantyClaimID *int64
}

// Validate hace las comprobaciones que no requieren leer la base.
func (in MovementInput) Validate() error {
	if !entity.ValidMovementKind(in.Kind) {
		return domain.Invalid("tipo de movimiento desconocido", "kind")
	}
	if in.Quantity <= 0 {
		return domain.Invalid("la cantidad debe ser un entero positivo", "quantity")
	}
	if in.Amount != nil && in.Amount.IsNegative() {
		return domain.Invalid("el monto no puede ser negativo", "amount")
	}
	if len(in.Reference) > 100 {
		return domain.Invalid("referencia demasiado larga", "reference")
	}
	// Un id no positivo nunca existe: mismo resultado que un ítem inexistente.
	if in.ItemID <= 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ApplyMovement valida, abre una transacción propia y aplica el movimiento.
func (uc *MovementUseCase) ApplyMovement(ctx context.Context, in MovementInput) (*dto.MovementResponse, error) {
	if err := in.Validate(); err != nil {
		uc.observeRejected(in.Kind, err)
		return nil, err
	}

	var mov *entity.Movement
	var onHand int64
	err := uc.txRunner.Run(ctx, func(
		movRepo repository.MovementRepository,
		itemRepo repository.StockItemRepository,
	) error {
		var err error
		mov, onHand, err = uc.applyInTx(ctx, movRepo, itemRepo, in)
		return err
	})
	if err != nil {
		uc.observeRejected(in.Kind, err)
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.MovementApplied(mov.Kind, mov.Quantity)
	}
	uc.log.Info().
		Int64("movement_id", mov.ID).
		Int64("item_id", mov.ItemID).
		Str("kind", mov.Kind).
		Int64("quantity", mov.Quantity).
		Int64("on_hand", onHand).
		Msg("movimiento aplicado")
	return ToMovementResponse(mov), nil
}

// ApplyMovementInTx aplica el movimiento con repositorios ya atados a la transacción del caller
// (ej. la creación de una garantía con préstamo). No hace commit ni rollback: si devuelve error
// (ej. ErrInsufficientStock) el caller debe abortar su transacción. Las métricas quedan a cargo
// del caller, que es quien sabe si el commit ocurrió.
func (uc *MovementUseCase) ApplyMovementInTx(
	ctx context.Context,
	movRepo repository.MovementRepository,
	itemRepo repository.StockItemRepository,
	in MovementInput,
) (*entity.Movement, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	mov, _, err := uc.applyInTx(ctx, movRepo, itemRepo, in)
	if err != nil {
		return nil, err
	}
	return mov, nil
}

// applyInTx: bloquea la fila del ítem, recalcula contadores desde el valor recién leído,
// inserta el movimiento y guarda los contadores.
func (uc *MovementUseCase) applyInTx(
	ctx context.Context,
	movRepo repository.MovementRepository,
	itemRepo repository.StockItemRepository,
	in MovementInput,
) (*entity.Movement, int64, error) {
	item, err := itemRepo.GetForUpdate(ctx, in.ItemID)
	if err != nil {
		return nil, 0, err
	}
	if item == nil {
		return nil, 0, domain.ErrNotFound
	}

	next, err := inventory.CountersOf(item).Apply(item.ID, in.Kind, in.Quantity)
	if err != nil {
		return nil, 0, err
	}

	amount := decimal.Zero
	if in.Amount != nil {
		amount = in.Amount.Round(2)
	}
	mov := &entity.Movement{
		ItemID:          item.ID,
		Kind:            in.Kind,
		Quantity:        in.Quantity,
		Amount:          amount,
		Reference:       in.Reference,
		WarrantyClaimID: in.WarrantyClaimID,
		CreatedBy:       in.UserID,
	}
	if in.OccurredAt != nil {
		mov.OccurredAt = *in.OccurredAt
	}
	if err := movRepo.Create(ctx, mov); err != nil {
		return nil, 0, err
	}

	next.WriteTo(item)
	if err := itemRepo.UpdateCounters(ctx, item); err != nil {
		return nil, 0, err
	}
	return mov, next.OnHand, nil
}

// DeleteMovement borra un movimiento y revierte su efecto sobre los contadores actuales del ítem.
func (uc *MovementUseCase) DeleteMovement(ctx context.Context, movementID int64) error {
	if movementID <= 0 {
		return domain.ErrNotFound
	}
	var mov *entity.Movement
	var onHand int64
	err := uc.txRunner.Run(ctx, func(
		movRepo repository.MovementRepository,
		itemRepo repository.StockItemRepository,
	) error {
		var err error
		mov, err = movRepo.GetForUpdate(ctx, movementID)
		if err != nil {
			return err
		}
		if mov == nil {
			return domain.ErrNotFound
		}
		item, err := itemRepo.GetForUpdate(ctx, mov.ItemID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}
		next, err := inventory.CountersOf(item).Reverse(item.ID, mov.Kind, mov.Quantity)
		if err != nil {
			return err
		}
		if err := movRepo.Delete(ctx, mov.ID); err != nil {
			return err
		}
		next.WriteTo(item)
		onHand = next.OnHand
		return itemRepo.UpdateCounters(ctx, item)
	})
	if err != nil {
		return err
	}

	if uc.metrics != nil {
		uc.metrics.MovementReversed(mov.Kind)
	}
	uc.log.Info().
		Int64("movement_id", mov.ID).
		Int64("item_id", mov.ItemID).
		Str("kind", mov.Kind).
		Int64("quantity", mov.Quantity).
		Int64("on_hand", onHand).
		Msg("movimiento revertido")
	return nil
}

// GetMovement obtiene un movimiento por ID.
func (uc *MovementUseCase) GetMovement(ctx context.Context, id int64) (*dto.MovementResponse, error) {
	mov, err := uc.movRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if mov == nil {
		return nil, domain.ErrNotFound
	}
	return ToMovementResponse(mov), nil
}

// ListMovements lista el diario con filtros y paginación.
func (uc *MovementUseCase) ListMovements(ctx context.Context, filter repository.MovementFilter) (*dto.MovementListResponse, error) {
	if filter.Kind != "" && !entity.ValidMovementKind(filter.Kind) {
		return nil, domain.Invalid("tipo de movimiento desconocido", "kind")
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, domain.Invalid("rango de fechas inválido", "from", "to")
	}
	page := dto.PageRequest{Limit: filter.Limit, Offset: filter.Offset}
	page.DefaultPage()
	filter.Limit, filter.Offset = page.Limit, page.Offset

	list, err := uc.movRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.MovementResponse, 0, len(list))
	for _, m := range list {
		items = append(items, *ToMovementResponse(m))
	}
	return &dto.MovementListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}, nil
}

// CheckLedger recalcula las sumas desde el diario y las compara con los contadores guardados.
// Solo lectura: no corrige nada.
func (uc *MovementUseCase) CheckLedger(ctx context.Context, itemID int64) (*dto.LedgerCheckResponse, error) {
	item, err := uc.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	totals, err := uc.movRepo.TotalsByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	journalOnHand := item.InitialQuantity + totals.Received - totals.Withdrawn
	out := &dto.LedgerCheckResponse{
		ItemID:           item.ID,
		InitialQuantity:  item.InitialQuantity,
		StoredReceived:   item.Received,
		StoredWithdrawn:  item.Withdrawn,
		StoredOnHand:     item.OnHand,
		JournalReceived:  totals.Received,
		JournalWithdrawn: totals.Withdrawn,
		JournalOnHand:    journalOnHand,
		JournalMovements: totals.Count,
	}
	out.Consistent = item.Received == totals.Received &&
		item.Withdrawn == totals.Withdrawn &&
		item.OnHand == journalOnHand
	if !out.Consistent {
		uc.log.Warn().Int64("item_id", item.ID).Msg("contadores descuadrados respecto al diario")
	}
	return out, nil
}

func (uc *MovementUseCase) observeRejected(kind string, err error) {
	if uc.metrics == nil {
		return
	}
	uc.metrics.MovementRejected(kind, RejectReason(err))
}

// RejectReason clasifica un error para métricas y logs.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrTransient):
		return "transient"
	default:
		return "internal"
	}
}

// ToMovementResponse convierte la entidad al DTO de salida (monto con dos decimales).
func ToMovementResponse(m *entity.Movement) *dto.MovementResponse {
	return &dto.MovementResponse{
		ID:              m.ID,
		ItemID:          m.ItemID,
		Kind:            m.Kind,
		Quantity:        m.Quantity,
		Amount:          m.Amount.StringFixed(2),
		OccurredAt:      m.OccurredAt,
		Reference:       m.Reference,
		WarrantyClaimID: m.WarrantyClaimID,
		CreatedBy:       m.CreatedBy,
		CreatedAt:       m.CreatedAt,
	}
}
