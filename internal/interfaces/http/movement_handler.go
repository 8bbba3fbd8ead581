package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-garantias/internal/application/dto"
	"github.com/jhoicas/inventario-garantias/internal/application/inventory"
	"github.com/jhoicas/inventario-garantias/internal/domain/repository"
	"github.com/jhoicas/inventario-garantias/pkg/logger"
)

// MovementHandler maneja el diario de movimientos.
type MovementHandler struct {
	uc  *inventory.MovementUseCase
	log *logger.Logger
}

// NewMovementHandler construye el handler.
func NewMovementHandler(uc *inventory.MovementUseCase, log *logger.Logger) *MovementHandler {
	return &MovementHandler{uc: uc, log: log}
}

// Apply godoc
// @Summary      Registrar movimiento (entrada o salida)
// @Description  Actualiza el stock del ítem en la misma transacción. Admite Idempotency-Key.
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header    string                    false  "clave de reintento"
// @Param        body             body      dto.ApplyMovementRequest  true   "item_id, kind, quantity, amount"
// @Success      201              {object}  dto.MovementResponse
// @Failure      400              {object}  dto.ErrorResponse  "VALIDATION o INSUFFICIENT_STOCK (details.on_hand)"
// @Failure      404              {object}  dto.ErrorResponse
// @Failure      503              {object}  dto.ErrorResponse
// @Router       /api/movements [post]
func (h *MovementHandler) Apply(c *fiber.Ctx) error {
	var in dto.ApplyMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := dto.Validate(in); err != nil {
		return writeError(c, h.log, err)
	}
	out, err := h.uc.ApplyMovement(c.Context(), inventory.MovementInput{
		ItemID:     in.ItemID,
		Kind:       in.Kind,
		Quantity:   in.Quantity,
		Amount:     in.Amount,
		OccurredAt: in.OccurredAt,
		UserID:     GetUserID(c),
		Reference:  in.Reference,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List godoc
// @Summary      Listar movimientos
// @Tags         movements
// @Security     Bearer
// @Produce      json
// @Param        item_id  query  int     false  "ítem"
// @Param        kind     query  string  false  "RECEIPT | WITHDRAWAL"
// @Param        from     query  string  false  "desde (RFC3339 o YYYY-MM-DD)"
// @Param        to       query  string  false  "hasta, inclusivo"
// @Param        limit    query  int     false  "máximo 100"
// @Param        offset   query  int     false  "desplazamiento"
// @Success      200  {object}  dto.MovementListResponse
// @Router       /api/movements [get]
func (h *MovementHandler) List(c *fiber.Ctx) error {
	itemID, ok := queryID(c, "item_id")
	if !ok {
		return badParam(c, "item_id")
	}
	return h.list(c, itemID)
}

// ListByItem godoc
// @Summary      Historial de movimientos de un ítem
// @Tags         items
// @Security     Bearer
// @Produce      json
// @Param        id   path      int  true  "ID del ítem"
// @Success      200  {object}  dto.MovementListResponse
// @Router       /api/items/{id}/movements [get]
func (h *MovementHandler) ListByItem(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	return h.list(c, &id)
}

func (h *MovementHandler) list(c *fiber.Ctx, itemID *int64) error {
	from, ok := queryTime(c, "from", false)
	if !ok {
		return badParam(c, "from")
	}
	to, ok := queryTime(c, "to", true)
	if !ok {
		return badParam(c, "to")
	}
	limit, offset := queryPage(c)
	out, err := h.uc.ListMovements(c.Context(), repository.MovementFilter{
		ItemID: itemID,
		Kind:   c.Query("kind"),
		From:   from,
		To:     to,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener movimiento
// @Tags         movements
// @Security     Bearer
// @Produce      json
// @Param        id   path      int  true  "ID del movimiento"
// @Success      200  {object}  dto.MovementResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/movements/{id} [get]
func (h *MovementHandler) GetByID(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	out, err := h.uc.GetMovement(c.Context(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Revertir movimiento
// @Description  Elimina el movimiento y deshace su efecto sobre el stock.
// @Tags         movements
// @Security     Bearer
// @Param        id   path  int  true  "ID del movimiento"
// @Success      204
// @Failure      400  {object}  dto.ErrorResponse  "INSUFFICIENT_STOCK si la entrada ya se consumió"
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/movements/{id} [delete]
func (h *MovementHandler) Delete(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	if err := h.uc.DeleteMovement(c.Context(), id); err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// LedgerCheck godoc
// @Summary      Verificar contadores contra el diario
// @Tags         items
// @Security     Bearer
// @Produce      json
// @Param        id   path      int  true  "ID del ítem"
// @Success      200  {object}  dto.LedgerCheckResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/items/{id}/ledger-check [get]
func (h *MovementHandler) LedgerCheck(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	out, err := h.uc.CheckLedger(c.Context(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}
