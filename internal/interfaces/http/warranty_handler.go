package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-garantias/internal/application/dto"
	"github.com/jhoicas/inventario-garantias/internal/application/warranty"
	"github.com/jhoicas/inventario-garantias/internal/domain/repository"
	"github.com/jhoicas/inventario-garantias/pkg/logger"
)

// WarrantyHandler maneja las garantías.
type WarrantyHandler struct {
	uc  *warranty.ClaimUseCase
	log *logger.Logger
}

// NewWarrantyHandler construye el handler.
func NewWarrantyHandler(uc *warranty.ClaimUseCase, log *logger.Logger) *WarrantyHandler {
	return &WarrantyHandler{uc: uc, log: log}
}

// Create godoc
// @Summary      Abrir garantía
// @Description  Con loan.active y un ítem asociado registra la salida del préstamo en la misma transacción.
// @Tags         warranty
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header    string                  false  "clave de reintento"
// @Param        body             body      dto.CreateClaimRequest  true   "datos del cliente y del producto"
// @Success      201              {object}  dto.ClaimResponse
// @Failure      400              {object}  dto.ErrorResponse  "VALIDATION (details.fields) o INSUFFICIENT_STOCK"
// @Router       /api/warranty-claims [post]
func (h *WarrantyHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateClaimRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.CreateClaim(c.Context(), GetUserID(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List godoc
// @Summary      Listar garantías
// @Tags         warranty
// @Security     Bearer
// @Produce      json
// @Param        status         query  string  false  "OPEN | UNDER_REVIEW | APPROVED | REJECTED | CLOSED"
// @Param        stock_item_id  query  int     false  "ítem asociado"
// @Param        limit          query  int     false  "máximo 100"
// @Param        offset         query  int     false  "desplazamiento"
// @Success      200  {object}  dto.ClaimListResponse
// @Router       /api/warranty-claims [get]
func (h *WarrantyHandler) List(c *fiber.Ctx) error {
	itemID, ok := queryID(c, "stock_item_id")
	if !ok {
		return badParam(c, "stock_item_id")
	}
	limit, offset := queryPage(c)
	out, err := h.uc.ListClaims(c.Context(), repository.WarrantyClaimFilter{
		Status:      c.Query("status"),
		StockItemID: itemID,
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener garantía
// @Tags         warranty
// @Security     Bearer
// @Produce      json
// @Param        id   path      int  true  "ID de la garantía"
// @Success      200  {object}  dto.ClaimResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/warranty-claims/{id} [get]
func (h *WarrantyHandler) GetByID(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	out, err := h.uc.GetClaim(c.Context(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Update godoc
// @Summary      Modificar garantía
// @Description  Estado, datos del cliente y fechas. El préstamo no se reevalúa.
// @Tags         warranty
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      int                     true  "ID de la garantía"
// @Param        body  body      dto.UpdateClaimRequest  true  "campos a modificar"
// @Success      200   {object}  dto.ClaimResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/warranty-claims/{id} [patch]
func (h *WarrantyHandler) Update(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	var in dto.UpdateClaimRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.UpdateClaim(c.Context(), id, in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}
