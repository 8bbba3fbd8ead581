package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-garantias/internal/application/dto"
	"github.com/jhoicas/inventario-garantias/internal/application/inventory"
	"github.com/jhoicas/inventario-garantias/pkg/logger"
)

// StockItemHandler maneja el catálogo de ítems.
type StockItemHandler struct {
	uc  *inventory.StockItemUseCase
	log *logger.Logger
}

// NewStockItemHandler construye el handler.
func NewStockItemHandler(uc *inventory.StockItemUseCase, log *logger.Logger) *StockItemHandler {
	return &StockItemHandler{uc: uc, log: log}
}

// Create godoc
// @Summary      Crear ítem de catálogo
// @Tags         items
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateStockItemRequest  true  "name, model, initial_quantity, cost, sale_price"
// @Success      201   {object}  dto.StockItemResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/items [post]
func (h *StockItemHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateStockItemRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Create(c.Context(), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List godoc
// @Summary      Listar ítems
// @Description  q filtra por subcadena de nombre o modelo, sin distinguir mayúsculas ni tildes.
// @Tags         items
// @Security     Bearer
// @Produce      json
// @Param        q       query  string  false  "búsqueda"
// @Param        limit   query  int     false  "máximo 100"
// @Param        offset  query  int     false  "desplazamiento"
// @Success      200  {object}  dto.StockItemListResponse
// @Router       /api/items [get]
func (h *StockItemHandler) List(c *fiber.Ctx) error {
	limit, offset := queryPage(c)
	out, err := h.uc.List(c.Context(), c.Query("q"), limit, offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener ítem
// @Tags         items
// @Security     Bearer
// @Produce      json
// @Param        id   path      int  true  "ID del ítem"
// @Success      200  {object}  dto.StockItemResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/items/{id} [get]
func (h *StockItemHandler) GetByID(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	out, err := h.uc.GetByID(c.Context(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Update godoc
// @Summary      Actualizar datos del ítem
// @Description  Solo datos descriptivos y comerciales; las cantidades cambian únicamente con movimientos.
// @Tags         items
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      int                         true  "ID del ítem"
// @Param        body  body      dto.UpdateStockItemRequest  true  "campos a modificar"
// @Success      200   {object}  dto.StockItemResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/items/{id} [put]
func (h *StockItemHandler) Update(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	var in dto.UpdateStockItemRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Update(c.Context(), id, in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Eliminar ítem
// @Description  Rechazado con 409 ITEM_HAS_MOVEMENTS si el ítem tiene historial.
// @Tags         items
// @Security     Bearer
// @Param        id   path  int  true  "ID del ítem"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/items/{id} [delete]
func (h *StockItemHandler) Delete(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	if err := h.uc.Delete(c.Context(), id); err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
