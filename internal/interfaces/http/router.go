package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-garantias/internal/application/inventory"
	"github.com/jhoicas/inventario-garantias/internal/application/warranty"
	"github.com/jhoicas/inventario-garantias/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Items          *inventory.StockItemUseCase
	Movements      *inventory.MovementUseCase
	Claims         *warranty.ClaimUseCase
	JWTSecret      string
	JWTIssuer      string
	Idempotency    IdempotencyStore
	IdempotencyTTL time.Duration
	Log            *logger.Logger
}

// Router registra las rutas de la API. Todas requieren Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	idem := Idempotency(deps.Idempotency, deps.IdempotencyTTL, log)
	writers := RequireRole(RoleAdmin, RoleBodeguero)
	adminOnly := RequireRole(RoleAdmin)

	api := app.Group("/api", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))

	itemHandler := NewStockItemHandler(deps.Items, log)
	movementHandler := NewMovementHandler(deps.Movements, log)
	claimHandler := NewWarrantyHandler(deps.Claims, log)

	items := api.Group("/items")
	items.Get("/", itemHandler.List)
	items.Post("/", writers, itemHandler.Create)
	items.Get("/:id", itemHandler.GetByID)
	items.Put("/:id", writers, itemHandler.Update)
	items.Delete("/:id", adminOnly, itemHandler.Delete)
	items.Get("/:id/movements", movementHandler.ListByItem)
	items.Get("/:id/ledger-check", movementHandler.LedgerCheck)

	movements := api.Group("/movements")
	movements.Get("/", movementHandler.List)
	movements.Post("/", writers, idem, movementHandler.Apply)
	movements.Get("/:id", movementHandler.GetByID)
	movements.Delete("/:id", adminOnly, movementHandler.Delete)

	claims := api.Group("/warranty-claims")
	claims.Get("/", claimHandler.List)
	claims.Post("/", idem, claimHandler.Create)
	claims.Get("/:id", claimHandler.GetByID)
	claims.Patch("/:id", claimHandler.Update)
}
