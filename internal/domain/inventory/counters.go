package inventory

import (
	"fmt"
	"math"

	"github.com/jhoicas/inventario-garantias/internal/domain"
	"github.com/jhoicas/inventario-garantias/internal/domain/entity"
)

// Counters es el agregado de stock de un ítem (servicio de dominio puro, sin I/O).
// Invariantes: OnHand == Initial + Received - Withdrawn y OnHand >= 0.
type Counters struct {
	Initial   int64
	Received  int64
	Withdrawn int64
	OnHand    int64
}

// CountersOf toma los contadores de un ítem leído de la base.
func CountersOf(item *entity.StockItem) Counters {
	return Counters{
		Initial:   item.InitialQuantity,
		Received:  item.Received,
		Withdrawn: item.Withdrawn,
		OnHand:    item.OnHand,
	}
}

// Check valida ambas invariantes.
func (c Counters) Check() error {
	if c.Initial < 0 || c.Received < 0 || c.Withdrawn < 0 {
		return fmt.Errorf("contadores negativos: inicial=%d entradas=%d salidas=%d", c.Initial, c.Received, c.Withdrawn)
	}
	if c.OnHand != c.Initial+c.Received-c.Withdrawn {
		return fmt.Errorf("stock descuadrado: disponible=%d esperado=%d", c.OnHand, c.Initial+c.Received-c.Withdrawn)
	}
	if c.OnHand < 0 {
		return fmt.Errorf("stock negativo: %d", c.OnHand)
	}
	return nil
}

// Apply calcula los contadores tras aplicar un movimiento.
// Una salida mayor que el disponible devuelve *domain.InsufficientStockError.
func (c Counters) Apply(itemID int64, kind string, quantity int64) (Counters, error) {
	if quantity <= 0 {
		return c, domain.Invalid("la cantidad debe ser positiva", "quantity")
	}
	next := c
	switch kind {
	case entity.MovementKindReceipt:
		if quantity > math.MaxInt64-c.OnHand || quantity > math.MaxInt64-c.Received {
			return c, domain.Invalid("la cantidad excede el máximo representable", "quantity")
		}
		next.Received += quantity
		next.OnHand += quantity
	case entity.MovementKindWithdrawal:
		if c.OnHand < quantity {
			return c, &domain.InsufficientStockError{ItemID: itemID, OnHand: c.OnHand, Requested: quantity}
		}
		next.Withdrawn += quantity
		next.OnHand -= quantity
	default:
		return c, domain.Invalid("tipo de movimiento desconocido", "kind")
	}
	return next, next.Check()
}

// Reverse deshace un movimiento sobre los contadores actuales.
// Deshacer una entrada cuyo stock ya salió dejaría OnHand < 0: se rechaza con InsufficientStockError.
func (c Counters) Reverse(itemID int64, kind string, quantity int64) (Counters, error) {
	next := c
	switch kind {
	case entity.MovementKindReceipt:
		if c.OnHand < quantity || c.Received < quantity {
			return c, &domain.InsufficientStockError{ItemID: itemID, OnHand: c.OnHand, Requested: quantity}
		}
		next.Received -= quantity
		next.OnHand -= quantity
	case entity.MovementKindWithdrawal:
		if c.Withdrawn < quantity {
			return c, fmt.Errorf("salidas acumuladas (%d) menores que el movimiento (%d)", c.Withdrawn, quantity)
		}
		next.Withdrawn -= quantity
		next.OnHand += quantity
	default:
		return c, domain.Invalid("tipo de movimiento desconocido", "kind")
	}
	return next, next.Check()
}

// WriteTo copia los contadores al ítem.
func (c Counters) WriteTo(item *entity.StockItem) {
	item.Received = c.Received
	item.Withdrawn = c.Withdrawn
	item.OnHand = c.OnHand
}
