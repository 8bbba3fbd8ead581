package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInsufficientStock = errors.New("stock insuficiente")
	// ErrTransient marca fallos de infraestructura (conexión, timeout, serialización).
	// Reintentar la operación completa es seguro: nada parcial queda persistido.
	ErrTransient = errors.New("fallo transitorio de infraestructura")
)

// ErrItemHasMovements bloquea el borrado de un ítem con historial.
var ErrItemHasMovements = fmt.Errorf("%w: el ítem tiene movimientos asociados", ErrConflict)

// InsufficientStockError lleva el stock disponible para que el cliente pueda informarlo.
type InsufficientStockError struct {
	ItemID    int64
	OnHand    int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para el ítem %d: disponible %d, solicitado %d", e.ItemID, e.OnHand, e.Requested)
}

// Is permite errors.Is(err, ErrInsufficientStock).
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// ValidationError lista los campos faltantes o inválidos.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	msg := ErrInvalidInput.Error()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if len(e.Fields) > 0 {
		msg += " [" + strings.Join(e.Fields, ", ") + "]"
	}
	return msg
}

// Is permite errors.Is(err, ErrInvalidInput).
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Invalid construye un ValidationError con motivo y campos.
func Invalid(reason string, fields ...string) error {
	return &ValidationError{Reason: reason, Fields: fields}
}
