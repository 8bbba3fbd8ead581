package http

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

const dateLayout = "2006-01-02"

// paramID lee un identificador positivo de la ruta.
func paramID(c *fiber.Ctx, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryID lee un identificador opcional del query string.
func queryID(c *fiber.Ctx, name string) (*int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, false
	}
	return &id, true
}

// queryTime acepta RFC3339 o YYYY-MM-DD. Con endOfDay una fecha sin hora
// cubre el día completo (el límite superior del listado es inclusivo).
func queryTime(c *fiber.Ctx, name string, endOfDay bool) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, true
	}
	day, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, false
	}
	if endOfDay {
		day = day.Add(24*time.Hour - time.Nanosecond)
	}
	return &day, true
}

func queryPage(c *fiber.Ctx) (limit, offset int) {
	return c.QueryInt("limit", 0), c.QueryInt("offset", 0)
}
