package http

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/inventario-garantias/internal/application/dto"
	"github.com/jhoicas/inventario-garantias/pkg/logger"
)

// requestIDKey es la clave de Locals que usa el middleware requestid.
const requestIDKey = "requestid"

// HeaderIdempotencyKey cabecera opcional en los POST que escriben stock.
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotentReplay marca una respuesta servida desde el almacén de idempotencia.
const HeaderIdempotentReplay = "Idempotent-Replayed"

func requestID(c *fiber.Ctx) string {
	s, _ := c.Locals(requestIDKey).(string)
	return s
}

// statusOf devuelve el status final aunque el handler haya devuelto error
// (el ErrorHandler de Fiber corre después de los middlewares).
func statusOf(c *fiber.Ctx, err error) int {
	if err != nil {
		status, _ := errorResponse(err)
		return status
	}
	return c.Response().StatusCode()
}

// AccessLog registra cada petición con método, ruta, status y latencia.
func AccessLog(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := statusOf(c, err)
		ev := log.Info()
		if status >= fiber.StatusInternalServerError {
			ev = log.Warn()
		}
		ev.Str("request_id", requestID(c)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("user_id", GetUserID(c)).
			Msg("http")
		return err
	}
}

// HTTPObserver recibe la duración de cada petición (implementado por metrics.LedgerMetrics).
type HTTPObserver interface {
	ObserveHTTP(method, route string, status int, d time.Duration)
}

// Metrics mide la latencia por ruta registrada (no por path) para acotar la cardinalidad.
func Metrics(obs HTTPObserver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if obs != nil {
			obs.ObserveHTTP(c.Method(), c.Route().Path, statusOf(c, err), time.Since(start))
		}
		return err
	}
}

// IdempotencyStore operaciones mínimas del almacén de claves (Redis).
// Get devuelve redis.Nil cuando la clave no existe.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// idempotencyRecord es la reserva (Pending) o la respuesta final guardada bajo la clave.
type idempotencyRecord struct {
	Pending     bool   `json:"pending,omitempty"`
	Status      int    `json:"status,omitempty"`
	Body        string `json:"body,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	RequestHash string `json:"request_hash"`
}

// Idempotency reproduce la respuesta guardada cuando llega otra vez la misma Idempotency-Key
// (mismo usuario, método y path). Sin cabecera o sin store la petición pasa tal cual.
// La clave se reserva con SETNX antes de ejecutar el handler: un duplicado que llega mientras
// el primero sigue en curso recibe 409 IDEMPOTENCY_IN_PROGRESS. Las respuestas 5xx liberan
// la reserva para que el cliente pueda reintentar.
func Idempotency(store IdempotencyStore, ttl time.Duration, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		idemKey := strings.TrimSpace(c.Get(HeaderIdempotencyKey))
		if store == nil || idemKey == "" {
			return c.Next()
		}
		if len(idemKey) > 200 {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "Idempotency-Key demasiado larga"})
		}

		ctx := c.UserContext()
		requestHash := hashBody(c.Body())
		key := store.IdempotencyKey(strings.Join([]string{GetUserID(c), c.Method(), c.Path()}, "|"), idemKey)

		reservation, err := json.Marshal(idempotencyRecord{Pending: true, RequestHash: requestHash})
		if err != nil {
			log.Error().Err(err).Msg("serializar reserva de idempotencia")
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
		}
		reserved, err := store.SetNX(ctx, key, string(reservation), ttl)
		if err != nil {
			log.Error().Err(err).Str("request_id", requestID(c)).Msg("reservar clave de idempotencia")
			return idempotencyUnavailable(c)
		}
		if !reserved {
			return existing(c, store, key, requestHash, log)
		}

		err = c.Next()
		if status := statusOf(c, err); err != nil || status >= fiber.StatusInternalServerError {
			if delErr := store.Del(ctx, key); delErr != nil {
				log.Warn().Err(delErr).Str("request_id", requestID(c)).Msg("liberar clave de idempotencia")
			}
			return err
		}
		rec := idempotencyRecord{
			Status:      c.Response().StatusCode(),
			Body:        base64.StdEncoding.EncodeToString(c.Response().Body()),
			ContentType: string(c.Response().Header.ContentType()),
			RequestHash: requestHash,
		}
		payload, err := json.Marshal(rec)
		if err != nil {
			log.Error().Err(err).Msg("serializar registro de idempotencia")
			_ = store.Del(ctx, key)
			return nil
		}
		if err := store.Set(ctx, key, string(payload), ttl); err != nil {
			log.Warn().Err(err).Str("request_id", requestID(c)).Msg("guardar registro de idempotencia")
		}
		return nil
	}
}

// existing resuelve una petición cuya clave ya estaba reservada o guardada.
func existing(c *fiber.Ctx, store IdempotencyStore, key, requestHash string, log *logger.Logger) error {
	stored, err := store.Get(c.UserContext(), key)
	if errors.Is(err, redis.Nil) {
		// La reserva se liberó entre SETNX y GET: el primero falló y el cliente puede reintentar.
		return inProgress(c)
	}
	if err != nil {
		log.Error().Err(err).Str("request_id", requestID(c)).Msg("consultar clave de idempotencia")
		return idempotencyUnavailable(c)
	}
	var rec idempotencyRecord
	if err := json.Unmarshal([]byte(stored), &rec); err != nil {
		log.Error().Err(err).Str("request_id", requestID(c)).Msg("decodificar registro de idempotencia")
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
	}
	if rec.RequestHash != requestHash {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "IDEMPOTENCY_KEY_REUSED", Message: "Idempotency-Key reutilizada con otro cuerpo"})
	}
	if rec.Pending {
		return inProgress(c)
	}
	return replay(c, rec)
}

func inProgress(c *fiber.Ctx) error {
	return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "IDEMPOTENCY_IN_PROGRESS", Message: "hay una petición en curso con la misma Idempotency-Key"})
}

func idempotencyUnavailable(c *fiber.Ctx) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "TRANSIENT", Message: "almacén de idempotencia no disponible"})
}

func replay(c *fiber.Ctx, rec idempotencyRecord) error {
	body, err := base64.StdEncoding.DecodeString(rec.Body)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
	}
	if rec.ContentType != "" {
		c.Set(fiber.HeaderContentType, rec.ContentType)
	}
	c.Set(HeaderIdempotentReplay, "true")
	return c.Status(rec.Status).Send(body)
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}
