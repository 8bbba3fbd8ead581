package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/inventario-garantias/internal/application/inventory"
	"github.com/jhoicas/inventario-garantias/internal/application/warranty"
	"github.com/jhoicas/inventario-garantias/internal/domain/repository"
	"github.com/jhoicas/inventario-garantias/pkg/logger"
)

var tracer = otel.Tracer("inventario-garantias/tx")

// Ensure TxRunner implements inventory.TxRunner and warranty.TxRunner.
var _ inventory.TxRunner = (*TxRunner)(nil)
var _ warranty.TxRunner = (*TxRunner)(nil)

// TxOptions límites de cada transacción.
type TxOptions struct {
	// Timeout acota la transacción completa (contexto); al vencer se hace rollback.
	Timeout time.Duration
	// StatementTimeout y LockTimeout se fijan con SET LOCAL; 0 no los fija.
	StatementTimeout time.Duration
	LockTimeout      time.Duration
}

// DefaultTxOptions deriva los límites de sentencia y bloqueo del timeout total.
func DefaultTxOptions(timeout time.Duration) TxOptions {
	return TxOptions{
		Timeout:          timeout,
		StatementTimeout: timeout,
		LockTimeout:      timeout / 2,
	}
}

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL (READ COMMITTED).
// La serialización por ítem la da SELECT ... FOR UPDATE dentro de los repositorios.
type TxRunner struct {
	pool *pgxpool.Pool
	opts TxOptions
	log  *logger.Logger
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool, opts TxOptions, log *logger.Logger) *TxRunner {
	if log == nil {
		log = logger.Nop()
	}
	return &TxRunner{pool: pool, opts: opts, log: log.Named("tx")}
}

// Run inicia una transacción, ejecuta fn con repos de inventario atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(
	movRepo repository.MovementRepository,
	itemRepo repository.StockItemRepository,
) error) error {
	return r.run(ctx, "inventory", func(ctx context.Context, tx pgx.Tx) error {
		return fn(NewMovementRepository(tx), NewStockItemRepository(tx))
	})
}

// RunWarranty inicia una transacción con repos de inventario y garantías (para CreateClaim).
func (r *TxRunner) RunWarranty(ctx context.Context, fn func(
	movRepo repository.MovementRepository,
	itemRepo repository.StockItemRepository,
	claimRepo repository.WarrantyClaimRepository,
) error) error {
	return r.run(ctx, "warranty", func(ctx context.Context, tx pgx.Tx) error {
		return fn(NewMovementRepository(tx), NewStockItemRepository(tx), NewWarrantyClaimRepository(tx))
	})
}

func (r *TxRunner) run(ctx context.Context, name string, fn func(ctx context.Context, tx pgx.Tx) error) (err error) {
	ctx, span := tracer.Start(ctx, "transaction",
		trace.WithAttributes(
			attribute.String("tx.name", name),
			attribute.String("tx.isolation", string(pgx.ReadCommitted)),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return mapError("begin transaction", err)
	}
	defer func() {
		// Contexto nuevo: el rollback debe completarse aunque el original se haya cancelado.
		if rbErr := tx.Rollback(context.Background()); rbErr != nil && rbErr != pgx.ErrTxClosed {
			r.log.Error().Err(rbErr).Str("tx", name).Msg("rollback falló")
		}
	}()

	if err := r.setLocal(ctx, tx); err != nil {
		return err
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError("commit transaction", err)
	}
	return nil
}

func (r *TxRunner) setLocal(ctx context.Context, tx pgx.Tx) error {
	if r.opts.StatementTimeout > 0 {
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = '%dms'", r.opts.StatementTimeout.Milliseconds())); err != nil {
			return mapError("set statement_timeout", err)
		}
	}
	if r.opts.LockTimeout > 0 {
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.opts.LockTimeout.Milliseconds())); err != nil {
			return mapError("set lock_timeout", err)
		}
	}
	return nil
}
