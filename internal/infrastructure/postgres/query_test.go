package postgres

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-garantias/internal/domain"
	"github.com/jhoicas/inventario-garantias/internal/domain/entity"
	"github.com/jhoicas/inventario-garantias/internal/domain/repository"
)

func TestBuildMovementList_Filtros(t *testing.T) {
	item := int64(7)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)

	sql, args, err := buildMovementList(repository.MovementFilter{
		ItemID: &item, Kind: "WITHDRAWAL", From: &from, To: &to, Limit: 20, Offset: 40,
	}).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT id, item_id, kind, quantity, amount, occurred_at, reference, warranty_claim_id, created_by, created_at "+
			"FROM movements WHERE item_id = $1 AND kind = $2 AND occurred_at >= $3 AND occurred_at <= $4 "+
			"ORDER BY occurred_at DESC, id DESC LIMIT 20 OFFSET 40",
		sql)
	assert.Equal(t, []any{item, "WITHDRAWAL", from, to}, args)
}

func TestBuildMovementList_SinFiltros(t *testing.T) {
	sql, args, err := buildMovementList(repository.MovementFilter{}).ToSql()
	require.NoError(t, err)
	assert.NotContains(t, sql, "WHERE")
	assert.NotContains(t, sql, "LIMIT")
	assert.Empty(t, args)
}

func TestBuildStockItemList_BusquedaNormalizada(t *testing.T) {
	sql, args, err := buildStockItemList(repository.StockItemFilter{Query: "  Batería ", Limit: 10}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE (name_key LIKE $1 OR model_key LIKE $2)")
	assert.Contains(t, sql, "ORDER BY name ASC, id ASC LIMIT 10")
	assert.Equal(t, []any{"%bateria%", "%bateria%"}, args)
}

func TestBuildClaimList(t *testing.T) {
	item := int64(3)
	sql, args, err := buildClaimList(repository.WarrantyClaimFilter{Status: "OPEN", StockItemID: &item, Limit: 5}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "FROM warranty_claims WHERE status = $1 AND stock_item_id = $2 ORDER BY id DESC LIMIT 5")
	assert.Equal(t, []any{"OPEN", item}, args)
}

func TestMapError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"fk restrict", &pgconn.PgError{Code: "23503"}, domain.ErrConflict},
		{"check", &pgconn.PgError{Code: "23514"}, domain.ErrConflict},
		{"único", &pgconn.PgError{Code: "23505"}, domain.ErrDuplicate},
		{"serialización", &pgconn.PgError{Code: "40001"}, domain.ErrTransient},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, domain.ErrTransient},
		{"lock_timeout", &pgconn.PgError{Code: "55P03"}, domain.ErrTransient},
		{"statement_timeout", &pgconn.PgError{Code: "57014"}, domain.ErrTransient},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), domain.ErrTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := mapError("op", tc.err)
			assert.ErrorIs(t, got, tc.want)
			assert.ErrorIs(t, got, tc.err, "el error original se conserva")
		})
	}

	assert.NoError(t, mapError("op", nil))
	plain := errors.New("sintaxis")
	got := mapError("op", plain)
	assert.NotErrorIs(t, got, domain.ErrTransient)
	assert.ErrorIs(t, got, plain)
}

func TestDefaultTxOptions(t *testing.T) {
	opts := DefaultTxOptions(4 * time.Second)
	assert.Equal(t, 4*time.Second, opts.Timeout)
	assert.Equal(t, 4*time.Second, opts.StatementTimeout)
	assert.Equal(t, 2*time.Second, opts.LockTimeout)
}

func dbTags(v any) []string {
	typ := reflect.TypeOf(v)
	tags := make([]string, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		tags = append(tags, typ.Field(i).Tag.Get("db"))
	}
	return tags
}

// Cada columna seleccionada tiene su campo etiquetado en la entidad que escanea pgxscan.
func TestColumnasCoincidenConEtiquetasDB(t *testing.T) {
	assert.Equal(t, stockItemColumns, dbTags(entity.StockItem{}))
	assert.Equal(t, movementColumns, dbTags(entity.Movement{}))
	assert.Equal(t, claimColumns, dbTags(entity.WarrantyClaim{}))
}
