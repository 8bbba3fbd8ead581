package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, 5*time.Second, cfg.DB.TxTimeout)
	assert.Equal(t, 25, cfg.DB.MaxConns)
	assert.Equal(t, 24*time.Hour, cfg.Idempotency.TTL)
	assert.False(t, cfg.Redis.Enabled())
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestFromViper_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("APP_ENV", "production")
	v.Set("JWT_SECRET", "s3cr3t")
	v.Set("DB_PORT", "6543")
	v.Set("DB_TX_TIMEOUT", "250ms")
	v.Set("IDEMPOTENCY_TTL", "3600")
	v.Set("REDIS_URL", "redis://localhost:6379/0")
	v.Set("METRICS_ENABLED", "false")

	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 6543, cfg.DB.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.DB.TxTimeout)
	assert.Equal(t, time.Hour, cfg.Idempotency.TTL)
	assert.True(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Metrics.Enabled)
}

func TestFromViper_SecretoObligatorioFueraDeDevelopment(t *testing.T) {
	v := viper.New()
	v.Set("APP_ENV", "production")
	_, err := fromViper(v)
	assert.Error(t, err)
}

func TestFromViper_TxTimeoutInvalido(t *testing.T) {
	v := viper.New()
	v.Set("DB_TX_TIMEOUT", "0s")
	_, err := fromViper(v)
	assert.Error(t, err)
}

func TestConnectionString(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss/word", DBName: "inventario", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%2Fword@db:5432/inventario?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgresql://x:y@h:1/d"
	assert.Equal(t, "postgresql://x:y@h:1/d", c.ConnectionString())
}
