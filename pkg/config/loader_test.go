package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// No config file is present in the package directory, so defaults apply
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "nats", cfg.Queue.Backend)
	assert.Equal(t, float64(250), cfg.Arrival.ConfirmRadiusM)
	assert.Equal(t, float64(500), cfg.Arrival.LookupRadiusM)
	assert.Equal(t, 90*time.Minute, cfg.Arrival.SessionTTL)
	assert.Equal(t, 60*time.Second, cfg.Arrival.SweepInterval)
	assert.Equal(t, 3, cfg.Arrival.DailySessionCap)
	assert.Equal(t, "UTC", cfg.Arrival.DayBoundaryTimezone)
	assert.Equal(t, int64(500), cfg.Billing.FeeBps)
	assert.Equal(t, "usd", cfg.Billing.Stripe.Currency)
	assert.True(t, cfg.Database.AutoMigrate)
}

func TestLoad_EnvOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://app:secret@db:5432/arrival")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("APP_ARRIVAL_DAILY_SESSION_CAP", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "postgres://app:secret@db:5432/arrival", cfg.Database.URL)
	assert.Equal(t, "test-secret", cfg.JWT.Secret)
	assert.Equal(t, 5, cfg.Arrival.DailySessionCap)
}
