package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"medibook/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "redis")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing", "config.yaml"))
	require.Error(t, err, "an explicit path must exist")

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "redis", cfg.StoreBackend)
	assert.Equal(t, 10, cfg.TxnMaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.AvailabilityCacheTTL)
	assert.NotEmpty(t, cfg.AppointmentTypes)
}

func TestLoad_FileOverridesCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
APP_PORT: "9090"
STORE_BACKEND: redis
AVAILABILITY_CACHE_TTL: 1m
APPOINTMENT_TYPES:
  - code: consultation
    name: Consultation
    durationMinutes: 30
    price: 40
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.AppPort)
	assert.Equal(t, time.Minute, cfg.AvailabilityCacheTTL)
	require.Len(t, cfg.AppointmentTypes, 1)
	assert.Equal(t, 30, cfg.AppointmentTypes[0].DurationMinutes)
	assert.Equal(t, 40.0, cfg.AppointmentTypes[0].Price)
}

func TestValidate(t *testing.T) {
	base := Config{StoreBackend: "mongo", AuthProvider: "jwt", TxnMaxAttempts: 3}
	assert.NoError(t, base.Validate())

	bad := base
	bad.StoreBackend = "postgres"
	assert.Error(t, bad.Validate())

	bad = base
	bad.AuthProvider = "firebase"
	assert.Error(t, bad.Validate())

	bad = base
	bad.Env = "production"
	assert.Error(t, bad.Validate(), "production requires a JWT secret")

	bad = base
	bad.TxnMaxAttempts = 0
	assert.Error(t, bad.Validate())
}

func TestValidate_AppointmentDurations(t *testing.T) {
	base := Config{StoreBackend: "mongo", AuthProvider: "jwt", TxnMaxAttempts: 3}

	for _, tt := range []struct {
		minutes int
		valid   bool
	}{
		{15, true},
		{30, true},
		{60, true},
		{0, false},
		{20, false},
		{50, false},
	} {
		cfg := base
		cfg.AppointmentTypes = []models.AppointmentType{{Code: "visit", Name: "Visit", DurationMinutes: tt.minutes}}
		if tt.valid {
			assert.NoError(t, cfg.Validate(), "%d minutes", tt.minutes)
		} else {
			assert.Error(t, cfg.Validate(), "%d minutes", tt.minutes)
		}
	}
}
