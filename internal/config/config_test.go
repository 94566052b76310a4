package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("WHATSAPP_TOKEN", "")
	t.Setenv("GOOGLE_SHEETS_CREDENTIALS_PATH", "")
	t.Setenv("SALE_RESERVE_STATUSES", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, 5*time.Second, cfg.Store.CommitTimeout)
	assert.Equal(t, 5, cfg.Store.MaxAttempts)
	assert.Empty(t, cfg.Stock.SaleReserveStatuses)
	assert.False(t, cfg.WhatsApp.Enabled())
	assert.False(t, cfg.Sheets.Enabled())
}

func TestLoadFromEnvFile(t *testing.T) {
	for _, key := range []string{"STORE_DRIVER", "STORE_MAX_ATTEMPTS", "SALE_RESERVE_STATUSES", "TIMEZONE"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	path := filepath.Join(t.TempDir(), ".env")
	content := "STORE_DRIVER=Memory\nSTORE_MAX_ATTEMPTS=9\nSALE_RESERVE_STATUSES=Invoiced, Paid,\nTIMEZONE=Africa/Conakry\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, 9, cfg.Store.MaxAttempts)
	assert.Equal(t, []string{"Invoiced", "Paid"}, cfg.Stock.SaleReserveStatuses)
	assert.Equal(t, "Africa/Conakry", cfg.Reporting.Timezone)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]map[string]string{
		"driver":   {"STORE_DRIVER": "postgres"},
		"timeout":  {"STORE_COMMIT_TIMEOUT": "soon"},
		"attempts": {"STORE_MAX_ATTEMPTS": "0"},
		"timezone": {"TIMEZONE": "Mars/Olympus"},
		"recipient": {
			"WHATSAPP_TOKEN":           "token",
			"WHATSAPP_PHONE_NUMBER_ID": "123",
			"WHATSAPP_ALERT_RECIPIENT": "",
		},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}
