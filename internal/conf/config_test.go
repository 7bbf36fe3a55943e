package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultTestSettings() *Settings {
	return &Settings{
		WebServer: WebServerSettings{Enabled: true, Port: "8080"},
		Output: OutputSettings{
			SQLite: SQLiteSettings{Enabled: true, Path: "test.db"},
		},
		Identify: IdentifySettings{
			Threshold:         0.85,
			UploadPath:        "uploads/",
			MaxUploadSizeMB:   16,
			AllowedExtensions: []string{".png", ".jpg"},
		},
		Security: SecuritySettings{
			SessionTTL: 24 * time.Hour,
			JWTExpiry:  24 * time.Hour,
			BcryptCost: 12,
		},
	}
}

func TestValidateSettingsValid(t *testing.T) {
	settings := defaultTestSettings()
	require.NoError(t, ValidateSettings(settings))
}

func TestValidateSettingsInvalidPort(t *testing.T) {
	settings := defaultTestSettings()
	settings.WebServer.Port = "not-a-port"
	err := ValidateSettings(settings)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid web server port")
}

func TestValidateSettingsBothStoresEnabled(t *testing.T) {
	settings := defaultTestSettings()
	settings.Output.MySQL.Enabled = true
	settings.Output.MySQL.Database = "db"
	settings.Output.MySQL.Host = "localhost"
	err := ValidateSettings(settings)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only one database output")
}

func TestValidateSettingsNoStoreEnabled(t *testing.T) {
	settings := defaultTestSettings()
	settings.Output.SQLite.Enabled = false
	err := ValidateSettings(settings)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "one database output must be enabled")
}

func TestValidateSettingsThresholdRange(t *testing.T) {
	for _, threshold := range []float64{-0.1, 1.1} {
		settings := defaultTestSettings()
		settings.Identify.Threshold = threshold
		err := ValidateSettings(settings)
		require.Error(t, err, "threshold %v should be rejected", threshold)
		assert.Contains(t, err.Error(), "threshold must be between 0 and 1")
	}
}

func TestValidateSettingsVisionNeedsAPIKey(t *testing.T) {
	settings := defaultTestSettings()
	settings.Identify.Vision.Enabled = true
	err := ValidateSettings(settings)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Vision API key")
}

func TestValidateSettingsExtensionDot(t *testing.T) {
	settings := defaultTestSettings()
	settings.Identify.AllowedExtensions = []string{"png"}
	err := ValidateSettings(settings)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must start with a dot")
}

func TestValidateSettingsOAuthCredentials(t *testing.T) {
	settings := defaultTestSettings()
	settings.Security.GoogleOAuth.Enabled = true
	err := ValidateSettings(settings)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OAuth client id and secret")
}

func TestMySQLDSN(t *testing.T) {
	m := MySQLSettings{
		Username: "user",
		Password: "pass",
		Host:     "dbhost",
		Port:     "3306",
		Database: "aquatrace",
	}
	assert.Equal(t, "user:pass@tcp(dbhost:3306)/aquatrace?charset=utf8mb4&parseTime=True&loc=Local", m.DSN())
}

func TestGenerateRandomSecret(t *testing.T) {
	a := GenerateRandomSecret()
	b := GenerateRandomSecret()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b, "secrets should be unique")
	assert.GreaterOrEqual(t, len(a), 32)
}
