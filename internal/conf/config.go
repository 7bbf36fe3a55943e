// config.go: settings struct and functions to load and save the AquaTrace
// configuration.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/aquatrace/aquatrace-go/internal/errors"
)

//go:embed config.yaml
var configFiles embed.FS

// LogConfig contains settings for a rotating log file.
type LogConfig struct {
	Enabled    bool   // true to enable file logging
	Path       string // path to log file
	MaxSize    int    // maximum log file size in megabytes
	MaxBackups int    // number of rotated files to keep
	MaxAge     int    // maximum age of rotated files in days
}

// MainSettings contains general application settings.
type MainSettings struct {
	Name string    // name of this node, used in logs and exports
	Log  LogConfig // main log file settings
}

// WebServerSettings contains settings for the HTTP server.
type WebServerSettings struct {
	Debug   bool   // true to enable debug logging for the web server
	Enabled bool   // true to enable the web server
	Port    string // port to listen on
}

// SQLiteSettings contains settings for the SQLite store.
type SQLiteSettings struct {
	Enabled bool   // true to enable SQLite output
	Path    string // path to the SQLite database file
}

// MySQLSettings contains settings for the MySQL store.
type MySQLSettings struct {
	Enabled  bool   // true to enable MySQL output
	Username string // MySQL username
	Password string // MySQL password
	Database string // MySQL database name
	Host     string // MySQL host
	Port     string // MySQL port
}

// OutputSettings contains settings for persistence backends.
type OutputSettings struct {
	SQLite SQLiteSettings
	MySQL  MySQLSettings
}

// VisionSettings configures the Google Cloud Vision fallback identifier.
type VisionSettings struct {
	Enabled    bool   // true to enable the Vision API fallback
	APIKey     string // Vision API key
	Endpoint   string // override endpoint, used in tests
	MaxResults int    // maximum labels requested per image
}

// IdentifySettings configures the identification pipeline.
type IdentifySettings struct {
	Threshold         float64        // confidence below which the fallback engages
	UploadPath        string         // directory for stored upload images
	MaxUploadSizeMB   int64          // maximum accepted upload size in megabytes
	AllowedExtensions []string       // accepted image file extensions
	Vision            VisionSettings // fallback identifier settings
}

// OAuthSettings holds the external identity provider credentials. The
// provider is treated as an opaque collaborator behind the security package.
type OAuthSettings struct {
	Enabled      bool   // true to enable external identity login
	ClientID     string // OAuth client id
	ClientSecret string // OAuth client secret
	RedirectURI  string // OAuth redirect URI
}

// SecuritySettings contains authentication and session settings.
type SecuritySettings struct {
	Debug          bool          // true to enable debug logging for auth
	SessionSecret  string        // secret for session cookie signing
	SessionTTL     time.Duration // session lifetime
	JWTSecret      string        // secret for bearer token signing
	JWTExpiry      time.Duration // bearer token lifetime
	BcryptCost     int           // bcrypt hashing cost
	LoginRateLimit float64       // allowed login attempts per second per client
	LoginRateBurst int           // login attempt burst per client
	GoogleOAuth    OAuthSettings // external identity provider
}

// SpeciesSettings contains settings for the species catalog.
type SpeciesSettings struct {
	CatalogPath string // path to a catalog JSON file; empty uses the embedded catalog
}

// Settings contains all configuration options for the AquaTrace server.
type Settings struct {
	Debug bool // true to enable debug behavior globally

	Main      MainSettings
	WebServer WebServerSettings
	Output    OutputSettings
	Identify  IdentifySettings
	Security  SecuritySettings
	Species   SpeciesSettings
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Setting returns the current settings instance, loading it on first use.
func Setting() *Settings {
	once.Do(func() {
		settingsMutex.Lock()
		defer settingsMutex.Unlock()
		if settingsInstance == nil {
			initSettings()
		}
	})
	return GetSettings()
}

// GetSettings returns the current settings instance without loading.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

func initSettings() {
	settings, err := Load()
	if err != nil {
		panic(fmt.Errorf("error loading settings: %w", err))
	}
	settingsInstance = settings
}

// Load reads the configuration into a new Settings struct.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("fatal error reading config file: %w", err)
		}
		// Config file not found, create config with defaults
		if err := createDefaultConfig(); err != nil {
			return err
		}
	}

	// Generate signing secrets on first run so sessions survive restarts
	// only when the operator pins them in the config file.
	if viper.GetString("security.sessionsecret") == "" {
		viper.Set("security.sessionsecret", GenerateRandomSecret())
	}
	if viper.GetString("security.jwtsecret") == "" {
		viper.Set("security.jwtsecret", GenerateRandomSecret())
	}

	return nil
}

// createDefaultConfig writes the embedded default config to the first default
// config path and points viper at it.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	defaultConfig, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "read-embedded-config").
			Build()
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "create-config-dir").
			Build()
	}

	if err := os.WriteFile(configPath, defaultConfig, 0o644); err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "write-default-config").
			Build()
	}

	fmt.Println("Created default config file at:", configPath)
	return viper.ReadInConfig()
}

// DSN builds the MySQL connection string from settings.
func (m *MySQLSettings) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		m.Username, m.Password, m.Host, m.Port, m.Database)
}
