// conf/validate.go

package conf

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateWebServerSettings(&settings.WebServer); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateOutputSettings(&settings.Output); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateIdentifySettings(&settings.Identify); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateSecuritySettings(&settings.Security); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateWebServerSettings(settings *WebServerSettings) error {
	if !settings.Enabled {
		return nil
	}
	port, err := strconv.Atoi(settings.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid web server port: %s", settings.Port)
	}
	return nil
}

func validateOutputSettings(settings *OutputSettings) error {
	var errs []string

	if settings.SQLite.Enabled && settings.MySQL.Enabled {
		errs = append(errs, "only one database output can be enabled at a time")
	}
	if !settings.SQLite.Enabled && !settings.MySQL.Enabled {
		errs = append(errs, "one database output must be enabled")
	}
	if settings.SQLite.Enabled && settings.SQLite.Path == "" {
		errs = append(errs, "SQLite path cannot be empty when SQLite is enabled")
	}
	if settings.MySQL.Enabled {
		if settings.MySQL.Database == "" || settings.MySQL.Host == "" {
			errs = append(errs, "MySQL database and host must be set when MySQL is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("output settings errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateIdentifySettings(settings *IdentifySettings) error {
	var errs []string

	if settings.Threshold < 0 || settings.Threshold > 1 {
		errs = append(errs, "identify threshold must be between 0 and 1")
	}
	if settings.MaxUploadSizeMB <= 0 {
		errs = append(errs, "max upload size must be positive")
	}
	if len(settings.AllowedExtensions) == 0 {
		errs = append(errs, "at least one allowed upload extension is required")
	}
	for _, ext := range settings.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Sprintf("extension %q must start with a dot", ext))
		}
	}
	if settings.Vision.Enabled && settings.Vision.APIKey == "" {
		errs = append(errs, "Vision API key must be set when the Vision fallback is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("identify settings errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateSecuritySettings(settings *SecuritySettings) error {
	var errs []string

	if settings.BcryptCost < bcrypt.MinCost || settings.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Sprintf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if settings.SessionTTL <= 0 {
		errs = append(errs, "session TTL must be positive")
	}
	if settings.JWTExpiry <= 0 {
		errs = append(errs, "JWT expiry must be positive")
	}
	if settings.GoogleOAuth.Enabled {
		if settings.GoogleOAuth.ClientID == "" || settings.GoogleOAuth.ClientSecret == "" {
			errs = append(errs, "OAuth client id and secret must be set when external login is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("security settings errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
