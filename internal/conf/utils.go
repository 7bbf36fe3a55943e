// conf/utils.go helpers for config paths and secrets
package conf

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/aquatrace/aquatrace-go/internal/errors"
)

const osWindows = "windows"

// GetDefaultConfigPaths returns a list of directories searched for the
// configuration file, in priority order.
func GetDefaultConfigPaths() ([]string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get-executable-path").
			Build()
	}
	exeDir := filepath.Dir(exePath)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get-home-directory").
			Build()
	}

	var configPaths []string
	switch runtime.GOOS {
	case osWindows:
		configPaths = []string{
			exeDir,
			filepath.Join(homeDir, "AppData", "Roaming", "aquatrace"),
		}
	default:
		configPaths = []string{
			filepath.Join(homeDir, ".config", "aquatrace"),
			"/etc/aquatrace",
			exeDir,
		}
	}

	return configPaths, nil
}

// GetBasePath expands and normalizes a directory path, creating the directory
// when it does not exist.
func GetBasePath(path string) string {
	expandedPath := os.ExpandEnv(path)
	basePath := filepath.Clean(expandedPath)

	if _, err := os.Stat(basePath); os.IsNotExist(err) {
		if err := os.MkdirAll(basePath, 0o750); err != nil {
			fmt.Printf("failed to create directory '%s': %v\n", basePath, err)
		}
	}

	return basePath
}

// GenerateRandomSecret returns a URL-safe random secret suitable for signing
// sessions and tokens.
func GenerateRandomSecret() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		// rand.Read only fails when the OS entropy source is broken
		panic(fmt.Errorf("failed to generate random secret: %w", err))
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}
