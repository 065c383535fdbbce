package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GlobalConfig holds credentials stored by `rfqsmith auth login`.
type GlobalConfig struct {
	APIKey string `json:"api_key"`
	APIURL string `json:"api_url"`
}

// DefaultAPIURL is used when no URL is configured anywhere.
const DefaultAPIURL = "http://localhost:8080"

// getConfigPathFunc is swapped in tests.
var getConfigPathFunc = GetConfigPath

// GetConfigDir returns the rfqsmith config directory.
func GetConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config dir: %w", err)
	}
	return filepath.Join(base, "rfqsmith"), nil
}

// GetConfigPath returns the path of the global config file.
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadGlobalConfig reads the stored credentials. A missing file is not
// an error; it returns (nil, nil).
func LoadGlobalConfig() (*GlobalConfig, error) {
	path, err := getConfigPathFunc()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config GlobalConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &config, nil
}

// SaveGlobalConfig writes credentials with owner-only permissions.
func SaveGlobalConfig(config *GlobalConfig) error {
	path, err := getConfigPathFunc()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// DeleteGlobalConfig removes stored credentials. Deleting a config that
// does not exist is not an error.
func DeleteGlobalConfig() error {
	path, err := getConfigPathFunc()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove config: %w", err)
	}
	return nil
}

// CredentialSource identifies where credentials were resolved from.
type CredentialSource string

const (
	SourceFlag   CredentialSource = "flag"
	SourceEnv    CredentialSource = "environment"
	SourceConfig CredentialSource = "config file"
	SourceNone   CredentialSource = "none"
)

// GetCredentialSource resolves credentials with flag > env > config
// precedence and reports which source won.
func GetCredentialSource(flagKey, flagURL string) (CredentialSource, string, string) {
	url := flagURL
	if url == "" {
		url = os.Getenv("RFQSMITH_API_URL")
	}

	if flagKey != "" {
		if url == "" {
			url = DefaultAPIURL
		}
		return SourceFlag, flagKey, url
	}

	if envKey := os.Getenv("RFQSMITH_API_KEY"); envKey != "" {
		if url == "" {
			url = DefaultAPIURL
		}
		return SourceEnv, envKey, url
	}

	if config, err := LoadGlobalConfig(); err == nil && config != nil && config.APIKey != "" {
		if url == "" {
			url = config.APIURL
		}
		if url == "" {
			url = DefaultAPIURL
		}
		return SourceConfig, config.APIKey, url
	}

	if url == "" {
		url = DefaultAPIURL
	}
	return SourceNone, "", url
}

// IsValidAPIKey reports whether key looks like an rfqsmith API key:
// "rfq_" followed by 32 hex characters.
func IsValidAPIKey(key string) bool {
	if !strings.HasPrefix(key, "rfq_") {
		return false
	}
	hex := key[4:]
	if len(hex) != 32 {
		return false
	}
	for _, r := range hex {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
