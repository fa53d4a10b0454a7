package config

import (
	"errors"
	"strconv"
	"strings"

	"os"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// DefaultNetwork is the network used when a request does not name one.
	DefaultNetwork string

	// TestnetVaults is the registry list of vault contract addresses on testnet.
	TestnetVaults []string
	// MainnetVaults is the registry list of vault contract addresses on mainnet.
	MainnetVaults []string
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// All environment variables are required and must be set.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	DefaultNetwork, err = getEnv("VRE_DEFAULT_NETWORK")
	if err != nil {
		return err
	}
	if DefaultNetwork != "testnet" && DefaultNetwork != "mainnet" {
		return errors.New("VRE_DEFAULT_NETWORK must be 'testnet' or 'mainnet', got: " + DefaultNetwork)
	}

	TestnetVaults, err = getEnvAsList("VAULT_REGISTRY_TESTNET")
	if err != nil {
		return err
	}

	MainnetVaults, err = getEnvAsList("VAULT_REGISTRY_MAINNET")
	if err != nil {
		return err
	}

	// Load endpoint configuration
	if err := loadEndpointConfig(); err != nil {
		return err
	}

	log.Debug().
		Str("DefaultNetwork", DefaultNetwork).
		Int("TestnetVaults", len(TestnetVaults)).
		Int("MainnetVaults", len(MainnetVaults)).
		Msg("Configuration loaded successfully.")

	return nil
}

// RegistryVaults returns the configured vault registry list for a network.
func RegistryVaults(network string) []string {
	if network == "mainnet" {
		return MainnetVaults
	}
	return TestnetVaults
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsList retrieves a comma-separated environment variable as a slice.
// Returns error if not set or empty after trimming.
func getEnvAsList(key string) ([]string, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			values = append(values, trimmed)
		}
	}
	if len(values) == 0 {
		return nil, errors.New("environment variable " + key + " must contain at least one entry")
	}
	return values, nil
}

// getEnvAsInt retrieves an environment variable as an int. Returns error if not set or invalid.
func getEnvAsInt(key string) (int, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid integer, got: " + valueStr)
	}
	return value, nil
}
