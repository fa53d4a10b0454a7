package config

import (
	"github.com/rs/zerolog/log"
)

// Endpoint configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// TestnetDataAPI is the DeFindex data endpoint for testnet vault reads.
	TestnetDataAPI string
	// MainnetDataAPI is the DeFindex data endpoint for mainnet vault reads.
	MainnetDataAPI string
	// QuoteAPI is the Soroswap quote endpoint for deposit routing.
	QuoteAPI string
)

// loadEndpointConfig loads endpoint configuration from environment variables.
// This function is called by LoadConfig() in General.go.
func loadEndpointConfig() error {
	log.Info().Msg("Loading endpoint configuration from environment variables...")

	var err error

	TestnetDataAPI, err = getEnv("DEFINDEX_API_TESTNET")
	if err != nil {
		return err
	}

	MainnetDataAPI, err = getEnv("DEFINDEX_API_MAINNET")
	if err != nil {
		return err
	}

	QuoteAPI, err = getEnv("QUOTE_API")
	if err != nil {
		return err
	}

	log.Debug().
		Str("TestnetDataAPI", TestnetDataAPI).
		Str("MainnetDataAPI", MainnetDataAPI).
		Str("QuoteAPI", QuoteAPI).
		Msg("Endpoint configuration loaded successfully.")

	return nil
}

// DataAPI returns the DeFindex data endpoint for a network.
func DataAPI(network string) string {
	if network == "mainnet" {
		return MainnetDataAPI
	}
	return TestnetDataAPI
}
