package main

import (
	"os"
	"strconv"

	"github.com/stellarwizard/vre/internal/config"
	"github.com/stellarwizard/vre/internal/datafetcher"
	"github.com/stellarwizard/vre/internal/engine"
	"github.com/stellarwizard/vre/internal/logger"
	"github.com/stellarwizard/vre/internal/state"
	"github.com/stellarwizard/vre/internal/web"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// main is the entry point for the VRE service.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("VRE Core Logic Starting...")

	// Initialize Database Connection (for parameters and snapshots)
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// Load Analysis Parameters
	analysisParams, err := state.LoadActiveAnalysisParameters(engine.DEFAULT_ANALYSIS_CONFIG_NAME)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load active analysis parameters, using defaults and saving.")
		defaultParams := config.DefaultAnalysisParameters
		if _, err := state.SaveAnalysisParameters(defaultParams, engine.DEFAULT_ANALYSIS_CONFIG_NAME, engine.DEFAULT_ANALYSIS_CONFIG_VERSION, true); err != nil {
			log.Fatal().Err(err).Msg("Failed to save initial default analysis parameters.")
		}
		analysisParams = &defaultParams
	}
	log.Info().Msg("Analysis parameters loaded successfully.")

	// --- 2. Create Engine Instance with Dependency Injection ---
	log.Info().Msg("Creating engine instance with dependency injection...")

	engineConfig := engine.Config{
		VaultSource:   datafetcher.NewVaultRetriever(),
		QuoteSource:   datafetcher.NewQuoteClient(),
		Params:        analysisParams,
		ConfigName:    engine.DEFAULT_ANALYSIS_CONFIG_NAME,
		ConfigVersion: engine.DEFAULT_ANALYSIS_CONFIG_VERSION,
	}

	engineInstance, err := engine.New(engineConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create engine instance")
	}

	log.Info().Msg("Engine instance created successfully")

	// --- 3. Start Web Server ---
	webPort := os.Getenv("WEB_PORT")
	if webPort == "" {
		webPort = "8080"
	}

	webServer := web.NewWebServer(webPort, engineInstance)
	log.Info().Str("port", webPort).Str("url", "http://localhost:"+webPort).Msg("Starting VRE web server")
	if err := webServer.Start(); err != nil {
		log.Fatal().Err(err).Msg("Web server failed")
	}
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
