package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS analysis_parameters (
			params_id SERIAL PRIMARY KEY,
			version INTEGER NOT NULL DEFAULT 1,
			config_name VARCHAR(255) NOT NULL DEFAULT 'default',
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			activated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			tvl_weight DECIMAL(10, 4) NOT NULL, idle_ratio_weight DECIMAL(10, 4) NOT NULL,
			concentration_weight DECIMAL(10, 4) NOT NULL, stability_weight DECIMAL(10, 4) NOT NULL,
			conservative_max_score DECIMAL(10, 4) NOT NULL, balanced_max_score DECIMAL(10, 4) NOT NULL,
			conservative_apy DECIMAL(10, 4) NOT NULL, balanced_apy DECIMAL(10, 4) NOT NULL, aggressive_apy DECIMAL(10, 4) NOT NULL,
			base_match_score DECIMAL(10, 4) NOT NULL,
			beginner_stability_bonus DECIMAL(10, 4) NOT NULL, beginner_tvl_bonus DECIMAL(10, 4) NOT NULL,
			beginner_concentration_penalty DECIMAL(10, 4) NOT NULL, advanced_concentration_bonus DECIMAL(10, 4) NOT NULL,
			high_liquidity_idle_penalty DECIMAL(10, 4) NOT NULL,
			long_horizon_volatile_bonus DECIMAL(10, 4) NOT NULL, short_horizon_stability_bonus DECIMAL(10, 4) NOT NULL,
			long_horizon_months INTEGER NOT NULL, short_horizon_months INTEGER NOT NULL,
			max_recommendations INTEGER NOT NULL,
			CONSTRAINT uq_analysis_parameters_config_version UNIQUE (config_name, version)
		);
		CREATE INDEX IF NOT EXISTS idx_analysis_parameters_config_active_timestamp ON analysis_parameters(config_name, is_active, activated_at DESC);
		CREATE INDEX IF NOT EXISTS idx_analysis_parameters_config_timestamp ON analysis_parameters(config_name, activated_at DESC);

		CREATE TABLE IF NOT EXISTS recommendation_snapshots (
			snapshot_id SERIAL PRIMARY KEY,
			request_id VARCHAR(64) NOT NULL,
			snapshot_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			params_id INTEGER REFERENCES analysis_parameters(params_id),

			-- The Request
			network VARCHAR(16) NOT NULL,
			requested_risk VARCHAR(16) NOT NULL,
			horizon_months INTEGER NOT NULL,
			amount_base VARCHAR(64) NOT NULL,

			-- The Outcome
			success BOOLEAN NOT NULL,
			vault_address VARCHAR(64),
			vault_asset VARCHAR(64),
			match_score DECIMAL(10, 4),
			expected_apy DECIMAL(10, 4),
			risk_level VARCHAR(16),
			fallback_used VARCHAR(32),
			candidate_vaults TEXT[],
			api_calls JSONB,
			projection JSONB
		);
		CREATE INDEX IF NOT EXISTS idx_recommendation_snapshots_timestamp ON recommendation_snapshots(snapshot_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_recommendation_snapshots_request_id ON recommendation_snapshots(request_id);
		CREATE INDEX IF NOT EXISTS idx_recommendation_snapshots_vault ON recommendation_snapshots(vault_address);
	`
	_, err := DB.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Use a short timeout context for health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := DB.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
