package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/stellarwizard/vre/internal/types"
)

// SaveAnalysisParameters saves a new version of analysis parameters.
func SaveAnalysisParameters(params types.AnalysisParameters, configName string, version int, makeActive bool) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	tx, err := DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // Re-panic after rollback
		} else if err != nil {
			tx.Rollback() // Rollback if error occurred
		}
	}()

	if makeActive {
		stmtDeactivate := `UPDATE analysis_parameters SET is_active = FALSE WHERE config_name = $1 AND is_active = TRUE;`
		_, err = tx.Exec(stmtDeactivate, configName)
		if err != nil {
			return 0, fmt.Errorf("failed to deactivate existing active parameters for %s: %w", configName, err)
		}
	}

	stmt := `
        INSERT INTO analysis_parameters (
            version, config_name, is_active, activated_at, created_at,
            tvl_weight, idle_ratio_weight, concentration_weight, stability_weight,
            conservative_max_score, balanced_max_score,
            conservative_apy, balanced_apy, aggressive_apy,
            base_match_score,
            beginner_stability_bonus, beginner_tvl_bonus, beginner_concentration_penalty,
            advanced_concentration_bonus, high_liquidity_idle_penalty,
            long_horizon_volatile_bonus, short_horizon_stability_bonus,
            long_horizon_months, short_horizon_months,
            max_recommendations
        ) VALUES (
            $1, $2, $3, $4, $5,       -- version, config_name, is_active, activated_at, created_at
            $6, $7, $8, $9,           -- risk score weights
            $10, $11,                 -- tier banding thresholds
            $12, $13, $14,            -- tier APYs
            $15,                      -- base match score
            $16, $17, $18,            -- beginner adjustments
            $19, $20,                 -- advanced / liquidity adjustments
            $21, $22,                 -- horizon adjustments
            $23, $24,                 -- horizon month boundaries
            $25                       -- max recommendations
        ) RETURNING params_id;`

	var paramsID int64
	currentTime := time.Now()
	err = tx.QueryRow(
		stmt,
		version, configName, makeActive, currentTime, currentTime,
		params.TvlWeight, params.IdleRatioWeight, params.ConcentrationWeight, params.StabilityWeight,
		params.ConservativeMaxScore, params.BalancedMaxScore,
		params.ConservativeAPY, params.BalancedAPY, params.AggressiveAPY,
		params.BaseMatchScore,
		params.BeginnerStabilityBonus, params.BeginnerTvlBonus, params.BeginnerConcentrationPenalty,
		params.AdvancedConcentrationBonus, params.HighLiquidityIdlePenalty,
		params.LongHorizonVolatileBonus, params.ShortHorizonStabilityBonus,
		params.LongHorizonMonths, params.ShortHorizonMonths,
		params.MaxRecommendations,
	).Scan(&paramsID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert analysis parameters: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().
		Int("version", version).
		Str("config", configName).
		Int64("params_id", paramsID).
		Bool("active", makeActive).
		Msg("Saved analysis parameters")
	return paramsID, nil
}

// LoadActiveAnalysisParameters loads the currently active analysis parameters.
func LoadActiveAnalysisParameters(configName string) (*types.AnalysisParameters, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
        SELECT
            tvl_weight, idle_ratio_weight, concentration_weight, stability_weight,
            conservative_max_score, balanced_max_score,
            conservative_apy, balanced_apy, aggressive_apy,
            base_match_score,
            beginner_stability_bonus, beginner_tvl_bonus, beginner_concentration_penalty,
            advanced_concentration_bonus, high_liquidity_idle_penalty,
            long_horizon_volatile_bonus, short_horizon_stability_bonus,
            long_horizon_months, short_horizon_months,
            max_recommendations
        FROM analysis_parameters
        WHERE config_name = $1 AND is_active = TRUE
        ORDER BY activated_at DESC
        LIMIT 1;`

	p := &types.AnalysisParameters{}
	row := DB.QueryRow(query, configName)
	err := row.Scan(
		&p.TvlWeight, &p.IdleRatioWeight, &p.ConcentrationWeight, &p.StabilityWeight,
		&p.ConservativeMaxScore, &p.BalancedMaxScore,
		&p.ConservativeAPY, &p.BalancedAPY, &p.AggressiveAPY,
		&p.BaseMatchScore,
		&p.BeginnerStabilityBonus, &p.BeginnerTvlBonus, &p.BeginnerConcentrationPenalty,
		&p.AdvancedConcentrationBonus, &p.HighLiquidityIdlePenalty,
		&p.LongHorizonVolatileBonus, &p.ShortHorizonStabilityBonus,
		&p.LongHorizonMonths, &p.ShortHorizonMonths,
		&p.MaxRecommendations,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no active analysis parameters found for config '%s'", configName)
		}
		return nil, fmt.Errorf("failed to scan active analysis parameters for config '%s': %w", configName, err)
	}
	log.Info().Str("config", configName).Msg("Loaded active analysis parameters")
	return p, nil
}

// GetActiveAnalysisParametersID returns the params_id of the currently active
// parameters for a config name, or nil if none are active.
func GetActiveAnalysisParametersID(configName string) (*int64, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
        SELECT params_id
        FROM analysis_parameters
        WHERE config_name = $1 AND is_active = TRUE
        ORDER BY activated_at DESC
        LIMIT 1;`

	var paramsID int64
	err := DB.QueryRow(query, configName).Scan(&paramsID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query active params_id for config '%s': %w", configName, err)
	}
	return &paramsID, nil
}
