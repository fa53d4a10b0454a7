package state

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq" // PostgreSQL driver for array support
	"github.com/rs/zerolog/log"
	"github.com/stellarwizard/vre/internal/types"
)

// RecommendationStats represents aggregated recommendation outcomes.
type RecommendationStats struct {
	TotalRecommendations int     `json:"total_recommendations"`
	SuccessfulCount      int     `json:"successful_count"`
	FallbackCount        int     `json:"fallback_count"`
	AvgMatchScore        float64 `json:"avg_match_score"`
	DistinctVaults       int     `json:"distinct_vaults"`
}

// SaveRecommendationSnapshot saves a complete recommendation snapshot to the database.
func SaveRecommendationSnapshot(snapshot types.RecommendationSnapshot) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	// Marshal all JSONB fields
	apiCallsJSON, err := json.Marshal(snapshot.APICalls)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal api_calls: %w", err)
	}

	projectionJSON, err := json.Marshal(snapshot.Projection)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal projection: %w", err)
	}

	query := `
		INSERT INTO recommendation_snapshots (
			request_id, snapshot_timestamp, params_id,
			network, requested_risk, horizon_months, amount_base,
			success, vault_address, vault_asset,
			match_score, expected_apy, risk_level,
			fallback_used, candidate_vaults, api_calls, projection
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING snapshot_id;
	`

	var snapshotID int64
	err = DB.QueryRow(
		query,
		snapshot.RequestID, snapshot.Timestamp, snapshot.ParamsID,
		snapshot.Network, string(snapshot.RequestedRisk), snapshot.HorizonMonths, snapshot.AmountBase,
		snapshot.Success, snapshot.VaultAddress, snapshot.VaultAsset,
		snapshot.MatchScore, snapshot.ExpectedAPY, string(snapshot.RiskLevel),
		snapshot.FallbackUsed, pq.Array(snapshot.CandidateVaults), apiCallsJSON, projectionJSON,
	).Scan(&snapshotID)

	if err != nil {
		return 0, fmt.Errorf("failed to save recommendation snapshot: %w", err)
	}

	log.Info().
		Int64("snapshot_id", snapshotID).
		Str("request_id", snapshot.RequestID).
		Str("vault", snapshot.VaultAddress).
		Bool("success", snapshot.Success).
		Msg("Recommendation snapshot saved to database")

	return snapshotID, nil
}

// GetRecentRecommendations retrieves recent recommendation snapshots.
func GetRecentRecommendations(limit int) ([]types.RecommendationSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	if limit <= 0 || limit > 100 {
		limit = 10 // Default limit
	}

	query := `
		SELECT
			snapshot_id, request_id, snapshot_timestamp, params_id,
			network, requested_risk, horizon_months, amount_base,
			success, vault_address, vault_asset,
			match_score, expected_apy, risk_level,
			fallback_used, candidate_vaults, api_calls, projection
		FROM recommendation_snapshots
		ORDER BY snapshot_timestamp DESC
		LIMIT $1
	`

	rows, err := DB.Query(query, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query recent recommendations")
		return nil, fmt.Errorf("failed to query recent recommendations: %w", err)
	}
	defer rows.Close()

	snapshots := []types.RecommendationSnapshot{}
	for rows.Next() {
		snapshot, err := scanRecommendationSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recommendation rows: %w", err)
	}

	return snapshots, nil
}

// GetRecommendationByID retrieves a single recommendation snapshot.
// Returns sql.ErrNoRows wrapped if the snapshot does not exist.
func GetRecommendationByID(snapshotID int64) (*types.RecommendationSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT
			snapshot_id, request_id, snapshot_timestamp, params_id,
			network, requested_risk, horizon_months, amount_base,
			success, vault_address, vault_asset,
			match_score, expected_apy, risk_level,
			fallback_used, candidate_vaults, api_calls, projection
		FROM recommendation_snapshots
		WHERE snapshot_id = $1
	`

	row := DB.QueryRow(query, snapshotID)
	snapshot, err := scanRecommendationSnapshot(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("recommendation snapshot %d: %w", snapshotID, sql.ErrNoRows)
		}
		return nil, err
	}
	return &snapshot, nil
}

// GetRecommendationStats aggregates recommendation outcomes across all snapshots.
func GetRecommendationStats() (*RecommendationStats, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE success),
			COUNT(*) FILTER (WHERE fallback_used IS NOT NULL AND fallback_used != ''),
			COALESCE(AVG(match_score) FILTER (WHERE success), 0),
			COUNT(DISTINCT vault_address) FILTER (WHERE vault_address IS NOT NULL AND vault_address != '')
		FROM recommendation_snapshots
	`

	stats := &RecommendationStats{}
	err := DB.QueryRow(query).Scan(
		&stats.TotalRecommendations,
		&stats.SuccessfulCount,
		&stats.FallbackCount,
		&stats.AvgMatchScore,
		&stats.DistinctVaults,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendation stats: %w", err)
	}

	return stats, nil
}

// rowScanner lets scanRecommendationSnapshot work with both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecommendationSnapshot(row rowScanner) (types.RecommendationSnapshot, error) {
	var snapshot types.RecommendationSnapshot
	var paramsID sql.NullInt64
	var vaultAddress, vaultAsset, riskLevel, fallbackUsed sql.NullString
	var matchScore, expectedAPY sql.NullFloat64
	var candidateVaults pq.StringArray
	var apiCallsJSON, projectionJSON []byte

	err := row.Scan(
		&snapshot.SnapshotID, &snapshot.RequestID, &snapshot.Timestamp, &paramsID,
		&snapshot.Network, &snapshot.RequestedRisk, &snapshot.HorizonMonths, &snapshot.AmountBase,
		&snapshot.Success, &vaultAddress, &vaultAsset,
		&matchScore, &expectedAPY, &riskLevel,
		&fallbackUsed, &candidateVaults, &apiCallsJSON, &projectionJSON,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return snapshot, err
		}
		return snapshot, fmt.Errorf("failed to scan recommendation snapshot: %w", err)
	}

	if paramsID.Valid {
		snapshot.ParamsID = &paramsID.Int64
	}
	snapshot.VaultAddress = vaultAddress.String
	snapshot.VaultAsset = vaultAsset.String
	snapshot.RiskLevel = types.RiskLevel(riskLevel.String)
	snapshot.FallbackUsed = fallbackUsed.String
	snapshot.MatchScore = matchScore.Float64
	snapshot.ExpectedAPY = expectedAPY.Float64
	snapshot.CandidateVaults = candidateVaults

	if len(apiCallsJSON) > 0 {
		if err := json.Unmarshal(apiCallsJSON, &snapshot.APICalls); err != nil {
			log.Warn().Err(err).Int64("snapshot_id", snapshot.SnapshotID).Msg("Failed to unmarshal api_calls")
		}
	}
	if len(projectionJSON) > 0 {
		if err := json.Unmarshal(projectionJSON, &snapshot.Projection); err != nil {
			log.Warn().Err(err).Int64("snapshot_id", snapshot.SnapshotID).Msg("Failed to unmarshal projection")
		}
	}

	return snapshot, nil
}
