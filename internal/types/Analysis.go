/*

This file contains the types for the vault analysis engine, and other
configurable parameters for the VRE.

*/

package types

// AnalysisParameters holds all tunable weights, coefficients, and thresholds
// used by the vault analysis engine for feature weighting, tier banding, and
// match scoring. Different sets of these parameters can exist for different
// deployments; the active set is versioned in the database.
type AnalysisParameters struct {
	// --- Risk Score Weights (must sum to 1.0) ---
	TvlWeight           float64 `json:"tvl_weight"`           // Weight of (1 - normalized TVL) in the risk score.
	IdleRatioWeight     float64 `json:"idle_ratio_weight"`    // Weight of the idle ratio in the risk score.
	ConcentrationWeight float64 `json:"concentration_weight"` // Weight of the Herfindahl concentration in the risk score.
	StabilityWeight     float64 `json:"stability_weight"`     // Weight of (1 - asset stability) in the risk score.

	// --- Tier Banding Thresholds ---
	ConservativeMaxScore float64 `json:"conservative_max_score"` // Risk scores at or below this land in the Conservative tier.
	BalancedMaxScore     float64 `json:"balanced_max_score"`     // Risk scores at or below this (and above the Conservative band) land in Balanced.

	// --- Static Tier APY Placeholders (whole-number percent) ---
	ConservativeAPY float64 `json:"conservative_apy"`
	BalancedAPY     float64 `json:"balanced_apy"`
	AggressiveAPY   float64 `json:"aggressive_apy"`

	// --- Match Score Components ---
	BaseMatchScore               float64 `json:"base_match_score"`               // Every candidate starts here before adjustments.
	BeginnerStabilityBonus       float64 `json:"beginner_stability_bonus"`       // Beginner profiles reward stable assets.
	BeginnerTvlBonus             float64 `json:"beginner_tvl_bonus"`             // Beginner profiles reward deep vaults.
	BeginnerConcentrationPenalty float64 `json:"beginner_concentration_penalty"` // Beginner profiles penalize concentrated strategies.
	AdvancedConcentrationBonus   float64 `json:"advanced_concentration_bonus"`   // Advanced profiles tolerate concentration.
	HighLiquidityIdlePenalty     float64 `json:"high_liquidity_idle_penalty"`    // High liquidity need penalizes idle capital.
	LongHorizonVolatileBonus     float64 `json:"long_horizon_volatile_bonus"`    // Long horizons reward non-stable assets.
	ShortHorizonStabilityBonus   float64 `json:"short_horizon_stability_bonus"`  // Short horizons reward stable assets.
	LongHorizonMonths            int     `json:"long_horizon_months"`            // Horizon at or above this counts as long.
	ShortHorizonMonths           int     `json:"short_horizon_months"`           // Horizon at or below this counts as short.

	// --- General ---
	MaxRecommendations int `json:"max_recommendations"` // Default topN when the caller does not specify one.
}
