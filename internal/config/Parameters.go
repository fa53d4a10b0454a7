/*

This file contains the default parameters for the vault analysis engine.

These values reproduce the recommendation behavior the Stellar Wizard
product shipped with. They are defaults only: the active set is versioned
in the database and can be tuned per deployment without a redeploy.

*/

package config

import (
	"github.com/stellarwizard/vre/internal/types"
)

// DefaultAnalysisParameters provides the baseline set of parameters for the
// engine's risk scoring, tier banding, and match scoring. These values are
// used if no active parameters are found in the database during
// initialization.
var DefaultAnalysisParameters = types.AnalysisParameters{
	// --- Risk Score Weights ---
	// Higher TVL, lower idle ratio, lower allocation concentration, and
	// stable assets all push a vault toward the Conservative tier. The four
	// weights must sum to 1.0 so the risk score stays in [0,1].
	TvlWeight:           0.3,
	IdleRatioWeight:     0.2,
	ConcentrationWeight: 0.3,
	StabilityWeight:     0.2,

	// --- Tier Banding Thresholds ---
	// Strict threshold comparison: score <= 0.33 is Conservative,
	// <= 0.66 is Balanced, everything above is Aggressive.
	ConservativeMaxScore: 0.33,
	BalancedMaxScore:     0.66,

	// --- Static Tier APY Placeholders ---
	// Whole-number percents. These are product-level placeholders, not
	// derived from on-chain yield history.
	ConservativeAPY: 6,
	BalancedAPY:     12,
	AggressiveAPY:   20,

	// --- Match Score Components ---
	BaseMatchScore:               0.5,
	BeginnerStabilityBonus:       0.2,
	BeginnerTvlBonus:             0.2,
	BeginnerConcentrationPenalty: 0.1,
	AdvancedConcentrationBonus:   0.1,
	HighLiquidityIdlePenalty:     0.15,
	LongHorizonVolatileBonus:     0.1,
	ShortHorizonStabilityBonus:   0.15,
	LongHorizonMonths:            24,
	ShortHorizonMonths:           6,

	// --- General ---
	MaxRecommendations: 3,
}
