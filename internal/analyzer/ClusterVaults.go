/*

This file contains the main function for bucketing vaults into the three
fixed risk tiers.

Despite the name this is not statistical clustering: the banding is a
deterministic three-way threshold split on a hand-weighted linear score.

*/

package analyzer

import (
	"errors"
	"math"

	"github.com/stellarwizard/vre/internal/logger"
	"github.com/stellarwizard/vre/internal/types"
)

var ErrInvalidAnalysisParameters = errors.New("invalid analysis parameters")
var ErrInvalidFeatureData = errors.New("invalid vault feature data")
var clusterLogger = logger.GetForComponent("risk_clusterer")

// weightSumTolerance bounds floating point drift when checking that the
// four risk weights sum to 1.
const weightSumTolerance = 0.001

// Static tier descriptions shipped with every cluster result.
const (
	conservativeDescription = "Stable vaults with high TVL, diversified strategies, and stable underlying assets"
	balancedDescription     = "Moderate risk vaults balancing yield with capital preservation"
	aggressiveDescription   = "Higher risk vaults with concentrated strategies or volatile assets chasing maximum yield"
)

// ClusterVaults buckets a feature batch into exactly three clusters, always
// returned in the fixed order [Conservative, Balanced, Aggressive], each
// pre-populated with its static description and expected-APY constant.
// Vaults whose normalized TVL is 0 are excluded from all clusters.
// Inputs:
//   - features: The feature batch produced by ExtractFeatures.
//   - params: The analysis parameters defining weights and band thresholds.
//
// Output:
//   - The three clusters with member vault addresses assigned.
//   - An error only if the parameters or feature values are invalid.
func ClusterVaults(features []types.VaultFeatures, params types.AnalysisParameters) ([]types.VaultCluster, error) {
	if err := ValidateAnalysisParameters(params); err != nil {
		clusterLogger.Error().
			Err(err).
			Msg("Analysis parameters validation failed")
		return nil, errors.Join(ErrInvalidAnalysisParameters, err)
	}

	clusters := []types.VaultCluster{
		{
			RiskLevel:   types.RiskConservative,
			Description: conservativeDescription,
			ExpectedAPY: params.ConservativeAPY,
			Vaults:      []string{},
		},
		{
			RiskLevel:   types.RiskBalanced,
			Description: balancedDescription,
			ExpectedAPY: params.BalancedAPY,
			Vaults:      []string{},
		},
		{
			RiskLevel:   types.RiskAggressive,
			Description: aggressiveDescription,
			ExpectedAPY: params.AggressiveAPY,
			Vaults:      []string{},
		},
	}

	for _, f := range features {
		if f.TVL == 0 {
			clusterLogger.Debug().
				Str("vault", f.Vault).
				Msg("Vault has zero normalized TVL, excluded from all clusters")
			continue
		}

		riskScore, err := CalculateRiskScore(f, params)
		if err != nil {
			clusterLogger.Error().
				Str("vault", f.Vault).
				Err(err).
				Msg("Risk score calculation failed")
			return nil, errors.Join(ErrInvalidFeatureData, err)
		}

		var tier int
		switch {
		case riskScore <= params.ConservativeMaxScore:
			tier = 0
		case riskScore <= params.BalancedMaxScore:
			tier = 1
		default:
			tier = 2
		}
		clusters[tier].Vaults = append(clusters[tier].Vaults, f.Vault)

		clusterLogger.Debug().
			Str("vault", f.Vault).
			Float64("riskScore", riskScore).
			Str("tier", string(clusters[tier].RiskLevel)).
			Msg("Vault assigned to risk tier")
	}

	clusterLogger.Info().
		Int("conservative", len(clusters[0].Vaults)).
		Int("balanced", len(clusters[1].Vaults)).
		Int("aggressive", len(clusters[2].Vaults)).
		Msg("Vaults clustered into risk tiers")

	return clusters, nil
}

// CalculateRiskScore computes the weighted heuristic risk score for one
// vault's features. Higher TVL, lower idle ratio, lower concentration, and
// stable assets all push the score down toward the Conservative band.
func CalculateRiskScore(f types.VaultFeatures, params types.AnalysisParameters) (float64, error) {
	inputs := []struct {
		value float64
		name  string
	}{
		{f.TVL, "normalized TVL"},
		{f.IdleRatio, "idle ratio"},
		{f.Concentration, "concentration"},
		{f.AssetStability, "asset stability"},
	}

	for _, input := range inputs {
		if math.IsNaN(input.value) || math.IsInf(input.value, 0) {
			return 0, errors.New(input.name + " is not finite")
		}
	}

	riskScore := params.TvlWeight*(1-f.TVL) +
		params.IdleRatioWeight*f.IdleRatio +
		params.ConcentrationWeight*f.Concentration +
		params.StabilityWeight*(1-f.AssetStability)

	if math.IsNaN(riskScore) || math.IsInf(riskScore, 0) {
		return 0, errors.New("risk score calculation resulted in non-finite value")
	}

	return riskScore, nil
}

// ValidateAnalysisParameters performs validation of analysis parameters to
// ensure they are reasonable before any scoring runs.
func ValidateAnalysisParameters(params types.AnalysisParameters) error {
	weights := []struct {
		value float64
		name  string
	}{
		{params.TvlWeight, "TvlWeight"},
		{params.IdleRatioWeight, "IdleRatioWeight"},
		{params.ConcentrationWeight, "ConcentrationWeight"},
		{params.StabilityWeight, "StabilityWeight"},
	}

	weightSum := 0.0
	for _, w := range weights {
		if math.IsNaN(w.value) || math.IsInf(w.value, 0) {
			return errors.New(w.name + " must be finite")
		}
		if w.value < 0 {
			return errors.New(w.name + " cannot be negative")
		}
		weightSum += w.value
	}
	if math.Abs(weightSum-1.0) > weightSumTolerance {
		return errors.New("risk score weights must sum to 1.0")
	}

	if params.ConservativeMaxScore <= 0 || params.ConservativeMaxScore >= 1 {
		return errors.New("ConservativeMaxScore must be strictly between 0 and 1")
	}
	if params.BalancedMaxScore <= params.ConservativeMaxScore || params.BalancedMaxScore >= 1 {
		return errors.New("BalancedMaxScore must be between ConservativeMaxScore and 1")
	}

	apys := []struct {
		value float64
		name  string
	}{
		{params.ConservativeAPY, "ConservativeAPY"},
		{params.BalancedAPY, "BalancedAPY"},
		{params.AggressiveAPY, "AggressiveAPY"},
	}
	for _, apy := range apys {
		if math.IsNaN(apy.value) || math.IsInf(apy.value, 0) {
			return errors.New(apy.name + " must be finite")
		}
		if apy.value < 0 {
			return errors.New(apy.name + " cannot be negative")
		}
	}

	adjustments := []struct {
		value float64
		name  string
	}{
		{params.BaseMatchScore, "BaseMatchScore"},
		{params.BeginnerStabilityBonus, "BeginnerStabilityBonus"},
		{params.BeginnerTvlBonus, "BeginnerTvlBonus"},
		{params.BeginnerConcentrationPenalty, "BeginnerConcentrationPenalty"},
		{params.AdvancedConcentrationBonus, "AdvancedConcentrationBonus"},
		{params.HighLiquidityIdlePenalty, "HighLiquidityIdlePenalty"},
		{params.LongHorizonVolatileBonus, "LongHorizonVolatileBonus"},
		{params.ShortHorizonStabilityBonus, "ShortHorizonStabilityBonus"},
	}
	for _, adj := range adjustments {
		if math.IsNaN(adj.value) || math.IsInf(adj.value, 0) {
			return errors.New(adj.name + " must be finite")
		}
	}

	if params.BaseMatchScore < 0 || params.BaseMatchScore > 1 {
		return errors.New("BaseMatchScore must be between 0 and 1")
	}
	if params.ShortHorizonMonths <= 0 {
		return errors.New("ShortHorizonMonths must be positive")
	}
	if params.LongHorizonMonths <= params.ShortHorizonMonths {
		return errors.New("LongHorizonMonths must be greater than ShortHorizonMonths")
	}
	if params.MaxRecommendations <= 0 {
		return errors.New("MaxRecommendations must be positive")
	}

	return nil
}
