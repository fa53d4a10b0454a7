/*

This file contains the recommender: profile-aware match scoring of the
vaults inside the cluster matching the user's risk tolerance.

*/

package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stellarwizard/vre/internal/logger"
	"github.com/stellarwizard/vre/internal/types"
)

var recommendLogger = logger.GetForComponent("recommender")

// Rationale thresholds. A feature clearing its threshold contributes one
// fixed phrase to the recommendation rationale.
const (
	rationaleStabilityMin     = 0.5
	rationaleTvlMin           = 0.7
	rationaleConcentrationMax = 0.5
	rationaleIdleRatioMax     = 0.3
)

// RecommendVaults scores the vaults in the cluster matching the user's risk
// tolerance and returns up to topN recommendations sorted by match score,
// highest first. Ties keep cluster membership order. A topN of zero or less
// falls back to params.MaxRecommendations.
//
// If no cluster matches the profile's risk tolerance, or the matching
// cluster is empty, the result is an empty slice — never nil and never an
// error. Widening the search is the orchestrator's decision, not the
// recommender's.
func RecommendVaults(
	features []types.VaultFeatures,
	clusters []types.VaultCluster,
	profile types.UserRiskProfile,
	topN int,
	params types.AnalysisParameters,
) []types.VaultRecommendation {
	if topN <= 0 {
		topN = params.MaxRecommendations
	}

	featureIndex := make(map[string]types.VaultFeatures, len(features))
	for _, f := range features {
		featureIndex[f.Vault] = f
	}

	recommendations := []types.VaultRecommendation{}
	for _, cluster := range clusters {
		if cluster.RiskLevel != profile.RiskTolerance {
			continue
		}

		for _, vault := range cluster.Vaults {
			f, ok := featureIndex[vault]
			if !ok {
				// Cluster membership referencing an unknown vault means the
				// caller mixed batches; skip rather than fabricate features.
				recommendLogger.Warn().
					Str("vault", vault).
					Msg("Cluster member missing from feature batch, skipping")
				continue
			}

			recommendations = append(recommendations, types.VaultRecommendation{
				Vault:         f.Vault,
				Asset:         f.Asset,
				MatchScore:    calculateMatchScore(f, profile, params),
				Rationale:     buildRationale(f, profile),
				ExpectedAPY:   cluster.ExpectedAPY,
				NormalizedTVL: f.TVL,
				RiskLevel:     cluster.RiskLevel,
			})
		}
		break
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		return recommendations[i].MatchScore > recommendations[j].MatchScore
	})

	if len(recommendations) > topN {
		recommendations = recommendations[:topN]
	}

	recommendLogger.Info().
		Str("riskTolerance", string(profile.RiskTolerance)).
		Str("experience", profile.ExperienceLevel).
		Int("horizonMonths", profile.HorizonMonths).
		Int("recommendations", len(recommendations)).
		Msg("Vault recommendations generated")

	return recommendations
}

// calculateMatchScore applies the profile adjustments on top of the base
// score and clamps the result to [0,1].
func calculateMatchScore(f types.VaultFeatures, profile types.UserRiskProfile, params types.AnalysisParameters) float64 {
	score := params.BaseMatchScore

	switch profile.ExperienceLevel {
	case "Beginner":
		score += params.BeginnerStabilityBonus * f.AssetStability
		score += params.BeginnerTvlBonus * f.TVL
		score -= params.BeginnerConcentrationPenalty * f.Concentration
	case "Advanced":
		score += params.AdvancedConcentrationBonus * f.Concentration
	}

	if profile.LiquidityNeeds == "High" {
		score -= params.HighLiquidityIdlePenalty * f.IdleRatio
	}

	if profile.HorizonMonths >= params.LongHorizonMonths {
		score += params.LongHorizonVolatileBonus * (1 - f.AssetStability)
	} else if profile.HorizonMonths <= params.ShortHorizonMonths {
		score += params.ShortHorizonStabilityBonus * f.AssetStability
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// buildRationale assembles the human-readable justification sentence from
// the features that clear their rationale thresholds.
func buildRationale(f types.VaultFeatures, profile types.UserRiskProfile) string {
	reasons := []string{}
	if f.AssetStability > rationaleStabilityMin {
		reasons = append(reasons, "stable asset backing")
	}
	if f.TVL > rationaleTvlMin {
		reasons = append(reasons, "high total value locked")
	}
	if f.Concentration < rationaleConcentrationMax {
		reasons = append(reasons, "diversified strategy allocation")
	}
	if f.IdleRatio < rationaleIdleRatioMax {
		reasons = append(reasons, "high capital utilization")
	}

	summary := "balanced risk-return profile"
	if len(reasons) > 0 {
		summary = strings.Join(reasons, ", ")
	}

	return fmt.Sprintf("Matches your %s risk tolerance over a %d-month horizon: %s.",
		strings.ToLower(string(profile.RiskTolerance)), profile.HorizonMonths, summary)
}
