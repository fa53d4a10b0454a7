package analyzer

import (
	"math"
	"testing"

	"github.com/stellarwizard/vre/internal/config"
	"github.com/stellarwizard/vre/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClusterVaults(t *testing.T) {
	params := config.DefaultAnalysisParameters

	t.Run("always returns the three tiers in fixed order", func(t *testing.T) {
		clusters, err := ClusterVaults(nil, params)
		require.NoError(t, err)
		require.Len(t, clusters, 3)

		assert.Equal(t, types.RiskConservative, clusters[0].RiskLevel)
		assert.Equal(t, types.RiskBalanced, clusters[1].RiskLevel)
		assert.Equal(t, types.RiskAggressive, clusters[2].RiskLevel)

		assert.Equal(t, 6.0, clusters[0].ExpectedAPY)
		assert.Equal(t, 12.0, clusters[1].ExpectedAPY)
		assert.Equal(t, 20.0, clusters[2].ExpectedAPY)

		for _, c := range clusters {
			assert.NotEmpty(t, c.Description)
			assert.NotNil(t, c.Vaults)
			assert.Empty(t, c.Vaults)
		}
	})

	t.Run("bands vaults by risk score", func(t *testing.T) {
		features := []types.VaultFeatures{
			// 0.3*(1-1) + 0.2*0 + 0.3*1 + 0.2*(1-1) = 0.30 -> Conservative
			{Vault: "CSAFE", TVL: 1, IdleRatio: 0, Concentration: 1, AssetStability: 1},
			// 0.3*0.5 + 0.2*0.5 + 0.3*0.5 + 0.2*1 = 0.60 -> Balanced
			{Vault: "CMID", TVL: 0.5, IdleRatio: 0.5, Concentration: 0.5, AssetStability: 0},
			// 0.3*0.9 + 0.2*0.9 + 0.3*1 + 0.2*1 = 0.95 -> Aggressive
			{Vault: "CWILD", TVL: 0.1, IdleRatio: 0.9, Concentration: 1, AssetStability: 0},
		}

		clusters, err := ClusterVaults(features, params)
		require.NoError(t, err)

		assert.Equal(t, []string{"CSAFE"}, clusters[0].Vaults)
		assert.Equal(t, []string{"CMID"}, clusters[1].Vaults)
		assert.Equal(t, []string{"CWILD"}, clusters[2].Vaults)
	})

	t.Run("every clustered vault is in exactly one tier", func(t *testing.T) {
		features := []types.VaultFeatures{
			{Vault: "C1", TVL: 1, AssetStability: 1},
			{Vault: "C2", TVL: 0.4, IdleRatio: 0.2, Concentration: 0.8},
			{Vault: "C3", TVL: 0.1, IdleRatio: 0.9, Concentration: 1},
		}

		clusters, err := ClusterVaults(features, params)
		require.NoError(t, err)

		seen := map[string]int{}
		for _, c := range clusters {
			for _, v := range c.Vaults {
				seen[v]++
			}
		}
		assert.Len(t, seen, 3)
		for vault, count := range seen {
			assert.Equal(t, 1, count, "vault %s appears in %d tiers", vault, count)
		}
	})

	t.Run("zero TVL vaults are excluded from all tiers", func(t *testing.T) {
		features := []types.VaultFeatures{
			{Vault: "CEMPTY", TVL: 0, AssetStability: 1},
			{Vault: "CLIVE", TVL: 1, AssetStability: 1, Concentration: 1},
		}

		clusters, err := ClusterVaults(features, params)
		require.NoError(t, err)

		for _, c := range clusters {
			assert.NotContains(t, c.Vaults, "CEMPTY")
		}
		assert.Contains(t, clusters[0].Vaults, "CLIVE")
	})

	t.Run("rejects non-finite feature values", func(t *testing.T) {
		features := []types.VaultFeatures{
			{Vault: "CNAN", TVL: 0.5, IdleRatio: math.NaN()},
		}

		_, err := ClusterVaults(features, params)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidFeatureData)
	})
}

func TestCalculateRiskScore(t *testing.T) {
	params := config.DefaultAnalysisParameters

	t.Run("perfect vault scores the floor", func(t *testing.T) {
		score, err := CalculateRiskScore(types.VaultFeatures{
			TVL: 1, IdleRatio: 0, Concentration: 0, AssetStability: 1,
		}, params)
		require.NoError(t, err)
		assert.Equal(t, 0.0, score)
	})

	t.Run("worst vault scores the ceiling", func(t *testing.T) {
		score, err := CalculateRiskScore(types.VaultFeatures{
			TVL: 0, IdleRatio: 1, Concentration: 1, AssetStability: 0,
		}, params)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, score, 1e-9)
	})

	t.Run("weights apply to the documented components", func(t *testing.T) {
		score, err := CalculateRiskScore(types.VaultFeatures{
			TVL: 0.5, IdleRatio: 0.5, Concentration: 0.5, AssetStability: 0.5,
		}, params)
		require.NoError(t, err)
		assert.InDelta(t, 0.5, score, 1e-9)
	})
}

func TestValidateAnalysisParameters(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, ValidateAnalysisParameters(config.DefaultAnalysisParameters))
	})

	t.Run("weights must sum to one", func(t *testing.T) {
		params := config.DefaultAnalysisParameters
		params.TvlWeight = 0.5
		assert.Error(t, ValidateAnalysisParameters(params))
	})

	t.Run("weights must be finite", func(t *testing.T) {
		params := config.DefaultAnalysisParameters
		params.IdleRatioWeight = math.NaN()
		assert.Error(t, ValidateAnalysisParameters(params))
	})

	t.Run("band thresholds must be ordered", func(t *testing.T) {
		params := config.DefaultAnalysisParameters
		params.BalancedMaxScore = params.ConservativeMaxScore
		assert.Error(t, ValidateAnalysisParameters(params))

		params = config.DefaultAnalysisParameters
		params.ConservativeMaxScore = 0
		assert.Error(t, ValidateAnalysisParameters(params))

		params = config.DefaultAnalysisParameters
		params.BalancedMaxScore = 1.2
		assert.Error(t, ValidateAnalysisParameters(params))
	})

	t.Run("APYs cannot be negative", func(t *testing.T) {
		params := config.DefaultAnalysisParameters
		params.BalancedAPY = -1
		assert.Error(t, ValidateAnalysisParameters(params))
	})

	t.Run("horizon boundaries must be ordered", func(t *testing.T) {
		params := config.DefaultAnalysisParameters
		params.LongHorizonMonths = params.ShortHorizonMonths
		assert.Error(t, ValidateAnalysisParameters(params))
	})
}
