package analyzer

import (
	"testing"

	"github.com/stellarwizard/vre/internal/config"
	"github.com/stellarwizard/vre/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conservativeCluster(vaults ...string) []types.VaultCluster {
	return []types.VaultCluster{
		{RiskLevel: types.RiskConservative, ExpectedAPY: 6, Vaults: vaults},
		{RiskLevel: types.RiskBalanced, ExpectedAPY: 12, Vaults: []string{}},
		{RiskLevel: types.RiskAggressive, ExpectedAPY: 20, Vaults: []string{}},
	}
}

func TestRecommendVaults_MatchScoring(t *testing.T) {
	params := config.DefaultAnalysisParameters

	t.Run("beginner profile rewards stability and depth", func(t *testing.T) {
		features := []types.VaultFeatures{
			{Vault: "CSAFE", Asset: "USDC", TVL: 1, IdleRatio: 0, Concentration: 1, AssetStability: 1},
		}
		profile := types.UserRiskProfile{
			RiskTolerance:   types.RiskConservative,
			LiquidityNeeds:  "Medium",
			HorizonMonths:   12,
			ExperienceLevel: "Beginner",
		}

		recs := RecommendVaults(features, conservativeCluster("CSAFE"), profile, 3, params)
		require.Len(t, recs, 1)

		// 0.5 + 0.2*1 (stability) + 0.2*1 (tvl) - 0.1*1 (concentration) = 0.8
		assert.InDelta(t, 0.8, recs[0].MatchScore, 1e-9)
		assert.Equal(t, "CSAFE", recs[0].Vault)
		assert.Equal(t, types.RiskConservative, recs[0].RiskLevel)
		assert.Equal(t, 6.0, recs[0].ExpectedAPY)
	})

	t.Run("intermediate profile with mid horizon keeps the base score", func(t *testing.T) {
		features := []types.VaultFeatures{
			{Vault: "CSAFE", Asset: "USDC", TVL: 1, Concentration: 1, AssetStability: 1},
		}
		profile := types.UserRiskProfile{
			RiskTolerance:   types.RiskConservative,
			LiquidityNeeds:  "Medium",
			HorizonMonths:   12,
			ExperienceLevel: "Intermediate",
		}

		recs := RecommendVaults(features, conservativeCluster("CSAFE"), profile, 3, params)
		require.Len(t, recs, 1)
		assert.Equal(t, 0.5, recs[0].MatchScore)
	})

	t.Run("advanced profile tolerates concentration", func(t *testing.T) {
		features := []types.VaultFeatures{
			{Vault: "CSAFE", Asset: "USDC", TVL: 1, Concentration: 1, AssetStability: 1},
		}
		profile := types.UserRiskProfile{
			RiskTolerance:   types.RiskConservative,
			LiquidityNeeds:  "Medium",
			HorizonMonths:   12,
			ExperienceLevel: "Advanced",
		}

		recs := RecommendVaults(features, conservativeCluster("CSAFE"), profile, 3, params)
		require.Len(t, recs, 1)
		assert.InDelta(t, 0.6, recs[0].MatchScore, 1e-9)
	})

	t.Run("high liquidity need penalizes idle capital", func(t *testing.T) {
		features := []types.VaultFeatures{
			{Vault: "CIDLE", Asset: "USDC", TVL: 1, IdleRatio: 1, AssetStability: 1},
		}
		profile := types.UserRiskProfile{
			RiskTolerance:   types.RiskConservative,
			LiquidityNeeds:  "High",
			HorizonMonths:   12,
			ExperienceLevel: "Intermediate",
		}

		recs := RecommendVaults(features, conservativeCluster("CIDLE"), profile, 3, params)
		require.Len(t, recs, 1)
		assert.InDelta(t, 0.35, recs[0].MatchScore, 1e-9)
	})

	t.Run("long horizon rewards volatile assets", func(t *testing.T) {
		features := []types.VaultFeatures{
			{Vault: "CVOL", Asset: "XLM", TVL: 1, AssetStability: 0},
		}
		profile := types.UserRiskProfile{
			RiskTolerance:   types.RiskConservative,
			LiquidityNeeds:  "Medium",
			HorizonMonths:   24,
			ExperienceLevel: "Intermediate",
		}

		recs := RecommendVaults(features, conservativeCluster("CVOL"), profile, 3, params)
		require.Len(t, recs, 1)
		assert.InDelta(t, 0.6, recs[0].MatchScore, 1e-9)
	})

	t.Run("short horizon rewards stable assets and clamps at one", func(t *testing.T) {
		features := []types.VaultFeatures{
			{Vault: "CSAFE", Asset: "USDC", TVL: 1, Concentration: 0, AssetStability: 1},
		}
		profile := types.UserRiskProfile{
			RiskTolerance:   types.RiskConservative,
			LiquidityNeeds:  "Medium",
			HorizonMonths:   6,
			ExperienceLevel: "Beginner",
		}

		recs := RecommendVaults(features, conservativeCluster("CSAFE"), profile, 3, params)
		require.Len(t, recs, 1)
		// 0.5 + 0.2 + 0.2 - 0 + 0.15 = 1.05, clamped to 1.0
		assert.Equal(t, 1.0, recs[0].MatchScore)
	})
}

func TestRecommendVaults_SelectionAndOrdering(t *testing.T) {
	params := config.DefaultAnalysisParameters
	profile := types.UserRiskProfile{
		RiskTolerance:   types.RiskConservative,
		LiquidityNeeds:  "Medium",
		HorizonMonths:   12,
		ExperienceLevel: "Beginner",
	}

	t.Run("sorts by match score descending", func(t *testing.T) {
		features := []types.VaultFeatures{
			{Vault: "CWEAK", Asset: "XLM", TVL: 0.1, Concentration: 1, AssetStability: 0},
			{Vault: "CSTRONG", Asset: "USDC", TVL: 1, Concentration: 0, AssetStability: 1},
		}

		recs := RecommendVaults(features, conservativeCluster("CWEAK", "CSTRONG"), profile, 3, params)
		require.Len(t, recs, 2)
		assert.Equal(t, "CSTRONG", recs[0].Vault)
		assert.Equal(t, "CWEAK", recs[1].Vault)
		assert.GreaterOrEqual(t, recs[0].MatchScore, recs[1].MatchScore)
	})

	t.Run("ties keep cluster membership order", func(t *testing.T) {
		twin := types.VaultFeatures{Asset: "USDC", TVL: 0.5, Concentration: 0.5, AssetStability: 1}
		first, second := twin, twin
		first.Vault = "CFIRST"
		second.Vault = "CSECOND"

		recs := RecommendVaults(
			[]types.VaultFeatures{second, first},
			conservativeCluster("CFIRST", "CSECOND"),
			profile, 3, params,
		)
		require.Len(t, recs, 2)
		assert.Equal(t, recs[0].MatchScore, recs[1].MatchScore)
		assert.Equal(t, "CFIRST", recs[0].Vault)
		assert.Equal(t, "CSECOND", recs[1].Vault)
	})

	t.Run("truncates to topN", func(t *testing.T) {
		features := []types.VaultFeatures{
			{Vault: "C1", TVL: 1, AssetStability: 1},
			{Vault: "C2", TVL: 0.8, AssetStability: 1},
			{Vault: "C3", TVL: 0.6, AssetStability: 1},
		}

		recs := RecommendVaults(features, conservativeCluster("C1", "C2", "C3"), profile, 2, params)
		assert.Len(t, recs, 2)
	})

	t.Run("non-positive topN falls back to the configured default", func(t *testing.T) {
		features := []types.VaultFeatures{
			{Vault: "C1", TVL: 1, AssetStability: 1},
			{Vault: "C2", TVL: 0.9, AssetStability: 1},
			{Vault: "C3", TVL: 0.8, AssetStability: 1},
			{Vault: "C4", TVL: 0.7, AssetStability: 1},
		}

		recs := RecommendVaults(features, conservativeCluster("C1", "C2", "C3", "C4"), profile, 0, params)
		assert.Len(t, recs, params.MaxRecommendations)
	})

	t.Run("no matching cluster yields an empty slice", func(t *testing.T) {
		features := []types.VaultFeatures{
			{Vault: "C1", TVL: 1, AssetStability: 1},
		}
		clusters := []types.VaultCluster{
			{RiskLevel: types.RiskBalanced, Vaults: []string{"C1"}},
		}

		recs := RecommendVaults(features, clusters, profile, 3, params)
		assert.NotNil(t, recs)
		assert.Empty(t, recs)
	})

	t.Run("cluster members missing from the feature batch are skipped", func(t *testing.T) {
		features := []types.VaultFeatures{
			{Vault: "CKNOWN", TVL: 1, AssetStability: 1},
		}

		recs := RecommendVaults(features, conservativeCluster("CKNOWN", "CGHOST"), profile, 3, params)
		require.Len(t, recs, 1)
		assert.Equal(t, "CKNOWN", recs[0].Vault)
	})
}

func TestRecommendVaults_Rationale(t *testing.T) {
	params := config.DefaultAnalysisParameters
	profile := types.UserRiskProfile{
		RiskTolerance:   types.RiskConservative,
		LiquidityNeeds:  "Medium",
		HorizonMonths:   12,
		ExperienceLevel: "Intermediate",
	}

	t.Run("lists the qualifying reasons", func(t *testing.T) {
		features := []types.VaultFeatures{
			{Vault: "CSAFE", Asset: "USDC", TVL: 0.9, IdleRatio: 0.1, Concentration: 0.3, AssetStability: 1},
		}

		recs := RecommendVaults(features, conservativeCluster("CSAFE"), profile, 3, params)
		require.Len(t, recs, 1)

		rationale := recs[0].Rationale
		assert.Contains(t, rationale, "stable asset backing")
		assert.Contains(t, rationale, "high total value locked")
		assert.Contains(t, rationale, "diversified strategy allocation")
		assert.Contains(t, rationale, "high capital utilization")
		assert.Contains(t, rationale, "conservative risk tolerance")
		assert.Contains(t, rationale, "12-month horizon")
	})

	t.Run("falls back to the generic summary when nothing qualifies", func(t *testing.T) {
		features := []types.VaultFeatures{
			{Vault: "CMEH", Asset: "XLM", TVL: 0.5, IdleRatio: 0.5, Concentration: 0.9, AssetStability: 0},
		}

		recs := RecommendVaults(features, conservativeCluster("CMEH"), profile, 3, params)
		require.Len(t, recs, 1)
		assert.Contains(t, recs[0].Rationale, "balanced risk-return profile")
	})
}
