/*

This file contains the function for deriving normalized risk features from
parsed vault balance sheets.

*/

package analyzer

import (
	"github.com/stellarwizard/vre/internal/config"
	"github.com/stellarwizard/vre/internal/logger"
	"github.com/stellarwizard/vre/internal/types"
)

var featureLogger = logger.GetForComponent("feature_extractor")

// ExtractFeatures computes one VaultFeatures per input vault, order
// preserving. This is a pure function: the same input list always yields
// the same output list.
//
// TVL and shares outstanding are min-max normalized relative to the whole
// batch, so feature values for one vault depend on the full set passed in
// the same call. Callers must push one batch atomically through
// parser -> extractor -> clusterer and never mix features computed from
// different batches.
func ExtractFeatures(parsed []types.ParsedVaultData) []types.VaultFeatures {
	tvlMin, tvlMax := positiveRange(parsed, func(v types.ParsedVaultData) float64 { return v.TotalAmount })
	supplyMin, supplyMax := positiveRange(parsed, func(v types.ParsedVaultData) float64 { return v.TotalSupply })

	features := make([]types.VaultFeatures, 0, len(parsed))
	for _, vault := range parsed {
		f := types.VaultFeatures{
			Vault:             vault.Vault,
			Asset:             vault.Asset,
			TVL:               normalize(vault.TotalAmount, tvlMin, tvlMax),
			IdleRatio:         idleRatio(vault),
			Concentration:     herfindahlIndex(vault.StrategyAllocations),
			AssetStability:    assetStability(vault.Asset),
			GrowthRate:        0, // No historical series is available
			SharesOutstanding: normalize(vault.TotalSupply, supplyMin, supplyMax),
		}
		features = append(features, f)

		featureLogger.Debug().
			Str("vault", f.Vault).
			Str("asset", f.Asset).
			Float64("tvl", f.TVL).
			Float64("idleRatio", f.IdleRatio).
			Float64("concentration", f.Concentration).
			Float64("assetStability", f.AssetStability).
			Float64("sharesOutstanding", f.SharesOutstanding).
			Msg("Vault features extracted")
	}

	return features
}

// positiveRange computes the min and max of a field over vaults where the
// field is strictly positive. Returns (0, 0) when no vault qualifies.
func positiveRange(parsed []types.ParsedVaultData, field func(types.ParsedVaultData) float64) (float64, float64) {
	min, max := 0.0, 0.0
	seeded := false
	for _, vault := range parsed {
		value := field(vault)
		if value <= 0 {
			continue
		}
		if !seeded {
			min, max = value, value
			seeded = true
			continue
		}
		if value < min {
			min = value
		}
		if value > max {
			max = value
		}
	}
	return min, max
}

// normalize min-max scales a value into [0,1] against the batch range.
// A non-positive value, or a degenerate range (singleton batch or all
// values equal), normalizes to 0 rather than erroring.
func normalize(value, min, max float64) float64 {
	if value <= 0 || max <= min {
		return 0
	}
	return (value - min) / (max - min)
}

// idleRatio is the share of total funds sitting idle; 0 when the vault
// holds nothing.
func idleRatio(vault types.ParsedVaultData) float64 {
	if vault.TotalAmount == 0 {
		return 0
	}
	return vault.IdleAmount / vault.TotalAmount
}

// herfindahlIndex is the sum of squared allocation shares over the total
// allocated amount. Higher means more concentrated in fewer strategies;
// 0 when nothing is allocated.
func herfindahlIndex(allocations []types.StrategyAllocation) float64 {
	totalAllocated := 0.0
	for _, alloc := range allocations {
		totalAllocated += alloc.Amount
	}
	if totalAllocated == 0 {
		return 0
	}

	index := 0.0
	for _, alloc := range allocations {
		share := alloc.Amount / totalAllocated
		index += share * share
	}
	return index
}

// assetStability is 1 for assets in the fixed stable allow-list, else 0.
func assetStability(asset string) float64 {
	if config.IsStableAsset(asset) {
		return 1
	}
	return 0
}
