/*

This file contains the function for decoding raw vault balance sheets into
typed records with human-readable decimal amounts.

*/

package analyzer

import (
	"encoding/json"

	"github.com/stellarwizard/vre/internal/logger"
	"github.com/stellarwizard/vre/internal/types"
	"github.com/stellarwizard/vre/internal/utils"
)

var parseLogger = logger.GetForComponent("vault_parser")

// managedFundsBlob mirrors the serialized balance sheet returned by the
// vault contract. All amounts are integer stroops, serialized either as
// JSON numbers or as quoted strings depending on the source, so they are
// captured raw and parsed by the stroop converter (which strips quotes).
type managedFundsBlob struct {
	Asset               string          `json:"asset"`
	IdleAmount          json.RawMessage `json:"idle_amount"`
	InvestedAmount      json.RawMessage `json:"invested_amount"`
	StrategyAllocations []struct {
		Amount          json.RawMessage `json:"amount"`
		Paused          bool            `json:"paused"`
		StrategyAddress string          `json:"strategy_address"`
	} `json:"strategy_allocations"`
	TotalAmount json.RawMessage `json:"total_amount"`
}

// ParseVaultData decodes a batch of raw vault records into ParsedVaultData,
// preserving input length and order. A record whose balance sheet fails to
// decode for any reason is emitted with the vault address preserved, every
// numeric field zeroed, an empty allocation list, and Degraded set — never
// omitted and never surfaced as an error. Downstream stages therefore
// always see one entry per input vault.
func ParseVaultData(records []types.RawVaultRecord) []types.ParsedVaultData {
	parsed := make([]types.ParsedVaultData, 0, len(records))
	for _, record := range records {
		parsed = append(parsed, parseRecord(record))
	}

	parseLogger.Debug().
		Int("records", len(records)).
		Msg("Vault batch parsed")

	return parsed
}

// parseRecord decodes one raw record, falling back to a zeroed degraded
// record on any decode or conversion failure.
func parseRecord(record types.RawVaultRecord) types.ParsedVaultData {
	var blob managedFundsBlob
	if err := json.Unmarshal([]byte(record.TotalManagedFunds), &blob); err != nil {
		parseLogger.Warn().
			Str("vault", record.Vault).
			Err(err).
			Msg("Malformed managed funds blob, substituting zeroed record")
		return degradedRecord(record.Vault)
	}

	totalAmount, err := utils.StroopStringToFloat64(string(blob.TotalAmount))
	if err != nil {
		parseLogger.Warn().
			Str("vault", record.Vault).
			Err(err).
			Msg("Invalid total amount, substituting zeroed record")
		return degradedRecord(record.Vault)
	}

	idleAmount, err := utils.StroopStringToFloat64(string(blob.IdleAmount))
	if err != nil {
		parseLogger.Warn().
			Str("vault", record.Vault).
			Err(err).
			Msg("Invalid idle amount, substituting zeroed record")
		return degradedRecord(record.Vault)
	}

	investedAmount, err := utils.StroopStringToFloat64(string(blob.InvestedAmount))
	if err != nil {
		parseLogger.Warn().
			Str("vault", record.Vault).
			Err(err).
			Msg("Invalid invested amount, substituting zeroed record")
		return degradedRecord(record.Vault)
	}

	totalSupply, err := utils.StroopStringToFloat64(record.TotalSupply)
	if err != nil {
		parseLogger.Warn().
			Str("vault", record.Vault).
			Err(err).
			Msg("Invalid total supply, substituting zeroed record")
		return degradedRecord(record.Vault)
	}

	allocations := make([]types.StrategyAllocation, 0, len(blob.StrategyAllocations))
	for _, alloc := range blob.StrategyAllocations {
		amount, err := utils.StroopStringToFloat64(string(alloc.Amount))
		if err != nil {
			parseLogger.Warn().
				Str("vault", record.Vault).
				Str("strategy", alloc.StrategyAddress).
				Err(err).
				Msg("Invalid strategy allocation amount, substituting zeroed record")
			return degradedRecord(record.Vault)
		}
		allocations = append(allocations, types.StrategyAllocation{
			Amount:          amount,
			Paused:          alloc.Paused,
			StrategyAddress: alloc.StrategyAddress,
		})
	}

	return types.ParsedVaultData{
		Vault:               record.Vault,
		Asset:               blob.Asset,
		TotalAmount:         totalAmount,
		IdleAmount:          idleAmount,
		InvestedAmount:      investedAmount,
		TotalSupply:         totalSupply,
		StrategyAllocations: allocations,
	}
}

// degradedRecord builds the zero-valued substitute for a vault whose
// balance sheet could not be decoded. This is a documented contract, not
// an accidental swallow: list lengths stay stable across vaults and
// features, and a degraded vault simply scores as empty.
func degradedRecord(vault string) types.ParsedVaultData {
	return types.ParsedVaultData{
		Vault:               vault,
		StrategyAllocations: []types.StrategyAllocation{},
		Degraded:            true,
	}
}
