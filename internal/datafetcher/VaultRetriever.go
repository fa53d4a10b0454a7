/*

This file contains the client for reading vault balance sheets from the
DeFindex data API.

The balance sheet and total supply come back as opaque serialized blobs;
decoding them is the parser's job, not the fetcher's.

*/

package datafetcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/stellarwizard/vre/internal/config"
	"github.com/stellarwizard/vre/internal/logger"
	"github.com/stellarwizard/vre/internal/types"
)

var ErrEmptyVaultRegistry = errors.New("no vaults registered for network")
var vaultFetchLogger = logger.GetForComponent("vault_retriever")

// VaultRetriever reads raw vault records from the DeFindex data API for the
// vaults in the configured registry.
type VaultRetriever struct{}

// NewVaultRetriever returns a retriever backed by the endpoint configuration
// loaded at startup.
func NewVaultRetriever() *VaultRetriever {
	return &VaultRetriever{}
}

// vaultBatchRequest is the read request sent to the data API.
type vaultBatchRequest struct {
	Network string   `json:"network"`
	Vaults  []string `json:"vaults"`
}

// vaultBatchResponse is the data API's envelope around the raw records.
type vaultBatchResponse struct {
	Vaults []types.RawVaultRecord `json:"vaults"`
	Error  string                 `json:"error,omitempty"`
}

// GetVaultRecords fetches the raw records for every vault registered on the
// given network, in registry order. Vaults the API omits are dropped with a
// warning rather than failing the batch.
func (r *VaultRetriever) GetVaultRecords(ctx context.Context, network string) ([]types.RawVaultRecord, error) {
	registry := config.RegistryVaults(network)
	if len(registry) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyVaultRegistry, network)
	}

	request := vaultBatchRequest{
		Network: network,
		Vaults:  registry,
	}

	var response vaultBatchResponse
	url := config.DataAPI(network) + "/vaults"
	if err := postJSON(ctx, url, request, &response, vaultFetchLogger); err != nil {
		return nil, fmt.Errorf("failed to fetch vault records: %w", err)
	}
	if response.Error != "" {
		vaultFetchLogger.Error().
			Str("network", network).
			Str("apiError", response.Error).
			Msg("Data API reported an error")
		return nil, fmt.Errorf("%w: %s", ErrUpstreamUnavailable, response.Error)
	}

	// Re-order to registry order and drop anything the registry does not
	// know about, so one misbehaving upstream cannot inject vaults.
	byAddress := make(map[string]types.RawVaultRecord, len(response.Vaults))
	for _, record := range response.Vaults {
		byAddress[record.Vault] = record
	}

	records := make([]types.RawVaultRecord, 0, len(registry))
	for _, vault := range registry {
		record, ok := byAddress[vault]
		if !ok {
			vaultFetchLogger.Warn().
				Str("vault", vault).
				Str("network", network).
				Msg("Registered vault missing from data API response")
			continue
		}
		records = append(records, record)
	}

	vaultFetchLogger.Info().
		Str("network", network).
		Int("registered", len(registry)).
		Int("returned", len(records)).
		Msg("Vault records fetched")

	return records, nil
}
