package datafetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stellarwizard/vre/internal/config"
	"github.com/stellarwizard/vre/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetVaultRecords(t *testing.T) {
	t.Run("requests the registry and preserves its order", func(t *testing.T) {
		var gotRequest vaultBatchRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/vaults", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))

			// Respond out of order, with one vault the registry does not know.
			json.NewEncoder(w).Encode(vaultBatchResponse{Vaults: []types.RawVaultRecord{
				{Vault: "CVAULT2", TotalManagedFunds: "{}", TotalSupply: "0"},
				{Vault: "CUNKNOWN", TotalManagedFunds: "{}", TotalSupply: "0"},
				{Vault: "CVAULT1", TotalManagedFunds: "{}", TotalSupply: "0"},
			}})
		}))
		defer server.Close()

		config.TestnetDataAPI = server.URL
		config.TestnetVaults = []string{"CVAULT1", "CVAULT2"}

		records, err := NewVaultRetriever().GetVaultRecords(context.Background(), "testnet")
		require.NoError(t, err)

		assert.Equal(t, "testnet", gotRequest.Network)
		assert.Equal(t, []string{"CVAULT1", "CVAULT2"}, gotRequest.Vaults)

		require.Len(t, records, 2)
		assert.Equal(t, "CVAULT1", records[0].Vault)
		assert.Equal(t, "CVAULT2", records[1].Vault)
	})

	t.Run("drops registered vaults missing from the response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(vaultBatchResponse{Vaults: []types.RawVaultRecord{
				{Vault: "CVAULT1", TotalManagedFunds: "{}", TotalSupply: "0"},
			}})
		}))
		defer server.Close()

		config.TestnetDataAPI = server.URL
		config.TestnetVaults = []string{"CVAULT1", "CVAULT2"}

		records, err := NewVaultRetriever().GetVaultRecords(context.Background(), "testnet")
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "CVAULT1", records[0].Vault)
	})

	t.Run("surfaces an error envelope", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(vaultBatchResponse{Error: "index rebuilding"})
		}))
		defer server.Close()

		config.TestnetDataAPI = server.URL
		config.TestnetVaults = []string{"CVAULT1"}

		_, err := NewVaultRetriever().GetVaultRecords(context.Background(), "testnet")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	})

	t.Run("surfaces a non-success status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}))
		defer server.Close()

		config.TestnetDataAPI = server.URL
		config.TestnetVaults = []string{"CVAULT1"}

		_, err := NewVaultRetriever().GetVaultRecords(context.Background(), "testnet")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	})

	t.Run("rejects an empty registry", func(t *testing.T) {
		config.TestnetVaults = nil

		_, err := NewVaultRetriever().GetVaultRecords(context.Background(), "testnet")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEmptyVaultRegistry)
	})
}
