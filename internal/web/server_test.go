package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stellarwizard/vre/internal/config"
	"github.com/stellarwizard/vre/internal/engine"
	"github.com/stellarwizard/vre/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVaultSource struct {
	records []types.RawVaultRecord
	err     error
}

func (f *fakeVaultSource) GetVaultRecords(ctx context.Context, network string) ([]types.RawVaultRecord, error) {
	return f.records, f.err
}

func stableVaultRecord(vault string, totalStroops int64) types.RawVaultRecord {
	blob := fmt.Sprintf(
		`{"asset":"USDC","idle_amount":"0","invested_amount":"%d","total_amount":"%d","strategy_allocations":[{"amount":"%d","paused":false,"strategy_address":"%s-strategy"}]}`,
		totalStroops, totalStroops, totalStroops, vault,
	)
	return types.RawVaultRecord{Vault: vault, TotalManagedFunds: blob, TotalSupply: fmt.Sprintf("%d", totalStroops)}
}

func newTestServer(t *testing.T, source engine.VaultSource) *WebServer {
	t.Helper()
	params := config.DefaultAnalysisParameters
	eng, err := engine.New(engine.Config{
		VaultSource:   source,
		Params:        &params,
		ConfigName:    engine.DEFAULT_ANALYSIS_CONFIG_NAME,
		ConfigVersion: engine.DEFAULT_ANALYSIS_CONFIG_VERSION,
	})
	require.NoError(t, err)
	return NewWebServer("0", eng)
}

func doRequest(ws *WebServer, method, path string, body any) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		encoded, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(encoded)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	ws.router.ServeHTTP(recorder, req)
	return recorder
}

func TestHandleProject(t *testing.T) {
	ws := newTestServer(t, &fakeVaultSource{})

	t.Run("computes checkpoints for a valid request", func(t *testing.T) {
		recorder := doRequest(ws, http.MethodPost, "/api/defindex/project", map[string]any{
			"principal": 1000.0,
			"apy":       12.0,
		})
		require.Equal(t, http.StatusOK, recorder.Code)

		var response struct {
			Projection []types.ProjectionResult `json:"projection"`
		}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		require.Len(t, response.Projection, 4)
		assert.Equal(t, 12, response.Projection[1].MonthsElapsed)
		assert.InDelta(t, 1120.0, response.Projection[1].Balance, 0.01)
	})

	t.Run("filters to the requested months", func(t *testing.T) {
		recorder := doRequest(ws, http.MethodPost, "/api/defindex/project", map[string]any{
			"principal": 1000.0,
			"apy":       6.0,
			"months":    6,
		})
		require.Equal(t, http.StatusOK, recorder.Code)

		var response struct {
			Projection []types.ProjectionResult `json:"projection"`
		}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		require.Len(t, response.Projection, 1)
		assert.Equal(t, 6, response.Projection[0].MonthsElapsed)
	})

	t.Run("rejects a non-positive principal", func(t *testing.T) {
		recorder := doRequest(ws, http.MethodPost, "/api/defindex/project", map[string]any{
			"principal": 0.0,
			"apy":       12.0,
		})
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("rejects an out-of-range APY", func(t *testing.T) {
		recorder := doRequest(ws, http.MethodPost, "/api/defindex/project", map[string]any{
			"principal": 1000.0,
			"apy":       5000.0,
		})
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/defindex/project", bytes.NewBufferString("{"))
		recorder := httptest.NewRecorder()
		ws.router.ServeHTTP(recorder, req)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("accepts query parameters on GET", func(t *testing.T) {
		recorder := doRequest(ws, http.MethodGet, "/api/defindex/project?principal=500&apy=6&months=12", nil)
		require.Equal(t, http.StatusOK, recorder.Code)

		var response struct {
			Projection []types.ProjectionResult `json:"projection"`
		}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		assert.Len(t, response.Projection, 2)
	})

	t.Run("rejects non-numeric query parameters", func(t *testing.T) {
		recorder := doRequest(ws, http.MethodGet, "/api/defindex/project?principal=abc&apy=6", nil)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestHandleRecommendAndProject(t *testing.T) {
	t.Run("returns a recommendation with projection", func(t *testing.T) {
		source := &fakeVaultSource{records: []types.RawVaultRecord{
			stableVaultRecord("CSAFE", 10_000_000_000),
			stableVaultRecord("CSMALL", 1_000_000_000),
		}}
		ws := newTestServer(t, source)

		recorder := doRequest(ws, http.MethodPost, "/api/defindex/recommend-and-project", map[string]any{
			"amount":         "10000000000",
			"risk":           "Conservative",
			"horizon_months": 12,
			"network":        "testnet",
		})
		require.Equal(t, http.StatusOK, recorder.Code)

		var result engine.RecommendResult
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &result))
		assert.Equal(t, "CSAFE", result.Vault.Vault)
		assert.Len(t, result.Projection, 2)
		assert.NotEmpty(t, result.RequestID)
	})

	t.Run("rejects an invalid request with 400", func(t *testing.T) {
		ws := newTestServer(t, &fakeVaultSource{})

		recorder := doRequest(ws, http.MethodPost, "/api/defindex/recommend-and-project", map[string]any{
			"amount":         "10000000000",
			"risk":           "Reckless",
			"horizon_months": 12,
			"network":        "testnet",
		})
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("returns 404 with suggested actions when no vault fits", func(t *testing.T) {
		// The only vault is volatile and alone in its batch, so it normalizes
		// to zero TVL and the whole cascade comes up empty.
		volatile := types.RawVaultRecord{
			Vault:             "CVOLATILE",
			TotalManagedFunds: `{"asset":"XLM","idle_amount":"0","invested_amount":"10000000000","total_amount":"10000000000","strategy_allocations":[]}`,
			TotalSupply:       "10000000000",
		}
		ws := newTestServer(t, &fakeVaultSource{records: []types.RawVaultRecord{volatile}})

		recorder := doRequest(ws, http.MethodPost, "/api/defindex/recommend-and-project", map[string]any{
			"amount":         "10000000000",
			"risk":           "Conservative",
			"horizon_months": 12,
			"network":        "testnet",
		})
		require.Equal(t, http.StatusNotFound, recorder.Code)

		var response struct {
			Error            bool     `json:"error"`
			SuggestedActions []string `json:"suggested_actions"`
		}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		assert.True(t, response.Error)
		assert.NotEmpty(t, response.SuggestedActions)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		ws := newTestServer(t, &fakeVaultSource{})
		req := httptest.NewRequest(http.MethodPost, "/api/defindex/recommend-and-project", bytes.NewBufferString("not json"))
		recorder := httptest.NewRecorder()
		ws.router.ServeHTTP(recorder, req)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestHandleGetAnalysisParameters(t *testing.T) {
	ws := newTestServer(t, &fakeVaultSource{})

	recorder := doRequest(ws, http.MethodGet, "/api/analysis-parameters", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var response struct {
		ConfigName string                   `json:"config_name"`
		Parameters types.AnalysisParameters `json:"parameters"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, engine.DEFAULT_ANALYSIS_CONFIG_NAME, response.ConfigName)
	assert.Equal(t, config.DefaultAnalysisParameters, response.Parameters)
}

func TestHandleHealth_NoDatabase(t *testing.T) {
	ws := newTestServer(t, &fakeVaultSource{})

	recorder := doRequest(ws, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)

	var response struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "DEGRADED", response.Status)
}
