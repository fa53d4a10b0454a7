package web

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/stellarwizard/vre/internal/engine"
	"github.com/stellarwizard/vre/internal/logger"
	"github.com/stellarwizard/vre/internal/projection"
	"github.com/stellarwizard/vre/internal/state"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer handles HTTP requests for vault recommendations and projections
type WebServer struct {
	router *mux.Router
	port   string
	engine *engine.Engine
}

// NewWebServer creates a new web server instance
func NewWebServer(port string, eng *engine.Engine) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router: mux.NewRouter(),
		port:   port,
		engine: eng,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/defindex/recommend-and-project", ws.handleRecommendAndProject).Methods("POST")
	api.HandleFunc("/defindex/project", ws.handleProject).Methods("POST")
	api.HandleFunc("/defindex/project", ws.handleProjectQuery).Methods("GET")
	api.HandleFunc("/recommendations", ws.handleGetRecommendations).Methods("GET")
	api.HandleFunc("/recommendations/{id}", ws.handleGetRecommendation).Methods("GET")
	api.HandleFunc("/stats", ws.handleGetStats).Methods("GET")
	api.HandleFunc("/analysis-parameters", ws.handleGetAnalysisParameters).Methods("GET")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleRecommendAndProject runs the full recommendation pipeline for one
// deposit request.
func (ws *WebServer) handleRecommendAndProject(w http.ResponseWriter, r *http.Request) {
	var req engine.RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON request body: "+err.Error())
		return
	}

	result, err := ws.engine.RecommendAndProject(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrInvalidRequest):
			ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, engine.ErrNoSuitableVault):
			ws.writeJSONResponse(w, http.StatusNotFound, map[string]interface{}{
				"error":   true,
				"message": "No suitable vault found for the requested profile",
				"suggested_actions": []string{
					"Broaden the risk tolerance",
					"Try a different network",
					"Retry once more vaults are registered",
				},
				"timestamp": time.Now().UTC(),
			})
		default:
			webLogger.Error().Err(err).Msg("Recommendation pipeline failed")
			ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to generate recommendation")
		}
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, result)
}

// projectRequest is the JSON body of a standalone projection request.
type projectRequest struct {
	Principal           float64 `json:"principal"`
	APY                 float64 `json:"apy"`
	MonthlyContribution float64 `json:"monthly_contribution,omitempty"`
	Months              int     `json:"months,omitempty"` // Optional horizon filter
}

// handleProject computes a standalone growth projection from a JSON body.
func (ws *WebServer) handleProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON request body: "+err.Error())
		return
	}

	ws.respondWithProjection(w, req)
}

// handleProjectQuery computes a standalone growth projection from query
// parameters, for quick manual checks.
func (ws *WebServer) handleProjectQuery(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	principal, err := strconv.ParseFloat(query.Get("principal"), 64)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "principal must be a number")
		return
	}
	apy, err := strconv.ParseFloat(query.Get("apy"), 64)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "apy must be a number")
		return
	}

	req := projectRequest{Principal: principal, APY: apy}
	if contribStr := query.Get("monthlyContribution"); contribStr != "" {
		if req.MonthlyContribution, err = strconv.ParseFloat(contribStr, 64); err != nil {
			ws.writeErrorResponse(w, http.StatusBadRequest, "monthlyContribution must be a number")
			return
		}
	}
	if monthsStr := query.Get("months"); monthsStr != "" {
		if req.Months, err = strconv.Atoi(monthsStr); err != nil {
			ws.writeErrorResponse(w, http.StatusBadRequest, "months must be an integer")
			return
		}
	}

	ws.respondWithProjection(w, req)
}

func (ws *WebServer) respondWithProjection(w http.ResponseWriter, req projectRequest) {
	results, err := ws.engine.Project(projection.Input{
		Principal:           req.Principal,
		APY:                 req.APY,
		MonthlyContribution: req.MonthlyContribution,
	}, req.Months)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	response := map[string]interface{}{
		"principal":            req.Principal,
		"apy":                  req.APY,
		"monthly_contribution": req.MonthlyContribution,
		"projection":           results,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleHealth returns comprehensive server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	// Get runtime memory stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	// Get latest recommendation information
	recent, recentErr := state.GetRecentRecommendations(1)
	var lastRecommendation map[string]interface{}
	if recentErr == nil && len(recent) > 0 {
		snapshot := recent[0]
		lastRecommendation = map[string]interface{}{
			"snapshot_id":   snapshot.SnapshotID,
			"timestamp":     snapshot.Timestamp,
			"success":       snapshot.Success,
			"vault_address": snapshot.VaultAddress,
			"fallback_used": snapshot.FallbackUsed,
		}
	}

	// Get database connection status
	dbHealthy := true
	if dbErr := state.TestDBConnection(); dbErr != nil {
		dbHealthy = false
	}

	overallStatus := "OK"
	statusCode := http.StatusOK
	if !dbHealthy {
		overallStatus = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":            runtime.Version(),
			"goroutines_count":   runtime.NumGoroutine(),
			"total_alloc_bytes":  memStats.TotalAlloc,
			"heap_objects_count": memStats.HeapObjects,
			"alloc_bytes":        memStats.Alloc,
			"sys_bytes":          memStats.Sys,
			"gc_cycles":          memStats.NumGC,
		},
		"component": map[string]interface{}{
			"name":    "vre-vault-recommendation-engine",
			"version": "1.0.0",
		},
		"engine_status": map[string]interface{}{
			"database_healthy":    dbHealthy,
			"config_name":         ws.engine.ConfigName(),
			"last_recommendation": lastRecommendation,
		},
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetRecommendations returns paginated recommendation snapshots
func (ws *WebServer) handleGetRecommendations(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}

	snapshots, err := state.GetRecentRecommendations(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent recommendations")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve recommendations")
		return
	}

	response := map[string]interface{}{
		"recommendations": snapshots,
		"count":           len(snapshots),
		"limit":           limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetRecommendation returns a specific recommendation snapshot by ID
func (ws *WebServer) handleGetRecommendation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	idStr := vars["id"]

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid recommendation ID")
		return
	}

	snapshot, err := state.GetRecommendationByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			ws.writeErrorResponse(w, http.StatusNotFound, "Recommendation not found")
			return
		}
		webLogger.Error().Err(err).Int64("snapshotId", id).Msg("Failed to get recommendation")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve recommendation")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, snapshot)
}

// handleGetStats returns aggregated recommendation statistics
func (ws *WebServer) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := state.GetRecommendationStats()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recommendation stats")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve statistics")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, stats)
}

// handleGetAnalysisParameters returns the engine's active analysis parameters
func (ws *WebServer) handleGetAnalysisParameters(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"config_name": ws.engine.ConfigName(),
		"parameters":  ws.engine.Params(),
		"timestamp":   time.Now().UTC(),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
