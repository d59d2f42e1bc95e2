package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"searoute/pkg/config"
	"searoute/pkg/domain"
	"searoute/pkg/geo"
	"searoute/pkg/ratelimit"
	"searoute/services/route-svc/internal/assemble"
	"searoute/services/route-svc/internal/cost"
	"searoute/services/route-svc/internal/graphbuild"
	"searoute/services/route-svc/internal/pathfind"
	"searoute/services/route-svc/internal/repository"
	"searoute/services/route-svc/internal/service"
)

func testCostConfig() config.CostConfig {
	return config.CostConfig{
		FuelPrices:       map[string]float64{"vlsfo": 550},
		FuelBaseRates:    map[string]float64{"container": 150},
		DefaultBaseRate:  50,
		DefaultDWT:       30000,
		PortFeeBase:      5000,
		PortFeePerDWT:    0.10,
		SuezFeeBase:      100000,
		SuezFeePerDWT:    2.0,
		PanamaFeeBase:    80000,
		PanamaFeePerDWT:  1.5,
		NormTimeHours:    24,
		NormCostUSD:      100000,
		NormRisk:         100,
		EnvReferenceTons: 30,
	}
}

func catalogPort(code, name string, lat, lon float64) *domain.Port {
	return &domain.Port{
		Code:             code,
		Name:             name,
		Country:          "XX",
		Location:         geo.Point{Lat: lat, Lon: lon},
		Type:             domain.PortTypeContainer,
		Status:           domain.PortStatusActive,
		MaxVesselDraft:   16,
		BerthCount:       20,
		CongestionFactor: 1.0,
		AvgPortStayHours: 12,
	}
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	repo := repository.NewMemoryPortRepository([]*domain.Port{
		catalogPort("SGSIN", "Singapore", 1.29, 103.85),
		catalogPort("MYTPP", "Tanjung Pelepas", 1.36, 103.55),
		catalogPort("MYPKG", "Port Klang", 3.0, 101.4),
		catalogPort("IDJKT", "Jakarta", -6.1, 106.8),
	})
	builder := graphbuild.NewBuilder(config.GraphConfig{
		KNearest:    8,
		KNNRadiusNM: 1500,
		HubRadiusNM: 6000,
	}, graphbuild.DefaultRiskTables())
	holder := graphbuild.NewHolder(builder, repo)
	_, err := holder.Rebuild(context.Background())
	require.NoError(t, err)

	costCfg := testCostConfig()
	model := cost.NewModel(costCfg)

	cfg := &config.Config{}
	cfg.App.Version = "test"
	cfg.Catalog.QueryTimeout = 200 * time.Millisecond

	svc := service.New(cfg, service.Deps{
		Repo:      repo,
		Graphs:    holder,
		Finder:    pathfind.NewFinder(model, config.PathfinderConfig{}),
		Assembler: assemble.NewAssembler(model, costCfg),
	})
	return NewHandler(svc)
}

func newTestServer(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	newTestHandler(t).Register(mux)
	return Chain(mux, RequestID, Metrics)
}

func calculateBody(origin, dest string, draft float64) []byte {
	body, _ := json.Marshal(map[string]any{
		"origin_port":      origin,
		"destination_port": dest,
		"vessel": map[string]any{
			"vessel_type":             "container",
			"length":                  300,
			"beam":                    45,
			"draft":                   draft,
			"deadweight_tonnage":      80000,
			"cruise_speed":            18,
			"max_speed":               24,
			"fuel_type":               "vlsfo",
			"suez_canal_compatible":   true,
			"panama_canal_compatible": true,
		},
		"optimization_criteria": "fastest",
	})
	return body
}

func doRequest(t *testing.T, srv http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestCalculateRoute_OK(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/routes/calculate", calculateBody("SGSIN", "IDJKT", 14))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.RouteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.PrimaryRoute)
	assert.Equal(t, "SGSIN", resp.PrimaryRoute.PortCodes[0])
	assert.NotEmpty(t, resp.RequestID)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestCalculateRoute_MalformedBody(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/routes/calculate", []byte("{not json"))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "VALIDATION_ERROR", envelope["error"])
	assert.NotEmpty(t, envelope["request_id"])
}

func TestCalculateRoute_PortNotFound(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/routes/calculate", calculateBody("SGSIN", "ZZZZZ", 14))
	require.Equal(t, http.StatusNotFound, rec.Code)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "PORT_NOT_FOUND", envelope["error"])
}

func TestCalculateRoute_NoRouteIs200(t *testing.T) {
	srv := newTestServer(t)

	// Осадка 30 метров не проходит ни в один порт: маршрута нет, но это ответ
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/routes/calculate", calculateBody("SGSIN", "IDJKT", 30))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.RouteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp.PrimaryRoute)
	assert.NotEmpty(t, resp.Diagnostics)
}

func TestValidateRoute_OK(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/routes/validate", calculateBody("SGSIN", "IDJKT", 14))
	require.Equal(t, http.StatusOK, rec.Code)

	var result domain.ValidationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Valid)
}

func TestSearchPorts_OK(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/ports/search?q=singapore", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Results []domain.PortSearchResult `json:"results"`
		Count   int                       `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.NotZero(t, payload.Count)
	assert.Equal(t, "SGSIN", payload.Results[0].Port.Code)
}

func TestSearchPorts_QueryTooShort(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/ports/search?q=s", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPort_OK(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/ports/sgsin", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var p domain.Port
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "Singapore", p.Name)
}

func TestGetPort_NotFound(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/ports/ZZZZZ", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNearbyPorts_OK(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/ports/nearby?lat=1.3&lon=103.8&radius_nm=100", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Results []domain.PortSearchResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.NotEmpty(t, payload.Results)
	assert.Equal(t, "SGSIN", payload.Results[0].Port.Code)
}

func TestNearbyPorts_MissingCoordinates(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/ports/nearby?radius_nm=100", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth_OK(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var h domain.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.Equal(t, "healthy", h.Status)
}

func TestRequestID_Passthrough(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "fixed-id-123")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, "fixed-id-123", rec.Header().Get("X-Request-ID"))
}

func TestRateLimit_Blocks(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(&ratelimit.Config{
		Requests:        1,
		Window:          time.Minute,
		Strategy:        "sliding_window",
		CleanupInterval: time.Minute,
	})
	defer limiter.Close()

	mux := http.NewServeMux()
	newTestHandler(t).Register(mux)
	srv := Chain(mux, RequestID, RateLimit(limiter))

	first := doRequest(t, srv, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, first.Code)

	second := doRequest(t, srv, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusTooManyRequests, second.Code)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &envelope))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", envelope["error"])
}

func TestCORS_Preflight(t *testing.T) {
	mux := http.NewServeMux()
	newTestHandler(t).Register(mux)
	srv := Chain(mux, CORS(config.CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         600,
	}))

	rec := doRequest(t, srv, http.MethodOptions, "/health", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
}
