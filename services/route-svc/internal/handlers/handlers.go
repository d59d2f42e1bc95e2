// Package handlers публичная HTTP поверхность сервиса маршрутов.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"searoute/pkg/apperror"
	"searoute/pkg/domain"
	"searoute/pkg/geo"
	"searoute/pkg/logger"
	"searoute/services/route-svc/internal/service"
)

// Предел размера тела запроса
const maxBodyBytes = 1 << 20

// Handler связывает HTTP маршруты с координатором
type Handler struct {
	svc *service.Service
}

// NewHandler создаёт обработчик поверх координатора
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register вешает маршруты на мультиплексор
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/routes/calculate", h.CalculateRoute)
	mux.HandleFunc("POST /api/v1/routes/validate", h.ValidateRoute)
	mux.HandleFunc("GET /api/v1/ports/search", h.SearchPorts)
	mux.HandleFunc("GET /api/v1/ports/nearby", h.NearbyPorts)
	mux.HandleFunc("GET /api/v1/ports/{code}", h.GetPort)
	mux.HandleFunc("GET /health", h.Health)
}

// CalculateRoute обрабатывает POST /api/v1/routes/calculate.
// Отсутствие маршрута это валидный ответ 200 с пустым primary_route
func (h *Handler) CalculateRoute(w http.ResponseWriter, r *http.Request) {
	var req domain.RouteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := h.svc.CalculateRoute(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ValidateRoute обрабатывает POST /api/v1/routes/validate
func (h *Handler) ValidateRoute(w http.ResponseWriter, r *http.Request) {
	var req domain.RouteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.svc.ValidateRoute(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SearchPorts обрабатывает GET /api/v1/ports/search?q=...&limit=...
func (h *Handler) SearchPorts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit := intParam(r, "limit", 10)

	results, err := h.svc.SearchPorts(r.Context(), query, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}

// NearbyPorts обрабатывает GET /api/v1/ports/nearby?lat=..&lon=..&radius_nm=..
func (h *Handler) NearbyPorts(w http.ResponseWriter, r *http.Request) {
	lat, err1 := floatParam(r, "lat")
	lon, err2 := floatParam(r, "lon")
	if err1 != nil || err2 != nil {
		writeError(w, r, apperror.New(apperror.CodeValidation, "lat and lon are required numeric parameters"))
		return
	}

	radius := 100.0
	if raw := r.URL.Query().Get("radius_nm"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, r, apperror.NewWithField(apperror.CodeValidation, "radius_nm must be a number", "radius_nm"))
			return
		}
		radius = v
	}

	results, err := h.svc.NearbyPorts(r.Context(), geo.Point{Lat: lat, Lon: lon}, radius, intParam(r, "limit", 10))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}

// GetPort обрабатывает GET /api/v1/ports/{code}
func (h *Handler) GetPort(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetPort(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Health обрабатывает GET /health. Деградация отдаётся как 200:
// сервис жив и способен отвечать, детали в теле
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Health(r.Context()))
}

// errorEnvelope формат ошибки публичного контракта
type errorEnvelope struct {
	Error     string         `json:"error"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, r, apperror.Wrap(err, apperror.CodeValidation, "malformed JSON body"))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	envelope := errorEnvelope{
		Error:     string(apperror.Code(err)),
		Message:   err.Error(),
		RequestID: RequestIDFromContext(r.Context()),
	}

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		envelope.Message = appErr.Message
		envelope.Details = appErr.Details
		if appErr.Field != "" {
			if envelope.Details == nil {
				envelope.Details = map[string]any{}
			}
			envelope.Details["field"] = appErr.Field
		}
	}

	status := apperror.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err, "path", r.URL.Path)
	}

	writeJSON(w, status, envelope)
}

func intParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func floatParam(r *http.Request, name string) (float64, error) {
	return strconv.ParseFloat(r.URL.Query().Get(name), 64)
}
