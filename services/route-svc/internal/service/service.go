// Package service координирует расчёт маршрутов: валидация запроса,
// кэш по отпечатку, single-flight, ограничение конкурентности,
// поиск пути и сборка детализированного ответа.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"searoute/pkg/apperror"
	"searoute/pkg/cache"
	"searoute/pkg/config"
	"searoute/pkg/domain"
	"searoute/pkg/logger"
	"searoute/pkg/metrics"
	"searoute/pkg/telemetry"
	"searoute/services/route-svc/internal/assemble"
	"searoute/services/route-svc/internal/graphbuild"
	"searoute/services/route-svc/internal/pathfind"
	"searoute/services/route-svc/internal/repository"
)

// Жёсткий потолок дедлайна одного запроса
const maxRequestTimeout = 30 * time.Second

// Значения по умолчанию при нулевой конфигурации
const (
	defaultMaxConcurrent = 64
	defaultSlotWait      = 2 * time.Second
	defaultRepoTimeout   = 200 * time.Millisecond
	defaultCacheTimeout  = 50 * time.Millisecond
)

// Pathfinder ищет маршруты на снапшоте графа
type Pathfinder interface {
	FindRoutes(ctx context.Context, g *domain.PortGraph, q pathfind.Query) (*pathfind.Result, error)
}

// Deps внешние зависимости координатора
type Deps struct {
	Repo      repository.PortRepository
	Graphs    *graphbuild.Holder
	Finder    Pathfinder
	Assembler *assemble.Assembler
	Routes    *cache.RouteCache // nil = кэширование выключено
}

// Service координатор запросов расчёта маршрутов
type Service struct {
	repo      repository.PortRepository
	graphs    *graphbuild.Holder
	finder    Pathfinder
	assembler *assemble.Assembler
	routes    *cache.RouteCache

	validate *validator.Validate
	group    singleflight.Group
	sem      *semaphore.Weighted

	requestTimeout time.Duration
	slotWait       time.Duration
	repoTimeout    time.Duration
	cacheTimeout   time.Duration

	version string
	started time.Time
}

// New создаёт координатор
func New(cfg *config.Config, deps Deps) *Service {
	maxConcurrent := cfg.Route.MaxConcurrentCalculations
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	slotWait := cfg.Route.ComputeSlotWait
	if slotWait <= 0 {
		slotWait = defaultSlotWait
	}
	requestTimeout := cfg.Route.DefaultRequestTimeout
	if requestTimeout <= 0 || requestTimeout > maxRequestTimeout {
		requestTimeout = maxRequestTimeout
	}
	repoTimeout := cfg.Catalog.QueryTimeout
	if repoTimeout <= 0 {
		repoTimeout = defaultRepoTimeout
	}
	cacheTimeout := cfg.Route.CacheCallTimeout
	if cacheTimeout <= 0 {
		cacheTimeout = defaultCacheTimeout
	}

	return &Service{
		repo:           deps.Repo,
		graphs:         deps.Graphs,
		finder:         deps.Finder,
		assembler:      deps.Assembler,
		routes:         deps.Routes,
		validate:       validator.New(),
		sem:            semaphore.NewWeighted(int64(maxConcurrent)),
		requestTimeout: requestTimeout,
		slotWait:       slotWait,
		repoTimeout:    repoTimeout,
		cacheTimeout:   cacheTimeout,
		version:        cfg.App.Version,
		started:        time.Now(),
	}
}

// CalculateRoute выполняет полный цикл расчёта маршрута. Отсутствие
// маршрута не является ошибкой: возвращается ответ с пустым primary_route
// и списком диагностик
func (s *Service) CalculateRoute(ctx context.Context, req *domain.RouteRequest) (*domain.RouteResponse, error) {
	if req == nil {
		return nil, apperror.ErrNilRequest
	}
	started := time.Now()

	normalizeRequest(req)

	ctx, cancel := context.WithTimeout(ctx, s.effectiveTimeout(req))
	defer cancel()

	ctx, span := telemetry.StartSpan(ctx, "service.calculate_route")
	defer span.End()

	if _, _, err := s.resolveAndValidate(ctx, req); err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	fp := cache.Fingerprint(req)
	span.SetAttributes(telemetry.RouteAttributes(req.OriginPort, req.DestinationPort, string(req.Criteria), fp)...)

	if resp, ok := s.cachedRoute(ctx, fp); ok {
		metrics.Get().RecordCacheOperation("route", "hit")
		logger.Debug("route served from cache", "fingerprint", fp)
		return resp, nil
	}
	metrics.Get().RecordCacheOperation("route", "miss")

	// Одновременные запросы с одним отпечатком сходятся в одно вычисление
	v, err, shared := s.group.Do(fp, func() (any, error) {
		return s.compute(ctx, req, fp, started)
	})
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	resp := v.(*domain.RouteResponse)
	if shared {
		logger.Debug("route computation shared", "fingerprint", fp)
	}
	return resp, nil
}

// compute защищённая семафором фаза вычисления
func (s *Service) compute(ctx context.Context, req *domain.RouteRequest, fp string, started time.Time) (*domain.RouteResponse, error) {
	if err := s.acquireSlot(ctx); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	m := metrics.Get()
	m.CalculationsInFlight.Inc()
	defer m.CalculationsInFlight.Dec()

	g, err := s.graphs.Current()
	if err != nil {
		return nil, err
	}

	result, err := s.finder.FindRoutes(ctx, g, pathfind.Query{
		Origin:             req.OriginPort,
		Destination:        req.DestinationPort,
		Vessel:             req.Vessel,
		Criteria:           req.Criteria,
		MaxConnectingPorts: req.MaxConnectingPorts,
		MaxAlternatives:    req.MaxAlternatives,
	})
	if err != nil {
		if apperror.Is(err, apperror.CodeNoRouteFound) {
			m.RecordCalculation(string(req.Criteria), pathfind.AlgorithmDijkstra, false, time.Since(started))
			return s.noRouteResponse(g, req, started), nil
		}
		m.RecordCalculation(string(req.Criteria), pathfind.AlgorithmDijkstra, false, time.Since(started))
		return nil, err
	}

	resp, err := s.buildResponse(g, req, result, started)
	if err != nil {
		m.RecordCalculation(string(req.Criteria), result.Algorithm, false, time.Since(started))
		return nil, err
	}

	m.RecordCalculation(string(req.Criteria), result.Algorithm, true, time.Since(started))
	m.RecordRouteResult(string(req.Criteria), result.Algorithm,
		resp.PrimaryRoute.TotalDistanceNM, result.RoutesEvaluated, len(resp.Alternatives))

	s.storeRoute(ctx, fp, resp)
	return resp, nil
}

// acquireSlot ждёт слот вычисления не дольше slotWait
func (s *Service) acquireSlot(ctx context.Context) error {
	slotCtx, cancel := context.WithTimeout(ctx, s.slotWait)
	defer cancel()

	if err := s.sem.Acquire(slotCtx, 1); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return deadlineError(ctxErr)
		}
		return apperror.ErrOverloaded
	}
	return nil
}

// buildResponse собирает детализированный ответ из результата поиска
func (s *Service) buildResponse(g *domain.PortGraph, req *domain.RouteRequest, result *pathfind.Result, started time.Time) (*domain.RouteResponse, error) {
	primary, err := s.assembler.Assemble(g, result.Primary, req.Vessel, req.Criteria, req.DepartureTime)
	if err != nil {
		return nil, err
	}

	alternatives := make([]domain.DetailedRoute, 0, len(result.Alternatives))
	for _, alt := range result.Alternatives {
		route, err := s.assembler.Assemble(g, alt, req.Vessel, req.Criteria, req.DepartureTime)
		if err != nil {
			return nil, err
		}
		alternatives = append(alternatives, *route)
	}

	return &domain.RouteResponse{
		RequestID:         uuid.NewString(),
		CalculatedAt:      time.Now().UTC(),
		CalculationTimeMS: float64(time.Since(started).Microseconds()) / 1000,
		PrimaryRoute:      primary,
		Alternatives:      alternatives,
		AlgorithmUsed:     result.Algorithm,
		Criteria:          req.Criteria,
		RoutesEvaluated:   result.RoutesEvaluated,
	}, nil
}

// noRouteResponse строит ответ для пары без допустимого маршрута
func (s *Service) noRouteResponse(g *domain.PortGraph, req *domain.RouteRequest, started time.Time) *domain.RouteResponse {
	return &domain.RouteResponse{
		RequestID:         uuid.NewString(),
		CalculatedAt:      time.Now().UTC(),
		CalculationTimeMS: float64(time.Since(started).Microseconds()) / 1000,
		PrimaryRoute:      nil,
		Alternatives:      []domain.DetailedRoute{},
		AlgorithmUsed:     pathfind.AlgorithmDijkstra,
		Criteria:          req.Criteria,
		RoutesEvaluated:   1,
		Diagnostics:       s.diagnoseNoRoute(g, req),
	}
}

// diagnoseNoRoute объясняет, почему пара портов оказалась несвязной
func (s *Service) diagnoseNoRoute(g *domain.PortGraph, req *domain.RouteRequest) []string {
	diags := []string{fmt.Sprintf(
		"no feasible route from %s to %s within %d connecting ports",
		req.OriginPort, req.DestinationPort, req.MaxConnectingPorts)}

	v := req.Vessel
	for _, code := range []string{req.OriginPort, req.DestinationPort} {
		p, ok := g.Port(code)
		if !ok {
			diags = append(diags, fmt.Sprintf("port %s is not part of the current graph", code))
			continue
		}
		if p.MaxVesselDraft > 0 && v.Draft > p.MaxVesselDraft {
			diags = append(diags, fmt.Sprintf(
				"vessel draft %.1f m exceeds %.1f m limit at %s", v.Draft, p.MaxVesselDraft, code))
		}
		if p.MaxVesselLength > 0 && v.Length > p.MaxVesselLength {
			diags = append(diags, fmt.Sprintf(
				"vessel length %.0f m exceeds %.0f m limit at %s", v.Length, p.MaxVesselLength, code))
		}
		if p.MaxVesselBeam > 0 && v.Beam > p.MaxVesselBeam {
			diags = append(diags, fmt.Sprintf(
				"vessel beam %.1f m exceeds %.1f m limit at %s", v.Beam, p.MaxVesselBeam, code))
		}
	}

	if !v.SuezCompatible {
		diags = append(diags, "Suez Canal segments are excluded: vessel is not Suez compatible")
	}
	if !v.PanamaCompatible {
		diags = append(diags, "Panama Canal segments are excluded: vessel is not Panama compatible")
	}
	if req.MaxConnectingPorts < domain.ConnectingPortsCap {
		diags = append(diags, fmt.Sprintf(
			"raising max_connecting_ports above %d may open longer itineraries", req.MaxConnectingPorts))
	}

	return diags
}

// cachedRoute читает ответ из кэша. Ошибки кэша деградируют до промаха
func (s *Service) cachedRoute(ctx context.Context, fp string) (*domain.RouteResponse, bool) {
	if s.routes == nil {
		return nil, false
	}
	cctx, cancel := context.WithTimeout(ctx, s.cacheTimeout)
	defer cancel()

	resp, ok, err := s.routes.GetRoute(cctx, fp)
	if err != nil {
		logger.Warn("route cache lookup failed", "fingerprint", fp, "error", err)
		metrics.Get().RecordCacheOperation("route", "error")
		return nil, false
	}
	return resp, ok
}

// storeRoute сохраняет ответ в кэш вне дедлайна запроса
func (s *Service) storeRoute(ctx context.Context, fp string, resp *domain.RouteResponse) {
	if s.routes == nil {
		return
	}
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cacheTimeout)
	defer cancel()

	if err := s.routes.SetRoute(cctx, fp, resp); err != nil {
		logger.Warn("failed to cache route response", "fingerprint", fp, "error", err)
		metrics.Get().RecordCacheOperation("route", "error")
	}
}

// effectiveTimeout возвращает дедлайн запроса: min(запрошенный, потолок)
func (s *Service) effectiveTimeout(req *domain.RouteRequest) time.Duration {
	if req.TimeoutSeconds > 0 {
		requested := time.Duration(req.TimeoutSeconds * float64(time.Second))
		if requested < s.requestTimeout {
			return requested
		}
	}
	return s.requestTimeout
}

// normalizeRequest приводит коды к верхнему регистру и подставляет дефолты
func normalizeRequest(req *domain.RouteRequest) {
	req.OriginPort = strings.ToUpper(strings.TrimSpace(req.OriginPort))
	req.DestinationPort = strings.ToUpper(strings.TrimSpace(req.DestinationPort))
	req.ApplyDefaults()
}

// deadlineError переводит ошибку контекста в ошибку уровня приложения
func deadlineError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.ErrDeadline
	}
	return apperror.ErrCancelled
}
