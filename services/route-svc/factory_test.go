// services/route-svc/factory_test.go
package routesvc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"searoute/pkg/apperror"
	"searoute/pkg/cache"
	"searoute/pkg/config"
	"searoute/pkg/domain"
	"searoute/services/route-svc/internal/assemble"
	"searoute/services/route-svc/internal/cost"
	"searoute/services/route-svc/internal/graphbuild"
	"searoute/services/route-svc/internal/pathfind"
	"searoute/services/route-svc/internal/repository"
	"searoute/services/route-svc/internal/service"
)

func loadCatalog(t *testing.T) []*domain.Port {
	t.Helper()

	ports, skipped, err := repository.LoadCatalogFile("../../data/ports.json")
	require.NoError(t, err)
	require.Zero(t, skipped, "seed catalog must not contain invalid ports")
	require.NotEmpty(t, ports)
	return ports
}

func newCatalogService(t *testing.T) *service.Service {
	t.Helper()

	s, err := NewBenchmarkService(context.Background(), loadCatalog(t))
	require.NoError(t, err)
	return s
}

// Вариант поверх того же каталога, но с включённым кэшем маршрутов
func newCachedCatalogService(t *testing.T) (*service.Service, *cache.RouteCache) {
	t.Helper()

	cfg := config.Defaults()
	repo := repository.NewMemoryPortRepository(loadCatalog(t))
	holder := graphbuild.NewHolder(
		graphbuild.NewBuilder(cfg.Graph, graphbuild.DefaultRiskTables()),
		repo,
	)
	_, err := holder.Rebuild(context.Background())
	require.NoError(t, err)

	mem := cache.NewMemoryCache(&cache.Options{MaxEntries: 1000, DefaultTTL: time.Minute})
	routes := cache.NewRouteCache(mem, cache.RouteCacheOptions{})

	model := cost.NewModel(cfg.Cost)
	s := service.New(cfg, service.Deps{
		Repo:      repo,
		Graphs:    holder,
		Finder:    pathfind.NewFinder(model, cfg.Pathfinder),
		Assembler: assemble.NewAssembler(model, cfg.Cost),
		Routes:    routes,
	})
	return s, routes
}

func catalogContainerVessel() *domain.VesselConstraints {
	return &domain.VesselConstraints{
		Type:              domain.VesselTypeContainer,
		Length:            300,
		Beam:              45,
		Draft:             14,
		DeadweightTonnage: 80000,
		CruiseSpeed:       18,
		MaxSpeed:          24,
		FuelType:          domain.FuelVLSFO,
		SuezCompatible:    true,
		PanamaCompatible:  true,
	}
}

func catalogTankerVessel() *domain.VesselConstraints {
	return &domain.VesselConstraints{
		Type:              domain.VesselTypeTanker,
		Length:            330,
		Beam:              60,
		Draft:             22,
		DeadweightTonnage: 150000,
		CruiseSpeed:       18,
		MaxSpeed:          24,
		FuelType:          domain.FuelVLSFO,
		SuezCompatible:    true,
		PanamaCompatible:  true,
	}
}

func TestCatalogRoute_BalancedAsiaEurope(t *testing.T) {
	s := newCatalogService(t)

	req := &domain.RouteRequest{
		OriginPort:      "SGSIN",
		DestinationPort: "NLRTM",
		Vessel:          catalogContainerVessel(),
		Criteria:        domain.CriterionBalanced,
	}

	resp, err := s.CalculateRoute(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, resp.PrimaryRoute)

	primary := resp.PrimaryRoute
	assert.Equal(t, []string{"SGSIN", "MYTPP", "DEBRV", "NLRTM"}, primary.PortCodes)
	assert.InDelta(t, 5721.3, primary.TotalDistanceNM, 10)
	assert.InDelta(t, 3856.8, primary.TotalFuelTons, 25)
	assert.Equal(t, pathfind.AlgorithmAStar, resp.AlgorithmUsed)
	assert.LessOrEqual(t, len(primary.PortCodes)-2, 3)

	require.Len(t, resp.Alternatives, 3)
	for _, alt := range resp.Alternatives {
		assert.Greater(t, alt.TotalFuelTons, primary.TotalFuelTons,
			"alternative %v must burn more fuel than the balanced primary", alt.PortCodes)
	}

	// Повторный расчёт даёт тот же маршрут
	again, err := s.CalculateRoute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, primary.PortCodes, again.PrimaryRoute.PortCodes)
	assert.InDelta(t, primary.TotalDistanceNM, again.PrimaryRoute.TotalDistanceNM, 1e-9)
}

func TestCatalogRoute_FastestTransPacific(t *testing.T) {
	s := newCatalogService(t)

	req := &domain.RouteRequest{
		OriginPort:      "CNSHA",
		DestinationPort: "USLAX",
		Vessel:          catalogContainerVessel(),
		Criteria:        domain.CriterionFastest,
	}

	resp, err := s.CalculateRoute(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, resp.PrimaryRoute)

	primary := resp.PrimaryRoute
	assert.Equal(t, []string{"CNSHA", "JPNGO", "USOAK", "USLAX"}, primary.PortCodes)
	assert.InDelta(t, 5722.6, primary.TotalDistanceNM, 10)
	assert.InDelta(t, 419.4, primary.TotalTimeHours, 5)
	assert.LessOrEqual(t, len(primary.PortCodes)-2, 2)
	assert.False(t, primary.UsesSuez)
	assert.False(t, primary.UsesPanama)
	assert.LessOrEqual(t, len(resp.Alternatives), 3)
}

func TestCatalogRoute_EconomicalTankerSuezFlag(t *testing.T) {
	s := newCatalogService(t)

	req := &domain.RouteRequest{
		OriginPort:      "AEJEA",
		DestinationPort: "BEANR",
		Vessel:          catalogTankerVessel(),
		Criteria:        domain.CriterionMostEconomical,
	}

	resp, err := s.CalculateRoute(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, resp.PrimaryRoute)

	primary := resp.PrimaryRoute
	assert.Equal(t, []string{"AEJEA", "BEANR"}, primary.PortCodes)
	assert.InDelta(t, 2789.7, primary.TotalDistanceNM, 10)
	assert.InDelta(t, 628905, primary.TotalCostUSD, 1500)
	assert.False(t, primary.UsesSuez)
	assert.Zero(t, primary.TotalCanalFeesUSD)

	// Запрет Суэца не меняет прямой маршрут, но меняет отпечаток запроса
	flipped := &domain.RouteRequest{
		OriginPort:      "AEJEA",
		DestinationPort: "BEANR",
		Vessel:          catalogTankerVessel(),
		Criteria:        domain.CriterionMostEconomical,
	}
	flipped.Vessel.SuezCompatible = false
	flipped.ApplyDefaults()
	base := &domain.RouteRequest{
		OriginPort:      "AEJEA",
		DestinationPort: "BEANR",
		Vessel:          catalogTankerVessel(),
		Criteria:        domain.CriterionMostEconomical,
	}
	base.ApplyDefaults()
	assert.NotEqual(t, cache.Fingerprint(base), cache.Fingerprint(flipped))

	flippedResp, err := s.CalculateRoute(context.Background(), flipped)
	require.NoError(t, err)
	require.NotNil(t, flippedResp.PrimaryRoute)
	assert.Equal(t, primary.PortCodes, flippedResp.PrimaryRoute.PortCodes)
	assert.InDelta(t, primary.TotalCostUSD, flippedResp.PrimaryRoute.TotalCostUSD, 1e-6)
}

func TestCatalogRoute_SuezFlagFlipMissesCache(t *testing.T) {
	s, _ := newCachedCatalogService(t)

	req := func(suez bool) *domain.RouteRequest {
		v := catalogTankerVessel()
		v.SuezCompatible = suez
		return &domain.RouteRequest{
			OriginPort:      "AEJEA",
			DestinationPort: "BEANR",
			Vessel:          v,
			Criteria:        domain.CriterionMostEconomical,
		}
	}

	first, err := s.CalculateRoute(context.Background(), req(true))
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := s.CalculateRoute(context.Background(), req(true))
	require.NoError(t, err)
	assert.True(t, second.CacheHit)

	// Смена флага судна даёт другой отпечаток: промах, затем попадание
	third, err := s.CalculateRoute(context.Background(), req(false))
	require.NoError(t, err)
	assert.False(t, third.CacheHit)

	fourth, err := s.CalculateRoute(context.Background(), req(false))
	require.NoError(t, err)
	assert.True(t, fourth.CacheHit)
	assert.Equal(t, third.RequestID, fourth.RequestID)
}

func TestCatalogRoute_UnknownPortNotCached(t *testing.T) {
	s, routes := newCachedCatalogService(t)

	req := &domain.RouteRequest{
		OriginPort:      "SGSIN",
		DestinationPort: "ZZZZZ",
		Vessel:          catalogContainerVessel(),
		Criteria:        domain.CriterionFastest,
	}

	_, err := s.CalculateRoute(context.Background(), req)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodePortNotFound))

	// Ошибка резолвинга не должна оставлять след в кэше маршрутов
	req.ApplyDefaults()
	_, ok, err := routes.GetRoute(context.Background(), cache.Fingerprint(req))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCatalogRoute_DeepDraftNoRoute(t *testing.T) {
	s := newCatalogService(t)

	v := catalogContainerVessel()
	v.Draft = 30

	resp, err := s.CalculateRoute(context.Background(), &domain.RouteRequest{
		OriginPort:      "SGSIN",
		DestinationPort: "NLRTM",
		Vessel:          v,
		Criteria:        domain.CriterionFastest,
	})
	require.NoError(t, err)

	assert.Nil(t, resp.PrimaryRoute)
	assert.Empty(t, resp.Alternatives)
	require.NotEmpty(t, resp.Diagnostics)
	assert.Contains(t, resp.Diagnostics[0], "no feasible route")
}
