// services/route-svc/factory.go
package routesvc

import (
	"context"
	"fmt"

	"searoute/pkg/config"
	"searoute/pkg/domain"
	"searoute/services/route-svc/internal/assemble"
	"searoute/services/route-svc/internal/cost"
	"searoute/services/route-svc/internal/graphbuild"
	"searoute/services/route-svc/internal/pathfind"
	"searoute/services/route-svc/internal/repository"
	"searoute/services/route-svc/internal/service"
)

// NewBenchmarkService создаёт экземпляр сервиса поверх in-memory каталога
// для внешних бенчмарков и интеграционных тестов. Граф строится сразу,
// кэш отключён, чтобы измерять сам расчёт.
func NewBenchmarkService(ctx context.Context, ports []*domain.Port) (*service.Service, error) {
	cfg := config.Defaults()

	repo := repository.NewMemoryPortRepository(ports)
	holder := graphbuild.NewHolder(
		graphbuild.NewBuilder(cfg.Graph, graphbuild.DefaultRiskTables()),
		repo,
	)
	if _, err := holder.Rebuild(ctx); err != nil {
		return nil, fmt.Errorf("build port graph: %w", err)
	}

	model := cost.NewModel(cfg.Cost)
	return service.New(cfg, service.Deps{
		Repo:      repo,
		Graphs:    holder,
		Finder:    pathfind.NewFinder(model, cfg.Pathfinder),
		Assembler: assemble.NewAssembler(model, cfg.Cost),
	}), nil
}
