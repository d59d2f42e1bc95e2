package service

import (
	"context"
	"fmt"
	"time"

	"searoute/pkg/domain"
)

// Статусы здоровья сервиса и компонентов
const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// Health агрегирует состояние графа, каталога и кэша. Сервис считается
// деградировавшим, если хотя бы один компонент нездоров
func (s *Service) Health(ctx context.Context) *domain.HealthStatus {
	components := map[string]domain.ComponentHealth{
		"graph":      s.graphHealth(),
		"repository": s.repositoryHealth(ctx),
	}
	if s.routes != nil {
		components["cache"] = s.cacheHealth(ctx)
	}

	status := statusHealthy
	for _, c := range components {
		if c.Status != statusHealthy {
			status = statusDegraded
			break
		}
	}

	return &domain.HealthStatus{
		Status:        status,
		Version:       s.version,
		UptimeSeconds: time.Since(s.started).Seconds(),
		Components:    components,
	}
}

func (s *Service) graphHealth() domain.ComponentHealth {
	g, err := s.graphs.Current()
	if err != nil {
		return domain.ComponentHealth{Status: statusDegraded, Details: "graph is not built yet"}
	}
	return domain.ComponentHealth{
		Status: statusHealthy,
		Details: fmt.Sprintf("version %s, %d ports, %d edges, built %s",
			g.Version, g.NodeCount(), g.EdgeCount(), g.BuiltAt.Format(time.RFC3339)),
	}
}

func (s *Service) repositoryHealth(ctx context.Context) domain.ComponentHealth {
	rctx, cancel := context.WithTimeout(ctx, s.repoTimeout)
	defer cancel()

	if err := s.repo.HealthCheck(rctx); err != nil {
		return domain.ComponentHealth{Status: statusDegraded, Details: err.Error()}
	}
	return domain.ComponentHealth{Status: statusHealthy}
}

func (s *Service) cacheHealth(ctx context.Context) domain.ComponentHealth {
	cctx, cancel := context.WithTimeout(ctx, s.cacheTimeout)
	defer cancel()

	stats, err := s.routes.Stats(cctx)
	if err != nil {
		return domain.ComponentHealth{Status: statusDegraded, Details: err.Error()}
	}
	return domain.ComponentHealth{
		Status:  statusHealthy,
		Details: fmt.Sprintf("%s backend, %d keys", stats.Backend, stats.TotalKeys),
	}
}
