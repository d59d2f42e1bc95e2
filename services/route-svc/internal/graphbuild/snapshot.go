package graphbuild

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"searoute/pkg/apperror"
	"searoute/pkg/domain"
	"searoute/pkg/logger"
	"searoute/pkg/metrics"
	"searoute/pkg/telemetry"
	"searoute/services/route-svc/internal/repository"
)

// Holder хранит текущий снапшот графа и координирует перестроения.
// Читатели получают иммутабельный снапшот без блокировок; при неудачном
// перестроении прежний снапшот остаётся активным
type Holder struct {
	builder *Builder
	repo    repository.PortRepository

	current atomic.Pointer[domain.PortGraph]
	seq     atomic.Int64
	group   singleflight.Group

	// версия каталога последнего успешного построения.
	// Читается и пишется только внутри single-flight
	catalogVersion string
}

// NewHolder создаёт холдер без построенного графа
func NewHolder(builder *Builder, repo repository.PortRepository) *Holder {
	return &Holder{builder: builder, repo: repo}
}

// Current возвращает актуальный снапшот графа.
// До первого успешного построения возвращает ErrGraphNotReady
func (h *Holder) Current() (*domain.PortGraph, error) {
	g := h.current.Load()
	if g == nil {
		return nil, apperror.ErrGraphNotReady
	}
	return g, nil
}

// Rebuild перестраивает граф из каталога, если версия каталога
// изменилась с прошлого построения. Конкурентные вызовы схлопываются
// в одно построение
func (h *Holder) Rebuild(ctx context.Context) (*domain.PortGraph, error) {
	g, err, _ := h.group.Do("rebuild", func() (any, error) {
		return h.rebuild(ctx)
	})
	if err != nil {
		return nil, err
	}
	return g.(*domain.PortGraph), nil
}

func (h *Holder) rebuild(ctx context.Context) (*domain.PortGraph, error) {
	started := time.Now()

	// Версия каталога недоступна: строим безусловно, прежняя логика
	catalogVersion, err := h.repo.Version(ctx)
	if err != nil {
		logger.Warn("catalog version unavailable, rebuilding unconditionally", "error", err)
		catalogVersion = ""
	}
	if g := h.current.Load(); g != nil && catalogVersion != "" && catalogVersion == h.catalogVersion {
		logger.Debug("catalog unchanged, keeping graph snapshot",
			"catalog_version", catalogVersion, "graph_version", g.Version)
		return g, nil
	}

	ports, err := h.repo.All(ctx)
	if err != nil {
		metrics.Get().RecordGraphBuild(false, time.Since(started), 0, 0)
		return nil, apperror.Wrap(err, apperror.CodeRepositoryUnavailable, "failed to load port catalog")
	}

	version := fmt.Sprintf("g%d-%s", h.seq.Add(1), started.UTC().Format("20060102T150405"))

	g, err := h.builder.Build(ctx, version, ports)
	if err != nil {
		metrics.Get().RecordGraphBuild(false, time.Since(started), 0, 0)
		logger.Error("graph rebuild failed, keeping previous snapshot", "error", err)
		return nil, err
	}

	h.current.Store(g)
	h.catalogVersion = catalogVersion
	metrics.Get().RecordGraphBuild(true, time.Since(started), g.NodeCount(), g.EdgeCount())

	return g, nil
}

// Run периодически сверяет версию каталога и перестраивает граф
// при её изменении, до отмены контекста
func (h *Holder) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			spanCtx, span := telemetry.StartSpan(ctx, "graph.rebuild")
			if _, err := h.Rebuild(spanCtx); err != nil {
				telemetry.SetError(spanCtx, err)
			}
			span.End()
		}
	}
}
