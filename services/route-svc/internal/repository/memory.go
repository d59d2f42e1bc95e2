package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"searoute/pkg/domain"
	"searoute/pkg/geo"
	"searoute/pkg/logger"
	"searoute/services/route-svc/internal/spatial"
)

// MemoryPortRepository каталог портов в памяти поверх пространственного индекса
type MemoryPortRepository struct {
	index   *spatial.Index
	version string
}

// NewMemoryPortRepository создаёт репозиторий из готового списка портов
func NewMemoryPortRepository(ports []*domain.Port) *MemoryPortRepository {
	index := spatial.NewIndex(ports)
	return &MemoryPortRepository{index: index, version: catalogDigest(index)}
}

// NewMemoryPortRepositoryFromFile загружает каталог из JSON файла
func NewMemoryPortRepositoryFromFile(path string) (*MemoryPortRepository, error) {
	ports, skipped, err := LoadCatalogFile(path)
	if err != nil {
		return nil, err
	}

	logger.Info("port catalog loaded", "path", path, "ports", len(ports), "skipped", skipped)

	return NewMemoryPortRepository(ports), nil
}

// LoadCatalogFile читает и валидирует JSON каталог портов.
// Порты с невалидными данными отбрасываются с предупреждением
func LoadCatalogFile(path string) ([]*domain.Port, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read port catalog: %w", err)
	}

	var ports []*domain.Port
	if err := json.Unmarshal(data, &ports); err != nil {
		return nil, 0, fmt.Errorf("failed to parse port catalog: %w", err)
	}

	valid := make([]*domain.Port, 0, len(ports))
	for _, p := range ports {
		if errs := p.Validate(); len(errs) > 0 {
			logger.Warn("skipping invalid port in catalog", "code", p.Code, "errors", len(errs))
			continue
		}
		valid = append(valid, p)
	}

	return valid, len(ports) - len(valid), nil
}

// catalogDigest считает отпечаток содержимого каталога по полям,
// влияющим на граф
func catalogDigest(index *spatial.Index) string {
	h := sha256.New()
	for _, p := range index.All() {
		fmt.Fprintf(h, "%s|%.6f|%.6f|%s|%.2f|%.2f|%.2f|%.2f\n",
			p.Code, p.Location.Lat, p.Location.Lon, p.Status,
			p.MaxVesselLength, p.MaxVesselBeam, p.MaxVesselDraft, p.CongestionFactor)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func (r *MemoryPortRepository) GetByCode(ctx context.Context, code string) (*domain.Port, error) {
	p, ok := r.index.ByCode(code)
	if !ok {
		return nil, ErrPortNotFound
	}
	return p, nil
}

func (r *MemoryPortRepository) Search(ctx context.Context, query string, limit int) ([]domain.PortSearchResult, error) {
	query = normalizeQuery(query)
	if len(query) < MinQueryLength {
		return nil, ErrQueryTooShort
	}
	limit = clampLimit(limit)

	var results []domain.PortSearchResult
	for _, p := range r.index.All() {
		if res, ok := rankPort(p, query); ok {
			results = append(results, res)
		}
	}

	sortResults(results)
	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

func (r *MemoryPortRepository) Nearby(ctx context.Context, center geo.Point, radiusNM float64, limit int) ([]domain.PortSearchResult, error) {
	limit = clampLimit(limit)

	neighbors := r.index.Nearby(center, radiusNM)
	if len(neighbors) > limit {
		neighbors = neighbors[:limit]
	}

	results := make([]domain.PortSearchResult, 0, len(neighbors))
	for _, n := range neighbors {
		results = append(results, domain.PortSearchResult{
			Port:           n.Port,
			RelevanceScore: 1.0,
			DistanceNM:     n.DistanceNM,
			MatchType:      domain.MatchExactCode,
		})
	}

	return results, nil
}

func (r *MemoryPortRepository) All(ctx context.Context) ([]*domain.Port, error) {
	return r.index.All(), nil
}

func (r *MemoryPortRepository) Count(ctx context.Context) (int, error) {
	return r.index.Len(), nil
}

func (r *MemoryPortRepository) Version(ctx context.Context) (string, error) {
	return r.version, nil
}

func (r *MemoryPortRepository) HealthCheck(ctx context.Context) error {
	if r.index.Len() == 0 {
		return fmt.Errorf("port catalog is empty")
	}
	return nil
}

// Index возвращает пространственный индекс (используется построителем графа)
func (r *MemoryPortRepository) Index() *spatial.Index {
	return r.index
}
