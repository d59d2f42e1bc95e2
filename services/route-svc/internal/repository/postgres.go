package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"searoute/pkg/database"
	"searoute/pkg/domain"
	"searoute/pkg/geo"
	"searoute/pkg/telemetry"
)

// Колонки таблицы ports в порядке сканирования
const portColumns = `code, name, country, lat, lon, port_type, operational_status, max_vessel_length, max_vessel_beam, max_vessel_draft, berth_count, congestion_factor, avg_port_stay_hours, services, suez_access, panama_access`

// PostgresPortRepository каталог портов в PostgreSQL
type PostgresPortRepository struct {
	db database.DB
}

// NewPostgresPortRepository создаёт репозиторий поверх пула соединений
func NewPostgresPortRepository(db database.DB) *PostgresPortRepository {
	return &PostgresPortRepository{db: db}
}

func (r *PostgresPortRepository) GetByCode(ctx context.Context, code string) (*domain.Port, error) {
	ctx, span := telemetry.StartSpan(ctx, "repository.GetByCode")
	defer span.End()

	query := fmt.Sprintf(`SELECT %s FROM ports WHERE code = $1`, portColumns)

	p, err := scanPort(r.db.QueryRow(ctx, query, strings.ToUpper(code)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPortNotFound
		}
		telemetry.SetError(ctx, err)
		return nil, fmt.Errorf("failed to get port: %w", err)
	}

	return p, nil
}

func (r *PostgresPortRepository) Search(ctx context.Context, query string, limit int) ([]domain.PortSearchResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "repository.Search")
	defer span.End()

	query = normalizeQuery(query)
	if len(query) < MinQueryLength {
		return nil, ErrQueryTooShort
	}
	limit = clampLimit(limit)

	// Дешёвые типы совпадений фильтруются на стороне базы,
	// итоговое ранжирование делается в Go общим кодом с memory-бэкендом
	sql := fmt.Sprintf(`SELECT %s FROM ports WHERE code = $1 OR name ILIKE $2`, portColumns)

	rows, err := r.db.Query(ctx, sql, strings.ToUpper(query), "%"+query+"%")
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, fmt.Errorf("failed to search ports: %w", err)
	}

	ports, err := collectPorts(rows)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	var results []domain.PortSearchResult
	for _, p := range ports {
		if res, ok := rankPort(p, query); ok {
			results = append(results, res)
		}
	}

	// Fuzzy требует редакционного расстояния, поэтому при пустой
	// выдаче перебираем весь каталог
	if len(results) == 0 {
		all, err := r.All(ctx)
		if err != nil {
			return nil, err
		}
		for _, p := range all {
			if res, ok := rankPort(p, query); ok {
				results = append(results, res)
			}
		}
	}

	sortResults(results)
	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

func (r *PostgresPortRepository) Nearby(ctx context.Context, center geo.Point, radiusNM float64, limit int) ([]domain.PortSearchResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "repository.Nearby")
	defer span.End()

	if radiusNM <= 0 {
		return nil, nil
	}
	limit = clampLimit(limit)

	// Грубый отсев по широтной полосе, точное расстояние считается в Go.
	// Долгота не фильтруется из-за перехода через 180-й меридиан.
	latSpan := radiusNM/60.0 + 1
	sql := fmt.Sprintf(`SELECT %s FROM ports WHERE lat BETWEEN $1 AND $2`, portColumns)

	rows, err := r.db.Query(ctx, sql, center.Lat-latSpan, center.Lat+latSpan)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, fmt.Errorf("failed to query nearby ports: %w", err)
	}

	ports, err := collectPorts(rows)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	var results []domain.PortSearchResult
	for _, p := range ports {
		d := geo.DistanceNM(center, p.Location)
		if d <= radiusNM {
			results = append(results, domain.PortSearchResult{
				Port:           p,
				RelevanceScore: 1.0,
				DistanceNM:     d,
				MatchType:      domain.MatchExactCode,
			})
		}
	}

	sortByDistance(results)
	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

func (r *PostgresPortRepository) All(ctx context.Context) ([]*domain.Port, error) {
	ctx, span := telemetry.StartSpan(ctx, "repository.All")
	defer span.End()

	sql := fmt.Sprintf(`SELECT %s FROM ports ORDER BY code`, portColumns)

	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, fmt.Errorf("failed to list ports: %w", err)
	}

	return collectPorts(rows)
}

func (r *PostgresPortRepository) Count(ctx context.Context) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repository.Count")
	defer span.End()

	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM ports`).Scan(&count); err != nil {
		telemetry.SetError(ctx, err)
		return 0, fmt.Errorf("failed to count ports: %w", err)
	}
	return count, nil
}

func (r *PostgresPortRepository) Version(ctx context.Context) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "repository.Version")
	defer span.End()

	var (
		count   int
		updated time.Time
	)
	sql := `SELECT COUNT(*), COALESCE(MAX(updated_at), 'epoch'::timestamptz) FROM ports`
	if err := r.db.QueryRow(ctx, sql).Scan(&count, &updated); err != nil {
		telemetry.SetError(ctx, err)
		return "", fmt.Errorf("failed to read catalog version: %w", err)
	}

	return fmt.Sprintf("%d-%d", count, updated.UTC().Unix()), nil
}

func (r *PostgresPortRepository) HealthCheck(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// ReplaceAll атомарно замещает содержимое каталога. Используется для
// первичного заполнения таблицы из JSON сида
func (r *PostgresPortRepository) ReplaceAll(ctx context.Context, ports []*domain.Port) error {
	ctx, span := telemetry.StartSpan(ctx, "repository.ReplaceAll")
	defer span.End()

	err := database.WithTransaction(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM ports`); err != nil {
			return fmt.Errorf("failed to clear ports: %w", err)
		}

		insert := fmt.Sprintf(`INSERT INTO ports (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`, portColumns)
		for _, p := range ports {
			services := p.Services
			if services == nil {
				services = []string{}
			}
			_, err := tx.Exec(ctx, insert,
				p.Code, p.Name, p.Country, p.Location.Lat, p.Location.Lon,
				p.Type.String(), p.Status.String(),
				p.MaxVesselLength, p.MaxVesselBeam, p.MaxVesselDraft, p.BerthCount,
				p.CongestionFactor, p.AvgPortStayHours, services,
				p.SuezAccess, p.PanamaAccess,
			)
			if err != nil {
				return fmt.Errorf("failed to insert port %s: %w", p.Code, err)
			}
		}
		return nil
	})
	if err != nil {
		telemetry.SetError(ctx, err)
		return err
	}

	return nil
}

// scanPort читает одну строку таблицы ports
func scanPort(row pgx.Row) (*domain.Port, error) {
	var (
		p        domain.Port
		portType string
		status   string
		services pgtype.Array[string]
	)

	err := row.Scan(
		&p.Code, &p.Name, &p.Country, &p.Location.Lat, &p.Location.Lon,
		&portType, &status,
		&p.MaxVesselLength, &p.MaxVesselBeam, &p.MaxVesselDraft, &p.BerthCount,
		&p.CongestionFactor, &p.AvgPortStayHours, &services,
		&p.SuezAccess, &p.PanamaAccess,
	)
	if err != nil {
		return nil, err
	}

	p.Type = domain.ParsePortType(portType)
	p.Status = domain.ParsePortStatus(status)
	p.Services = services.Elements

	return &p, nil
}

func collectPorts(rows pgx.Rows) ([]*domain.Port, error) {
	defer rows.Close()

	var ports []*domain.Port
	for rows.Next() {
		p, err := scanPort(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan port: %w", err)
		}
		ports = append(ports, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ports: %w", err)
	}

	return ports, nil
}
