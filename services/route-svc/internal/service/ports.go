package service

import (
	"context"
	"errors"
	"strings"

	"searoute/pkg/apperror"
	"searoute/pkg/domain"
	"searoute/pkg/geo"
	"searoute/pkg/telemetry"
	"searoute/services/route-svc/internal/repository"
)

// SearchPorts ищет порты по коду или имени с ранжированием
func (s *Service) SearchPorts(ctx context.Context, query string, limit int) ([]domain.PortSearchResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.search_ports")
	defer span.End()

	rctx, cancel := context.WithTimeout(ctx, s.repoTimeout)
	defer cancel()

	results, err := s.repo.Search(rctx, query, limit)
	if err != nil {
		if errors.Is(err, repository.ErrQueryTooShort) {
			return nil, apperror.New(apperror.CodeValidation, "search query must be at least 2 characters").
				WithField("query")
		}
		telemetry.SetError(ctx, err)
		return nil, apperror.Wrap(err, apperror.CodeRepositoryUnavailable, "port catalog is unavailable")
	}
	return results, nil
}

// GetPort возвращает порт по коду UN/LOCODE
func (s *Service) GetPort(ctx context.Context, code string) (*domain.Port, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.get_port")
	defer span.End()

	code = strings.ToUpper(strings.TrimSpace(code))
	if !domain.CodePattern.MatchString(code) {
		return nil, apperror.NewWithField(apperror.CodeInvalidPortCode,
			"port code must be five latin letters", "code")
	}

	p, err := s.resolvePort(ctx, code)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}
	return p, nil
}

// NearbyPorts возвращает порты в радиусе от точки
func (s *Service) NearbyPorts(ctx context.Context, center geo.Point, radiusNM float64, limit int) ([]domain.PortSearchResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.nearby_ports")
	defer span.End()

	if center.Lat < -90 || center.Lat > 90 || center.Lon < -180 || center.Lon > 180 {
		return nil, apperror.New(apperror.CodeValidation, "coordinates out of range")
	}
	if radiusNM <= 0 {
		return nil, apperror.NewWithField(apperror.CodeValidation, "radius must be positive", "radius_nm")
	}

	rctx, cancel := context.WithTimeout(ctx, s.repoTimeout)
	defer cancel()

	results, err := s.repo.Nearby(rctx, center, radiusNM, limit)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, apperror.Wrap(err, apperror.CodeRepositoryUnavailable, "port catalog is unavailable")
	}
	return results, nil
}
