package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"searoute/pkg/apperror"
	"searoute/pkg/cache"
	"searoute/pkg/domain"
	"searoute/pkg/logger"
	"searoute/pkg/metrics"
	"searoute/pkg/telemetry"
	"searoute/services/route-svc/internal/repository"
)

// Доля от габаритного лимита порта, с которой выдаётся предупреждение
const dimensionWarnRatio = 0.9

// resolveAndValidate проверяет запрос и разрешает оба порта.
// Валидация падает быстро, до любых вычислений
func (s *Service) resolveAndValidate(ctx context.Context, req *domain.RouteRequest) (*domain.Port, *domain.Port, error) {
	if err := s.structuralErrors(req); err != nil {
		return nil, nil, err
	}

	origin, err := s.resolveActivePort(ctx, req.OriginPort)
	if err != nil {
		return nil, nil, err
	}
	dest, err := s.resolveActivePort(ctx, req.DestinationPort)
	if err != nil {
		return nil, nil, err
	}

	return origin, dest, nil
}

// structuralErrors проверяет форму запроса без обращения к каталогу
func (s *Service) structuralErrors(req *domain.RouteRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return apperror.Wrap(err, apperror.CodeValidation, "malformed route request")
	}

	if !domain.CodePattern.MatchString(req.OriginPort) {
		return apperror.NewWithField(apperror.CodeInvalidPortCode,
			fmt.Sprintf("origin port code %q does not match UN/LOCODE format", req.OriginPort), "origin_port")
	}
	if !domain.CodePattern.MatchString(req.DestinationPort) {
		return apperror.NewWithField(apperror.CodeInvalidPortCode,
			fmt.Sprintf("destination port code %q does not match UN/LOCODE format", req.DestinationPort), "destination_port")
	}
	if req.OriginPort == req.DestinationPort {
		return apperror.ErrSamePort
	}
	if !req.Criteria.Valid() {
		return apperror.New(apperror.CodeInvalidCriterion,
			fmt.Sprintf("unknown optimization criteria %q", req.Criteria))
	}

	if errs := req.Vessel.Validate(); len(errs) > 0 {
		return apperror.Wrap(errs[0], apperror.CodeInvalidVessel, "invalid vessel constraints")
	}

	return nil
}

// resolveActivePort возвращает порт и проверяет, что он принимает суда
func (s *Service) resolveActivePort(ctx context.Context, code string) (*domain.Port, error) {
	p, err := s.resolvePort(ctx, code)
	if err != nil {
		return nil, err
	}
	if !p.Status.Operational() {
		return nil, apperror.New(apperror.CodePortInactive,
			fmt.Sprintf("port %s is %s and does not accept vessels", code, p.Status)).
			WithDetails("port", code)
	}
	return p, nil
}

// resolvePort ищет порт в кэше, затем в каталоге
func (s *Service) resolvePort(ctx context.Context, code string) (*domain.Port, error) {
	if s.routes != nil {
		cctx, cancel := context.WithTimeout(ctx, s.cacheTimeout)
		p, ok, err := s.routes.GetPort(cctx, code)
		cancel()
		if err == nil && ok {
			metrics.Get().RecordCacheOperation("port", "hit")
			return p, nil
		}
		if err != nil {
			logger.Warn("port cache lookup failed", "code", code, "error", err)
			metrics.Get().RecordCacheOperation("port", "error")
		} else {
			metrics.Get().RecordCacheOperation("port", "miss")
		}
	}

	rctx, cancel := context.WithTimeout(ctx, s.repoTimeout)
	defer cancel()

	p, err := s.repo.GetByCode(rctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrPortNotFound) {
			return nil, apperror.New(apperror.CodePortNotFound,
				fmt.Sprintf("port %s is not in the catalog", code)).
				WithDetails("port", code)
		}
		return nil, apperror.Wrap(err, apperror.CodeRepositoryUnavailable, "port catalog is unavailable")
	}

	if s.routes != nil {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cacheTimeout)
		defer cancel()
		if err := s.routes.SetPort(cctx, p); err != nil {
			logger.Warn("failed to cache port", "code", code, "error", err)
		}
	}

	return p, nil
}

// ValidateRoute проверяет запрос без расчёта маршрута. Результат кэшируется
// по тому же отпечатку, что и расчёт
func (s *Service) ValidateRoute(ctx context.Context, req *domain.RouteRequest) (*domain.ValidationResult, error) {
	if req == nil {
		return nil, apperror.ErrNilRequest
	}

	normalizeRequest(req)

	ctx, span := telemetry.StartSpan(ctx, "service.validate_route")
	defer span.End()

	fp := cache.Fingerprint(req)
	if s.routes != nil {
		cctx, cancel := context.WithTimeout(ctx, s.cacheTimeout)
		vr, ok, err := s.routes.GetValidation(cctx, fp)
		cancel()
		if err == nil && ok {
			metrics.Get().RecordCacheOperation("validation", "hit")
			return vr, nil
		}
		metrics.Get().RecordCacheOperation("validation", "miss")
	}

	verrs := apperror.NewValidationErrors()
	var suggestions []string

	if err := s.collectRequestIssues(ctx, req, verrs, &suggestions); err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	result := &domain.ValidationResult{
		Valid:       verrs.IsValid(),
		Errors:      verrs.ErrorMessages(),
		Warnings:    verrs.WarningMessages(),
		Suggestions: suggestions,
	}
	span.SetAttributes(telemetry.ValidationAttributes(len(result.Errors), result.Valid)...)

	if s.routes != nil {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cacheTimeout)
		defer cancel()
		if err := s.routes.SetValidation(cctx, fp, result); err != nil {
			logger.Warn("failed to cache validation result", "fingerprint", fp, "error", err)
		}
	}

	return result, nil
}

// collectRequestIssues наполняет коллекцию ошибок и предупреждений.
// Недоступность каталога возвращается как ошибка вызова, а не валидации
func (s *Service) collectRequestIssues(ctx context.Context, req *domain.RouteRequest, verrs *apperror.ValidationErrors, suggestions *[]string) error {
	if err := s.validate.Struct(req); err != nil {
		verrs.AddError(apperror.CodeValidation, err.Error())
	}

	codeFields := []struct {
		field string
		code  string
	}{
		{"origin_port", req.OriginPort},
		{"destination_port", req.DestinationPort},
	}
	for _, cf := range codeFields {
		if !domain.CodePattern.MatchString(cf.code) {
			verrs.AddErrorWithField(apperror.CodeInvalidPortCode,
				fmt.Sprintf("port code %q does not match UN/LOCODE format", cf.code), cf.field)
		}
	}
	if req.OriginPort == req.DestinationPort && domain.CodePattern.MatchString(req.OriginPort) {
		verrs.Add(apperror.ErrSamePort)
	}
	if !req.Criteria.Valid() {
		verrs.AddError(apperror.CodeInvalidCriterion,
			fmt.Sprintf("unknown optimization criteria %q", req.Criteria))
	}

	if req.Vessel == nil {
		verrs.AddError(apperror.CodeInvalidVessel, "vessel constraints are required")
	} else {
		for _, err := range req.Vessel.Validate() {
			verrs.AddError(apperror.CodeInvalidVessel, err.Error())
		}
	}

	if verrs.HasErrors() {
		return nil
	}

	for _, code := range []string{req.OriginPort, req.DestinationPort} {
		p, err := s.resolvePort(ctx, code)
		if err != nil {
			if apperror.Is(err, apperror.CodePortNotFound) {
				verrs.AddError(apperror.CodePortNotFound, fmt.Sprintf("port %s is not in the catalog", code))
				continue
			}
			return err
		}

		switch {
		case !p.Status.Operational():
			verrs.AddError(apperror.CodePortInactive,
				fmt.Sprintf("port %s is %s and does not accept vessels", code, p.Status))
		case p.Status == domain.PortStatusRestricted:
			verrs.AddWarning(apperror.CodePortInactive,
				fmt.Sprintf("port %s operates with restrictions", code))
		}

		if p.MaxVesselDraft > 0 && req.Vessel.Draft > p.MaxVesselDraft {
			verrs.AddError(apperror.CodeInvalidVessel,
				fmt.Sprintf("vessel draft %.1f m exceeds %.1f m limit at %s", req.Vessel.Draft, p.MaxVesselDraft, code))
		} else if p.MaxVesselDraft > 0 && req.Vessel.Draft >= dimensionWarnRatio*p.MaxVesselDraft {
			verrs.AddWarning(apperror.CodeInvalidVessel,
				fmt.Sprintf("vessel draft %.1f m is close to the %.1f m limit at %s", req.Vessel.Draft, p.MaxVesselDraft, code))
		}
	}

	if !req.Vessel.SuezCompatible {
		*suggestions = append(*suggestions,
			"vessel is not Suez compatible: routes between Europe and Asia will round the Cape of Good Hope")
	}
	if !req.Vessel.PanamaCompatible {
		*suggestions = append(*suggestions,
			"vessel is not Panama compatible: transpacific routes to the Atlantic will round Cape Horn")
	}
	if req.DepartureTime != nil && req.DepartureTime.Before(time.Now().Add(-time.Hour)) {
		verrs.AddWarning(apperror.CodeValidation, "departure time is in the past")
	}
	if req.MaxAlternatives > 5 {
		*suggestions = append(*suggestions,
			"large alternative counts increase calculation time; consider 3 or fewer")
	}

	return nil
}
