package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"searoute/pkg/domain"
	"searoute/pkg/logger"
)

// RouteCache типизированная обёртка над Cache для результатов расчёта маршрутов,
// данных портов и результатов валидации. Хранит значения как JSON.
type RouteCache struct {
	cache Cache

	routeTTL      time.Duration
	portTTL       time.Duration
	validationTTL time.Duration
}

// RouteCacheOptions настройки TTL для типизированного кэша
type RouteCacheOptions struct {
	RouteTTL      time.Duration
	PortTTL       time.Duration
	ValidationTTL time.Duration
}

// NewRouteCache создаёт типизированный кэш поверх базового
func NewRouteCache(c Cache, opts RouteCacheOptions) *RouteCache {
	if opts.RouteTTL <= 0 {
		opts.RouteTTL = 30 * time.Minute
	}
	if opts.PortTTL <= 0 {
		opts.PortTTL = 24 * time.Hour
	}
	if opts.ValidationTTL <= 0 {
		opts.ValidationTTL = 5 * time.Minute
	}
	return &RouteCache{
		cache:         c,
		routeTTL:      opts.RouteTTL,
		portTTL:       opts.PortTTL,
		validationTTL: opts.ValidationTTL,
	}
}

// GetRoute возвращает закэшированный ответ по отпечатку запроса.
// При попадании cache_hit выставляется в true. Повреждённая запись
// удаляется и трактуется как промах.
func (c *RouteCache) GetRoute(ctx context.Context, fingerprint string) (*domain.RouteResponse, bool, error) {
	key := RouteKey(fingerprint)

	data, err := c.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var resp domain.RouteResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		logger.Warn("corrupt route cache entry, dropping", "key", key, "error", err)
		_ = c.cache.Delete(ctx, key)
		return nil, false, nil
	}

	resp.CacheHit = true
	return &resp, true, nil
}

// SetRoute сохраняет ответ. Перед сериализацией cache_hit сбрасывается,
// чтобы последующие чтения корректно помечались.
func (c *RouteCache) SetRoute(ctx context.Context, fingerprint string, resp *domain.RouteResponse) error {
	stored := *resp
	stored.CacheHit = false

	data, err := json.Marshal(&stored)
	if err != nil {
		return err
	}

	return c.cache.Set(ctx, RouteKey(fingerprint), data, c.routeTTL)
}

// GetPort возвращает закэшированный порт по коду
func (c *RouteCache) GetPort(ctx context.Context, code string) (*domain.Port, bool, error) {
	key := PortKey(code)

	data, err := c.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var p domain.Port
	if err := json.Unmarshal(data, &p); err != nil {
		logger.Warn("corrupt port cache entry, dropping", "key", key, "error", err)
		_ = c.cache.Delete(ctx, key)
		return nil, false, nil
	}

	return &p, true, nil
}

// SetPort сохраняет порт в кэше
func (c *RouteCache) SetPort(ctx context.Context, p *domain.Port) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.cache.Set(ctx, PortKey(p.Code), data, c.portTTL)
}

// GetValidation возвращает закэшированный результат валидации
func (c *RouteCache) GetValidation(ctx context.Context, fingerprint string) (*domain.ValidationResult, bool, error) {
	key := ValidationKey(fingerprint)

	data, err := c.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var vr domain.ValidationResult
	if err := json.Unmarshal(data, &vr); err != nil {
		_ = c.cache.Delete(ctx, key)
		return nil, false, nil
	}

	return &vr, true, nil
}

// SetValidation сохраняет результат валидации
func (c *RouteCache) SetValidation(ctx context.Context, fingerprint string, vr *domain.ValidationResult) error {
	data, err := json.Marshal(vr)
	if err != nil {
		return err
	}
	return c.cache.Set(ctx, ValidationKey(fingerprint), data, c.validationTTL)
}

// InvalidateRoutes удаляет все закэшированные маршруты (после перестройки графа)
func (c *RouteCache) InvalidateRoutes(ctx context.Context) (int64, error) {
	return c.cache.DeleteByPattern(ctx, routeKeyPrefix+"*")
}

// Stats проксирует статистику базового кэша
func (c *RouteCache) Stats(ctx context.Context) (*Stats, error) {
	return c.cache.Stats(ctx)
}
