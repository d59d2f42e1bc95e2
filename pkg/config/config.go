// pkg/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config - главная структура конфигурации
type Config struct {
	App        AppConfig        `koanf:"app"`
	HTTP       HTTPConfig       `koanf:"http"`
	Log        LogConfig        `koanf:"log"`
	Metrics    MetricsConfig    `koanf:"metrics"`
	Tracing    TracingConfig    `koanf:"tracing"`
	Database   DatabaseConfig   `koanf:"database"`
	Cache      CacheConfig      `koanf:"cache"`
	RateLimit  RateLimitConfig  `koanf:"rate_limit"`
	Catalog    CatalogConfig    `koanf:"catalog"`
	Graph      GraphConfig      `koanf:"graph"`
	Pathfinder PathfinderConfig `koanf:"pathfinder"`
	Cost       CostConfig       `koanf:"cost"`
	Route      RouteConfig      `koanf:"route"`
}

// AppConfig - общие настройки приложения
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"` // development, staging, production
	Debug       bool   `koanf:"debug"`
}

// HTTPConfig - настройки HTTP сервера
type HTTPConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORS            CORSConfig    `koanf:"cors"`
}

// CORSConfig - настройки CORS
type CORSConfig struct {
	Enabled          bool     `koanf:"enabled"`
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

// LogConfig - настройки логирования
type LogConfig struct {
	Level      string `koanf:"level"`       // debug, info, warn, error
	Format     string `koanf:"format"`      // json, text
	Output     string `koanf:"output"`      // stdout, stderr, file
	FilePath   string `koanf:"file_path"`   // путь к файлу логов
	MaxSize    int    `koanf:"max_size"`    // MB
	MaxBackups int    `koanf:"max_backups"` // количество бэкапов
	MaxAge     int    `koanf:"max_age"`     // дней
	Compress   bool   `koanf:"compress"`
}

// MetricsConfig - настройки Prometheus метрик
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Port      int    `koanf:"port"`
	Path      string `koanf:"path"`
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`
}

// TracingConfig - настройки OpenTelemetry
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// DatabaseConfig - настройки базы данных каталога портов
type DatabaseConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Database        string        `koanf:"database"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// DSN возвращает строку подключения
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.Username, d.Password, d.Database, d.SSLMode,
	)
}

// CacheConfig - настройки кэширования
type CacheConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Driver     string        `koanf:"driver"` // redis, memory
	Host       string        `koanf:"host"`
	Port       int           `koanf:"port"`
	Password   string        `koanf:"password"`
	DB         int           `koanf:"db"`
	DefaultTTL time.Duration `koanf:"default_ttl"`
	MaxEntries int           `koanf:"max_entries"` // для in-memory
}

// Address возвращает адрес кэша
func (c CacheConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RateLimitConfig конфигурация rate limiting
type RateLimitConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Requests        int           `koanf:"requests"`
	Window          time.Duration `koanf:"window"`
	Strategy        string        `koanf:"strategy"`
	Backend         string        `koanf:"backend"`
	BurstSize       int           `koanf:"burst_size"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
	RedisAddr       string        `koanf:"redis_addr"`
}

// CatalogConfig - источник каталога портов
type CatalogConfig struct {
	Backend      string        `koanf:"backend"`   // memory, postgres
	DataFile     string        `koanf:"data_file"` // сид для in-memory backend
	QueryTimeout time.Duration `koanf:"query_timeout"`
}

// GraphConfig - параметры построения графа портов
type GraphConfig struct {
	KNearest        int           `koanf:"k_nearest"`
	KNNRadiusNM     float64       `koanf:"knn_radius_nm"`
	HubCount        int           `koanf:"hub_count"`
	HubRadiusNM     float64       `koanf:"hub_radius_nm"`
	HubSeeds        []string      `koanf:"hub_seeds"` // кураторский список хабов
	RebuildInterval time.Duration `koanf:"rebuild_interval"`
}

// PathfinderConfig - параметры поиска маршрутов
type PathfinderConfig struct {
	AltCostRatio        float64 `koanf:"alt_cost_ratio"`
	CancelCheckInterval int     `koanf:"cancel_check_interval"`
}

// CostConfig - таблицы констант модели стоимости.
// Формулы фиксированы, константы задаются конфигурацией
type CostConfig struct {
	FuelPrices       map[string]float64 `koanf:"fuel_prices"`      // USD за тонну по типу топлива
	FuelBaseRates    map[string]float64 `koanf:"fuel_base_rates"`  // тонн/сутки на 15 узлах по типу судна
	DefaultBaseRate  float64            `koanf:"default_base_rate"`
	DefaultDWT       float64            `koanf:"default_dwt"`
	PortFeeBase      float64            `koanf:"port_fee_base"`       // USD
	PortFeePerDWT    float64            `koanf:"port_fee_per_dwt"`    // USD за тонну DWT
	SuezFeeBase      float64            `koanf:"suez_fee_base"`       // USD
	SuezFeePerDWT    float64            `koanf:"suez_fee_per_dwt"`    // USD за тонну DWT
	PanamaFeeBase    float64            `koanf:"panama_fee_base"`     // USD
	PanamaFeePerDWT  float64            `koanf:"panama_fee_per_dwt"`  // USD за тонну DWT
	NormTimeHours    float64            `koanf:"norm_time_hours"`     // шкала нормализации времени
	NormCostUSD      float64            `koanf:"norm_cost_usd"`       // шкала нормализации стоимости
	NormRisk         float64            `koanf:"norm_risk"`           // шкала нормализации риска
	EnvReferenceTons float64            `koanf:"env_reference_tons"`  // делитель штрафа, тонн топлива на 1000 nm
}

// RouteConfig - лимиты и TTL координатора запросов
type RouteConfig struct {
	MaxConcurrentCalculations int           `koanf:"max_concurrent_calculations"`
	DefaultRequestTimeout     time.Duration `koanf:"default_request_timeout"`
	ComputeSlotWait           time.Duration `koanf:"compute_slot_wait"`
	RouteCacheTTL             time.Duration `koanf:"route_cache_ttl"`
	PortCacheTTL              time.Duration `koanf:"port_cache_ttl"`
	ValidationCacheTTL        time.Duration `koanf:"validation_cache_ttl"`
	CacheCallTimeout          time.Duration `koanf:"cache_call_timeout"`
}

// Validate проверяет конфигурацию
func (c *Config) Validate() error {
	var errs []string

	if c.App.Name == "" {
		errs = append(errs, "app.name is required")
	}

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Sprintf("http.port must be between 1 and 65535, got %d", c.HTTP.Port))
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of: debug, info, warn, error, got %s", c.Log.Level))
	}

	validBackends := map[string]bool{"memory": true, "postgres": true}
	if !validBackends[c.Catalog.Backend] {
		errs = append(errs, fmt.Sprintf("catalog.backend must be one of: memory, postgres, got %s", c.Catalog.Backend))
	}

	if c.Graph.KNearest <= 0 {
		errs = append(errs, "graph.k_nearest must be positive")
	}
	if c.Graph.KNNRadiusNM <= 0 || c.Graph.HubRadiusNM <= 0 {
		errs = append(errs, "graph radius caps must be positive")
	}
	if c.Graph.HubCount <= 0 {
		errs = append(errs, "graph.hub_count must be positive")
	}

	if c.Pathfinder.AltCostRatio < 1.0 {
		errs = append(errs, fmt.Sprintf("pathfinder.alt_cost_ratio must be >= 1.0, got %.2f", c.Pathfinder.AltCostRatio))
	}
	if c.Pathfinder.CancelCheckInterval <= 0 {
		errs = append(errs, "pathfinder.cancel_check_interval must be positive")
	}

	if c.Route.MaxConcurrentCalculations <= 0 {
		errs = append(errs, "route.max_concurrent_calculations must be positive")
	}
	if c.Route.DefaultRequestTimeout <= 0 {
		errs = append(errs, "route.default_request_timeout must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// IsDevelopment проверяет режим разработки
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "dev"
}

// IsProduction проверяет продакшн режим
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production" || c.App.Environment == "prod"
}
