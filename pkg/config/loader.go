package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix    = "SEAROUTE_"
	configEnvVar = "CONFIG_PATH"
)

// Loader загружает конфигурацию из разных источников
type Loader struct {
	k           *koanf.Koanf
	configPaths []string
	envPrefix   string
}

// NewLoader создаёт новый загрузчик конфигурации
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		k: koanf.New("."),
		configPaths: []string{
			"config.yaml",
			"config/config.yaml",
			"/etc/searoute/config.yaml",
		},
		envPrefix: envPrefix,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// LoaderOption - опция для конфигурации загрузчика
type LoaderOption func(*Loader)

// WithConfigPaths устанавливает пути поиска конфигурации
func WithConfigPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.configPaths = paths
	}
}

// WithEnvPrefix устанавливает префикс переменных окружения
func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// Load загружает конфигурацию с приоритетом:
// 1. Defaults (самый низкий)
// 2. Config file (yaml)
// 3. Environment variables (самый высокий)
func (l *Loader) Load() (*Config, error) {
	// 1. Загружаем значения по умолчанию
	if err := l.loadDefaults(); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Загружаем из файла конфигурации
	if err := l.loadConfigFile(); err != nil {
		// Файл не обязателен, логируем warning
		fmt.Printf("Warning: %v\n", err)
	}

	// 3. Загружаем из переменных окружения (перезаписывают файл)
	if err := l.loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}

	// 4. Распаковываем в структуру
	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 5. Валидируем
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDefaults загружает значения по умолчанию
func (l *Loader) loadDefaults() error {
	defaults := map[string]any{
		// App
		"app.name":        "searoute",
		"app.version":     "1.0.0",
		"app.environment": "development",
		"app.debug":       false,

		// HTTP
		"http.port":             8080,
		"http.read_timeout":     30 * time.Second,
		"http.write_timeout":    60 * time.Second,
		"http.shutdown_timeout": 10 * time.Second,

		"http.cors.enabled":           true,
		"http.cors.allowed_origins":   []string{"*"},
		"http.cors.allowed_methods":   []string{"GET", "POST", "OPTIONS"},
		"http.cors.allowed_headers":   []string{"Content-Type", "Authorization", "Accept", "Origin", "X-Requested-With", "X-Request-Id"},
		"http.cors.allow_credentials": false,
		"http.cors.max_age":           86400,

		// Log
		"log.level":       "info",
		"log.format":      "json",
		"log.output":      "stdout",
		"log.max_size":    100,
		"log.max_backups": 3,
		"log.max_age":     7,
		"log.compress":    true,

		// Metrics
		"metrics.enabled":   true,
		"metrics.port":      9090,
		"metrics.path":      "/metrics",
		"metrics.namespace": "searoute",
		"metrics.subsystem": "",

		// Tracing
		"tracing.enabled":      false,
		"tracing.endpoint":     "localhost:4317",
		"tracing.service_name": "searoute",
		"tracing.sample_rate":  0.1,

		// Database
		"database.host":               "localhost",
		"database.port":               5432,
		"database.database":           "searoute",
		"database.username":           "postgres",
		"database.password":           "",
		"database.ssl_mode":           "disable",
		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  5 * time.Minute,
		"database.conn_max_idle_time": 5 * time.Minute,
		"database.auto_migrate":       true,

		// Cache
		"cache.enabled":     true,
		"cache.driver":      "memory",
		"cache.host":        "localhost",
		"cache.port":        6379,
		"cache.db":          0,
		"cache.default_ttl": 30 * time.Minute,
		"cache.max_entries": 10000,

		// Rate Limit
		"rate_limit.enabled":          true,
		"rate_limit.requests":         100,
		"rate_limit.window":           time.Minute,
		"rate_limit.strategy":         "sliding_window",
		"rate_limit.backend":          "memory",
		"rate_limit.burst_size":       10,
		"rate_limit.cleanup_interval": 5 * time.Minute,

		// Catalog
		"catalog.backend":       "memory",
		"catalog.data_file":     "data/ports.json",
		"catalog.query_timeout": 200 * time.Millisecond,

		// Graph
		"graph.k_nearest":     8,
		"graph.knn_radius_nm": 1500.0,
		"graph.hub_count":     40,
		"graph.hub_radius_nm": 6000.0,
		"graph.hub_seeds": []string{
			"SGSIN", "NLRTM", "CNSHA", "AEJEA", "USLAX",
			"DEHAM", "HKHKG", "USPNY", "BEANR", "JPNGO",
		},
		"graph.rebuild_interval": 0 * time.Second, // 0 = только по версии каталога

		// Pathfinder
		"pathfinder.alt_cost_ratio":        1.5,
		"pathfinder.cancel_check_interval": 4096,

		// Cost model tables
		"cost.fuel_prices": map[string]float64{
			"vlsfo": 550,
			"mgo":   650,
			"lng":   400,
			"hfo":   450,
		},
		"cost.fuel_base_rates": map[string]float64{
			"container":     150,
			"tanker":        80,
			"bulk":          45,
			"general_cargo": 25,
		},
		"cost.default_base_rate":  50.0,
		"cost.default_dwt":        30000.0,
		"cost.port_fee_base":      5000.0,
		"cost.port_fee_per_dwt":   0.10,
		"cost.suez_fee_base":      100000.0,
		"cost.suez_fee_per_dwt":   2.0,
		"cost.panama_fee_base":    80000.0,
		"cost.panama_fee_per_dwt": 1.5,
		"cost.norm_time_hours":    24.0,
		"cost.norm_cost_usd":      100000.0,
		"cost.norm_risk":          100.0,
		"cost.env_reference_tons": 30.0,

		// Route coordinator
		"route.max_concurrent_calculations": 64,
		"route.default_request_timeout":     30 * time.Second,
		"route.compute_slot_wait":           2 * time.Second,
		"route.route_cache_ttl":             30 * time.Minute,
		"route.port_cache_ttl":              24 * time.Hour,
		"route.validation_cache_ttl":        5 * time.Minute,
		"route.cache_call_timeout":          50 * time.Millisecond,
	}

	return l.k.Load(confmap.Provider(defaults, "."), nil)
}

// loadConfigFile загружает конфигурацию из файла
func (l *Loader) loadConfigFile() error {
	if configPath := os.Getenv(configEnvVar); configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return l.k.Load(file.Provider(configPath), yaml.Parser())
		}
	}

	for _, path := range l.configPaths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			continue
		}

		if _, err := os.Stat(absPath); err == nil {
			return l.k.Load(file.Provider(absPath), yaml.Parser())
		}
	}

	return fmt.Errorf("config file not found in paths: %v", l.configPaths)
}

// loadEnv загружает конфигурацию из переменных окружения
// Использует умную трансформацию ключей для полей с подчёркиванием
func (l *Loader) loadEnv() error {
	return l.k.Load(env.ProviderWithValue(l.envPrefix, ".", func(envKey string, value string) (string, interface{}) {
		// Убираем префикс и приводим к нижнему регистру
		key := strings.ToLower(strings.TrimPrefix(envKey, l.envPrefix))

		// Маппинг для полей с подчёркиванием в именах
		if mappedKey, ok := envKeyMappings[key]; ok {
			key = mappedKey
		} else {
			// По умолчанию заменяем все подчёркивания на точки
			key = strings.ReplaceAll(key, "_", ".")
		}

		// Для slice-полей разбиваем по запятой
		if isSliceField(key) {
			return key, splitAndTrim(value)
		}

		return key, value
	}), nil)
}

// envKeyMappings - маппинг переменных окружения на ключи конфига
// Необходим для полей, содержащих подчёркивания в именах
var envKeyMappings = map[string]string{
	// HTTP CORS
	"http_cors_enabled":           "http.cors.enabled",
	"http_cors_allowed_origins":   "http.cors.allowed_origins",
	"http_cors_allowed_methods":   "http.cors.allowed_methods",
	"http_cors_allowed_headers":   "http.cors.allowed_headers",
	"http_cors_allow_credentials": "http.cors.allow_credentials",
	"http_cors_max_age":           "http.cors.max_age",

	// HTTP
	"http_port":             "http.port",
	"http_read_timeout":     "http.read_timeout",
	"http_write_timeout":    "http.write_timeout",
	"http_shutdown_timeout": "http.shutdown_timeout",

	// Database
	"database_host":               "database.host",
	"database_port":               "database.port",
	"database_database":           "database.database",
	"database_username":           "database.username",
	"database_password":           "database.password",
	"database_ssl_mode":           "database.ssl_mode",
	"database_max_open_conns":     "database.max_open_conns",
	"database_max_idle_conns":     "database.max_idle_conns",
	"database_conn_max_lifetime":  "database.conn_max_lifetime",
	"database_conn_max_idle_time": "database.conn_max_idle_time",
	"database_auto_migrate":       "database.auto_migrate",

	// Cache
	"cache_enabled":     "cache.enabled",
	"cache_driver":      "cache.driver",
	"cache_host":        "cache.host",
	"cache_port":        "cache.port",
	"cache_password":    "cache.password",
	"cache_db":          "cache.db",
	"cache_default_ttl": "cache.default_ttl",
	"cache_max_entries": "cache.max_entries",

	// Rate limit
	"rate_limit_enabled":          "rate_limit.enabled",
	"rate_limit_requests":         "rate_limit.requests",
	"rate_limit_window":           "rate_limit.window",
	"rate_limit_strategy":         "rate_limit.strategy",
	"rate_limit_backend":          "rate_limit.backend",
	"rate_limit_burst_size":       "rate_limit.burst_size",
	"rate_limit_cleanup_interval": "rate_limit.cleanup_interval",
	"rate_limit_redis_addr":       "rate_limit.redis_addr",

	// Log
	"log_level":       "log.level",
	"log_format":      "log.format",
	"log_output":      "log.output",
	"log_file_path":   "log.file_path",
	"log_max_size":    "log.max_size",
	"log_max_backups": "log.max_backups",
	"log_max_age":     "log.max_age",
	"log_compress":    "log.compress",

	// Catalog
	"catalog_backend":       "catalog.backend",
	"catalog_data_file":     "catalog.data_file",
	"catalog_query_timeout": "catalog.query_timeout",

	// Graph
	"graph_k_nearest":        "graph.k_nearest",
	"graph_knn_radius_nm":    "graph.knn_radius_nm",
	"graph_hub_count":        "graph.hub_count",
	"graph_hub_radius_nm":    "graph.hub_radius_nm",
	"graph_hub_seeds":        "graph.hub_seeds",
	"graph_rebuild_interval": "graph.rebuild_interval",

	// Pathfinder
	"pathfinder_alt_cost_ratio":        "pathfinder.alt_cost_ratio",
	"pathfinder_cancel_check_interval": "pathfinder.cancel_check_interval",

	// Cost
	"cost_default_base_rate":  "cost.default_base_rate",
	"cost_default_dwt":        "cost.default_dwt",
	"cost_port_fee_base":      "cost.port_fee_base",
	"cost_port_fee_per_dwt":   "cost.port_fee_per_dwt",
	"cost_suez_fee_base":      "cost.suez_fee_base",
	"cost_suez_fee_per_dwt":   "cost.suez_fee_per_dwt",
	"cost_panama_fee_base":    "cost.panama_fee_base",
	"cost_panama_fee_per_dwt": "cost.panama_fee_per_dwt",
	"cost_norm_time_hours":    "cost.norm_time_hours",
	"cost_norm_cost_usd":      "cost.norm_cost_usd",
	"cost_norm_risk":          "cost.norm_risk",
	"cost_env_reference_tons": "cost.env_reference_tons",

	// Route coordinator
	"route_max_concurrent_calculations": "route.max_concurrent_calculations",
	"route_default_request_timeout":     "route.default_request_timeout",
	"route_compute_slot_wait":           "route.compute_slot_wait",
	"route_route_cache_ttl":             "route.route_cache_ttl",
	"route_port_cache_ttl":              "route.port_cache_ttl",
	"route_validation_cache_ttl":        "route.validation_cache_ttl",
	"route_cache_call_timeout":          "route.cache_call_timeout",

	// Metrics
	"metrics_enabled":   "metrics.enabled",
	"metrics_port":      "metrics.port",
	"metrics_path":      "metrics.path",
	"metrics_namespace": "metrics.namespace",
	"metrics_subsystem": "metrics.subsystem",

	// Tracing
	"tracing_enabled":      "tracing.enabled",
	"tracing_endpoint":     "tracing.endpoint",
	"tracing_service_name": "tracing.service_name",
	"tracing_sample_rate":  "tracing.sample_rate",
}

// sliceFields - поля, которые должны парситься как слайсы
var sliceFields = map[string]bool{
	"http.cors.allowed_origins": true,
	"http.cors.allowed_methods": true,
	"http.cors.allowed_headers": true,
	"graph.hub_seeds":           true,
}

func isSliceField(key string) bool {
	return sliceFields[key]
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Defaults возвращает конфигурацию только из значений по умолчанию,
// без файлов и переменных окружения. Удобно для тестов и бенчмарков.
func Defaults() *Config {
	l := &Loader{k: koanf.New(".")}
	if err := l.loadDefaults(); err != nil {
		panic(fmt.Sprintf("failed to load default config: %v", err))
	}

	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// MustLoad загружает конфигурацию или паникует
func MustLoad(opts ...LoaderOption) *Config {
	cfg, err := NewLoader(opts...).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Load - удобная функция для загрузки с дефолтными настройками
func Load() (*Config, error) {
	return NewLoader().Load()
}
