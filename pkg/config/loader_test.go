package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader(WithConfigPaths()).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Check defaults
	if cfg.App.Name != "searoute" {
		t.Errorf("expected app name 'searoute', got %s", cfg.App.Name)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected HTTP port 8080, got %d", cfg.HTTP.Port)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Log.Level)
	}
	if cfg.Graph.KNearest != 8 {
		t.Errorf("expected k_nearest 8, got %d", cfg.Graph.KNearest)
	}
	if cfg.Graph.HubCount != 40 {
		t.Errorf("expected hub_count 40, got %d", cfg.Graph.HubCount)
	}
	if cfg.Pathfinder.CancelCheckInterval != 4096 {
		t.Errorf("expected cancel_check_interval 4096, got %d", cfg.Pathfinder.CancelCheckInterval)
	}
	if cfg.Route.MaxConcurrentCalculations != 64 {
		t.Errorf("expected 64 concurrent calculations, got %d", cfg.Route.MaxConcurrentCalculations)
	}
	if cfg.Route.RouteCacheTTL != 30*time.Minute {
		t.Errorf("expected route cache TTL 30m, got %v", cfg.Route.RouteCacheTTL)
	}
	if cfg.Cost.FuelPrices["vlsfo"] != 550 {
		t.Errorf("expected vlsfo price 550, got %v", cfg.Cost.FuelPrices["vlsfo"])
	}
	if len(cfg.Graph.HubSeeds) != 10 {
		t.Errorf("expected 10 hub seeds, got %d", len(cfg.Graph.HubSeeds))
	}
}

func TestLoader_LoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
app:
  name: custom-service
  version: 2.0.0
  environment: staging
http:
  port: 8090
log:
  level: debug
graph:
  k_nearest: 6
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	loader := NewLoader(WithConfigPaths(configPath))
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "custom-service" {
		t.Errorf("expected app name 'custom-service', got %s", cfg.App.Name)
	}
	if cfg.App.Version != "2.0.0" {
		t.Errorf("expected version '2.0.0', got %s", cfg.App.Version)
	}
	if cfg.HTTP.Port != 8090 {
		t.Errorf("expected port 8090, got %d", cfg.HTTP.Port)
	}
	if cfg.Graph.KNearest != 6 {
		t.Errorf("expected k_nearest 6, got %d", cfg.Graph.KNearest)
	}
	// Незатронутые ключи остаются дефолтными
	if cfg.Graph.HubCount != 40 {
		t.Errorf("expected default hub_count 40, got %d", cfg.Graph.HubCount)
	}
}

func TestLoader_LoadFromEnv(t *testing.T) {
	os.Setenv("SEAROUTE_APP_NAME", "env-service")
	os.Setenv("SEAROUTE_HTTP_PORT", "8099")
	os.Setenv("SEAROUTE_GRAPH_K_NEAREST", "12")
	defer func() {
		os.Unsetenv("SEAROUTE_APP_NAME")
		os.Unsetenv("SEAROUTE_HTTP_PORT")
		os.Unsetenv("SEAROUTE_GRAPH_K_NEAREST")
	}()

	cfg, err := NewLoader(WithConfigPaths()).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "env-service" {
		t.Errorf("expected app name 'env-service', got %s", cfg.App.Name)
	}
	if cfg.HTTP.Port != 8099 {
		t.Errorf("expected port 8099, got %d", cfg.HTTP.Port)
	}
	if cfg.Graph.KNearest != 12 {
		t.Errorf("expected k_nearest 12, got %d", cfg.Graph.KNearest)
	}
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
app:
  name: file-service
http:
  port: 8085
`
	os.WriteFile(configPath, []byte(configContent), 0644)

	// Env should override file
	os.Setenv("SEAROUTE_APP_NAME", "env-override")
	defer os.Unsetenv("SEAROUTE_APP_NAME")

	cfg, err := NewLoader(WithConfigPaths(configPath)).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "env-override" {
		t.Errorf("expected env override, got %s", cfg.App.Name)
	}
	// Port should come from file
	if cfg.HTTP.Port != 8085 {
		t.Errorf("expected port from file 8085, got %d", cfg.HTTP.Port)
	}
}

func TestLoader_SliceFromEnv(t *testing.T) {
	os.Setenv("SEAROUTE_GRAPH_HUB_SEEDS", "SGSIN, NLRTM,CNSHA")
	defer os.Unsetenv("SEAROUTE_GRAPH_HUB_SEEDS")

	cfg, err := NewLoader(WithConfigPaths()).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if len(cfg.Graph.HubSeeds) != 3 {
		t.Fatalf("expected 3 hub seeds, got %v", cfg.Graph.HubSeeds)
	}
	if cfg.Graph.HubSeeds[1] != "NLRTM" {
		t.Errorf("expected trimmed NLRTM, got %q", cfg.Graph.HubSeeds[1])
	}
}

func TestLoader_WithEnvPrefix(t *testing.T) {
	os.Setenv("CUSTOM_APP_NAME", "custom-prefix-service")
	defer os.Unsetenv("CUSTOM_APP_NAME")

	cfg, err := NewLoader(WithConfigPaths(), WithEnvPrefix("CUSTOM_")).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "custom-prefix-service" {
		t.Errorf("expected app name from custom prefix, got %s", cfg.App.Name)
	}
}

func TestMustLoad_Success(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("MustLoad panicked: %v", r)
		}
	}()

	cfg := MustLoad(WithConfigPaths())
	if cfg == nil {
		t.Fatal("expected config, got nil")
	}
}

func TestLoader_ConfigEnvVar(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "custom.yaml")

	os.WriteFile(configPath, []byte("app:\n  name: from-env-path\n"), 0644)
	os.Setenv("CONFIG_PATH", configPath)
	defer os.Unsetenv("CONFIG_PATH")

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "from-env-path" {
		t.Errorf("expected name from CONFIG_PATH file, got %s", cfg.App.Name)
	}
}
