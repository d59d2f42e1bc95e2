// Package swagger отдаёт Swagger UI и OpenAPI документ сервиса
package swagger

import (
	"crypto/sha256"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"searoute/pkg/logger"
)

// Config конфигурация Swagger UI
type Config struct {
	Title        string
	BasePath     string
	SpecPath     string
	DeepLinking  bool
	DocExpansion string
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		Title:        "SeaRoute API",
		BasePath:     "/swagger",
		SpecPath:     "/openapi.json",
		DeepLinking:  true,
		DocExpansion: "list",
	}
}

// Handler HTTP handler для Swagger UI и OpenAPI документа
type Handler struct {
	config   *Config
	spec     []byte
	specETag string
}

// NewHandler создаёт новый Swagger handler поверх готового OpenAPI документа
func NewHandler(cfg *Config, spec []byte) *Handler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Handler{
		config:   cfg,
		spec:     spec,
		specETag: fmt.Sprintf(`"%x"`, sha256.Sum256(spec)),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, h.config.BasePath)
	path = strings.TrimPrefix(path, "/")

	switch path {
	case "", "index.html":
		h.serveUI(w, r)
	case "openapi.json", "swagger.json":
		h.serveSpec(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) serveUI(w http.ResponseWriter, _ *http.Request) {
	data := struct {
		Title        string
		SpecURL      string
		DeepLinking  bool
		DocExpansion string
	}{
		Title:        h.config.Title,
		SpecURL:      h.config.BasePath + h.config.SpecPath,
		DeepLinking:  h.config.DeepLinking,
		DocExpansion: h.config.DocExpansion,
	}

	tmpl, err := template.New("swagger-ui").Parse(swaggerUITemplate)
	if err != nil {
		http.Error(w, "Template error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	if err := tmpl.Execute(w, data); err != nil {
		logger.Error("failed to execute swagger template", "error", err)
	}
}

func (h *Handler) serveSpec(w http.ResponseWriter, r *http.Request) {
	// Документ встроен в бинарь, ETag стабилен между рестартами
	if match := r.Header.Get("If-None-Match"); match == h.specETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("ETag", h.specETag)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := w.Write(h.spec); err != nil {
		logger.Error("failed to write openapi spec", "error", err)
	}
}

// RegisterRoutes регистрирует маршруты Swagger UI в существующем mux
func RegisterRoutes(mux *http.ServeMux, cfg *Config, spec []byte) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	mux.Handle(cfg.BasePath+"/", NewHandler(cfg, spec))
}

const swaggerUITemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
    <link rel="icon" type="image/png" href="https://unpkg.com/swagger-ui-dist@5/favicon-32x32.png" sizes="32x32">
    <style>
        html { box-sizing: border-box; overflow-y: scroll; }
        *, *:before, *:after { box-sizing: inherit; }
        body { margin: 0; padding: 0; background: #fafafa; }
        .swagger-ui .topbar { display: none; }
        .swagger-ui .info { margin: 20px 0; }
    </style>
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" charset="UTF-8"></script>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-standalone-preset.js" charset="UTF-8"></script>
    <script>
        window.onload = function() {
            window.ui = SwaggerUIBundle({
                url: "{{.SpecURL}}",
                dom_id: '#swagger-ui',
                deepLinking: {{.DeepLinking}},
                docExpansion: "{{.DocExpansion}}",
                presets: [SwaggerUIBundle.presets.apis, SwaggerUIStandalonePreset],
                plugins: [SwaggerUIBundle.plugins.DownloadUrl],
                layout: "StandaloneLayout",
                validatorUrl: null
            });
        };
    </script>
</body>
</html>`
