package handlers

import _ "embed"

// OpenAPISpec встроенный OpenAPI документ сервиса, отдаётся через Swagger UI
//
//go:embed openapi.json
var OpenAPISpec []byte
