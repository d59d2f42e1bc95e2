package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Стандартные ключи атрибутов
const (
	// Маршрут
	AttrRouteOrigin      = "route.origin"
	AttrRouteDestination = "route.destination"
	AttrRouteCriteria    = "route.criteria"
	AttrRouteFingerprint = "route.fingerprint"
	AttrRouteDistanceNM  = "route.distance_nm"
	AttrRouteHops        = "route.hops"
	AttrRouteCacheHit    = "route.cache_hit"

	// Алгоритм
	AttrAlgorithm       = "algorithm.name"
	AttrExpansions      = "algorithm.expansions"
	AttrRoutesEvaluated = "algorithm.routes_evaluated"
	AttrAlternatives    = "algorithm.alternatives"

	// Граф портов
	AttrGraphVersion = "graph.version"
	AttrGraphNodes   = "graph.nodes"
	AttrGraphEdges   = "graph.edges"

	// Валидация
	AttrValidationErrors = "validation.errors"
	AttrValidationPassed = "validation.passed"
)

// RouteAttributes возвращает атрибуты запроса маршрута
func RouteAttributes(origin, destination, criteria, fingerprint string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrRouteOrigin, origin),
		attribute.String(AttrRouteDestination, destination),
		attribute.String(AttrRouteCriteria, criteria),
		attribute.String(AttrRouteFingerprint, fingerprint),
	}
}

// AlgorithmAttributes возвращает атрибуты алгоритма поиска
func AlgorithmAttributes(name string, expansions, evaluated, alternatives int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrAlgorithm, name),
		attribute.Int(AttrExpansions, expansions),
		attribute.Int(AttrRoutesEvaluated, evaluated),
		attribute.Int(AttrAlternatives, alternatives),
	}
}

// GraphAttributes возвращает атрибуты снимка графа
func GraphAttributes(version string, nodes, edges int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrGraphVersion, version),
		attribute.Int(AttrGraphNodes, nodes),
		attribute.Int(AttrGraphEdges, edges),
	}
}

// ValidationAttributes возвращает атрибуты валидации
func ValidationAttributes(errorsCount int, passed bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrValidationErrors, errorsCount),
		attribute.Bool(AttrValidationPassed, passed),
	}
}
