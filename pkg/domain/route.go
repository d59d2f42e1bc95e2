package domain

import (
	"time"

	"searoute/pkg/geo"
)

// Criterion критерий оптимизации маршрута
type Criterion string

const (
	CriterionFastest        Criterion = "fastest"
	CriterionMostEconomical Criterion = "most_economical"
	CriterionMostReliable   Criterion = "most_reliable"
	CriterionBalanced       Criterion = "balanced"
)

// Valid проверяет, что критерий известен
func (c Criterion) Valid() bool {
	switch c {
	case CriterionFastest, CriterionMostEconomical, CriterionMostReliable, CriterionBalanced:
		return true
	}
	return false
}

// Лимиты запроса маршрута
const (
	DefaultMaxAlternatives = 3
	MaxAlternativesCap     = 10
	DefaultConnectingPorts = 2
	ConnectingPortsCap     = 8
)

// RouteRequest запрос расчёта маршрута
type RouteRequest struct {
	OriginPort         string             `json:"origin_port" validate:"required,len=5"`
	DestinationPort    string             `json:"destination_port" validate:"required,len=5"`
	Vessel             *VesselConstraints `json:"vessel" validate:"required"`
	Criteria           Criterion          `json:"optimization_criteria" validate:"required,oneof=fastest most_economical most_reliable balanced"`
	DepartureTime      *time.Time         `json:"departure_time,omitempty"`
	MaxAlternatives    int                `json:"max_alternative_routes,omitempty" validate:"omitempty,min=0,max=10"`
	MaxConnectingPorts int                `json:"max_connecting_ports,omitempty" validate:"omitempty,min=0,max=8"`
	TimeoutSeconds     float64            `json:"timeout_seconds,omitempty" validate:"omitempty,gte=0"`
}

// ApplyDefaults подставляет значения по умолчанию
func (r *RouteRequest) ApplyDefaults() {
	if r.MaxAlternatives == 0 {
		r.MaxAlternatives = DefaultMaxAlternatives
	}
	if r.MaxAlternatives > MaxAlternativesCap {
		r.MaxAlternatives = MaxAlternativesCap
	}
	if r.MaxConnectingPorts == 0 {
		r.MaxConnectingPorts = DefaultConnectingPorts
	}
	if r.MaxConnectingPorts > ConnectingPortsCap {
		r.MaxConnectingPorts = ConnectingPortsCap
	}
}

// RouteSegment плечо детализированного маршрута с метриками
type RouteSegment struct {
	FromPort         string      `json:"from_port"`
	ToPort           string      `json:"to_port"`
	Kind             EdgeKind    `json:"segment_type"`
	DistanceNM       float64     `json:"distance_nm"`
	TransitTimeHours float64     `json:"transit_time_hours"`
	FuelTons         float64     `json:"fuel_consumption_tons"`
	FuelCostUSD      float64     `json:"fuel_cost_usd"`
	PortFeesUSD      float64     `json:"port_fees_usd"`
	CanalFeesUSD     float64     `json:"canal_fees_usd"`
	PortStayHours    float64     `json:"port_stay_hours"`
	WeatherRisk      float64     `json:"weather_risk"`
	PiracyRisk       float64     `json:"piracy_risk"`
	PoliticalRisk    float64     `json:"political_risk"`
	Waypoints        []geo.Point `json:"waypoints,omitempty"`
}

// DetailedRoute полный маршрут: сегменты, агрегаты, оценки
type DetailedRoute struct {
	RouteID            string         `json:"route_id"`
	PortCodes          []string       `json:"port_codes"`
	Segments           []RouteSegment `json:"segments"`
	TotalDistanceNM    float64        `json:"total_distance_nm"`
	TotalTimeHours     float64        `json:"total_time_hours"`
	TotalFuelTons      float64        `json:"total_fuel_tons"`
	TotalFuelCostUSD   float64        `json:"total_fuel_cost_usd"`
	TotalPortFeesUSD   float64        `json:"total_port_fees_usd"`
	TotalCanalFeesUSD  float64        `json:"total_canal_fees_usd"`
	TotalCostUSD       float64        `json:"total_cost_usd"`
	EfficiencyScore    float64        `json:"efficiency_score"`
	ReliabilityScore   float64        `json:"reliability_score"`
	EnvironmentalScore float64        `json:"environmental_impact_score"`
	OptimizationScore  float64        `json:"overall_optimization_score"`
	RiskScore          float64        `json:"overall_risk_score"`
	UsesSuez           bool           `json:"uses_suez_canal"`
	UsesPanama         bool           `json:"uses_panama_canal"`
	EstimatedArrival   *time.Time     `json:"estimated_arrival,omitempty"`
}

// RouteResponse ответ на запрос расчёта
type RouteResponse struct {
	RequestID         string          `json:"request_id"`
	CalculatedAt      time.Time       `json:"calculated_at"`
	CalculationTimeMS float64         `json:"calculation_time_ms"`
	PrimaryRoute      *DetailedRoute  `json:"primary_route"`
	Alternatives      []DetailedRoute `json:"alternative_routes"`
	AlgorithmUsed     string          `json:"algorithm_used"`
	Criteria          Criterion       `json:"optimization_criteria"`
	RoutesEvaluated   int             `json:"routes_evaluated"`
	CacheHit          bool            `json:"cache_hit"`
	Diagnostics       []string        `json:"diagnostics,omitempty"`
}

// MatchType тип совпадения при поиске порта
type MatchType string

const (
	MatchExactCode     MatchType = "exact_code"
	MatchNamePrefix    MatchType = "name_prefix"
	MatchNameSubstring MatchType = "name_substring"
	MatchFuzzy         MatchType = "fuzzy"
)

// PortSearchResult найденный порт с релевантностью
type PortSearchResult struct {
	Port           *Port     `json:"port"`
	RelevanceScore float64   `json:"relevance_score"`
	DistanceNM     float64   `json:"distance_nm,omitempty"`
	MatchType      MatchType `json:"match_type"`
}

// ValidationResult результат проверки запроса без расчёта
type ValidationResult struct {
	Valid       bool     `json:"valid"`
	Errors      []string `json:"errors"`
	Warnings    []string `json:"warnings"`
	Suggestions []string `json:"suggestions"`
}

// ComponentHealth состояние одного компонента
type ComponentHealth struct {
	Status  string `json:"status"`
	Details string `json:"details,omitempty"`
}

// HealthStatus ответ эндпоинта /health
type HealthStatus struct {
	Status        string                     `json:"status"` // healthy, degraded
	Version       string                     `json:"version"`
	UptimeSeconds float64                    `json:"uptime_seconds"`
	Components    map[string]ComponentHealth `json:"components"`
}
