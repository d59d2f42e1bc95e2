// Package assemble разворачивает пути из графа в детализированные маршруты
// с посегментными метриками, агрегатами и оценками качества.
package assemble

import (
	"time"

	"github.com/google/uuid"

	"searoute/pkg/apperror"
	"searoute/pkg/config"
	"searoute/pkg/domain"
	"searoute/pkg/geo"
	"searoute/services/route-svc/internal/cost"
	"searoute/services/route-svc/internal/pathfind"
)

// Максимум точек большого круга на сегмент, включая концы
const maxWaypointsPerSegment = 32

// Шаг генерации промежуточных точек, морские мили
const waypointStepNM = 100.0

// Веса свёртки итоговой оценки по критерию оптимизации:
// эффективность, надёжность, экологичность
var overallWeights = map[domain.Criterion][3]float64{
	domain.CriterionFastest:        {0.6, 0.3, 0.1},
	domain.CriterionMostEconomical: {0.4, 0.2, 0.4},
	domain.CriterionMostReliable:   {0.3, 0.6, 0.1},
	domain.CriterionBalanced:       {1.0 / 3, 1.0 / 3, 1.0 / 3},
}

// Assembler собирает DetailedRoute из пути пассфайндера
type Assembler struct {
	model *cost.Model
	cfg   config.CostConfig
}

// NewAssembler создаёт сборщик поверх модели стоимости
func NewAssembler(model *cost.Model, cfg config.CostConfig) *Assembler {
	return &Assembler{model: model, cfg: cfg}
}

// Assemble разворачивает путь в детализированный маршрут. Портовые сборы
// начисляются в порту назначения каждого плеча, стоянка учитывается только
// в промежуточных портах: в конечном порту судно уже прибыло
func (a *Assembler) Assemble(g *domain.PortGraph, path pathfind.Path, v *domain.VesselConstraints, criteria domain.Criterion, departure *time.Time) (*domain.DetailedRoute, error) {
	route := &domain.DetailedRoute{
		RouteID:   uuid.NewString(),
		PortCodes: append([]string(nil), path.Codes...),
		Segments:  make([]domain.RouteSegment, 0, len(path.Edges)),
	}

	weightedRisk := 0.0

	for i, e := range path.Edges {
		fromPort, ok := g.Port(e.From)
		if !ok {
			return nil, apperror.New(apperror.CodeInternal, "route references port missing from graph").
				WithDetails("port", e.From)
		}
		toPort, ok := g.Port(e.To)
		if !ok {
			return nil, apperror.New(apperror.CodeInternal, "route references port missing from graph").
				WithDetails("port", e.To)
		}

		ec := a.model.EdgeCost(e, v, toPort)
		last := i == len(path.Edges)-1

		seg := domain.RouteSegment{
			FromPort:         e.From,
			ToPort:           e.To,
			Kind:             e.Kind,
			DistanceNM:       e.DistanceNM,
			TransitTimeHours: ec.TimeHours,
			FuelTons:         ec.FuelTons,
			FuelCostUSD:      ec.FuelCostUSD,
			PortFeesUSD:      ec.PortFeesUSD,
			CanalFeesUSD:     ec.CanalFeesUSD,
			WeatherRisk:      e.WeatherRisk,
			PiracyRisk:       e.PiracyRisk,
			PoliticalRisk:    e.PoliticalRisk,
			Waypoints:        segmentWaypoints(fromPort.Location, toPort.Location, e.DistanceNM),
		}
		if !last {
			seg.PortStayHours = toPort.AvgPortStayHours
		}

		route.Segments = append(route.Segments, seg)

		route.TotalDistanceNM += e.DistanceNM
		route.TotalTimeHours += ec.TimeHours + seg.PortStayHours
		route.TotalFuelTons += ec.FuelTons
		route.TotalFuelCostUSD += ec.FuelCostUSD
		route.TotalPortFeesUSD += ec.PortFeesUSD
		route.TotalCanalFeesUSD += ec.CanalFeesUSD

		weightedRisk += ec.Risk * e.DistanceNM

		switch e.Kind {
		case domain.EdgeKindCanalSuez:
			route.UsesSuez = true
		case domain.EdgeKindCanalPanama:
			route.UsesPanama = true
		}
	}

	route.TotalCostUSD = route.TotalFuelCostUSD + route.TotalPortFeesUSD + route.TotalCanalFeesUSD

	if route.TotalDistanceNM > 0 {
		route.RiskScore = weightedRisk / route.TotalDistanceNM
	}

	a.score(g, route, criteria)

	if departure != nil {
		eta := departure.Add(time.Duration(route.TotalTimeHours * float64(time.Hour)))
		route.EstimatedArrival = &eta
	}

	return route, nil
}

// score заполняет оценки качества маршрута
func (a *Assembler) score(g *domain.PortGraph, route *domain.DetailedRoute, criteria domain.Criterion) {
	route.EfficiencyScore = a.efficiency(g, route)
	route.ReliabilityScore = clampScore(100 - route.RiskScore)
	route.EnvironmentalScore = a.environmental(route)

	w, ok := overallWeights[criteria]
	if !ok {
		w = overallWeights[domain.CriterionBalanced]
	}
	route.OptimizationScore = clampScore(
		w[0]*route.EfficiencyScore + w[1]*route.ReliabilityScore + w[2]*route.EnvironmentalScore)
}

// efficiency сравнивает длину маршрута с прямой дугой большого круга
func (a *Assembler) efficiency(g *domain.PortGraph, route *domain.DetailedRoute) float64 {
	if len(route.PortCodes) < 2 || route.TotalDistanceNM <= 0 {
		return 0
	}
	origin, ok := g.Port(route.PortCodes[0])
	if !ok {
		return 0
	}
	dest, ok := g.Port(route.PortCodes[len(route.PortCodes)-1])
	if !ok {
		return 0
	}
	direct := geo.DistanceNM(origin.Location, dest.Location)
	return clampScore(100 * direct / route.TotalDistanceNM)
}

// environmental оценивает расход топлива на 1000 миль против эталона
func (a *Assembler) environmental(route *domain.DetailedRoute) float64 {
	if route.TotalDistanceNM <= 0 {
		return 0
	}
	reference := a.cfg.EnvReferenceTons
	if reference <= 0 {
		return 0
	}
	tonsPer1000NM := route.TotalFuelTons / route.TotalDistanceNM * 1000
	return clampScore(100 - tonsPer1000NM/reference)
}

// segmentWaypoints строит точки большого круга вдоль плеча, не более 32
func segmentWaypoints(from, to geo.Point, distanceNM float64) []geo.Point {
	n := int(distanceNM/waypointStepNM) + 1
	if n > maxWaypointsPerSegment-1 {
		n = maxWaypointsPerSegment - 1
	}
	return geo.Interpolate(from, to, n)
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
