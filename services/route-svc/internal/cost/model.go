package cost

import (
	"math"

	"searoute/pkg/config"
	"searoute/pkg/domain"
)

// Эталонная скорость кубической формулы расхода, узлы
const referenceSpeedKnots = 15.0

// Часы транзита каналов по классу дедвейта
const (
	dwtClassMediumMin = 50000.0
	dwtClassLargeMin  = 120000.0
)

var suezTransitHours = [3]float64{12, 14, 16}
var panamaTransitHours = [3]float64{8, 10, 12}

// EdgeCost разложение стоимости одного плеча для конкретного судна.
// Портовые сборы относятся к порту назначения плеча
type EdgeCost struct {
	TimeHours    float64 // ходовое время вместе с транзитом канала
	FuelTons     float64
	FuelCostUSD  float64
	PortFeesUSD  float64
	CanalFeesUSD float64
	Risk         float64 // [0, 100]
}

// MonetaryUSD возвращает суммарную денежную составляющую
func (c EdgeCost) MonetaryUSD() float64 {
	return c.FuelCostUSD + c.PortFeesUSD + c.CanalFeesUSD
}

// Model модель стоимости с табличными константами из конфигурации.
// Формулы фиксированы, все числа приходят из CostConfig
type Model struct {
	cfg config.CostConfig
}

// NewModel создаёт модель стоимости
func NewModel(cfg config.CostConfig) *Model {
	return &Model{cfg: cfg}
}

// EdgeCost считает разложение стоимости плеча.
// to это порт назначения плеча, его сборы входят в стоимость
func (m *Model) EdgeCost(e *domain.Edge, v *domain.VesselConstraints, to *domain.Port) EdgeCost {
	speed := v.CruiseSpeed
	if e.SpeedCapKnots > 0 && e.SpeedCapKnots < speed {
		speed = e.SpeedCapKnots
	}

	congestion := e.Congestion
	if congestion < 1.0 {
		congestion = 1.0
	}
	weather := e.WeatherFactor
	if weather < 1.0 {
		weather = 1.0
	}

	timeHours := e.DistanceNM / speed * congestion * weather
	timeHours += m.canalTransitHours(e.Kind, m.dwt(v))

	fuelTons := m.baseRate(v.Type) * math.Pow(speed/referenceSpeedKnots, 3) * (timeHours / 24)
	fuelCost := fuelTons * m.fuelPrice(v.FuelType)

	return EdgeCost{
		TimeHours:    timeHours,
		FuelTons:     fuelTons,
		FuelCostUSD:  fuelCost,
		PortFeesUSD:  m.PortFees(to, v),
		CanalFeesUSD: m.canalFees(e.Kind, m.dwt(v)),
		Risk:         e.Risk(),
	}
}

// Scalar сворачивает разложение в скаляр по критерию оптимизации
func (m *Model) Scalar(criteria domain.Criterion, c EdgeCost) float64 {
	switch criteria {
	case domain.CriterionFastest:
		return c.TimeHours
	case domain.CriterionMostEconomical:
		return c.MonetaryUSD()
	case domain.CriterionMostReliable:
		factor := 1 + c.Risk/100
		return c.TimeHours * factor * factor
	case domain.CriterionBalanced:
		return 0.4*c.TimeHours/m.cfg.NormTimeHours +
			0.35*c.MonetaryUSD()/m.cfg.NormCostUSD +
			0.25*c.Risk/m.cfg.NormRisk
	default:
		return c.TimeHours
	}
}

// HeuristicPerNM возвращает допустимую нижнюю оценку стоимости одной мили
// для A*. Оценка игнорирует денежную и рисковую составляющие, поэтому
// никогда не переоценивает остаток пути
func (m *Model) HeuristicPerNM(criteria domain.Criterion, v *domain.VesselConstraints) float64 {
	if v.CruiseSpeed <= 0 {
		return 0
	}
	minTimePerNM := 1 / v.CruiseSpeed

	switch criteria {
	case domain.CriterionFastest, domain.CriterionMostReliable:
		return minTimePerNM
	case domain.CriterionBalanced:
		return 0.4 * minTimePerNM / m.cfg.NormTimeHours
	default:
		return 0
	}
}

// PortFees возвращает сборы порта для судна
func (m *Model) PortFees(p *domain.Port, v *domain.VesselConstraints) float64 {
	congestion := p.CongestionFactor
	if congestion <= 0 {
		congestion = 1.0
	}
	return congestion * (m.cfg.PortFeeBase + m.cfg.PortFeePerDWT*m.dwt(v))
}

func (m *Model) dwt(v *domain.VesselConstraints) float64 {
	if v.DeadweightTonnage > 0 {
		return v.DeadweightTonnage
	}
	return m.cfg.DefaultDWT
}

func (m *Model) baseRate(t domain.VesselType) float64 {
	if rate, ok := m.cfg.FuelBaseRates[t.String()]; ok {
		return rate
	}
	return m.cfg.DefaultBaseRate
}

func (m *Model) fuelPrice(f domain.FuelType) float64 {
	if price, ok := m.cfg.FuelPrices[string(f)]; ok {
		return price
	}
	if price, ok := m.cfg.FuelPrices[string(domain.FuelVLSFO)]; ok {
		return price
	}
	return 0
}

func (m *Model) canalFees(kind domain.EdgeKind, dwt float64) float64 {
	switch kind {
	case domain.EdgeKindCanalSuez:
		return m.cfg.SuezFeeBase + m.cfg.SuezFeePerDWT*dwt
	case domain.EdgeKindCanalPanama:
		return m.cfg.PanamaFeeBase + m.cfg.PanamaFeePerDWT*dwt
	default:
		return 0
	}
}

func (m *Model) canalTransitHours(kind domain.EdgeKind, dwt float64) float64 {
	class := 0
	switch {
	case dwt >= dwtClassLargeMin:
		class = 2
	case dwt >= dwtClassMediumMin:
		class = 1
	}

	switch kind {
	case domain.EdgeKindCanalSuez:
		return suezTransitHours[class]
	case domain.EdgeKindCanalPanama:
		return panamaTransitHours[class]
	default:
		return 0
	}
}
