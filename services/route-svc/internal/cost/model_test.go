package cost

import (
	"math"
	"testing"

	"searoute/pkg/config"
	"searoute/pkg/domain"
)

func testCostConfig() config.CostConfig {
	return config.CostConfig{
		FuelPrices: map[string]float64{
			"vlsfo": 550, "mgo": 650, "lng": 400, "hfo": 450,
		},
		FuelBaseRates: map[string]float64{
			"container": 150, "tanker": 80, "bulk": 45, "general_cargo": 25,
		},
		DefaultBaseRate:  50,
		DefaultDWT:       30000,
		PortFeeBase:      5000,
		PortFeePerDWT:    0.10,
		SuezFeeBase:      100000,
		SuezFeePerDWT:    2.0,
		PanamaFeeBase:    80000,
		PanamaFeePerDWT:  1.5,
		NormTimeHours:    24,
		NormCostUSD:      100000,
		NormRisk:         100,
		EnvReferenceTons: 30,
	}
}

func testVessel() *domain.VesselConstraints {
	return &domain.VesselConstraints{
		Type:              domain.VesselTypeContainer,
		Length:            300,
		Beam:              45,
		Draft:             14,
		DeadweightTonnage: 80000,
		CruiseSpeed:       18,
		MaxSpeed:          24,
		FuelType:          domain.FuelVLSFO,
		SuezCompatible:    true,
		PanamaCompatible:  true,
	}
}

func seaEdge(dist float64) *domain.Edge {
	return &domain.Edge{
		From:          "AAAAA",
		To:            "BBBBB",
		DistanceNM:    dist,
		Kind:          domain.EdgeKindOpenSea,
		Congestion:    1.0,
		WeatherFactor: 1.0,
	}
}

func destPort() *domain.Port {
	return &domain.Port{Code: "BBBBB", CongestionFactor: 1.0}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestModel_EdgeCost_Time(t *testing.T) {
	m := NewModel(testCostConfig())

	// 360 nm на 18 узлах без факторов это ровно 20 часов
	c := m.EdgeCost(seaEdge(360), testVessel(), destPort())
	if !almostEqual(c.TimeHours, 20) {
		t.Errorf("TimeHours = %.4f, want 20", c.TimeHours)
	}
}

func TestModel_EdgeCost_SpeedCap(t *testing.T) {
	m := NewModel(testCostConfig())

	e := seaEdge(360)
	e.SpeedCapKnots = 9
	c := m.EdgeCost(e, testVessel(), destPort())

	// Ограничение скорости снижает эффективную скорость до 9 узлов
	if !almostEqual(c.TimeHours, 40) {
		t.Errorf("TimeHours = %.4f, want 40", c.TimeHours)
	}
}

func TestModel_EdgeCost_CongestionAndWeather(t *testing.T) {
	m := NewModel(testCostConfig())

	e := seaEdge(360)
	e.Congestion = 1.5
	e.WeatherFactor = 1.2
	c := m.EdgeCost(e, testVessel(), destPort())

	if !almostEqual(c.TimeHours, 20*1.5*1.2) {
		t.Errorf("TimeHours = %.4f, want %.4f", c.TimeHours, 20*1.5*1.2)
	}
}

func TestModel_EdgeCost_Fuel(t *testing.T) {
	m := NewModel(testCostConfig())

	c := m.EdgeCost(seaEdge(360), testVessel(), destPort())

	// 150 * (18/15)^3 * 20/24
	wantTons := 150 * math.Pow(18.0/15.0, 3) * (20.0 / 24.0)
	if !almostEqual(c.FuelTons, wantTons) {
		t.Errorf("FuelTons = %.4f, want %.4f", c.FuelTons, wantTons)
	}
	if !almostEqual(c.FuelCostUSD, wantTons*550) {
		t.Errorf("FuelCostUSD = %.2f, want %.2f", c.FuelCostUSD, wantTons*550)
	}
}

func TestModel_EdgeCost_UnknownVesselTypeUsesDefaultRate(t *testing.T) {
	m := NewModel(testCostConfig())

	v := testVessel()
	v.Type = domain.VesselTypeRoRo // нет в таблице
	c := m.EdgeCost(seaEdge(360), v, destPort())

	wantTons := 50 * math.Pow(18.0/15.0, 3) * (20.0 / 24.0)
	if !almostEqual(c.FuelTons, wantTons) {
		t.Errorf("FuelTons = %.4f, want %.4f", c.FuelTons, wantTons)
	}
}

func TestModel_EdgeCost_PortFees(t *testing.T) {
	m := NewModel(testCostConfig())

	p := destPort()
	p.CongestionFactor = 1.4
	c := m.EdgeCost(seaEdge(360), testVessel(), p)

	// 1.4 * (5000 + 0.10 * 80000)
	if !almostEqual(c.PortFeesUSD, 1.4*(5000+0.10*80000)) {
		t.Errorf("PortFeesUSD = %.2f, want %.2f", c.PortFeesUSD, 1.4*(5000+0.10*80000))
	}
}

func TestModel_EdgeCost_PortFees_DefaultDWT(t *testing.T) {
	m := NewModel(testCostConfig())

	v := testVessel()
	v.DeadweightTonnage = 0
	c := m.EdgeCost(seaEdge(360), v, destPort())

	if !almostEqual(c.PortFeesUSD, 5000+0.10*30000) {
		t.Errorf("PortFeesUSD = %.2f, want %.2f", c.PortFeesUSD, 5000+0.10*30000)
	}
}

func TestModel_EdgeCost_SuezFeesAndTransit(t *testing.T) {
	m := NewModel(testCostConfig())

	e := seaEdge(87)
	e.Kind = domain.EdgeKindCanalSuez
	c := m.EdgeCost(e, testVessel(), destPort())

	// 100000 + 2.0 * 80000
	if !almostEqual(c.CanalFeesUSD, 260000) {
		t.Errorf("CanalFeesUSD = %.2f, want 260000", c.CanalFeesUSD)
	}
	// DWT 80000 это средний класс: 14 часов транзита сверх хода
	wantTime := 87.0/18.0 + 14
	if !almostEqual(c.TimeHours, wantTime) {
		t.Errorf("TimeHours = %.4f, want %.4f", c.TimeHours, wantTime)
	}
}

func TestModel_EdgeCost_PanamaFees(t *testing.T) {
	m := NewModel(testCostConfig())

	e := seaEdge(44)
	e.Kind = domain.EdgeKindCanalPanama
	v := testVessel()
	v.DeadweightTonnage = 20000 // малый класс
	c := m.EdgeCost(e, v, destPort())

	if !almostEqual(c.CanalFeesUSD, 80000+1.5*20000) {
		t.Errorf("CanalFeesUSD = %.2f, want %.2f", c.CanalFeesUSD, 80000+1.5*20000)
	}
	wantTime := 44.0/18.0 + 8
	if !almostEqual(c.TimeHours, wantTime) {
		t.Errorf("TimeHours = %.4f, want %.4f", c.TimeHours, wantTime)
	}
}

func TestModel_CanalTransitHours_LargeClass(t *testing.T) {
	m := NewModel(testCostConfig())

	if h := m.canalTransitHours(domain.EdgeKindCanalSuez, 150000); h != 16 {
		t.Errorf("suez large class = %.0f, want 16", h)
	}
	if h := m.canalTransitHours(domain.EdgeKindCanalPanama, 150000); h != 12 {
		t.Errorf("panama large class = %.0f, want 12", h)
	}
	if h := m.canalTransitHours(domain.EdgeKindOpenSea, 150000); h != 0 {
		t.Errorf("open sea transit = %.0f, want 0", h)
	}
}

func TestModel_Scalar_Fastest(t *testing.T) {
	m := NewModel(testCostConfig())

	c := EdgeCost{TimeHours: 20, FuelCostUSD: 50000, Risk: 40}
	if got := m.Scalar(domain.CriterionFastest, c); !almostEqual(got, 20) {
		t.Errorf("fastest scalar = %.4f, want 20", got)
	}
}

func TestModel_Scalar_MostEconomical(t *testing.T) {
	m := NewModel(testCostConfig())

	c := EdgeCost{TimeHours: 20, FuelCostUSD: 50000, PortFeesUSD: 13000, CanalFeesUSD: 260000}
	if got := m.Scalar(domain.CriterionMostEconomical, c); !almostEqual(got, 323000) {
		t.Errorf("economical scalar = %.2f, want 323000", got)
	}
}

func TestModel_Scalar_MostReliable(t *testing.T) {
	m := NewModel(testCostConfig())

	c := EdgeCost{TimeHours: 20, Risk: 50}
	// 20 * 1.5^2
	if got := m.Scalar(domain.CriterionMostReliable, c); !almostEqual(got, 45) {
		t.Errorf("reliable scalar = %.4f, want 45", got)
	}
}

func TestModel_Scalar_Balanced(t *testing.T) {
	m := NewModel(testCostConfig())

	c := EdgeCost{TimeHours: 24, FuelCostUSD: 100000, Risk: 100}
	// 0.4*1 + 0.35*1 + 0.25*1
	if got := m.Scalar(domain.CriterionBalanced, c); !almostEqual(got, 1.0) {
		t.Errorf("balanced scalar = %.4f, want 1.0", got)
	}
}

func TestModel_HeuristicPerNM(t *testing.T) {
	m := NewModel(testCostConfig())
	v := testVessel()

	if got := m.HeuristicPerNM(domain.CriterionFastest, v); !almostEqual(got, 1.0/18.0) {
		t.Errorf("fastest heuristic = %.6f, want %.6f", got, 1.0/18.0)
	}
	if got := m.HeuristicPerNM(domain.CriterionBalanced, v); !almostEqual(got, 0.4/18.0/24.0) {
		t.Errorf("balanced heuristic = %.6f, want %.6f", got, 0.4/18.0/24.0)
	}
	if got := m.HeuristicPerNM(domain.CriterionMostEconomical, v); got != 0 {
		t.Errorf("economical heuristic = %.6f, want 0", got)
	}
}

func TestModel_HeuristicNeverOverestimates(t *testing.T) {
	m := NewModel(testCostConfig())
	v := testVessel()

	edges := []*domain.Edge{
		seaEdge(360),
		{DistanceNM: 500, Kind: domain.EdgeKindCoastal, Congestion: 2.0, WeatherFactor: 1.25},
		{DistanceNM: 87, Kind: domain.EdgeKindCanalSuez, SpeedCapKnots: 8, Congestion: 1.3, WeatherFactor: 1.0},
	}

	for _, criteria := range []domain.Criterion{domain.CriterionFastest, domain.CriterionBalanced, domain.CriterionMostReliable} {
		perNM := m.HeuristicPerNM(criteria, v)
		for _, e := range edges {
			actual := m.Scalar(criteria, m.EdgeCost(e, v, destPort()))
			if bound := perNM * e.DistanceNM; bound > actual+1e-9 {
				t.Errorf("%s: heuristic %.6f exceeds actual %.6f on %.0f nm", criteria, bound, actual, e.DistanceNM)
			}
		}
	}
}
