package graphbuild

import (
	"searoute/pkg/geo"
)

// WeatherBand широтная полоса с погодным множителем времени
type WeatherBand struct {
	MinAbsLat float64 `koanf:"min_abs_lat"`
	Factor    float64 `koanf:"factor"` // множитель времени, >= 1.0
	Risk      float64 `koanf:"risk"`   // [0, 100]
}

// RiskRegion географический регион с повышенным риском
type RiskRegion struct {
	Name          string  `koanf:"name"`
	MinLat        float64 `koanf:"min_lat"`
	MaxLat        float64 `koanf:"max_lat"`
	MinLon        float64 `koanf:"min_lon"`
	MaxLon        float64 `koanf:"max_lon"`
	PiracyRisk    float64 `koanf:"piracy_risk"`    // [0, 100]
	PoliticalRisk float64 `koanf:"political_risk"` // [0, 100]
}

// Contains проверяет попадание точки в регион
func (r *RiskRegion) Contains(p geo.Point) bool {
	return p.Lat >= r.MinLat && p.Lat <= r.MaxLat &&
		p.Lon >= r.MinLon && p.Lon <= r.MaxLon
}

// RiskTables статические таблицы погодных и региональных рисков.
// Подаются на вход построителю графа как часть конфигурации
type RiskTables struct {
	Weather []WeatherBand `koanf:"weather"`
	Regions []RiskRegion  `koanf:"regions"`
}

// DefaultRiskTables возвращает таблицы по умолчанию
func DefaultRiskTables() RiskTables {
	return RiskTables{
		// Полосы проверяются сверху вниз, первая подходящая выигрывает
		Weather: []WeatherBand{
			{MinAbsLat: 55, Factor: 1.25, Risk: 45},
			{MinAbsLat: 40, Factor: 1.12, Risk: 30},
			{MinAbsLat: 23.5, Factor: 1.03, Risk: 12},
			{MinAbsLat: 0, Factor: 1.08, Risk: 20}, // тропики, сезон циклонов
		},
		Regions: []RiskRegion{
			{Name: "gulf_of_aden", MinLat: 9, MaxLat: 16, MinLon: 42, MaxLon: 55, PiracyRisk: 65, PoliticalRisk: 45},
			{Name: "red_sea", MinLat: 12, MaxLat: 30, MinLon: 32, MaxLon: 44, PiracyRisk: 40, PoliticalRisk: 55},
			{Name: "gulf_of_guinea", MinLat: -5, MaxLat: 8, MinLon: -10, MaxLon: 10, PiracyRisk: 70, PoliticalRisk: 35},
			{Name: "malacca_strait", MinLat: -2, MaxLat: 8, MinLon: 95, MaxLon: 105, PiracyRisk: 45, PoliticalRisk: 15},
			{Name: "south_china_sea", MinLat: 2, MaxLat: 22, MinLon: 105, MaxLon: 120, PiracyRisk: 30, PoliticalRisk: 25},
			{Name: "persian_gulf", MinLat: 23, MaxLat: 30, MinLon: 47, MaxLon: 58, PiracyRisk: 20, PoliticalRisk: 50},
		},
	}
}

// weatherAt возвращает погодный множитель и риск для точки
func (t RiskTables) weatherAt(p geo.Point) (factor, risk float64) {
	absLat := p.Lat
	if absLat < 0 {
		absLat = -absLat
	}
	for _, band := range t.Weather {
		if absLat >= band.MinAbsLat {
			return band.Factor, band.Risk
		}
	}
	return 1.0, 0
}

// regionalAt возвращает максимальные пиратский и политический риски
// по всем регионам, содержащим точку
func (t RiskTables) regionalAt(p geo.Point) (piracy, political float64) {
	for i := range t.Regions {
		r := &t.Regions[i]
		if !r.Contains(p) {
			continue
		}
		if r.PiracyRisk > piracy {
			piracy = r.PiracyRisk
		}
		if r.PoliticalRisk > political {
			political = r.PoliticalRisk
		}
	}
	return piracy, political
}

// EdgeRisk оценивает риски плеча по его концам и середине
func (t RiskTables) EdgeRisk(a, b geo.Point) (weatherFactor, weatherRisk, piracy, political float64) {
	mid := geo.Interpolate(a, b, 2)[1]

	weatherFactor = 1.0
	for _, p := range []geo.Point{a, mid, b} {
		wf, wr := t.weatherAt(p)
		if wf > weatherFactor {
			weatherFactor = wf
		}
		if wr > weatherRisk {
			weatherRisk = wr
		}

		pi, po := t.regionalAt(p)
		if pi > piracy {
			piracy = pi
		}
		if po > political {
			political = po
		}
	}

	return weatherFactor, weatherRisk, piracy, political
}
