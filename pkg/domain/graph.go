package domain

import (
	"fmt"
	"sort"
	"time"
)

// Epsilon допуск сравнения вещественных величин
const Epsilon = 1e-9

// Infinity условная бесконечность для стоимостей
const Infinity = 1e18

// EdgeKind тип морского плеча
type EdgeKind int

const (
	EdgeKindUnspecified EdgeKind = iota
	EdgeKindOpenSea
	EdgeKindCoastal
	EdgeKindCanalSuez
	EdgeKindCanalPanama
	EdgeKindRiver
)

// String возвращает строковое представление типа плеча
func (k EdgeKind) String() string {
	switch k {
	case EdgeKindOpenSea:
		return "open_sea"
	case EdgeKindCoastal:
		return "coastal"
	case EdgeKindCanalSuez:
		return "canal_suez"
	case EdgeKindCanalPanama:
		return "canal_panama"
	case EdgeKindRiver:
		return "river"
	default:
		return "unspecified"
	}
}

// MarshalJSON сериализует тип плеча как строку
func (k EdgeKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// IsCanal проверяет, является ли плечо каналом
func (k EdgeKind) IsCanal() bool {
	return k == EdgeKindCanalSuez || k == EdgeKindCanalPanama
}

// Edge направленное плечо между двумя портами
type Edge struct {
	From          string  // UN/LOCODE
	To            string  // UN/LOCODE
	DistanceNM    float64 // дистанция по большому кругу
	Kind          EdgeKind
	SpeedCapKnots float64 // 0 = не ограничено
	Congestion    float64 // базовый фактор загруженности, >= 1.0
	WeatherFactor float64 // множитель времени из зонной таблицы, >= 1.0
	WeatherRisk   float64 // [0, 100]
	PiracyRisk    float64 // [0, 100]
	PoliticalRisk float64 // [0, 100]
}

// Risk возвращает взвешенный риск плеча [0, 100]
func (e *Edge) Risk() float64 {
	return 0.5*e.WeatherRisk + 0.3*e.PiracyRisk + 0.2*e.PoliticalRisk
}

// Key возвращает строковый ключ плеча
func (e *Edge) Key() string {
	return e.From + "->" + e.To
}

// FeasibleFor проверяет проходимость плеча для судна: осадка и габариты
// в пределах обоих портов, канальные флаги, операционный статус концов
func (e *Edge) FeasibleFor(v *VesselConstraints, from, to *Port) bool {
	if !from.Status.Operational() || !to.Status.Operational() {
		return false
	}
	if !from.AcceptsVessel(v) || !to.AcceptsVessel(v) {
		return false
	}
	switch e.Kind {
	case EdgeKindCanalSuez:
		if !v.SuezCompatible {
			return false
		}
	case EdgeKindCanalPanama:
		if !v.PanamaCompatible {
			return false
		}
	}
	return true
}

// PortGraph материализованный граф портов. После Finalize граф
// иммутабелен и безопасен для конкурентного чтения без блокировок
type PortGraph struct {
	Version string
	BuiltAt time.Time

	ports     map[string]*Port
	adjacency map[string][]*Edge
	edgeCount int
	finalized bool
}

// NewPortGraph создаёт пустой граф
func NewPortGraph(version string) *PortGraph {
	return &PortGraph{
		Version:   version,
		BuiltAt:   time.Now().UTC(),
		ports:     make(map[string]*Port),
		adjacency: make(map[string][]*Edge),
	}
}

// AddPort добавляет узел. Допустимо только до Finalize
func (g *PortGraph) AddPort(p *Port) {
	if g.finalized {
		panic("port graph is finalized")
	}
	g.ports[p.Code] = p
}

// AddEdge добавляет плечо, игнорируя петли и дубликаты
func (g *PortGraph) AddEdge(e *Edge) bool {
	if g.finalized {
		panic("port graph is finalized")
	}
	if e.From == e.To {
		return false
	}
	for _, existing := range g.adjacency[e.From] {
		if existing.To == e.To {
			return false
		}
	}
	g.adjacency[e.From] = append(g.adjacency[e.From], e)
	g.edgeCount++
	return true
}

// Finalize сортирует списки смежности по UN/LOCODE и замораживает граф.
// Детерминированный порядок обхода нужен пассфайндеру для стабильных маршрутов
func (g *PortGraph) Finalize() {
	for _, edges := range g.adjacency {
		sort.Slice(edges, func(i, j int) bool {
			return edges[i].To < edges[j].To
		})
	}
	g.finalized = true
}

// Port возвращает порт по коду
func (g *PortGraph) Port(code string) (*Port, bool) {
	p, ok := g.ports[code]
	return p, ok
}

// Neighbors возвращает исходящие плечи в порядке UN/LOCODE
func (g *PortGraph) Neighbors(code string) []*Edge {
	return g.adjacency[code]
}

// Edge возвращает плечо между двумя портами
func (g *PortGraph) Edge(from, to string) (*Edge, bool) {
	for _, e := range g.adjacency[from] {
		if e.To == to {
			return e, true
		}
	}
	return nil, false
}

// Codes возвращает отсортированные коды всех узлов
func (g *PortGraph) Codes() []string {
	codes := make([]string, 0, len(g.ports))
	for code := range g.ports {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// NodeCount возвращает число узлов
func (g *PortGraph) NodeCount() int {
	return len(g.ports)
}

// EdgeCount возвращает число плеч
func (g *PortGraph) EdgeCount() int {
	return g.edgeCount
}

// Validate проверяет инварианты графа: отсутствие петель, обратный
// близнец с той же геометрической дистанцией, корректность дистанций
func (g *PortGraph) Validate() []error {
	var errs []error

	for from, edges := range g.adjacency {
		for _, e := range edges {
			if e.DistanceNM <= 0 {
				errs = append(errs, fmt.Errorf("edge %s has non-positive distance", e.Key()))
			}
			if _, ok := g.ports[e.To]; !ok {
				errs = append(errs, fmt.Errorf("edge %s points to unknown port", e.Key()))
				continue
			}

			twin, ok := g.Edge(e.To, from)
			if !ok {
				errs = append(errs, fmt.Errorf("edge %s has no reverse twin", e.Key()))
				continue
			}
			if diff := twin.DistanceNM - e.DistanceNM; diff > Epsilon || diff < -Epsilon {
				errs = append(errs, fmt.Errorf("edge %s reverse twin distance mismatch", e.Key()))
			}
		}
	}

	return errs
}
