package graphbuild

import (
	"context"
	"sort"

	"searoute/pkg/apperror"
	"searoute/pkg/config"
	"searoute/pkg/domain"
	"searoute/pkg/geo"
	"searoute/pkg/logger"
	"searoute/services/route-svc/internal/spatial"
)

// Плечи короче порога считаются прибрежными
const coastalMaxNM = 400

// Скоростные ограничения специальных плеч, узлы
const (
	canalSpeedCap  = 8.0
	riverSpeedCap  = 10.0
	straitSpeedCap = 15.0
)

// canalLink кураторское плечо канала или пролива.
// Добавляется только если оба порта присутствуют в каталоге
type canalLink struct {
	from, to   string
	kind       domain.EdgeKind
	speedCap   float64
	congestion float64
}

// Постоянные водные коридоры: Суэц, Панама, Кильский канал, Босфор
var canalLinks = []canalLink{
	{from: "EGPSD", to: "EGSUZ", kind: domain.EdgeKindCanalSuez, speedCap: canalSpeedCap, congestion: 1.3},
	{from: "PACTB", to: "PABLB", kind: domain.EdgeKindCanalPanama, speedCap: canalSpeedCap, congestion: 1.3},
	{from: "DECUX", to: "DEKEL", kind: domain.EdgeKindRiver, speedCap: riverSpeedCap, congestion: 1.15},
	{from: "TRIST", to: "UAODS", kind: domain.EdgeKindCoastal, speedCap: straitSpeedCap, congestion: 1.2},
}

// Builder строит граф портов из каталога
type Builder struct {
	cfg  config.GraphConfig
	risk RiskTables
}

// NewBuilder создаёт построитель с заданными параметрами и таблицами рисков
func NewBuilder(cfg config.GraphConfig, risk RiskTables) *Builder {
	return &Builder{cfg: cfg, risk: risk}
}

// Build материализует граф: kNN плечи, каналы, хабовый каркас.
// Возвращает ошибку GRAPH_BUILD_FAILED если граф несвязен
func (b *Builder) Build(ctx context.Context, version string, ports []*domain.Port) (*domain.PortGraph, error) {
	operational := make([]*domain.Port, 0, len(ports))
	for _, p := range ports {
		if p != nil && p.Status.Operational() {
			operational = append(operational, p)
		}
	}

	if len(operational) < 2 {
		return nil, apperror.New(apperror.CodeGraphBuild, "port catalog has fewer than two operational ports").
			WithDetails("ports", len(operational))
	}

	idx := spatial.NewIndex(operational)
	g := domain.NewPortGraph(version)
	for _, p := range idx.All() {
		g.AddPort(p)
	}

	// Каналы добавляются первыми: AddEdge игнорирует дубликаты, и kNN плечо
	// между портами канала иначе затёрло бы канальный тип
	b.addCanalEdges(g, idx)
	b.addKNNEdges(ctx, g, idx)
	b.addHubEdges(ctx, g, idx)

	g.Finalize()

	if errs := g.Validate(); len(errs) > 0 {
		return nil, apperror.New(apperror.CodeGraphBuild, "graph invariants violated").
			WithDetails("first_error", errs[0].Error()).
			WithDetails("error_count", len(errs))
	}

	if unreachable := disconnectedCount(g); unreachable > 0 {
		return nil, apperror.New(apperror.CodeGraphBuild, "port graph is disconnected").
			WithDetails("unreachable_ports", unreachable).
			WithDetails("total_ports", g.NodeCount())
	}

	logger.Info("port graph built",
		"version", version,
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
	)

	return g, nil
}

// addKNNEdges соединяет каждый порт с k ближайшими соседями
func (b *Builder) addKNNEdges(ctx context.Context, g *domain.PortGraph, idx *spatial.Index) {
	for _, p := range idx.All() {
		if ctx.Err() != nil {
			return
		}
		// +1 потому что ближайший сосед это сам порт
		for _, n := range idx.KNN(p.Location, b.cfg.KNearest+1, b.cfg.KNNRadiusNM) {
			if n.Port.Code == p.Code {
				continue
			}
			b.addSeaEdge(g, p, n.Port, n.DistanceNM)
		}
	}
}

// addCanalEdges добавляет кураторские плечи каналов и проливов
func (b *Builder) addCanalEdges(g *domain.PortGraph, idx *spatial.Index) {
	for _, link := range canalLinks {
		from, okFrom := idx.ByCode(link.from)
		to, okTo := idx.ByCode(link.to)
		if !okFrom || !okTo {
			continue
		}

		dist := geo.DistanceNM(from.Location, to.Location)
		wf, wr, pi, po := b.risk.EdgeRisk(from.Location, to.Location)

		addTwinEdges(g, &domain.Edge{
			From:          from.Code,
			To:            to.Code,
			DistanceNM:    dist,
			Kind:          link.kind,
			SpeedCapKnots: link.speedCap,
			Congestion:    link.congestion,
			WeatherFactor: wf,
			WeatherRisk:   wr,
			PiracyRisk:    pi,
			PoliticalRisk: po,
		})
	}
}

// addHubEdges строит каркас из топ-N хабов: кураторские семена,
// затем контейнерные и многоцелевые порты по убыванию числа причалов
func (b *Builder) addHubEdges(ctx context.Context, g *domain.PortGraph, idx *spatial.Index) {
	hubs := b.selectHubs(idx)

	for _, hub := range hubs {
		if ctx.Err() != nil {
			return
		}
		for _, n := range idx.Nearby(hub.Location, b.cfg.HubRadiusNM) {
			if n.Port.Code == hub.Code {
				continue
			}
			b.addSeaEdge(g, hub, n.Port, n.DistanceNM)
		}
	}
}

// selectHubs возвращает список хабов в детерминированном порядке
func (b *Builder) selectHubs(idx *spatial.Index) []*domain.Port {
	hubs := make([]*domain.Port, 0, b.cfg.HubCount)
	seen := make(map[string]bool, b.cfg.HubCount)

	for _, code := range b.cfg.HubSeeds {
		if len(hubs) >= b.cfg.HubCount {
			return hubs
		}
		if p, ok := idx.ByCode(code); ok && !seen[code] {
			hubs = append(hubs, p)
			seen[code] = true
		}
	}

	// Кандидаты в порядке убывания причалов, при равенстве по коду
	candidates := make([]*domain.Port, 0, idx.Len())
	for _, p := range idx.All() {
		if seen[p.Code] {
			continue
		}
		if p.Type == domain.PortTypeContainer || p.Type == domain.PortTypeMultipurpose {
			candidates = append(candidates, p)
		}
	}
	sortHubCandidates(candidates)

	for _, p := range candidates {
		if len(hubs) >= b.cfg.HubCount {
			break
		}
		hubs = append(hubs, p)
	}

	return hubs
}

// addSeaEdge добавляет морское плечо и его обратного близнеца
func (b *Builder) addSeaEdge(g *domain.PortGraph, from, to *domain.Port, dist float64) {
	if dist <= 0 {
		return
	}

	kind := domain.EdgeKindOpenSea
	if dist <= coastalMaxNM {
		kind = domain.EdgeKindCoastal
	}

	congestion := (from.CongestionFactor + to.CongestionFactor) / 2
	if congestion < 1.0 {
		congestion = 1.0
	}

	wf, wr, pi, po := b.risk.EdgeRisk(from.Location, to.Location)

	addTwinEdges(g, &domain.Edge{
		From:          from.Code,
		To:            to.Code,
		DistanceNM:    dist,
		Kind:          kind,
		Congestion:    congestion,
		WeatherFactor: wf,
		WeatherRisk:   wr,
		PiracyRisk:    pi,
		PoliticalRisk: po,
	})
}

// addTwinEdges добавляет плечо вместе с обратным близнецом
func addTwinEdges(g *domain.PortGraph, e *domain.Edge) {
	g.AddEdge(e)

	twin := *e
	twin.From, twin.To = e.To, e.From
	g.AddEdge(&twin)
}

// disconnectedCount возвращает число узлов, недостижимых из первого
// по коду узла. Плечи двунаправленные, обычного BFS достаточно
func disconnectedCount(g *domain.PortGraph) int {
	codes := g.Codes()
	if len(codes) == 0 {
		return 0
	}

	visited := make(map[string]bool, len(codes))
	queue := []string{codes[0]}
	visited[codes[0]] = true

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range g.Neighbors(cur) {
			if !visited[e.To] {
				visited[e.To] = true
				queue = append(queue, e.To)
			}
		}
	}

	return len(codes) - len(visited)
}

// sortHubCandidates сортирует кандидатов по причалам и коду
func sortHubCandidates(ports []*domain.Port) {
	sort.Slice(ports, func(i, j int) bool {
		if ports[i].BerthCount != ports[j].BerthCount {
			return ports[i].BerthCount > ports[j].BerthCount
		}
		return ports[i].Code < ports[j].Code
	})
}
