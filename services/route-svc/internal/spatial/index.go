package spatial

import (
	"math"
	"sort"

	"searoute/pkg/domain"
	"searoute/pkg/geo"
)

// Морская миля в градусах широты
const nmPerLatDegree = 60.0

// Index неизменяемый пространственный индекс портов.
// Порты раскладываются по ячейкам сетки 1°x1°; после создания
// индекс не модифицируется и безопасен для конкурентного чтения.
type Index struct {
	byCode map[string]*domain.Port
	cells  map[cellKey][]*domain.Port
	codes  []string
}

type cellKey struct {
	latBand int
	lonBand int
}

func cellOf(p geo.Point) cellKey {
	lat := int(math.Floor(p.Lat))
	lon := int(math.Floor(p.Lon))

	// Полюса и граница 180-го меридиана сводятся к валидным ячейкам
	if lat > 89 {
		lat = 89
	}
	if lat < -90 {
		lat = -90
	}
	if lon >= 180 {
		lon = -180 + (lon-180)%360
	}
	if lon < -180 {
		lon = 180 + (lon+180)%360
	}

	return cellKey{latBand: lat, lonBand: lon}
}

// wrapLonBand нормализует индекс ячейки по долготе в [-180, 179]
func wrapLonBand(band int) int {
	for band >= 180 {
		band -= 360
	}
	for band < -180 {
		band += 360
	}
	return band
}

// NewIndex строит индекс по списку портов. Дубликаты кодов
// перезаписываются последним вхождением.
func NewIndex(ports []*domain.Port) *Index {
	idx := &Index{
		byCode: make(map[string]*domain.Port, len(ports)),
		cells:  make(map[cellKey][]*domain.Port),
	}

	for _, p := range ports {
		if p == nil {
			continue
		}
		idx.byCode[p.Code] = p
	}

	for _, p := range idx.byCode {
		key := cellOf(p.Location)
		idx.cells[key] = append(idx.cells[key], p)
		idx.codes = append(idx.codes, p.Code)
	}

	sort.Strings(idx.codes)

	// Внутри ячейки порты упорядочены по коду для детерминизма
	for _, cell := range idx.cells {
		sort.Slice(cell, func(i, j int) bool { return cell[i].Code < cell[j].Code })
	}

	return idx
}

// ByCode возвращает порт по коду UN/LOCODE
func (idx *Index) ByCode(code string) (*domain.Port, bool) {
	p, ok := idx.byCode[code]
	return p, ok
}

// Len возвращает число портов в индексе
func (idx *Index) Len() int {
	return len(idx.byCode)
}

// Codes возвращает отсортированные коды всех портов
func (idx *Index) Codes() []string {
	out := make([]string, len(idx.codes))
	copy(out, idx.codes)
	return out
}

// All возвращает все порты в порядке кода
func (idx *Index) All() []*domain.Port {
	out := make([]*domain.Port, 0, len(idx.codes))
	for _, code := range idx.codes {
		out = append(out, idx.byCode[code])
	}
	return out
}

// Neighbor порт с расстоянием от точки запроса
type Neighbor struct {
	Port       *domain.Port
	DistanceNM float64
}

// Nearby возвращает порты в радиусе radiusNM от точки,
// упорядоченные по возрастанию расстояния (при равенстве по коду).
func (idx *Index) Nearby(center geo.Point, radiusNM float64) []Neighbor {
	if radiusNM <= 0 {
		return nil
	}

	latSpan := int(math.Ceil(radiusNM/nmPerLatDegree)) + 1

	// Сжатие долготных градусов на широте центра
	cosLat := math.Cos(center.Lat * math.Pi / 180)
	var lonSpan int
	if cosLat < 0.01 {
		// Вблизи полюса окно покрывает все долготы
		lonSpan = 180
	} else {
		lonSpan = int(math.Ceil(radiusNM/(nmPerLatDegree*cosLat))) + 1
	}
	if lonSpan > 180 {
		lonSpan = 180
	}

	centerCell := cellOf(center)

	// Окно по долготе не может превышать один полный оборот: симметричный
	// диапазон [-180, 180] посетил бы ячейку за антимеридианом дважды
	minDLon, maxDLon := -lonSpan, lonSpan
	if maxDLon-minDLon+1 > 360 {
		minDLon, maxDLon = -180, 179
	}

	var result []Neighbor
	for dLat := -latSpan; dLat <= latSpan; dLat++ {
		latBand := centerCell.latBand + dLat
		if latBand < -90 || latBand > 89 {
			continue
		}
		for dLon := minDLon; dLon <= maxDLon; dLon++ {
			key := cellKey{latBand: latBand, lonBand: wrapLonBand(centerCell.lonBand + dLon)}
			for _, p := range idx.cells[key] {
				d := geo.DistanceNM(center, p.Location)
				if d <= radiusNM {
					result = append(result, Neighbor{Port: p, DistanceNM: d})
				}
			}
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].DistanceNM != result[j].DistanceNM {
			return result[i].DistanceNM < result[j].DistanceNM
		}
		return result[i].Port.Code < result[j].Port.Code
	})

	return result
}

// KNN возвращает до k ближайших портов в пределах maxRadiusNM
func (idx *Index) KNN(center geo.Point, k int, maxRadiusNM float64) []Neighbor {
	if k <= 0 {
		return nil
	}

	neighbors := idx.Nearby(center, maxRadiusNM)
	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors
}
