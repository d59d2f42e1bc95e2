package geo

import "math"

// EarthRadiusNM радиус Земли в морских милях
const EarthRadiusNM = 3440.065

// Point точка на сфере WGS-84
type Point struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// DistanceNM возвращает расстояние по дуге большого круга в морских милях (haversine)
func DistanceNM(a, b Point) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	// Клампим аргумент от накопленной погрешности у антиподов
	c := 2 * math.Asin(math.Sqrt(clamp01(h)))
	return EarthRadiusNM * c
}

// InitialBearing возвращает начальный курс в градусах [0, 360)
func InitialBearing(a, b Point) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLon := radians(b.Lon - a.Lon)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	deg := degrees(math.Atan2(y, x))
	return math.Mod(deg+360, 360)
}

// Interpolate возвращает n+1 точек вдоль большого круга, включая концы.
// При n <= 0 или совпадающих концах возвращает только концы.
func Interpolate(a, b Point, n int) []Point {
	if n <= 0 {
		return []Point{a, b}
	}

	lat1 := radians(a.Lat)
	lon1 := radians(a.Lon)
	lat2 := radians(b.Lat)
	lon2 := radians(b.Lon)

	// Угловое расстояние между концами
	cosD := math.Sin(lat1)*math.Sin(lat2) + math.Cos(lat1)*math.Cos(lat2)*math.Cos(lon2-lon1)
	d := math.Acos(clampUnit(cosD))

	if d < 1e-12 {
		return []Point{a, b}
	}

	sinD := math.Sin(d)
	points := make([]Point, 0, n+1)
	points = append(points, a)

	for i := 1; i < n; i++ {
		f := float64(i) / float64(n)
		fa := math.Sin((1-f)*d) / sinD
		fb := math.Sin(f*d) / sinD

		x := fa*math.Cos(lat1)*math.Cos(lon1) + fb*math.Cos(lat2)*math.Cos(lon2)
		y := fa*math.Cos(lat1)*math.Sin(lon1) + fb*math.Cos(lat2)*math.Sin(lon2)
		z := fa*math.Sin(lat1) + fb*math.Sin(lat2)

		points = append(points, Point{
			Lat: degrees(math.Atan2(z, math.Sqrt(x*x+y*y))),
			Lon: degrees(math.Atan2(y, x)),
		})
	}

	points = append(points, b)
	return points
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampUnit(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
