package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"

	"searoute/pkg/domain"
)

// Префиксы ключей кэша
const (
	routeKeyPrefix      = "routes:v1:"
	portKeyPrefix       = "ports:v1:"
	validationKeyPrefix = "validation:v1:"
)

// Fingerprint строит детерминированный отпечаток запроса маршрута.
// Размерности судна округляются до 0.5 м, скорости до 0.5 узла,
// время отправления усекается до часа (UTC). Эквивалентные запросы
// дают одинаковый отпечаток.
func Fingerprint(req *domain.RouteRequest) string {
	var b strings.Builder

	b.WriteString(req.OriginPort)
	b.WriteByte('|')
	b.WriteString(req.DestinationPort)
	b.WriteByte('|')

	if v := req.Vessel; v != nil {
		fmt.Fprintf(&b, "%s|%.1f|%.1f|%.1f|%.1f|%.1f|%s|%t|%t",
			v.Type,
			roundHalf(v.Length),
			roundHalf(v.Beam),
			roundHalf(v.Draft),
			roundHalf(v.CruiseSpeed),
			roundHalf(v.MaxSpeed),
			v.FuelType,
			v.SuezCompatible,
			v.PanamaCompatible,
		)
	}
	b.WriteByte('|')

	b.WriteString(string(req.Criteria))
	fmt.Fprintf(&b, "|%d|%d", req.MaxAlternatives, req.MaxConnectingPorts)

	b.WriteByte('|')
	if req.DepartureTime != nil {
		b.WriteString(req.DepartureTime.UTC().Truncate(time.Hour).Format(time.RFC3339))
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:16]
}

// roundHalf округляет до ближайших 0.5
func roundHalf(v float64) float64 {
	return math.Round(v*2) / 2
}

// RouteKey возвращает ключ кэша для отпечатка маршрута
func RouteKey(fingerprint string) string {
	return routeKeyPrefix + fingerprint
}

// PortKey возвращает ключ кэша для порта
func PortKey(code string) string {
	return portKeyPrefix + code
}

// ValidationKey возвращает ключ кэша для результата валидации
func ValidationKey(fingerprint string) string {
	return validationKeyPrefix + fingerprint
}
