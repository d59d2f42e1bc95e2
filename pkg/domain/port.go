package domain

import (
	"fmt"
	"regexp"

	"searoute/pkg/geo"
)

// CodePattern формат UN/LOCODE
var CodePattern = regexp.MustCompile(`^[A-Z]{5}$`)

// PortType тип порта
type PortType int

const (
	PortTypeUnspecified PortType = iota
	PortTypeContainer
	PortTypeBulk
	PortTypeTanker
	PortTypeMultipurpose
	PortTypeGeneralCargo
	PortTypeCruise
	PortTypeFishing
	PortTypeNaval
)

// String возвращает строковое представление типа порта
func (p PortType) String() string {
	switch p {
	case PortTypeContainer:
		return "container"
	case PortTypeBulk:
		return "bulk"
	case PortTypeTanker:
		return "tanker"
	case PortTypeMultipurpose:
		return "multipurpose"
	case PortTypeGeneralCargo:
		return "general_cargo"
	case PortTypeCruise:
		return "cruise"
	case PortTypeFishing:
		return "fishing"
	case PortTypeNaval:
		return "naval"
	default:
		return "unspecified"
	}
}

// ParsePortType парсит тип порта из строки
func ParsePortType(s string) PortType {
	switch s {
	case "container":
		return PortTypeContainer
	case "bulk":
		return PortTypeBulk
	case "tanker":
		return PortTypeTanker
	case "multipurpose":
		return PortTypeMultipurpose
	case "general_cargo":
		return PortTypeGeneralCargo
	case "cruise":
		return PortTypeCruise
	case "fishing":
		return PortTypeFishing
	case "naval":
		return PortTypeNaval
	default:
		return PortTypeUnspecified
	}
}

// MarshalJSON сериализует тип порта как строку
func (p PortType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// UnmarshalJSON десериализует тип порта из строки
func (p *PortType) UnmarshalJSON(data []byte) error {
	*p = ParsePortType(unquote(data))
	return nil
}

// PortStatus операционный статус порта
type PortStatus int

const (
	PortStatusUnspecified PortStatus = iota
	PortStatusActive
	PortStatusRestricted
	PortStatusMaintenance
	PortStatusInactive
)

// String возвращает строковое представление статуса
func (s PortStatus) String() string {
	switch s {
	case PortStatusActive:
		return "active"
	case PortStatusRestricted:
		return "restricted"
	case PortStatusMaintenance:
		return "maintenance"
	case PortStatusInactive:
		return "inactive"
	default:
		return "unspecified"
	}
}

// ParsePortStatus парсит статус из строки
func ParsePortStatus(s string) PortStatus {
	switch s {
	case "active":
		return PortStatusActive
	case "restricted":
		return PortStatusRestricted
	case "maintenance":
		return PortStatusMaintenance
	case "inactive":
		return PortStatusInactive
	default:
		return PortStatusUnspecified
	}
}

// MarshalJSON сериализует статус как строку
func (s PortStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON десериализует статус из строки
func (s *PortStatus) UnmarshalJSON(data []byte) error {
	*s = ParsePortStatus(unquote(data))
	return nil
}

// Operational проверяет, принимает ли порт суда (active или restricted)
func (s PortStatus) Operational() bool {
	return s == PortStatusActive || s == PortStatusRestricted
}

// Port порт из каталога. Идентификатор — 5-символьный UN/LOCODE
type Port struct {
	Code             string     `json:"code"`
	Name             string     `json:"name"`
	Country          string     `json:"country"`
	Location         geo.Point  `json:"coordinates"`
	Type             PortType   `json:"port_type"`
	Status           PortStatus `json:"operational_status"`
	MaxVesselLength  float64    `json:"max_vessel_length,omitempty"` // метры, 0 = не ограничено
	MaxVesselBeam    float64    `json:"max_vessel_beam,omitempty"`
	MaxVesselDraft   float64    `json:"max_vessel_draft,omitempty"`
	BerthCount       int        `json:"berth_count"`
	CongestionFactor float64    `json:"congestion_factor"` // [0.5, 3.0]
	AvgPortStayHours float64    `json:"average_port_stay_hours"`
	Services         []string   `json:"services_available,omitempty"`
	SuezAccess       bool       `json:"suez_access"`
	PanamaAccess     bool       `json:"panama_access"`
}

// AcceptsVessel проверяет габаритную совместимость судна с портом
func (p *Port) AcceptsVessel(v *VesselConstraints) bool {
	if p.MaxVesselLength > 0 && v.Length > p.MaxVesselLength {
		return false
	}
	if p.MaxVesselBeam > 0 && v.Beam > p.MaxVesselBeam {
		return false
	}
	if p.MaxVesselDraft > 0 && v.Draft > p.MaxVesselDraft {
		return false
	}
	return true
}

// Validate проверяет инварианты порта
func (p *Port) Validate() []error {
	var errs []error

	if !CodePattern.MatchString(p.Code) {
		errs = append(errs, fmt.Errorf("port code %q is not a valid UN/LOCODE", p.Code))
	}
	if p.Location.Lat < -90 || p.Location.Lat > 90 {
		errs = append(errs, fmt.Errorf("port %s: latitude %.4f out of range", p.Code, p.Location.Lat))
	}
	if p.Location.Lon < -180 || p.Location.Lon > 180 {
		errs = append(errs, fmt.Errorf("port %s: longitude %.4f out of range", p.Code, p.Location.Lon))
	}
	if p.MaxVesselLength < 0 || p.MaxVesselBeam < 0 || p.MaxVesselDraft < 0 {
		errs = append(errs, fmt.Errorf("port %s: max vessel dimensions must be positive", p.Code))
	}
	if p.CongestionFactor != 0 && (p.CongestionFactor < 0.5 || p.CongestionFactor > 3.0) {
		errs = append(errs, fmt.Errorf("port %s: congestion factor %.2f out of [0.5, 3.0]", p.Code, p.CongestionFactor))
	}

	return errs
}

// Clone создаёт глубокую копию порта
func (p *Port) Clone() *Port {
	clone := *p
	clone.Services = append([]string(nil), p.Services...)
	return &clone
}

func unquote(data []byte) string {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
