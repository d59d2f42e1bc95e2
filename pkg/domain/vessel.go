package domain

import "fmt"

// VesselType тип судна
type VesselType int

const (
	VesselTypeUnspecified VesselType = iota
	VesselTypeContainer
	VesselTypeTanker
	VesselTypeBulk
	VesselTypeGeneralCargo
	VesselTypeRoRo
	VesselTypeCruise
)

// String возвращает строковое представление типа судна
func (v VesselType) String() string {
	switch v {
	case VesselTypeContainer:
		return "container"
	case VesselTypeTanker:
		return "tanker"
	case VesselTypeBulk:
		return "bulk"
	case VesselTypeGeneralCargo:
		return "general_cargo"
	case VesselTypeRoRo:
		return "roro"
	case VesselTypeCruise:
		return "cruise"
	default:
		return "unspecified"
	}
}

// ParseVesselType парсит тип судна из строки
func ParseVesselType(s string) VesselType {
	switch s {
	case "container":
		return VesselTypeContainer
	case "tanker":
		return VesselTypeTanker
	case "bulk":
		return VesselTypeBulk
	case "general_cargo":
		return VesselTypeGeneralCargo
	case "roro":
		return VesselTypeRoRo
	case "cruise":
		return VesselTypeCruise
	default:
		return VesselTypeUnspecified
	}
}

// MarshalJSON сериализует тип судна как строку
func (v VesselType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + v.String() + `"`), nil
}

// UnmarshalJSON десериализует тип судна из строки
func (v *VesselType) UnmarshalJSON(data []byte) error {
	*v = ParseVesselType(unquote(data))
	return nil
}

// FuelType тип топлива
type FuelType string

const (
	FuelVLSFO FuelType = "vlsfo"
	FuelMGO   FuelType = "mgo"
	FuelLNG   FuelType = "lng"
	FuelHFO   FuelType = "hfo"
)

// Valid проверяет, что тип топлива известен
func (f FuelType) Valid() bool {
	switch f {
	case FuelVLSFO, FuelMGO, FuelLNG, FuelHFO:
		return true
	}
	return false
}

// VesselConstraints габариты и возможности судна для запроса маршрута
type VesselConstraints struct {
	Type              VesselType `json:"vessel_type" validate:"required"`
	Length            float64    `json:"length" validate:"required,gt=0,lte=500"`  // метры
	Beam              float64    `json:"beam" validate:"required,gt=0,lte=80"`     // метры
	Draft             float64    `json:"draft" validate:"required,gt=0,lte=30"`    // метры
	DeadweightTonnage float64    `json:"deadweight_tonnage,omitempty" validate:"omitempty,gt=0"`
	GrossTonnage      float64    `json:"gross_tonnage,omitempty" validate:"omitempty,gt=0"`
	CruiseSpeed       float64    `json:"cruise_speed" validate:"required,gte=1,lte=40"` // узлы
	MaxSpeed          float64    `json:"max_speed" validate:"required,gte=1,lte=40"`
	MaxRangeNM        float64    `json:"max_range_nm,omitempty" validate:"omitempty,gt=0"`
	FuelType          FuelType   `json:"fuel_type" validate:"required,oneof=vlsfo mgo lng hfo"`
	SuezCompatible    bool       `json:"suez_canal_compatible"`
	PanamaCompatible  bool       `json:"panama_canal_compatible"`
}

// Validate проверяет инварианты судна
func (v *VesselConstraints) Validate() []error {
	var errs []error

	if v.Length <= 0 || v.Beam <= 0 || v.Draft <= 0 {
		errs = append(errs, fmt.Errorf("vessel dimensions must be positive"))
	}
	if v.Beam > v.Length {
		errs = append(errs, fmt.Errorf("vessel beam %.1f exceeds length %.1f", v.Beam, v.Length))
	}
	if v.CruiseSpeed < 1 || v.CruiseSpeed > 40 {
		errs = append(errs, fmt.Errorf("cruise speed %.1f out of [1, 40] knots", v.CruiseSpeed))
	}
	if v.MaxSpeed < v.CruiseSpeed || v.MaxSpeed > 40 {
		errs = append(errs, fmt.Errorf("max speed %.1f must be in [cruise, 40] knots", v.MaxSpeed))
	}
	if !v.FuelType.Valid() {
		errs = append(errs, fmt.Errorf("unknown fuel type %q", v.FuelType))
	}

	return errs
}
