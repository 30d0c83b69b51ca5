package normalize

import (
	"github.com/Veraticus/carbonsync/internal/model"
	"github.com/Veraticus/carbonsync/internal/schema"
)

// ToCanonical converts v from unit u into the canonical unit of its field:
// waste in kilograms and water in cubic meters.
func ToCanonical(v float64, u schema.Unit) float64 {
	switch u {
	case schema.UnitTons:
		return v * 1000
	case schema.UnitLiters:
		return v / 1000
	default:
		return v
	}
}

// ToDisplay converts a canonical value of field into the unit its display
// column uses.
func ToDisplay(f model.Field, v float64) float64 {
	switch f {
	case model.FieldWaste:
		return v / 1000
	case model.FieldWater:
		return v * 1000
	default:
		return v
	}
}
