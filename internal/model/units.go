// internal/model/units.go
package model

import (
	"github.com/shopspring/decimal"
)

// Supported print head densities in dots per inch.
const (
	DPI203 = 203
	DPI305 = 305
	DPI609 = 609
)

var mmPerInch = decimal.NewFromFloat(25.4)

// MMToDots converts a millimeter length to head dots at the given
// density, rounded to the nearest dot.
func MMToDots(mm decimal.Decimal, dpi int) int {
	dots := mm.Mul(decimal.NewFromInt(int64(dpi))).Div(mmPerInch)
	return int(dots.Round(0).IntPart())
}

// DotsToMM converts head dots back to millimeters at the given
// density, rounded to one decimal place.
func DotsToMM(dots int, dpi int) decimal.Decimal {
	mm := decimal.NewFromInt(int64(dots)).Mul(mmPerInch).Div(decimal.NewFromInt(int64(dpi)))
	return mm.Round(1)
}

// LabelSizeMM is a label geometry given in millimeters, the unit label
// stock is sold in.
type LabelSizeMM struct {
	Width  decimal.Decimal `json:"width_mm"`
	Height decimal.Decimal `json:"height_mm"`
}

// Dots converts the size to head dots at the given density.
func (s LabelSizeMM) Dots(dpi int) (width, height int) {
	return MMToDots(s.Width, dpi), MMToDots(s.Height, dpi)
}
