// internal/sbpl/glyph.go
package sbpl

// Glyph is one character rendered to a monochrome bitmap suitable for
// a GB command. The bitmap is packed 1bpp, row-major, and must be
// square with a side that is a multiple of 64 pixels; WidthBytes and
// HeightBytes are the side lengths divided by 8.
//
// Whitespace characters carry no bitmap at all: Empty is set and only
// AdvanceX is meaningful.
type Glyph struct {
	Bits        []byte
	WidthBytes  int
	HeightBytes int

	// AdvanceX is the cursor advance to the next character, already
	// including the side bearings.
	AdvanceX int

	// BearingLeft and BearingTop offset the bitmap from the cursor
	// position, in the un-rotated coordinate frame.
	BearingLeft int
	BearingTop  int

	Empty bool
}

// Rasterizer is the glyph rasterization capability consumed by the
// encoder. The expansion value is the descriptor-level font scale; a
// face pixel size of expansion/72 dots is implied. A character with no
// glyph in the font must fail with a *GlyphError.
type Rasterizer interface {
	Rasterize(font string, c rune, expansion int) (Glyph, error)
}
