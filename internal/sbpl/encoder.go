// internal/sbpl/encoder.go
package sbpl

import (
	"bytes"
	"fmt"

	"golang.org/x/text/encoding/japanese"
)

// renderState is the sticky page-scoped state threaded through a
// render pass. Values set by one primitive stay in effect for every
// later primitive on the same page; each page starts from defaults.
type renderState struct {
	pos      Coordinate
	exp      Expansion
	pitch    int
	rot      Rotation
	shiftJIS bool
	ratio    string
}

func defaultRenderState() renderState {
	return renderState{
		exp:   Expansion{H: 1, V: 1},
		rot:   Rotate0,
		ratio: ratioClasses[Ratio1to3],
	}
}

// pageEncoder accumulates the wire bytes of one page render.
type pageEncoder struct {
	buf bytes.Buffer
	st  renderState
	ras Rasterizer
}

// Encoder renders sealed pages into SBPL wire syntax. Draw primitives
// resolve cursor position, expansion and rotation from the render
// state at encode time, so the emitted coordinates always reflect the
// last state-setting primitive before them in accumulation order.
type Encoder struct {
	ras Rasterizer
}

// NewEncoder creates an encoder. The rasterizer may be nil when no TTF
// text will be rendered; a ttf_write primitive without one fails with
// an EncodingError.
func NewEncoder(ras Rasterizer) *Encoder {
	return &Encoder{ras: ras}
}

// RenderPage encodes every primitive of a sealed page in accumulation
// order, wrapped in the ESC A / ESC Z page scope. Rendering is a pure
// read over the page; calling it again yields identical bytes.
func (enc *Encoder) RenderPage(p *Page) ([]byte, error) {
	e := &pageEncoder{st: defaultRenderState(), ras: enc.ras}
	e.esc("A")
	for _, cmd := range p.commands {
		if err := cmd.encode(e); err != nil {
			return nil, err
		}
	}
	e.esc("Z")
	return e.buf.Bytes(), nil
}

func (e *pageEncoder) esc(s string) {
	e.buf.WriteByte(ESC)
	e.buf.WriteString(s)
}

func (e *pageEncoder) escf(format string, args ...interface{}) {
	e.buf.WriteByte(ESC)
	fmt.Fprintf(&e.buf, format, args...)
}

// emitPosition writes the currently active absolute position. V is the
// vertical and H the horizontal coordinate, both zero-padded to four
// digits.
func (e *pageEncoder) emitPosition(at Coordinate) {
	e.escf("V%04d", at.Y)
	e.escf("H%04d", at.X)
}

// emitExpansion writes the currently active pitch and magnification.
func (e *pageEncoder) emitExpansion() {
	e.escf("P%02d", e.st.pitch)
	e.escf("L%02d%02d", e.st.exp.H, e.st.exp.V)
}

// writeText appends string payload in the active character encoding.
// Outside Shift_JIS mode only ASCII is accepted.
func (e *pageEncoder) writeText(command, s string) error {
	if e.st.shiftJIS {
		encoded, err := japanese.ShiftJIS.NewEncoder().String(s)
		if err != nil {
			return encodingErrorf(command, "text %q is not representable in Shift_JIS: %v", s, err)
		}
		e.buf.WriteString(encoded)
		return nil
	}
	for _, r := range s {
		if r > 0x7F {
			return encodingErrorf(command, "non-ASCII character %q requires Shift_JIS mode", r)
		}
	}
	e.buf.WriteString(s)
	return nil
}

// writeASCII appends payload that is ASCII regardless of the active
// encoding mode, such as barcode data.
func (e *pageEncoder) writeASCII(command, s string) error {
	for _, r := range s {
		if r > 0x7F {
			return encodingErrorf(command, "non-ASCII character %q", r)
		}
	}
	e.buf.WriteString(s)
	return nil
}

// glyphOffset translates an offset in the un-rotated glyph frame into
// printer coordinates under the active rotation.
func (e *pageEncoder) glyphOffset(pos Coordinate, dx, dy int) Coordinate {
	switch e.st.rot {
	case Rotate90:
		pos.X -= dy
		pos.Y -= dx
	case Rotate180:
		pos.X -= dx
		pos.Y += dy
	case Rotate270:
		pos.X += dy
		pos.Y += dx
	default:
		pos.X += dx
		pos.Y -= dy
	}
	return pos
}

// State-setting primitives.

func (c positionCmd) encode(e *pageEncoder) error {
	if c.at.X < 0 || c.at.X > 9999 || c.at.Y < 0 || c.at.Y > 9999 {
		return encodingErrorf("pos", "coordinate (%d,%d) out of range 0-9999", c.at.X, c.at.Y)
	}
	e.st.pos = c.at
	return nil
}

func (c expansionCmd) encode(e *pageEncoder) error {
	if c.exp.H < 1 || c.exp.H > 99 || c.exp.V < 1 || c.exp.V > 99 {
		return encodingErrorf("expansion", "magnification (%d,%d) out of range 1-99", c.exp.H, c.exp.V)
	}
	if c.pitch < 0 || c.pitch > 99 {
		return encodingErrorf("expansion", "pitch %d out of range 0-99", c.pitch)
	}
	e.st.exp = c.exp
	e.st.pitch = c.pitch
	return nil
}

// Rotation is emitted where it occurs: the printer reinterprets the
// axes for subsequent commands, and already-emitted primitives keep
// the orientation they were encoded under.
func (c rotateCmd) encode(e *pageEncoder) error {
	var n int
	switch c.rot {
	case Rotate0:
		n = 0
	case Rotate90:
		n = 1
	case Rotate180:
		n = 2
	case Rotate270:
		n = 3
	default:
		return encodingErrorf("rotate", "unsupported rotation %d", int(c.rot))
	}
	e.escf("%%%d", n)
	e.st.rot = c.rot
	return nil
}

func (c shiftJISCmd) encode(e *pageEncoder) error {
	e.esc("KC1")
	e.st.shiftJIS = true
	return nil
}

func (c barRatioCmd) encode(e *pageEncoder) error {
	class, ok := ratioClasses[c.ratio]
	if !ok {
		return encodingErrorf("barcode_ratio", "unknown ratio %q", string(c.ratio))
	}
	e.st.ratio = class
	return nil
}

func (c commentCmd) encode(e *pageEncoder) error {
	// Comments are a documented no-op kept for descriptor traceability.
	return nil
}

// Draw and control primitives.

func (c textCmd) encode(e *pageEncoder) error {
	e.emitPosition(e.st.pos)
	e.emitExpansion()
	if c.bold {
		e.esc("X22,")
		return e.writeText("bold_text", c.text)
	}
	e.esc("K9B")
	return e.writeText("write_text", c.text)
}

func (c barcodeCmd) encode(e *pageEncoder) error {
	name := c.sym.String()
	if c.data == "" {
		return encodingErrorf(name, "empty data")
	}
	if c.width < 1 || c.width > 99 {
		return encodingErrorf(name, "bar width class %d out of range 1-99", c.width)
	}
	if c.height < 1 || c.height > 999 {
		return encodingErrorf(name, "bar height %d out of range 1-999", c.height)
	}

	data := c.data
	switch c.sym {
	case JAN13:
		if l := len(data); l < 11 || l > 13 {
			return encodingErrorf(name, "data length %d outside valid range 11-13", l)
		}
		if !allDigits(data) {
			return encodingErrorf(name, "data %q must be numeric", data)
		}
	case JAN8:
		if l := len(data); l < 6 || l > 8 {
			return encodingErrorf(name, "data length %d outside valid range 6-8", l)
		}
		if !allDigits(data) {
			return encodingErrorf(name, "data %q must be numeric", data)
		}
	case ITF:
		if !allDigits(data) {
			return encodingErrorf(name, "data %q must be numeric", data)
		}
	case Code39:
		// The printer expects the start/stop sentinel around the data.
		if data[0] != '*' {
			data = "*" + data + "*"
		}
	case Code93:
		if len(data) > 99 {
			return encodingErrorf(name, "data length %d exceeds 99", len(data))
		}
	}

	e.emitPosition(e.st.pos)
	switch c.sym {
	case Codabar:
		e.escf("%s0%02d%03d", e.st.ratio, c.width, c.height)
	case Code39:
		e.escf("%s1%02d%03d", e.st.ratio, c.width, c.height)
	case ITF:
		e.escf("%s2%02d%03d", e.st.ratio, c.width, c.height)
	case JAN13:
		e.escf("%s3%02d%03d", e.st.ratio, c.width, c.height)
	case JAN8:
		e.escf("%s4%02d%03d", e.st.ratio, c.width, c.height)
	case Code93:
		e.escf("BC%02d%03d%02d", c.width, c.height, len(data))
	case Code128:
		e.escf("%sG%02d%03d", e.st.ratio, c.width, c.height)
		switch c.subset {
		case 'A':
			e.buf.WriteString(code128StartA + code128FNC1)
		case 'C':
			e.buf.WriteString(code128StartC + code128FNC1)
		default:
			e.buf.WriteString(code128FNC1)
		}
	default:
		return encodingErrorf(name, "unsupported symbology")
	}
	return e.writeASCII(name, data)
}

func (c lineCmd) encode(e *pageEncoder) error {
	if c.dx == 0 && c.dy == 0 {
		return encodingErrorf("line", "zero length")
	}
	if c.dx != 0 && c.dy != 0 {
		return encodingErrorf("line", "diagonal lines are not supported")
	}
	if c.thickness < 1 || c.thickness > 99 {
		return encodingErrorf("line", "thickness %d out of range 1-99", c.thickness)
	}
	e.emitPosition(e.st.pos)
	if c.dx != 0 {
		e.escf("FW%02dH%04d", c.thickness, c.dx)
	} else {
		e.escf("FW%02dV%04d", c.thickness, c.dy)
	}
	return nil
}

func (c rectangleCmd) encode(e *pageEncoder) error {
	if c.width < 1 || c.height < 1 {
		return encodingErrorf("rectangle", "size (%d,%d) must be positive", c.width, c.height)
	}
	if c.thicknessH < 1 || c.thicknessH > 99 || c.thicknessV < 1 || c.thicknessV > 99 {
		return encodingErrorf("rectangle", "thickness (%d,%d) out of range 1-99", c.thicknessH, c.thicknessV)
	}
	e.emitPosition(e.st.pos)
	e.escf("FW%02d%02dV%04dH%04d", c.thicknessH, c.thicknessV, c.height, c.width)
	return nil
}

func (c printCmd) encode(e *pageEncoder) error {
	if c.copies < 1 || c.copies > 999 {
		return encodingErrorf("print", "copy count %d out of range 1-999", c.copies)
	}
	e.escf("Q%d", c.copies)
	return nil
}

// ttfTextCmd rasterizes each character through the glyph capability at
// render time and emits one GB inline-bitmap command per glyph at the
// advancing cursor. The string cursor is local to the primitive; the
// page cursor set by the last position command is left untouched.
func (c ttfTextCmd) encode(e *pageEncoder) error {
	if e.ras == nil {
		return encodingErrorf("ttf_write", "no glyph rasterizer configured")
	}
	if c.expansion < 72 {
		return encodingErrorf("ttf_write", "expansion %d below minimum 72", c.expansion)
	}
	scale := c.expansion / 72

	var glyphs []Glyph
	total := 0
	for _, r := range c.text {
		if r == '\r' || r == '\n' {
			continue
		}
		g, err := e.ras.Rasterize(c.font, r, c.expansion)
		if err != nil {
			// Missing-glyph policy: abort the whole primitive.
			return err
		}
		if c.opts.MaxWidth > 0 && total+g.AdvanceX > c.opts.MaxWidth {
			break
		}
		total += g.AdvanceX
		glyphs = append(glyphs, g)
	}

	// Shift the start down by one em so the position names the top of
	// the string, then apply horizontal alignment inside MaxWidth.
	cur := e.glyphOffset(e.st.pos, 0, -scale)
	if c.opts.MaxWidth > 0 {
		switch c.opts.Align {
		case AlignCenter:
			cur = e.glyphOffset(cur, (c.opts.MaxWidth-total)/2, 0)
		case AlignRight:
			cur = e.glyphOffset(cur, c.opts.MaxWidth-total, 0)
		}
	}

	for _, g := range glyphs {
		if !g.Empty {
			at := e.glyphOffset(cur, g.BearingLeft, g.BearingTop)
			e.emitPosition(at)
			e.escf("GB%03d%03d", g.HeightBytes, g.WidthBytes)
			e.buf.Write(g.Bits)
		}
		cur.X += e.st.pitch
		cur = e.glyphOffset(cur, g.AdvanceX, 0)
	}
	return nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
