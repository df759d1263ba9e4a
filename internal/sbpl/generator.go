// internal/sbpl/generator.go
package sbpl

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"

	"label-service/internal/model"
)

// Page is one physical label's worth of accumulated primitives. A page
// is sealed when its scope closes; sealed pages accept no further
// commands.
type Page struct {
	commands []Command
}

// packet is one print job's worth of pages plus the global label size
// declaration and the packet-level cut-skip flag.
type packet struct {
	pages    []*Page
	size     *Coordinate // width, height in dots; nil until declared
	skipCut  bool
}

// Generator buffers packets of pages and serializes them on demand.
// It is exclusively owned by one label job; no concurrent use is
// supported.
//
// Scope rules: pages nest inside packets, page scopes do not nest, a
// packet may only close once at least one page has been sealed inside
// it, and all mutation operations require an open page (SetLabelSize
// and SkipCutting require at least an open packet, since they are
// recorded packet-wide).
type Generator struct {
	enc       *Encoder
	maxPacket int
	dpi       int

	packets    []*packet
	openPacket *packet
	openPage   *Page
}

// Option configures a Generator.
type Option func(*Generator)

// WithMaxPacketBytes caps the serialized size of the whole buffered
// job. ToBytes fails with a ResourceError when the rendered output
// exceeds the cap. Zero means unbounded.
func WithMaxPacketBytes(n int) Option {
	return func(g *Generator) { g.maxPacket = n }
}

// WithDPI sets the print head density used when label geometry is
// given in millimeters. Defaults to 203 dpi.
func WithDPI(dpi int) Option {
	return func(g *Generator) {
		if dpi > 0 {
			g.dpi = dpi
		}
	}
}

// NewGenerator creates a generator rendering through enc.
func NewGenerator(enc *Encoder, opts ...Option) *Generator {
	g := &Generator{enc: enc, dpi: model.DPI203}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// BeginPacket opens a packet scope.
func (g *Generator) BeginPacket() error {
	if g.openPacket != nil {
		return &ScopeUsageError{Op: "begin_packet", Reason: "a packet is already open"}
	}
	g.openPacket = &packet{}
	return nil
}

// EndPacket closes the open packet scope. At least one page must have
// been sealed inside it.
func (g *Generator) EndPacket() error {
	if g.openPacket == nil {
		return &ScopeUsageError{Op: "end_packet", Reason: "no packet is open"}
	}
	if g.openPage != nil {
		return &ScopeUsageError{Op: "end_packet", Reason: "a page is still open"}
	}
	if len(g.openPacket.pages) == 0 {
		return &ScopeUsageError{Op: "end_packet", Reason: "packet contains no sealed page"}
	}
	g.packets = append(g.packets, g.openPacket)
	g.openPacket = nil
	return nil
}

// Packet runs fn inside a packet scope, closing the scope on success.
func (g *Generator) Packet(fn func() error) error {
	if err := g.BeginPacket(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		// Abandon the scope; the packet is not appended.
		g.openPage = nil
		g.openPacket = nil
		return err
	}
	return g.EndPacket()
}

// BeginPage opens a page scope inside the open packet. Each page
// starts from default cursor, expansion, rotation and encoding state.
func (g *Generator) BeginPage() error {
	if g.openPacket == nil {
		return &ScopeUsageError{Op: "begin_page", Reason: "no packet is open"}
	}
	if g.openPage != nil {
		return &ScopeUsageError{Op: "begin_page", Reason: "page scopes cannot nest"}
	}
	g.openPage = &Page{}
	return nil
}

// EndPage seals the open page.
func (g *Generator) EndPage() error {
	if g.openPage == nil {
		return &ScopeUsageError{Op: "end_page", Reason: "no page is open"}
	}
	g.openPacket.pages = append(g.openPacket.pages, g.openPage)
	g.openPage = nil
	return nil
}

// PageScope runs fn inside a page scope, sealing the page on success.
func (g *Generator) PageScope(fn func() error) error {
	if err := g.BeginPage(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		g.openPage = nil
		return err
	}
	return g.EndPage()
}

func (g *Generator) append(cmd Command) error {
	if g.openPage == nil {
		return &ScopeUsageError{Op: "draw", Reason: "no page is open"}
	}
	g.openPage.commands = append(g.openPage.commands, cmd)
	return nil
}

// SetLabelSize declares the label width and height in dots. The
// declaration is packet-global; the last call inside a packet wins and
// is emitted exactly once in the packet prefix.
func (g *Generator) SetLabelSize(width, height int) error {
	if g.openPacket == nil {
		return &ScopeUsageError{Op: "set_label_size", Reason: "no packet is open"}
	}
	g.openPacket.size = &Coordinate{X: width, Y: height}
	return nil
}

// SetLabelSizeMM declares the label size in millimeters, converted to
// dots at the generator's head density. Label stock is sold in
// millimeters, so descriptors may use either unit.
func (g *Generator) SetLabelSizeMM(width, height decimal.Decimal) error {
	size := model.LabelSizeMM{Width: width, Height: height}
	w, h := size.Dots(g.dpi)
	return g.SetLabelSize(w, h)
}

// SkipCutting suppresses the printer's page-boundary cut for the whole
// packet.
func (g *Generator) SkipCutting() error {
	if g.openPacket == nil {
		return &ScopeUsageError{Op: "skip_cutting", Reason: "no packet is open"}
	}
	g.openPacket.skipCut = true
	return nil
}

// Position sets the absolute cursor for subsequent draw commands.
func (g *Generator) Position(x, y int) error {
	return g.append(positionCmd{at: Coordinate{X: x, Y: y}})
}

// Expansion sets the character magnification for subsequent text.
func (g *Generator) Expansion(h, v int) error {
	return g.append(expansionCmd{exp: Expansion{H: h, V: v}})
}

// ExpansionPitch sets magnification together with inter-character
// pitch in dots.
func (g *Generator) ExpansionPitch(h, v, pitch int) error {
	return g.append(expansionCmd{exp: Expansion{H: h, V: v}, pitch: pitch})
}

// Rotate sets the coordinate-axis rotation for subsequent commands.
func (g *Generator) Rotate(r Rotation) error {
	return g.append(rotateCmd{rot: r})
}

// ShiftJIS switches the character encoding for subsequent text to
// Shift_JIS (CP932). Required before printing multi-byte strings.
func (g *Generator) ShiftJIS() error {
	return g.append(shiftJISCmd{})
}

// BarcodeRatio selects the narrow/wide ratio for subsequent
// ratio-prefixed barcodes.
func (g *Generator) BarcodeRatio(r BarRatio) error {
	return g.append(barRatioCmd{ratio: r})
}

// Comment records a no-op marker.
func (g *Generator) Comment(text string) error {
	return g.append(commentCmd{text: text})
}

// WriteText prints text with the built-in font at the active cursor
// and expansion.
func (g *Generator) WriteText(text string) error {
	return g.append(textCmd{text: text})
}

// BoldText prints text with the built-in bold font.
func (g *Generator) BoldText(text string) error {
	return g.append(textCmd{text: text, bold: true})
}

// TTFWrite renders text through the glyph rasterizer as inline
// bitmaps. The expansion value is the font scale; see Rasterizer.
func (g *Generator) TTFWrite(font, text string, expansion int, opts TTFOptions) error {
	return g.append(ttfTextCmd{font: font, text: text, expansion: expansion, opts: opts})
}

// Barcode draws a barcode of the given symbology at the active cursor.
// For CODE128 the subset defaults to B; use Code128 to select another.
func (g *Generator) Barcode(sym Symbology, data string, width, height int) error {
	return g.append(barcodeCmd{sym: sym, data: data, width: width, height: height})
}

// Code128 draws a CODE128 barcode with an explicit start subset
// ('A', 'B' or 'C').
func (g *Generator) Code128(data string, width, height int, subset byte) error {
	if subset != 'A' && subset != 'B' && subset != 'C' {
		return encodingErrorf("code_128", "invalid subset %q", subset)
	}
	return g.append(barcodeCmd{sym: Code128, data: data, width: width, height: height, subset: subset})
}

// Line draws a horizontal or vertical line from the active cursor.
// Exactly one of dx, dy must be non-zero.
func (g *Generator) Line(dx, dy, thickness int) error {
	return g.append(lineCmd{dx: dx, dy: dy, thickness: thickness})
}

// Rectangle draws a rectangle outline from the active cursor.
func (g *Generator) Rectangle(width, height, thicknessH, thicknessV int) error {
	return g.append(rectangleCmd{width: width, height: height, thicknessH: thicknessH, thicknessV: thicknessV})
}

// Print sets how many copies of the current label to print. Without
// it the page is buffered but never printed.
func (g *Generator) Print(copies int) error {
	return g.append(printCmd{copies: copies})
}

// PageCount reports the number of sealed pages across closed packets.
func (g *Generator) PageCount() int {
	n := 0
	for _, p := range g.packets {
		n += len(p.pages)
	}
	return n
}

// ToBytes serializes every closed packet in order: STX, one label-size
// declaration, the cut-skip flag if set, each sealed page wrapped in
// its ESC A / ESC Z scope, ETX. It is a pure read over accumulated
// state: calling it twice yields byte-identical output, and further
// packets may still be added before a final call.
func (g *Generator) ToBytes() ([]byte, error) {
	if g.openPacket != nil || g.openPage != nil {
		return nil, &ScopeUsageError{Op: "to_bytes", Reason: "a scope is still open"}
	}
	if len(g.packets) == 0 {
		return nil, &ScopeUsageError{Op: "to_bytes", Reason: "no packet has been closed"}
	}

	var out bytes.Buffer
	for _, p := range g.packets {
		out.WriteByte(STX)
		if p.size != nil {
			w, h := p.size.X, p.size.Y
			if w < 1 || w > 9999 || h < 1 || h > 9999 {
				return nil, encodingErrorf("set_label_size", "size (%d,%d) out of range 1-9999", w, h)
			}
			out.WriteByte(ESC)
			writeSize(&out, w, h)
		}
		if p.skipCut {
			out.WriteByte(ESC)
			out.WriteString("CT0")
		}
		for _, page := range p.pages {
			body, err := g.enc.RenderPage(page)
			if err != nil {
				return nil, err
			}
			out.Write(body)
		}
		out.WriteByte(ETX)
	}

	if g.maxPacket > 0 && out.Len() > g.maxPacket {
		return nil, &ResourceError{Size: out.Len(), Limit: g.maxPacket}
	}
	return out.Bytes(), nil
}

func writeSize(out *bytes.Buffer, w, h int) {
	// A1 declares the label size, vertical first.
	fmt.Fprintf(out, "A1V%04dH%04d", h, w)
}
