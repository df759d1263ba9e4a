// internal/sbpl/translator.go
package sbpl

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Header is the first element of a descriptor: where and how to reach
// the printer. Communication names the device-model frame table to
// drive the session with. ConnectionType and Connection select a
// non-TCP transport; both may be omitted for LAN printers.
type Header struct {
	Host           string                 `json:"host"`
	Port           int                    `json:"port"`
	Communication  string                 `json:"communication"`
	ConnectionType string                 `json:"connection_type"`
	Connection     map[string]interface{} `json:"connection"`
}

// Session is the four-phase printer session driven by Post. Close
// releases the transport and is safe to call on any phase.
type Session interface {
	Open(ctx context.Context, host string, port int) error
	Prepare(ctx context.Context) error
	Send(ctx context.Context, packet []byte) error
	Finish(ctx context.Context) error
	Close() error
}

// barcodeArgs is the [data, width, height] triple used by all barcode
// descriptor keys.
type barcodeArgs struct {
	Data   string
	Width  int
	Height int
}

func (a *barcodeArgs) UnmarshalJSON(raw []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return err
	}
	if len(parts) != 3 {
		return encodingErrorf("barcode", "expected [data, width, height], got %d arguments", len(parts))
	}
	if err := json.Unmarshal(parts[0], &a.Data); err != nil {
		return encodingErrorf("barcode", "data must be a string: %v", err)
	}
	if err := json.Unmarshal(parts[1], &a.Width); err != nil {
		return encodingErrorf("barcode", "width must be an integer: %v", err)
	}
	if err := json.Unmarshal(parts[2], &a.Height); err != nil {
		return encodingErrorf("barcode", "height must be an integer: %v", err)
	}
	return nil
}

// descriptor is one command object decoded into a typed record.
// Optional fields model the unordered JSON keys; the translator
// applies state-setting fields before the emitting field regardless of
// the object's own key order. Unknown keys fall away in decoding,
// which is the forward-compatibility policy.
type descriptor struct {
	// State-setting keys.
	Pos          *[2]int          `json:"pos"`
	Expansion    []int            `json:"expansion"`
	Pitch        *int             `json:"pitch"`
	Rotate       *int             `json:"rotate"`
	Rotate0      *json.RawMessage `json:"rotate_0"`
	Rotate90     *json.RawMessage `json:"rotate_90"`
	Rotate180    *json.RawMessage `json:"rotate_180"`
	Rotate270    *json.RawMessage `json:"rotate_270"`
	Font         *string          `json:"font"`
	ShiftJIS     *json.RawMessage `json:"shift_jis"`
	BarcodeRatio *string          `json:"barcode_ratio"`
	Comment      *string          `json:"comment"`

	// Layout arguments consumed by ttf_write and line/rectangle.
	Width     *int             `json:"width"`
	Align     *string          `json:"align"`
	Thickness *json.RawMessage `json:"thickness"`

	// Emitting keys; at most one may be present per object.
	SetLabelSize   *[2]int             `json:"set_label_size"`
	SetLabelSizeMM *[2]decimal.Decimal `json:"set_label_size_mm"`
	WriteText      *string             `json:"write_text"`
	BoldText       *string             `json:"bold_text"`
	TTFWrite       *string             `json:"ttf_write"`
	Line           *[2]int             `json:"line"`
	Rectangle      *[2]int             `json:"rectangle"`
	Code39         *barcodeArgs        `json:"code_39"`
	Code93         *barcodeArgs        `json:"code_93"`
	Code128        *barcodeArgs        `json:"code_128"`
	Codabar        *barcodeArgs        `json:"codabar"`
	JAN13          *barcodeArgs        `json:"jan_13"`
	JAN8           *barcodeArgs        `json:"jan_8"`
	ITF2of5        *barcodeArgs        `json:"itf2of5"`
	SkipCutting    *json.RawMessage    `json:"skip_cutting"`
	Print          *int                `json:"print"`
}

// Translator replays an ordered JSON descriptor against a Generator.
// Replay order matters: the generator's encoder is stateful, so the
// descriptor sequence maps one-to-one onto generator calls.
type Translator struct {
	gen    *Generator
	header Header
	parsed bool
}

// NewTranslator creates a translator feeding gen.
func NewTranslator(gen *Generator) *Translator {
	return &Translator{gen: gen}
}

// Header returns the communication header of the last parsed
// descriptor.
func (t *Translator) Header() Header {
	return t.header
}

// SetHeader replaces the parsed header. Callers use it to fill in
// endpoint defaults before posting.
func (t *Translator) SetHeader(h Header) {
	t.header = h
}

// Generator returns the generator the descriptor was replayed into.
func (t *Translator) Generator() *Generator {
	return t.gen
}

// Parse decodes a full descriptor document: a JSON array whose first
// element is the communication header and whose remaining elements are
// one command list per page. All pages share a single packet and,
// later, a single session-level send.
func (t *Translator) Parse(raw []byte) error {
	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return fmt.Errorf("descriptor is not a JSON array: %w", err)
	}
	if len(elements) < 2 {
		return fmt.Errorf("descriptor needs a header and at least one page, got %d elements", len(elements))
	}
	if err := json.Unmarshal(elements[0], &t.header); err != nil {
		return fmt.Errorf("descriptor header: %w", err)
	}

	return t.gen.Packet(func() error {
		for i, element := range elements[1:] {
			var lines []json.RawMessage
			if err := json.Unmarshal(element, &lines); err != nil {
				return fmt.Errorf("page %d is not a command list: %w", i+1, err)
			}
			err := t.gen.PageScope(func() error {
				for j, line := range lines {
					if err := t.parseLine(line); err != nil {
						return fmt.Errorf("page %d command %d: %w", i+1, j+1, err)
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		t.parsed = true
		return nil
	})
}

// parseLine decodes one descriptor object and applies it: state
// setters first, then the single emitting key.
func (t *Translator) parseLine(raw []byte) error {
	var d descriptor
	if err := json.Unmarshal(raw, &d); err != nil {
		return err
	}

	if err := t.applyState(&d); err != nil {
		return err
	}
	return t.applyEmitter(&d)
}

func (t *Translator) applyState(d *descriptor) error {
	gen := t.gen

	if d.ShiftJIS != nil {
		if err := gen.ShiftJIS(); err != nil {
			return err
		}
	}
	if rot, ok := d.rotation(); ok {
		if err := gen.Rotate(rot); err != nil {
			return err
		}
	}
	if d.BarcodeRatio != nil {
		if err := gen.BarcodeRatio(BarRatio(*d.BarcodeRatio)); err != nil {
			return err
		}
	}
	if d.Pos != nil {
		if err := gen.Position(d.Pos[0], d.Pos[1]); err != nil {
			return err
		}
	}
	// A two-element expansion is page magnification state. A single
	// element is the TTF font scale and belongs to ttf_write alone.
	if len(d.Expansion) == 2 {
		pitch := 0
		if d.Pitch != nil {
			pitch = *d.Pitch
		}
		if err := gen.ExpansionPitch(d.Expansion[0], d.Expansion[1], pitch); err != nil {
			return err
		}
	}
	if d.Comment != nil {
		if err := gen.Comment(*d.Comment); err != nil {
			return err
		}
	}
	return nil
}

func (d *descriptor) rotation() (Rotation, bool) {
	if d.Rotate != nil {
		return Rotation(*d.Rotate), true
	}
	switch {
	case d.Rotate0 != nil:
		return Rotate0, true
	case d.Rotate90 != nil:
		return Rotate90, true
	case d.Rotate180 != nil:
		return Rotate180, true
	case d.Rotate270 != nil:
		return Rotate270, true
	}
	return Rotate0, false
}

func (d *descriptor) ttfExpansion() (int, bool) {
	if len(d.Expansion) == 1 {
		return d.Expansion[0], true
	}
	return 0, false
}

func (t *Translator) applyEmitter(d *descriptor) error {
	gen := t.gen
	emitted := 0
	var err error

	emit := func(fn func() error) {
		emitted++
		if err == nil {
			err = fn()
		}
	}

	if d.SetLabelSize != nil {
		emit(func() error { return gen.SetLabelSize(d.SetLabelSize[0], d.SetLabelSize[1]) })
	}
	if d.SetLabelSizeMM != nil {
		emit(func() error { return gen.SetLabelSizeMM(d.SetLabelSizeMM[0], d.SetLabelSizeMM[1]) })
	}
	if d.WriteText != nil {
		emit(func() error { return gen.WriteText(*d.WriteText) })
	}
	if d.BoldText != nil {
		emit(func() error { return gen.BoldText(*d.BoldText) })
	}
	if d.TTFWrite != nil {
		emit(func() error { return t.emitTTF(d) })
	}
	if d.Line != nil {
		emit(func() error {
			thickness, terr := d.lineThickness()
			if terr != nil {
				return terr
			}
			return gen.Line(d.Line[0], d.Line[1], thickness)
		})
	}
	if d.Rectangle != nil {
		emit(func() error {
			h, v, terr := d.rectThickness()
			if terr != nil {
				return terr
			}
			return gen.Rectangle(d.Rectangle[0], d.Rectangle[1], h, v)
		})
	}
	if d.Codabar != nil {
		emit(func() error { return gen.Barcode(Codabar, d.Codabar.Data, d.Codabar.Width, d.Codabar.Height) })
	}
	if d.Code39 != nil {
		emit(func() error { return gen.Barcode(Code39, d.Code39.Data, d.Code39.Width, d.Code39.Height) })
	}
	if d.Code93 != nil {
		emit(func() error { return gen.Barcode(Code93, d.Code93.Data, d.Code93.Width, d.Code93.Height) })
	}
	if d.Code128 != nil {
		emit(func() error { return gen.Barcode(Code128, d.Code128.Data, d.Code128.Width, d.Code128.Height) })
	}
	if d.JAN13 != nil {
		emit(func() error { return gen.Barcode(JAN13, d.JAN13.Data, d.JAN13.Width, d.JAN13.Height) })
	}
	if d.JAN8 != nil {
		emit(func() error { return gen.Barcode(JAN8, d.JAN8.Data, d.JAN8.Width, d.JAN8.Height) })
	}
	if d.ITF2of5 != nil {
		emit(func() error { return gen.Barcode(ITF, d.ITF2of5.Data, d.ITF2of5.Width, d.ITF2of5.Height) })
	}
	if d.SkipCutting != nil {
		emit(gen.SkipCutting)
	}
	if d.Print != nil {
		emit(func() error { return gen.Print(*d.Print) })
	}

	if emitted > 1 {
		return encodingErrorf("descriptor", "%d emitting keys in one object, at most one allowed", emitted)
	}
	return err
}

func (t *Translator) emitTTF(d *descriptor) error {
	if d.Font == nil {
		return encodingErrorf("ttf_write", "missing font key")
	}
	expansion, ok := d.ttfExpansion()
	if !ok {
		return encodingErrorf("ttf_write", "expansion must be a single-element array")
	}
	opts := TTFOptions{}
	if d.Width != nil {
		opts.MaxWidth = *d.Width
	}
	if d.Align != nil {
		opts.Align = Align(*d.Align)
	}
	return t.gen.TTFWrite(*d.Font, *d.TTFWrite, expansion, opts)
}

func (d *descriptor) lineThickness() (int, error) {
	if d.Thickness == nil {
		return 0, encodingErrorf("line", "missing thickness key")
	}
	var n int
	if err := json.Unmarshal(*d.Thickness, &n); err != nil {
		return 0, encodingErrorf("line", "thickness must be an integer: %v", err)
	}
	return n, nil
}

func (d *descriptor) rectThickness() (int, int, error) {
	if d.Thickness == nil {
		return 0, 0, encodingErrorf("rectangle", "missing thickness key")
	}
	var pair [2]int
	if err := json.Unmarshal(*d.Thickness, &pair); err != nil {
		return 0, 0, encodingErrorf("rectangle", "thickness must be a two-element array: %v", err)
	}
	return pair[0], pair[1], nil
}

// Post drives one full session for the parsed descriptor: open,
// prepare, a single send of the serialized packet, finish. The
// transport is released on every path.
func (t *Translator) Post(ctx context.Context, sess Session) error {
	if !t.parsed {
		return &ScopeUsageError{Op: "post", Reason: "no descriptor has been parsed"}
	}

	payload, err := t.gen.ToBytes()
	if err != nil {
		return err
	}

	if err := sess.Open(ctx, t.header.Host, t.header.Port); err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.Prepare(ctx); err != nil {
		return err
	}
	if err := sess.Send(ctx, payload); err != nil {
		return err
	}
	return sess.Finish(ctx)
}
