// internal/sbpl/command.go
package sbpl

// SBPL control bytes. A packet is framed STX ... ETX; every command
// inside it is introduced by ESC.
const (
	STX = 0x02
	ESC = 0x1B
	ETX = 0x03
)

// CODE128 start/shift marks, SBPL programming reference table 26
// (GL408e / GL412e). Subsets are selected in the data stream, not in
// the command header.
const (
	code128FNC1   = ">F"
	code128StartA = ">G"
	code128StartC = ">I"
)

// Rotation is the coordinate-axis rotation of subsequent positions.
type Rotation int

const (
	Rotate0   Rotation = 0
	Rotate90  Rotation = 90
	Rotate180 Rotation = 180
	Rotate270 Rotation = 270
)

// Coordinate is an absolute position in printer dot units. The origin
// is the top-left corner as seen standing behind the printer; x grows
// rightward and y downward, independent of the rotation setting.
type Coordinate struct {
	X, Y int
}

// Expansion is the horizontal/vertical magnification applied to
// subsequently drawn text.
type Expansion struct {
	H, V int
}

// Symbology identifies a one-dimensional barcode family.
type Symbology int

const (
	Codabar Symbology = iota // NW-7
	Code39
	Code93
	Code128
	JAN13
	JAN8
	ITF // Interleaved 2 of 5
)

func (s Symbology) String() string {
	switch s {
	case Codabar:
		return "codabar"
	case Code39:
		return "code_39"
	case Code93:
		return "code_93"
	case Code128:
		return "code_128"
	case JAN13:
		return "jan_13"
	case JAN8:
		return "jan_8"
	case ITF:
		return "itf2of5"
	}
	return "unknown"
}

// BarRatio selects the narrow/wide bar ratio for the ratio-prefixed
// symbologies. Families other than 1:3 reject some symbologies on the
// printer side.
type BarRatio string

const (
	Ratio1to3 BarRatio = "1:3" // command class B
	Ratio1to2 BarRatio = "1:2" // command class D
	Ratio2to5 BarRatio = "2:5" // command class BD
)

var ratioClasses = map[BarRatio]string{
	Ratio1to3: "B",
	Ratio1to2: "D",
	Ratio2to5: "BD",
}

// Align positions a TTF string relative to its maximum drawing width.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// TTFOptions carries the optional layout arguments of a TTF text
// primitive. A zero MaxWidth means no trimming and no alignment.
type TTFOptions struct {
	MaxWidth int
	Align    Align
}

// Command is one accumulated primitive. Commands are encoded in
// accumulation order at render time; state-setting commands mutate the
// threaded render state and draw commands resolve position, expansion
// and rotation from it when they encode.
type Command interface {
	encode(e *pageEncoder) error
}

// State-setting primitives. None of these emit bytes on their own;
// draw primitives emit the active values when they encode.

type positionCmd struct {
	at Coordinate
}

type expansionCmd struct {
	exp   Expansion
	pitch int
}

type rotateCmd struct {
	rot Rotation
}

type shiftJISCmd struct{}

type barRatioCmd struct {
	ratio BarRatio
}

type commentCmd struct {
	text string
}

// Draw and control primitives.

type textCmd struct {
	text string
	bold bool
}

type ttfTextCmd struct {
	font      string
	text      string
	expansion int
	opts      TTFOptions
}

type barcodeCmd struct {
	sym    Symbology
	data   string
	width  int // narrow bar width class, 1-99
	height int // bar height in dots, 1-999
	subset byte // CODE128 start subset: 'A', 'B' or 'C'
}

type lineCmd struct {
	dx, dy    int
	thickness int
}

type rectangleCmd struct {
	width, height         int
	thicknessH, thicknessV int
}

type printCmd struct {
	copies int
}
