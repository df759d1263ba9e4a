// internal/font/repository.go
package font

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"label-service/internal/sbpl"
)

// builtins are always available regardless of the configured font
// directory. Names match the descriptor-level font key.
var builtins = map[string][]byte{
	"gomono":    gomono.TTF,
	"goregular": goregular.TTF,
}

type faceKey struct {
	font string
	size int
}

// Repository loads TrueType/OpenType fonts from a directory (plus the
// embedded Go fonts) and rasterizes single glyphs into the packed
// monochrome bitmaps the GB command needs. It implements
// sbpl.Rasterizer and is safe for concurrent use.
type Repository struct {
	dir string

	mu    sync.Mutex
	fonts map[string]*sfnt.Font
	faces map[faceKey]xfont.Face
}

// NewRepository creates a repository reading font files from dir.
// Fonts are parsed lazily on first use and cached.
func NewRepository(dir string) *Repository {
	return &Repository{
		dir:   dir,
		fonts: make(map[string]*sfnt.Font),
		faces: make(map[faceKey]xfont.Face),
	}
}

// List returns the names usable as a descriptor font key: the builtin
// fonts plus every font file found in the directory, sorted.
func (r *Repository) List() ([]string, error) {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}

	if r.dir != "" {
		entries, err := os.ReadDir(r.dir)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read font directory %s: %w", r.dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			switch strings.ToLower(filepath.Ext(entry.Name())) {
			case ".ttf", ".otf":
				names = append(names, entry.Name())
			}
		}
	}

	sort.Strings(names)
	return names, nil
}

// Rasterize renders one character of the named font at the given
// descriptor expansion. The implied pixel size is expansion/72 dots.
// Half-width whitespace advances by half a glyph cell, full-width
// whitespace by a full cell; neither carries a bitmap.
func (r *Repository) Rasterize(name string, c rune, expansion int) (sbpl.Glyph, error) {
	switch c {
	case ' ', '\t':
		return sbpl.Glyph{Empty: true, AdvanceX: expansion / (72 * 2)}, nil
	case '　':
		return sbpl.Glyph{Empty: true, AdvanceX: expansion / 72}, nil
	}

	size := expansion / 72
	if size < 1 {
		return sbpl.Glyph{}, fmt.Errorf("font %s: expansion %d is below one dot per em", name, expansion)
	}

	// Faces mutate internal buffers while rendering, so the lock covers
	// the whole lookup-and-render sequence.
	r.mu.Lock()
	defer r.mu.Unlock()

	fnt, face, err := r.face(name, size)
	if err != nil {
		return sbpl.Glyph{}, err
	}

	var buf sfnt.Buffer
	index, err := fnt.GlyphIndex(&buf, c)
	if err != nil {
		return sbpl.Glyph{}, fmt.Errorf("font %s: glyph lookup for %q: %w", name, c, err)
	}
	if index == 0 {
		return sbpl.Glyph{}, &sbpl.GlyphError{Font: name, Rune: c}
	}

	dr, mask, maskp, _, ok := face.Glyph(fixed.Point26_6{}, c)
	if !ok {
		return sbpl.Glyph{}, &sbpl.GlyphError{Font: name, Rune: c}
	}

	width, rows := dr.Dx(), dr.Dy()
	if width == 0 || rows == 0 {
		return sbpl.Glyph{Empty: true, AdvanceX: expansion / (72 * 2)}, nil
	}

	// Relative to the baseline dot: left side bearing and the rise to
	// the bitmap's top row.
	bearingLeft := dr.Min.X
	bearingTop := -dr.Min.Y

	return sbpl.Glyph{
		Bits:        pack(mask, maskp, width, rows),
		WidthBytes:  paddedSide(width, rows) / 8,
		HeightBytes: paddedSide(width, rows) / 8,
		AdvanceX:    width + 2*bearingLeft,
		BearingLeft: bearingLeft,
		BearingTop:  bearingTop,
	}, nil
}

// paddedSide returns the square side, a multiple of 64, that fits a
// width x rows bitmap.
func paddedSide(width, rows int) int {
	side := width
	if rows > side {
		side = rows
	}
	return (side + 63) / 64 * 64
}

// pack thresholds the anti-aliased glyph mask into a 1bpp row-major
// bitmap padded right and bottom to a paddedSide square.
func pack(mask image.Image, maskp image.Point, width, rows int) []byte {
	side := paddedSide(width, rows)
	stride := side / 8
	bits := make([]byte, stride*side)

	alpha, _ := mask.(*image.Alpha)
	for y := 0; y < rows; y++ {
		row := bits[y*stride:]
		for x := 0; x < width; x++ {
			var a uint8
			if alpha != nil {
				a = alpha.AlphaAt(maskp.X+x, maskp.Y+y).A
			} else {
				_, _, _, a16 := mask.At(maskp.X+x, maskp.Y+y).RGBA()
				a = uint8(a16 >> 8)
			}
			if a >= 0x80 {
				row[x/8] |= 0x80 >> (x % 8)
			}
		}
	}
	return bits
}

// face returns the parsed font and a face at the given pixel size,
// loading and caching both on first use. The caller holds r.mu.
func (r *Repository) face(name string, size int) (*sfnt.Font, xfont.Face, error) {
	fnt, ok := r.fonts[name]
	if !ok {
		data, err := r.fontData(name)
		if err != nil {
			return nil, nil, err
		}
		fnt, err = opentype.Parse(data)
		if err != nil {
			return nil, nil, fmt.Errorf("parse font %s: %w", name, err)
		}
		r.fonts[name] = fnt
	}

	key := faceKey{font: name, size: size}
	face, ok := r.faces[key]
	if !ok {
		var err error
		face, err = opentype.NewFace(fnt, &opentype.FaceOptions{
			Size:    float64(size),
			DPI:     72,
			Hinting: xfont.HintingFull,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create face for %s at %d: %w", name, size, err)
		}
		r.faces[key] = face
	}
	return fnt, face, nil
}

func (r *Repository) fontData(name string) ([]byte, error) {
	if data, ok := builtins[name]; ok {
		return data, nil
	}
	if r.dir == "" {
		return nil, fmt.Errorf("unknown font %q and no font directory configured", name)
	}
	data, err := os.ReadFile(filepath.Join(r.dir, filepath.Base(name)))
	if err != nil {
		return nil, fmt.Errorf("load font %q: %w", name, err)
	}
	return data, nil
}
