package font

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"label-service/internal/sbpl"
)

func TestRasterizeLetter(t *testing.T) {
	repo := NewRepository("")

	g, err := repo.Rasterize("goregular", 'A', 2880)
	if err != nil {
		t.Fatalf("Rasterize() error: %v", err)
	}
	if g.Empty {
		t.Fatal("letter glyph reported empty")
	}
	if g.WidthBytes != g.HeightBytes {
		t.Errorf("bitmap not square: %dx%d bytes", g.WidthBytes, g.HeightBytes)
	}
	if side := g.WidthBytes * 8; side%64 != 0 {
		t.Errorf("side %d px is not a multiple of 64", side)
	}
	if want := g.WidthBytes * g.HeightBytes * 8; len(g.Bits) != want {
		t.Errorf("len(Bits) = %d, want %d", len(g.Bits), want)
	}
	if g.AdvanceX <= 0 {
		t.Errorf("AdvanceX = %d, want > 0", g.AdvanceX)
	}

	inked := false
	for _, b := range g.Bits {
		if b != 0 {
			inked = true
			break
		}
	}
	if !inked {
		t.Error("bitmap has no set pixels")
	}
}

func TestRasterizeWhitespace(t *testing.T) {
	repo := NewRepository("")

	tests := []struct {
		c       rune
		advance int
	}{
		{' ', 20},
		{'\t', 20},
		{'　', 40},
	}
	for _, tc := range tests {
		g, err := repo.Rasterize("goregular", tc.c, 2880)
		if err != nil {
			t.Fatalf("Rasterize(%q) error: %v", tc.c, err)
		}
		if !g.Empty {
			t.Errorf("Rasterize(%q): whitespace glyph not empty", tc.c)
		}
		if g.AdvanceX != tc.advance {
			t.Errorf("Rasterize(%q): AdvanceX = %d, want %d", tc.c, g.AdvanceX, tc.advance)
		}
	}
}

func TestRasterizeMissingGlyph(t *testing.T) {
	repo := NewRepository("")

	// The Go fonts carry no CJK coverage.
	_, err := repo.Rasterize("goregular", 'あ', 2880)
	var glyphErr *sbpl.GlyphError
	if !errors.As(err, &glyphErr) {
		t.Fatalf("expected GlyphError, got %v", err)
	}
	if glyphErr.Font != "goregular" || glyphErr.Rune != 'あ' {
		t.Errorf("GlyphError = %+v", glyphErr)
	}
}

func TestRasterizeUnknownFont(t *testing.T) {
	repo := NewRepository("")
	_, err := repo.Rasterize("no-such-font.ttf", 'A', 2880)
	if err == nil {
		t.Fatal("expected error for unknown font")
	}
	var glyphErr *sbpl.GlyphError
	if errors.As(err, &glyphErr) {
		t.Errorf("missing font must not be a GlyphError: %v", err)
	}
}

func TestRasterizeExpansionTooSmall(t *testing.T) {
	repo := NewRepository("")
	if _, err := repo.Rasterize("goregular", 'A', 10); err == nil {
		t.Fatal("expected error for sub-dot expansion")
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"mplus-1p-medium.ttf", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	names, err := NewRepository(dir).List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}

	want := map[string]bool{"gomono": true, "goregular": true, "mplus-1p-medium.ttf": true}
	for _, name := range names {
		if !want[name] {
			t.Errorf("unexpected entry %q", name)
		}
		delete(want, name)
	}
	for name := range want {
		t.Errorf("missing entry %q", name)
	}
}
