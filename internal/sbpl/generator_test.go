package sbpl

import (
	"bytes"
	"errors"
	"testing"
)

func newTestGenerator(opts ...Option) *Generator {
	return NewGenerator(NewEncoder(&fakeRasterizer{}), opts...)
}

func buildSinglePage(t *testing.T, gen *Generator, fn func() error) []byte {
	t.Helper()
	err := gen.Packet(func() error {
		return gen.PageScope(fn)
	})
	if err != nil {
		t.Fatalf("build packet: %v", err)
	}
	out, err := gen.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes() error: %v", err)
	}
	return out
}

func TestScopeUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		run  func(g *Generator) error
	}{
		{"page_outside_packet", func(g *Generator) error {
			return g.BeginPage()
		}},
		{"draw_outside_page", func(g *Generator) error {
			if err := g.BeginPacket(); err != nil {
				return err
			}
			return g.Position(1, 2)
		}},
		{"nested_pages", func(g *Generator) error {
			g.BeginPacket()
			g.BeginPage()
			return g.BeginPage()
		}},
		{"nested_packets", func(g *Generator) error {
			g.BeginPacket()
			return g.BeginPacket()
		}},
		{"end_empty_packet", func(g *Generator) error {
			g.BeginPacket()
			return g.EndPacket()
		}},
		{"end_packet_with_open_page", func(g *Generator) error {
			g.BeginPacket()
			g.BeginPage()
			return g.EndPacket()
		}},
		{"end_page_without_page", func(g *Generator) error {
			g.BeginPacket()
			return g.EndPage()
		}},
		{"set_label_size_outside_packet", func(g *Generator) error {
			return g.SetLabelSize(100, 200)
		}},
		{"to_bytes_with_open_scope", func(g *Generator) error {
			g.BeginPacket()
			g.BeginPage()
			_, err := g.ToBytes()
			return err
		}},
		{"to_bytes_without_packet", func(g *Generator) error {
			_, err := g.ToBytes()
			return err
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run(newTestGenerator())
			var usageErr *ScopeUsageError
			if !errors.As(err, &usageErr) {
				t.Errorf("expected ScopeUsageError, got %v", err)
			}
		})
	}
}

func TestToBytesIdempotent(t *testing.T) {
	gen := newTestGenerator()
	first := buildSinglePage(t, gen, func() error {
		if err := gen.SetLabelSize(1000, 3000); err != nil {
			return err
		}
		if err := gen.Position(260, 930); err != nil {
			return err
		}
		if err := gen.Barcode(Codabar, "0004693003005000", 3, 100); err != nil {
			return err
		}
		return gen.Print(1)
	})

	second, err := gen.ToBytes()
	if err != nil {
		t.Fatalf("second ToBytes() error: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("ToBytes not idempotent:\n%q\n%q", first, second)
	}
}

func TestPacketLayoutMultiPage(t *testing.T) {
	gen := newTestGenerator()
	err := gen.Packet(func() error {
		if err := gen.SetLabelSize(1000, 3000); err != nil {
			return err
		}
		for i := 0; i < 3; i++ {
			err := gen.PageScope(func() error {
				if err := gen.WriteText("page"); err != nil {
					return err
				}
				return gen.Print(1)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("build packet: %v", err)
	}

	out, err := gen.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes() error: %v", err)
	}

	if out[0] != STX || out[len(out)-1] != ETX {
		t.Errorf("packet not framed STX...ETX: % x", out[:4])
	}
	if n := bytes.Count(out, []byte("A1V3000H1000")); n != 1 {
		t.Errorf("label size declared %d times, want exactly 1", n)
	}
	if n := bytes.Count(out, []byte{ESC, 'A'}); n != 1+3 {
		// One A1 declaration plus one ESC A page opener per page.
		t.Errorf("got %d ESC A sequences, want 4", n)
	}
	if n := bytes.Count(out, []byte{ESC, 'Z'}); n != 3 {
		t.Errorf("got %d page closers, want 3", n)
	}
}

func TestPageStateResetsAcrossPages(t *testing.T) {
	gen := newTestGenerator()
	err := gen.Packet(func() error {
		if err := gen.PageScope(func() error {
			if err := gen.Position(111, 222); err != nil {
				return err
			}
			return gen.WriteText("a")
		}); err != nil {
			return err
		}
		// The second page never sets a position; it must render from
		// the default origin, not the previous page's cursor.
		return gen.PageScope(func() error {
			return gen.WriteText("b")
		})
	})
	if err != nil {
		t.Fatalf("build packet: %v", err)
	}

	out, err := gen.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes() error: %v", err)
	}
	if !bytes.Contains(out, []byte("\x1bV0000\x1bH0000\x1bP00\x1bL0101\x1bK9Bb")) {
		t.Errorf("second page did not start from default state: %q", out)
	}
}

func TestCutSkipIsPacketLevel(t *testing.T) {
	gen := newTestGenerator()
	err := gen.Packet(func() error {
		if err := gen.PageScope(func() error {
			if err := gen.SkipCutting(); err != nil {
				return err
			}
			return gen.Print(1)
		}); err != nil {
			return err
		}
		return gen.PageScope(func() error {
			return gen.Print(1)
		})
	})
	if err != nil {
		t.Fatalf("build packet: %v", err)
	}

	out, err := gen.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes() error: %v", err)
	}
	if n := bytes.Count(out, []byte("\x1bCT0")); n != 1 {
		t.Errorf("cut-skip emitted %d times, want exactly 1 per packet", n)
	}
	// The flag belongs to the packet prefix, before any page body.
	if bytes.Index(out, []byte("\x1bCT0")) > bytes.Index(out, []byte{ESC, 'A'}) {
		t.Errorf("cut-skip emitted after first page body: %q", out)
	}
}

func TestPacketSizeCeiling(t *testing.T) {
	gen := newTestGenerator(WithMaxPacketBytes(64))
	err := gen.Packet(func() error {
		return gen.PageScope(func() error {
			return gen.WriteText("a string comfortably longer than the sixty-four byte packet cap")
		})
	})
	if err != nil {
		t.Fatalf("build packet: %v", err)
	}

	_, err = gen.ToBytes()
	var resErr *ResourceError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected ResourceError, got %v", err)
	}
	if resErr.Limit != 64 {
		t.Errorf("ResourceError limit = %d, want 64", resErr.Limit)
	}
}

func TestEncodingErrorAbortsRender(t *testing.T) {
	gen := newTestGenerator()
	err := gen.Packet(func() error {
		return gen.PageScope(func() error {
			if err := gen.Position(10, 10); err != nil {
				return err
			}
			// Arity is typed in Go; the range violation surfaces at
			// render time instead.
			return gen.Barcode(JAN13, "123", 3, 100)
		})
	})
	if err != nil {
		t.Fatalf("build packet: %v", err)
	}

	_, err = gen.ToBytes()
	var encErr *EncodingError
	if !errors.As(err, &encErr) {
		t.Errorf("expected EncodingError from ToBytes, got %v", err)
	}
}

func TestGeneratorExtendAfterSerialize(t *testing.T) {
	gen := newTestGenerator()
	buildSinglePage(t, gen, func() error {
		return gen.Print(1)
	})

	// A serialized generator may still accept further packets.
	err := gen.Packet(func() error {
		return gen.PageScope(func() error {
			return gen.Print(1)
		})
	})
	if err != nil {
		t.Fatalf("append second packet: %v", err)
	}

	out, err := gen.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes() error: %v", err)
	}
	if n := bytes.Count(out, []byte{STX}); n != 2 {
		t.Errorf("got %d packets, want 2", n)
	}
	if gen.PageCount() != 2 {
		t.Errorf("PageCount() = %d, want 2", gen.PageCount())
	}
}
