package sbpl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
)

const testHeader = `{"host":"192.168.0.251","port":1024,"communication":"SG412R_Status5"}`

func parseDescriptor(t *testing.T, doc string) *Translator {
	t.Helper()
	tr := NewTranslator(newTestGenerator())
	if err := tr.Parse([]byte(doc)); err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	return tr
}

func TestParseHeader(t *testing.T) {
	tr := parseDescriptor(t, `[`+testHeader+`,[{"print":1}]]`)
	h := tr.Header()
	if h.Host != "192.168.0.251" || h.Port != 1024 || h.Communication != "SG412R_Status5" {
		t.Errorf("Header() = %+v", h)
	}
}

func TestDescriptorMatchesDirectCalls(t *testing.T) {
	doc := `[` + testHeader + `,[
		{"pos":[160,1000],"expansion":[1,1],"bold_text":"ABC"}
	]]`
	tr := parseDescriptor(t, doc)
	declarative, err := tr.Generator().ToBytes()
	if err != nil {
		t.Fatalf("ToBytes() error: %v", err)
	}

	gen := newTestGenerator()
	direct := buildSinglePage(t, gen, func() error {
		if err := gen.Position(160, 1000); err != nil {
			return err
		}
		if err := gen.ExpansionPitch(1, 1, 0); err != nil {
			return err
		}
		return gen.BoldText("ABC")
	})

	if !bytes.Equal(declarative, direct) {
		t.Errorf("declarative output differs from direct calls:\n%q\n%q", declarative, direct)
	}
}

func TestDescriptorKeyOrderIrrelevant(t *testing.T) {
	orderings := []string{
		`{"expansion":[2,2],"pos":[10,20],"bold_text":"X"}`,
		`{"bold_text":"X","pos":[10,20],"expansion":[2,2]}`,
		`{"pos":[10,20],"bold_text":"X","expansion":[2,2]}`,
	}

	var outputs [][]byte
	for _, obj := range orderings {
		tr := parseDescriptor(t, `[`+testHeader+`,[`+obj+`]]`)
		out, err := tr.Generator().ToBytes()
		if err != nil {
			t.Fatalf("ToBytes() error: %v", err)
		}
		outputs = append(outputs, out)
	}

	for i := 1; i < len(outputs); i++ {
		if !bytes.Equal(outputs[0], outputs[i]) {
			t.Errorf("ordering %d changed output:\n%q\n%q", i, outputs[0], outputs[i])
		}
	}
	if !bytes.Contains(outputs[0], []byte("\x1bV0020\x1bH0010\x1bP00\x1bL0202\x1bX22,X")) {
		t.Errorf("state not applied before emitting key: %q", outputs[0])
	}
}

func TestUnknownKeysIgnored(t *testing.T) {
	plain := parseDescriptor(t, `[`+testHeader+`,[{"print":1}]]`)
	extra := parseDescriptor(t, `[`+testHeader+`,[{"print":1,"future_option":true,"vendor_ext":[1,2]}]]`)

	a, err := plain.Generator().ToBytes()
	if err != nil {
		t.Fatalf("ToBytes() error: %v", err)
	}
	b, err := extra.Generator().ToBytes()
	if err != nil {
		t.Fatalf("ToBytes() error: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Errorf("unknown keys changed output:\n%q\n%q", a, b)
	}
}

func TestMultipleEmittingKeysRejected(t *testing.T) {
	tr := NewTranslator(newTestGenerator())
	err := tr.Parse([]byte(`[` + testHeader + `,[{"bold_text":"A","write_text":"B"}]]`))
	var encErr *EncodingError
	if !errors.As(err, &encErr) {
		t.Errorf("expected EncodingError, got %v", err)
	}
}

func TestBarcodeArityRejected(t *testing.T) {
	tests := []string{
		`{"codabar":["123",3]}`,
		`{"codabar":["123",3,100,7]}`,
		`{"codabar":[3,100]}`,
	}
	for _, obj := range tests {
		tr := NewTranslator(newTestGenerator())
		err := tr.Parse([]byte(`[` + testHeader + `,[` + obj + `]]`))
		var encErr *EncodingError
		if !errors.As(err, &encErr) {
			t.Errorf("descriptor %s: expected EncodingError, got %v", obj, err)
		}
	}
}

func TestMultiPageDescriptor(t *testing.T) {
	doc := `[` + testHeader + `,
		[{"set_label_size":[1000,3000]},{"write_text":"one"},{"print":1}],
		[{"write_text":"two"},{"print":1}],
		[{"write_text":"three"},{"print":1}]
	]`
	tr := parseDescriptor(t, doc)

	out, err := tr.Generator().ToBytes()
	if err != nil {
		t.Fatalf("ToBytes() error: %v", err)
	}

	// All pages share one packet and one size declaration.
	if n := bytes.Count(out, []byte{STX}); n != 1 {
		t.Errorf("got %d packets, want 1", n)
	}
	if n := bytes.Count(out, []byte("A1V3000H1000")); n != 1 {
		t.Errorf("label size declared %d times, want 1", n)
	}
	if n := bytes.Count(out, []byte{ESC, 'Z'}); n != 3 {
		t.Errorf("got %d pages, want 3", n)
	}
	for i, text := range []string{"one", "two", "three"} {
		if !bytes.Contains(out, []byte("\x1bK9B"+text)) {
			t.Errorf("page %d text %q missing from output", i+1, text)
		}
	}
}

func TestLabelSizeInMillimeters(t *testing.T) {
	// 50.8mm x 25.4mm at 203dpi is exactly 406 x 203 dots.
	doc := `[` + testHeader + `,
		[{"set_label_size_mm":[50.8,25.4]},{"write_text":"one"},{"print":1}]
	]`
	tr := parseDescriptor(t, doc)
	out, err := tr.Generator().ToBytes()
	if err != nil {
		t.Fatalf("ToBytes() error: %v", err)
	}
	if n := bytes.Count(out, []byte("A1V0203H0406")); n != 1 {
		t.Errorf("label size declared %d times, want 1", n)
	}
}

func TestTTFDescriptor(t *testing.T) {
	doc := `[` + testHeader + `,[
		{"pos":[710,130],"expansion":[2880],"ttf_write":"AB","font":"goregular"}
	]]`
	tr := parseDescriptor(t, doc)
	out, err := tr.Generator().ToBytes()
	if err != nil {
		t.Fatalf("ToBytes() error: %v", err)
	}
	if n := bytes.Count(out, []byte("\x1bGB008008")); n != 2 {
		t.Errorf("got %d glyph bitmaps, want 2", n)
	}
}

func TestTTFDescriptorMissingFont(t *testing.T) {
	tr := NewTranslator(newTestGenerator())
	err := tr.Parse([]byte(`[` + testHeader + `,[{"expansion":[2880],"ttf_write":"AB"}]]`))
	var encErr *EncodingError
	if !errors.As(err, &encErr) {
		t.Errorf("expected EncodingError, got %v", err)
	}
}

func TestParseRejectsMalformedDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not_array", `{"host":"x"}`},
		{"header_only", `[` + testHeader + `]`},
		{"page_not_array", `[` + testHeader + `,{"print":1}]`},
		{"page_line_not_object", `[` + testHeader + `,["print"]]`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := NewTranslator(newTestGenerator())
			if err := tr.Parse([]byte(tc.doc)); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

// recordingSession captures the session calls Post makes.
type recordingSession struct {
	calls   []string
	payload []byte
	failOn  string
}

func (s *recordingSession) call(name string) error {
	s.calls = append(s.calls, name)
	if s.failOn == name {
		return fmt.Errorf("%s failed", name)
	}
	return nil
}

func (s *recordingSession) Open(ctx context.Context, host string, port int) error {
	return s.call(fmt.Sprintf("open %s:%d", host, port))
}
func (s *recordingSession) Prepare(ctx context.Context) error { return s.call("prepare") }
func (s *recordingSession) Send(ctx context.Context, packet []byte) error {
	s.payload = append([]byte(nil), packet...)
	return s.call("send")
}
func (s *recordingSession) Finish(ctx context.Context) error { return s.call("finish") }
func (s *recordingSession) Close() error                     { return s.call("close") }

func TestPostDrivesFullSession(t *testing.T) {
	tr := parseDescriptor(t, `[`+testHeader+`,[{"print":1}]]`)
	sess := &recordingSession{}
	if err := tr.Post(context.Background(), sess); err != nil {
		t.Fatalf("Post() error: %v", err)
	}

	want := []string{"open 192.168.0.251:1024", "prepare", "send", "finish", "close"}
	if len(sess.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", sess.calls, want)
	}
	for i := range want {
		if sess.calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, sess.calls[i], want[i])
		}
	}

	expected, err := tr.Generator().ToBytes()
	if err != nil {
		t.Fatalf("ToBytes() error: %v", err)
	}
	if !bytes.Equal(sess.payload, expected) {
		t.Errorf("sent payload differs from ToBytes output")
	}
}

func TestPostReleasesSessionOnError(t *testing.T) {
	tr := parseDescriptor(t, `[`+testHeader+`,[{"print":1}]]`)
	sess := &recordingSession{failOn: "prepare"}
	if err := tr.Post(context.Background(), sess); err == nil {
		t.Fatal("expected Post to propagate prepare failure")
	}
	if sess.calls[len(sess.calls)-1] != "close" {
		t.Errorf("session not closed on error path: %v", sess.calls)
	}
}

func TestPostWithoutParse(t *testing.T) {
	tr := NewTranslator(newTestGenerator())
	err := tr.Post(context.Background(), &recordingSession{})
	var usageErr *ScopeUsageError
	if !errors.As(err, &usageErr) {
		t.Errorf("expected ScopeUsageError, got %v", err)
	}
}
