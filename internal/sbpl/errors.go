// internal/sbpl/errors.go
package sbpl

import "fmt"

// ScopeUsageError reports a packet/page scope call made out of order,
// for example drawing outside an open page or nesting page scopes.
type ScopeUsageError struct {
	Op     string
	Reason string
}

func (e *ScopeUsageError) Error() string {
	return fmt.Sprintf("sbpl: invalid %s: %s", e.Op, e.Reason)
}

// EncodingError reports a primitive whose arguments cannot be encoded
// into SBPL syntax. It aborts the render of the page containing the
// offending primitive.
type EncodingError struct {
	Command string
	Reason  string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("sbpl: cannot encode %s: %s", e.Command, e.Reason)
}

// GlyphError reports a character with no glyph in the requested font.
// The encoder aborts the whole text primitive on the first missing
// glyph; characters are never silently skipped.
type GlyphError struct {
	Font string
	Rune rune
}

func (e *GlyphError) Error() string {
	return fmt.Sprintf("sbpl: font %q has no glyph for %q", e.Font, e.Rune)
}

// ResourceError reports a packet whose serialized size exceeds the
// configured ceiling. It is surfaced by ToBytes before any
// transmission takes place.
type ResourceError struct {
	Size  int
	Limit int
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("sbpl: packet size %d exceeds configured limit %d", e.Size, e.Limit)
}

func encodingErrorf(command, format string, args ...interface{}) error {
	return &EncodingError{Command: command, Reason: fmt.Sprintf(format, args...)}
}
