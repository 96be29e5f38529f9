package wirepolicy

import (
	"bytes"
	"fmt"

	gojson "github.com/goccy/go-json"

	eng "github.com/reoring/wirepolicy/internal/engine"
)

// RawValue is one complete, encoded JSON value. It is written verbatim.
type RawValue []byte

// MarshalJSON returns r itself, or null when r is empty.
func (r RawValue) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

// UnmarshalJSON stores a copy of data.
func (r *RawValue) UnmarshalJSON(data []byte) error {
	if r == nil {
		return fmt.Errorf("wirepolicy.RawValue: UnmarshalJSON on nil pointer")
	}
	*r = append((*r)[:0], data...)
	return nil
}

// Equal reports byte equality after trimming surrounding whitespace.
func (r RawValue) Equal(o RawValue) bool {
	return bytes.Equal(bytes.TrimSpace(r), bytes.TrimSpace(o))
}

// Sink receives the token vocabulary of Source. WriteRaw takes one complete
// encoded JSON value in value position.
type Sink interface {
	WriteToken(tok Token) error
	WriteRaw(raw RawValue) error
}

// JSONSink renders compact JSON into memory.
type JSONSink struct{ w *eng.JSONWriter }

// NewJSONSink returns an empty JSON sink.
func NewJSONSink() *JSONSink { return &JSONSink{w: eng.NewJSONWriter()} }

func (s *JSONSink) WriteToken(tok Token) error  { return s.w.WriteToken(tok) }
func (s *JSONSink) WriteRaw(raw RawValue) error { return s.w.WriteRaw(raw) }

// Bytes returns the rendered document. The slice aliases the sink's buffer.
func (s *JSONSink) Bytes() []byte { return s.w.Bytes() }

// Reset discards all output.
func (s *JSONSink) Reset() { s.w.Reset() }

// Complete reports whether one whole top-level value has been written.
func (s *JSONSink) Complete() bool { return s.w.Complete() }

// engineSink adapts a Sink to the engine's byte-slice raw signature.
type engineSink struct{ Sink }

func (s engineSink) WriteRaw(raw []byte) error { return s.Sink.WriteRaw(RawValue(raw)) }

func toEngineSink(s Sink) eng.Sink {
	if js, ok := s.(*JSONSink); ok {
		return js.w
	}
	return engineSink{s}
}

// Copy transcodes one value from src to dst. When rename is non-nil every
// object key passes through it.
func Copy(dst Sink, src Source, rename func(string) string) error {
	tok, err := src.NextToken()
	if err != nil {
		return err
	}
	return eng.CopyValue(toEngineSink(dst), src, tok, rename)
}

// ReplayRaw tokenizes raw with the current JSON driver and forwards the
// tokens to dst. Sinks that do not produce JSON use it to implement WriteRaw.
func ReplayRaw(dst Sink, raw RawValue) error {
	if !gojson.Valid(raw) {
		return fmt.Errorf("%w: invalid raw value", eng.ErrSinkState)
	}
	return Copy(dst, JSONBytes(raw), nil)
}
