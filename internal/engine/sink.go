package engine

import (
	"errors"
	"fmt"

	gojson "github.com/goccy/go-json"
)

// Sink accepts the token vocabulary produced by a TokenSource. WriteRaw takes
// one complete, already encoded JSON value.
type Sink interface {
	WriteToken(tok Token) error
	WriteRaw(raw []byte) error
}

// ErrSinkState reports a token that is not valid at the sink's position.
var ErrSinkState = errors.New("sink: token not valid here")

type writerFrame struct {
	kind     containerKind
	count    int
	afterKey bool
}

// JSONWriter is a Sink that renders compact JSON into memory.
type JSONWriter struct {
	buf   []byte
	stack []writerFrame
	done  bool
}

// NewJSONWriter returns an empty writer.
func NewJSONWriter() *JSONWriter { return &JSONWriter{} }

// Bytes returns the rendered document. The slice aliases the writer's buffer.
func (w *JSONWriter) Bytes() []byte { return w.buf }

// Reset discards all written output.
func (w *JSONWriter) Reset() {
	w.buf = w.buf[:0]
	w.stack = w.stack[:0]
	w.done = false
}

// Complete reports whether a whole top-level value has been written.
func (w *JSONWriter) Complete() bool { return w.done && len(w.stack) == 0 }

func (w *JSONWriter) WriteToken(tok Token) error {
	switch tok.Kind {
	case KindKey:
		top := w.top()
		if top == nil || top.kind != kindObject || top.afterKey {
			return fmt.Errorf("%w: key %q", ErrSinkState, tok.String)
		}
		if top.count > 0 {
			w.buf = append(w.buf, ',')
		}
		top.count++
		top.afterKey = true
		if err := w.appendString(tok.String); err != nil {
			return err
		}
		w.buf = append(w.buf, ':')
		return nil
	case KindEndObject:
		top := w.top()
		if top == nil || top.kind != kindObject || top.afterKey {
			return fmt.Errorf("%w: %s", ErrSinkState, tok.Kind)
		}
		w.pop()
		w.buf = append(w.buf, '}')
		return nil
	case KindEndArray:
		top := w.top()
		if top == nil || top.kind != kindArray {
			return fmt.Errorf("%w: %s", ErrSinkState, tok.Kind)
		}
		w.pop()
		w.buf = append(w.buf, ']')
		return nil
	}

	if err := w.beginValue(tok.Kind); err != nil {
		return err
	}
	switch tok.Kind {
	case KindBeginObject:
		w.stack = append(w.stack, writerFrame{kind: kindObject})
		w.buf = append(w.buf, '{')
	case KindBeginArray:
		w.stack = append(w.stack, writerFrame{kind: kindArray})
		w.buf = append(w.buf, '[')
	case KindString:
		if err := w.appendString(tok.String); err != nil {
			return err
		}
		w.endValue()
	case KindNumber:
		if tok.Number == "" {
			return fmt.Errorf("%w: empty number", ErrSinkState)
		}
		w.buf = append(w.buf, tok.Number...)
		w.endValue()
	case KindBool:
		if tok.Bool {
			w.buf = append(w.buf, "true"...)
		} else {
			w.buf = append(w.buf, "false"...)
		}
		w.endValue()
	case KindNull:
		w.buf = append(w.buf, "null"...)
		w.endValue()
	default:
		return fmt.Errorf("%w: %s", ErrSinkState, tok.Kind)
	}
	return nil
}

func (w *JSONWriter) WriteRaw(raw []byte) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: empty raw value", ErrSinkState)
	}
	if err := w.beginValue(KindString); err != nil {
		return err
	}
	w.buf = append(w.buf, raw...)
	w.endValue()
	return nil
}

// beginValue places the separator for a value and validates its position.
func (w *JSONWriter) beginValue(k Kind) error {
	top := w.top()
	switch {
	case top == nil:
		if w.done {
			return fmt.Errorf("%w: second top-level value", ErrSinkState)
		}
	case top.kind == kindObject:
		if !top.afterKey {
			return fmt.Errorf("%w: %s without key", ErrSinkState, k)
		}
		top.afterKey = false
	default:
		if top.count > 0 {
			w.buf = append(w.buf, ',')
		}
		top.count++
	}
	return nil
}

// endValue marks a top-level scalar as complete.
func (w *JSONWriter) endValue() {
	if len(w.stack) == 0 {
		w.done = true
	}
}

func (w *JSONWriter) pop() {
	w.stack = w.stack[:len(w.stack)-1]
	w.endValue()
}

func (w *JSONWriter) top() *writerFrame {
	if n := len(w.stack); n > 0 {
		return &w.stack[n-1]
	}
	return nil
}

func (w *JSONWriter) appendString(s string) error {
	q, err := gojson.Marshal(s)
	if err != nil {
		return err
	}
	w.buf = append(w.buf, q...)
	return nil
}
