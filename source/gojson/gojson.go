// Package gojson tokenizes JSON with goccy/go-json. It backs
// wirepolicy.GoJSONDriver.
package gojson

import (
	"bytes"
	"errors"
	"io"
	"strconv"

	j "github.com/goccy/go-json"

	eng "github.com/reoring/wirepolicy/internal/engine"
)

type frame struct {
	object       bool
	expectingKey bool
}

// source validates the whole input before the first token: go-json's
// Decoder.Token does not check ':' and ',' separators.
type source struct {
	r     io.Reader
	data  []byte
	dec   *j.Decoder
	err   error
	stack []frame
	last  int64
}

// NewReader wraps an io.Reader into an engine.TokenSource for JSON using
// go-json. The input is read in full on the first token and must hold a
// single value.
func NewReader(r io.Reader) eng.TokenSource { return &source{r: r, last: -1} }

// NewBytes wraps a byte slice into an engine.TokenSource for JSON using go-json.
func NewBytes(b []byte) eng.TokenSource { return &source{data: b, last: -1} }

func (s *source) init() error {
	if s.dec != nil || s.err != nil {
		return s.err
	}
	if s.r != nil {
		data, err := io.ReadAll(s.r)
		if err != nil {
			s.err = err
			return err
		}
		s.data = data
	}
	if len(bytes.TrimSpace(s.data)) > 0 && !j.Valid(s.data) {
		s.err = syntaxError(s.data)
		return s.err
	}
	s.dec = j.NewDecoder(bytes.NewReader(s.data))
	s.dec.UseNumber()
	return nil
}

// syntaxError asks go-json for a descriptive error on invalid input.
func syntaxError(data []byte) error {
	var v any
	if err := j.Unmarshal(data, &v); err != nil {
		return err
	}
	return errors.New("go-json: invalid JSON input")
}

func (s *source) NextToken() (eng.Token, error) {
	if err := s.init(); err != nil {
		return eng.Token{}, err
	}
	off := s.dec.InputOffset()
	tok, err := s.dec.Token()
	if err != nil {
		return eng.Token{}, err
	}
	s.last = off

	switch v := tok.(type) {
	case j.Delim:
		switch v {
		case '{':
			s.stack = append(s.stack, frame{object: true, expectingKey: true})
			return eng.Token{Kind: eng.KindBeginObject, Offset: off}, nil
		case '[':
			s.stack = append(s.stack, frame{})
			return eng.Token{Kind: eng.KindBeginArray, Offset: off}, nil
		case '}':
			s.pop()
			return eng.Token{Kind: eng.KindEndObject, Offset: off}, nil
		case ']':
			s.pop()
			return eng.Token{Kind: eng.KindEndArray, Offset: off}, nil
		}
	case string:
		if n := len(s.stack); n > 0 && s.stack[n-1].object && s.stack[n-1].expectingKey {
			s.stack[n-1].expectingKey = false
			return eng.Token{Kind: eng.KindKey, String: v, Offset: off}, nil
		}
		s.valueDone()
		return eng.Token{Kind: eng.KindString, String: v, Offset: off}, nil
	case bool:
		s.valueDone()
		return eng.Token{Kind: eng.KindBool, Bool: v, Offset: off}, nil
	case j.Number:
		s.valueDone()
		return eng.Token{Kind: eng.KindNumber, Number: string(v), Offset: off}, nil
	case float64:
		s.valueDone()
		return eng.Token{Kind: eng.KindNumber, Number: strconv.FormatFloat(v, 'g', -1, 64), Offset: off}, nil
	}
	s.valueDone()
	return eng.Token{Kind: eng.KindNull, Offset: off}, nil
}

func (s *source) Location() int64 { return s.last }

func (s *source) pop() {
	if n := len(s.stack); n > 0 {
		s.stack = s.stack[:n-1]
	}
	s.valueDone()
}

func (s *source) valueDone() {
	if n := len(s.stack); n > 0 && s.stack[n-1].object {
		s.stack[n-1].expectingKey = true
	}
}
