// Package msgpack reads and writes MessagePack documents through the
// wirepolicy token model.
package msgpack

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"

	"github.com/reoring/wirepolicy"
)

type frame struct {
	remaining int
	mapping   bool
	key       bool // mapping expects a key next
}

// Source streams wirepolicy tokens from one MessagePack value. Binary values
// surface as base64 strings and timestamps as RFC 3339 strings.
type Source struct {
	dec    *msgpack.Decoder
	stack  []frame
	done   bool
	offset func() int64
	last   int64
}

// NewSource reads one value from r.
func NewSource(r io.Reader) *Source {
	return &Source{dec: msgpack.NewDecoder(r), offset: func() int64 { return -1 }, last: -1}
}

// NewBytesSource reads one value from b, reporting byte offsets.
func NewBytesSource(b []byte) *Source {
	br := bytes.NewReader(b)
	return &Source{
		dec:    msgpack.NewDecoder(br),
		offset: func() int64 { return int64(len(b) - br.Len()) },
		last:   -1,
	}
}

func (s *Source) Location() int64 { return s.last }

func (s *Source) NextToken() (wirepolicy.Token, error) {
	if n := len(s.stack); n > 0 {
		top := &s.stack[n-1]
		if top.remaining == 0 && (!top.mapping || top.key) {
			s.stack = s.stack[:n-1]
			if len(s.stack) == 0 {
				s.done = true
			}
			if top.mapping {
				return s.token(wirepolicy.TokenEndObject), nil
			}
			return s.token(wirepolicy.TokenEndArray), nil
		}
		if top.mapping && top.key {
			tok := s.token(wirepolicy.TokenKey)
			k, err := s.decodeKey()
			if err != nil {
				return wirepolicy.Token{}, err
			}
			top.key = false
			tok.String = k
			return tok, nil
		}
	} else if s.done {
		return wirepolicy.Token{}, io.EOF
	}
	return s.value()
}

func (s *Source) token(k wirepolicy.Kind) wirepolicy.Token {
	s.last = s.offset()
	return wirepolicy.Token{Kind: k, Offset: s.last}
}

// slot accounts for one value in the enclosing container.
func (s *Source) slot() {
	n := len(s.stack)
	if n == 0 {
		return
	}
	top := &s.stack[n-1]
	top.remaining--
	if top.mapping {
		top.key = true
	}
}

func (s *Source) value() (wirepolicy.Token, error) {
	c, err := s.dec.PeekCode()
	if err != nil {
		return wirepolicy.Token{}, err
	}
	tok := s.token(wirepolicy.TokenNull)
	s.slot()
	scalarDone := func() {
		if len(s.stack) == 0 {
			s.done = true
		}
	}

	switch {
	case msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32:
		n, err := s.dec.DecodeMapLen()
		if err != nil {
			return wirepolicy.Token{}, err
		}
		s.stack = append(s.stack, frame{remaining: n, mapping: true, key: true})
		tok.Kind = wirepolicy.TokenBeginObject
		return tok, nil
	case msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32:
		n, err := s.dec.DecodeArrayLen()
		if err != nil {
			return wirepolicy.Token{}, err
		}
		s.stack = append(s.stack, frame{remaining: n})
		tok.Kind = wirepolicy.TokenBeginArray
		return tok, nil
	case c == msgpcode.Nil:
		err = s.dec.DecodeNil()
	case c == msgpcode.True || c == msgpcode.False:
		tok.Kind = wirepolicy.TokenBool
		tok.Bool, err = s.dec.DecodeBool()
	case msgpcode.IsFixedNum(c) || (c >= msgpcode.Int8 && c <= msgpcode.Int64):
		var i int64
		i, err = s.dec.DecodeInt64()
		tok.Kind, tok.Number = wirepolicy.TokenNumber, strconv.FormatInt(i, 10)
	case c >= msgpcode.Uint8 && c <= msgpcode.Uint64:
		var u uint64
		u, err = s.dec.DecodeUint64()
		tok.Kind, tok.Number = wirepolicy.TokenNumber, strconv.FormatUint(u, 10)
	case c == msgpcode.Float || c == msgpcode.Double:
		var f float64
		f, err = s.dec.DecodeFloat64()
		tok.Kind, tok.Number = wirepolicy.TokenNumber, strconv.FormatFloat(f, 'g', -1, 64)
	case msgpcode.IsString(c):
		tok.Kind = wirepolicy.TokenString
		tok.String, err = s.dec.DecodeString()
	case msgpcode.IsBin(c):
		var b []byte
		b, err = s.dec.DecodeBytes()
		tok.Kind, tok.String = wirepolicy.TokenString, base64.StdEncoding.EncodeToString(b)
	case msgpcode.IsExt(c) || msgpcode.IsFixedExt(c):
		var v any
		v, err = s.dec.DecodeInterface()
		t, ok := v.(time.Time)
		if err == nil && !ok {
			err = fmt.Errorf("msgpack: unsupported extension value %T", v)
		}
		tok.Kind, tok.String = wirepolicy.TokenString, t.UTC().Format(time.RFC3339Nano)
	default:
		err = fmt.Errorf("msgpack: unsupported code 0x%x", c)
	}
	if err != nil {
		return wirepolicy.Token{}, err
	}
	scalarDone()
	return tok, nil
}

// decodeKey reads a map key. Non-string keys are rendered as text.
func (s *Source) decodeKey() (string, error) {
	c, err := s.dec.PeekCode()
	if err != nil {
		return "", err
	}
	if msgpcode.IsString(c) {
		return s.dec.DecodeString()
	}
	v, err := s.dec.DecodeInterface()
	if err != nil {
		return "", err
	}
	return fmt.Sprint(v), nil
}

type nodeKind int

const (
	nodeScalar nodeKind = iota
	nodeMap
	nodeArray
)

type node struct {
	kind     nodeKind
	tok      wirepolicy.Token
	children []*node // maps alternate key and value nodes
}

// ErrIncomplete reports a Sink read before a whole value was written.
var ErrIncomplete = errors.New("msgpack: incomplete document")

// Sink collects wirepolicy tokens and encodes them as MessagePack once the
// value is complete, since map and array headers carry lengths.
type Sink struct {
	root  *node
	stack []*node
	key   bool
}

// NewSink returns an empty sink.
func NewSink() *Sink { return &Sink{} }

func (s *Sink) WriteToken(tok wirepolicy.Token) error {
	switch tok.Kind {
	case wirepolicy.TokenKey:
		top := s.top()
		if top == nil || top.kind != nodeMap || s.key {
			return fmt.Errorf("msgpack: key %q outside object", tok.String)
		}
		top.children = append(top.children, &node{tok: tok})
		s.key = true
		return nil
	case wirepolicy.TokenEndObject, wirepolicy.TokenEndArray:
		want := nodeMap
		if tok.Kind == wirepolicy.TokenEndArray {
			want = nodeArray
		}
		top := s.top()
		if top == nil || top.kind != want || s.key {
			return fmt.Errorf("msgpack: unbalanced %s", tok.Kind)
		}
		s.stack = s.stack[:len(s.stack)-1]
		return nil
	case wirepolicy.TokenBeginObject, wirepolicy.TokenBeginArray:
		n := &node{kind: nodeMap}
		if tok.Kind == wirepolicy.TokenBeginArray {
			n.kind = nodeArray
		}
		if err := s.add(n); err != nil {
			return err
		}
		s.stack = append(s.stack, n)
		return nil
	}
	return s.add(&node{tok: tok})
}

// WriteRaw replays an encoded JSON value as tokens.
func (s *Sink) WriteRaw(raw wirepolicy.RawValue) error { return wirepolicy.ReplayRaw(s, raw) }

func (s *Sink) add(n *node) error {
	top := s.top()
	switch {
	case top == nil:
		if s.root != nil {
			return errors.New("msgpack: second top-level value")
		}
		s.root = n
	case top.kind == nodeMap:
		if !s.key {
			return errors.New("msgpack: value without key")
		}
		top.children = append(top.children, n)
		s.key = false
	default:
		top.children = append(top.children, n)
	}
	return nil
}

func (s *Sink) top() *node {
	if n := len(s.stack); n > 0 {
		return s.stack[n-1]
	}
	return nil
}

// Bytes encodes the written value.
func (s *Sink) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := s.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTo encodes the written value to w.
func (s *Sink) WriteTo(w io.Writer) error {
	if s.root == nil || len(s.stack) > 0 {
		return ErrIncomplete
	}
	return encodeNode(msgpack.NewEncoder(w), s.root)
}

func encodeNode(enc *msgpack.Encoder, n *node) error {
	switch n.kind {
	case nodeMap:
		if err := enc.EncodeMapLen(len(n.children) / 2); err != nil {
			return err
		}
		for i := 0; i < len(n.children); i += 2 {
			if err := enc.EncodeString(n.children[i].tok.String); err != nil {
				return err
			}
			if err := encodeNode(enc, n.children[i+1]); err != nil {
				return err
			}
		}
		return nil
	case nodeArray:
		if err := enc.EncodeArrayLen(len(n.children)); err != nil {
			return err
		}
		for _, c := range n.children {
			if err := encodeNode(enc, c); err != nil {
				return err
			}
		}
		return nil
	}
	switch n.tok.Kind {
	case wirepolicy.TokenString:
		return enc.EncodeString(n.tok.String)
	case wirepolicy.TokenBool:
		return enc.EncodeBool(n.tok.Bool)
	case wirepolicy.TokenNumber:
		return encodeNumber(enc, n.tok.Number)
	}
	return enc.EncodeNil()
}

func encodeNumber(enc *msgpack.Encoder, lit string) error {
	if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return enc.EncodeInt(i)
	}
	if u, err := strconv.ParseUint(lit, 10, 64); err == nil {
		return enc.EncodeUint(u)
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return fmt.Errorf("msgpack: bad number %q: %w", lit, err)
	}
	return enc.EncodeFloat64(f)
}

// Marshal renders v as MessagePack under the given policies.
func Marshal(v any, opts ...wirepolicy.Options) ([]byte, error) {
	s := NewSink()
	if err := wirepolicy.Encode(s, v, opts...); err != nil {
		return nil, err
	}
	return s.Bytes()
}

// Unmarshal decodes the MessagePack value in data into the non-nil pointer v.
// Bytes after the value are an error.
func Unmarshal(data []byte, v any, opts ...wirepolicy.Options) error {
	src := NewBytesSource(data)
	if err := wirepolicy.Decode(src, v, opts...); err != nil {
		return err
	}
	if end := src.offset(); end != int64(len(data)) {
		return &wirepolicy.FormatError{Path: "/", Offset: end, Msg: fmt.Sprintf("%d bytes after top-level value", int64(len(data))-end)}
	}
	return nil
}
