// Package yaml reads and writes YAML documents through the wirepolicy token
// model, so the same member policies apply to YAML as to JSON.
package yaml

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/reoring/wirepolicy"
)

// DuplicateKeyError reports a duplicate key found in a YAML mapping with both
// the first occurrence position and the duplicate occurrence position.
type DuplicateKeyError struct {
	Key       string
	FirstLine int
	FirstCol  int
	Line      int
	Col       int
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate YAML key %q at %d:%d (first at %d:%d)", e.Key, e.Line, e.Col, e.FirstLine, e.FirstCol)
}

type frame struct {
	node    *yaml.Node
	next    int
	mapping bool
	first   map[string][2]int
}

// Source walks a parsed YAML node tree and yields wirepolicy tokens.
type Source struct {
	stack   []frame
	pending *yaml.Node
	strict  bool
	line    int
}

// NewSource parses the first document of data.
func NewSource(data []byte) (*Source, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	return SourceFromNode(&root), nil
}

// NewReaderSource parses the next document from r. It returns io.EOF when the
// stream holds no further document.
func NewReaderSource(r io.Reader) (*Source, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		return nil, err
	}
	return SourceFromNode(&root), nil
}

// SourceFromNode yields the tokens of n. Document nodes are unwrapped.
func SourceFromNode(n *yaml.Node) *Source {
	for n != nil && n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			n = nil
			break
		}
		n = n.Content[0]
	}
	if n == nil || n.Kind == 0 {
		n = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
	return &Source{pending: n}
}

// Strict makes the source fail on duplicate mapping keys.
func (s *Source) Strict() *Source {
	s.strict = true
	return s
}

// Location returns -1; YAML nodes carry no byte offsets. Line reports the
// position instead.
func (s *Source) Location() int64 { return -1 }

// Line returns the 1-based line of the last token, or 0 before the first.
func (s *Source) Line() int { return s.line }

func (s *Source) NextToken() (wirepolicy.Token, error) {
	if n := s.pending; n != nil {
		s.pending = nil
		return s.open(n)
	}
	if len(s.stack) == 0 {
		return wirepolicy.Token{}, io.EOF
	}
	top := &s.stack[len(s.stack)-1]
	if top.next >= len(top.node.Content) {
		s.stack = s.stack[:len(s.stack)-1]
		if top.mapping {
			return s.token(wirepolicy.TokenEndObject, top.node), nil
		}
		return s.token(wirepolicy.TokenEndArray, top.node), nil
	}
	child := top.node.Content[top.next]
	top.next++
	if top.mapping {
		key := child.Value
		if s.strict {
			if pos, dup := top.first[key]; dup {
				return wirepolicy.Token{}, &DuplicateKeyError{Key: key, FirstLine: pos[0], FirstCol: pos[1], Line: child.Line, Col: child.Column}
			}
			top.first[key] = [2]int{child.Line, child.Column}
		}
		s.pending = top.node.Content[top.next]
		top.next++
		tok := s.token(wirepolicy.TokenKey, child)
		tok.String = key
		return tok, nil
	}
	return s.open(child)
}

// open emits the first token of the value n.
func (s *Source) open(n *yaml.Node) (wirepolicy.Token, error) {
	for n.Kind == yaml.AliasNode {
		if n.Alias == nil {
			return wirepolicy.Token{}, fmt.Errorf("yaml: unresolved alias at %d:%d", n.Line, n.Column)
		}
		n = n.Alias
	}
	switch n.Kind {
	case yaml.MappingNode:
		f := frame{node: n, mapping: true}
		if s.strict {
			f.first = make(map[string][2]int, len(n.Content)/2)
		}
		s.stack = append(s.stack, f)
		return s.token(wirepolicy.TokenBeginObject, n), nil
	case yaml.SequenceNode:
		s.stack = append(s.stack, frame{node: n})
		return s.token(wirepolicy.TokenBeginArray, n), nil
	case yaml.ScalarNode:
		return s.scalar(n)
	}
	return wirepolicy.Token{}, fmt.Errorf("yaml: unsupported node kind %d at %d:%d", n.Kind, n.Line, n.Column)
}

func (s *Source) scalar(n *yaml.Node) (wirepolicy.Token, error) {
	tok := s.token(wirepolicy.TokenString, n)
	switch n.ShortTag() {
	case "!!null":
		tok.Kind = wirepolicy.TokenNull
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return wirepolicy.Token{}, err
		}
		tok.Kind, tok.Bool = wirepolicy.TokenBool, b
	case "!!int":
		i, err := strconv.ParseInt(strings.ReplaceAll(n.Value, "_", ""), 0, 64)
		if err != nil {
			var u uint64
			if uerr := n.Decode(&u); uerr != nil {
				return wirepolicy.Token{}, err
			}
			tok.Kind, tok.Number = wirepolicy.TokenNumber, strconv.FormatUint(u, 10)
			return tok, nil
		}
		tok.Kind, tok.Number = wirepolicy.TokenNumber, strconv.FormatInt(i, 10)
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return wirepolicy.Token{}, err
		}
		if math.IsInf(f, 0) || math.IsNaN(f) {
			tok.String = n.Value
			return tok, nil
		}
		tok.Kind, tok.Number = wirepolicy.TokenNumber, strconv.FormatFloat(f, 'g', -1, 64)
	default:
		tok.String = n.Value
	}
	return tok, nil
}

func (s *Source) token(k wirepolicy.Kind, n *yaml.Node) wirepolicy.Token {
	s.line = n.Line
	return wirepolicy.Token{Kind: k, Offset: -1}
}

// ErrIncomplete reports a Sink read before a whole value was written.
var ErrIncomplete = errors.New("yaml: incomplete document")

// Sink builds a yaml.Node tree from wirepolicy tokens.
type Sink struct {
	root  *yaml.Node
	stack []*yaml.Node
	key   bool // a key is waiting for its value
}

// NewSink returns an empty sink.
func NewSink() *Sink { return &Sink{} }

func (s *Sink) WriteToken(tok wirepolicy.Token) error {
	switch tok.Kind {
	case wirepolicy.TokenKey:
		top := s.top()
		if top == nil || top.Kind != yaml.MappingNode || s.key {
			return fmt.Errorf("yaml: key %q outside object", tok.String)
		}
		top.Content = append(top.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: tok.String})
		s.key = true
		return nil
	case wirepolicy.TokenEndObject, wirepolicy.TokenEndArray:
		want := yaml.MappingNode
		if tok.Kind == wirepolicy.TokenEndArray {
			want = yaml.SequenceNode
		}
		top := s.top()
		if top == nil || top.Kind != want || s.key {
			return fmt.Errorf("yaml: unbalanced %s", tok.Kind)
		}
		s.stack = s.stack[:len(s.stack)-1]
		return nil
	case wirepolicy.TokenBeginObject:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		if err := s.add(n); err != nil {
			return err
		}
		s.stack = append(s.stack, n)
		return nil
	case wirepolicy.TokenBeginArray:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		if err := s.add(n); err != nil {
			return err
		}
		s.stack = append(s.stack, n)
		return nil
	}
	return s.add(scalarNode(tok))
}

// WriteRaw replays an encoded JSON value as tokens.
func (s *Sink) WriteRaw(raw wirepolicy.RawValue) error { return wirepolicy.ReplayRaw(s, raw) }

func (s *Sink) add(n *yaml.Node) error {
	top := s.top()
	switch {
	case top == nil:
		if s.root != nil {
			return errors.New("yaml: second top-level value")
		}
		s.root = n
	case top.Kind == yaml.MappingNode:
		if !s.key {
			return errors.New("yaml: value without key")
		}
		top.Content = append(top.Content, n)
		s.key = false
	default:
		top.Content = append(top.Content, n)
	}
	return nil
}

func (s *Sink) top() *yaml.Node {
	if n := len(s.stack); n > 0 {
		return s.stack[n-1]
	}
	return nil
}

// Node returns the document node of the written value.
func (s *Sink) Node() (*yaml.Node, error) {
	if s.root == nil || len(s.stack) > 0 {
		return nil, ErrIncomplete
	}
	return &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{s.root}}, nil
}

// Bytes renders the written value as YAML.
func (s *Sink) Bytes() ([]byte, error) {
	doc, err := s.Node()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func scalarNode(tok wirepolicy.Token) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode}
	switch tok.Kind {
	case wirepolicy.TokenString:
		n.Tag, n.Value = "!!str", tok.String
	case wirepolicy.TokenNumber:
		n.Tag, n.Value = "!!float", tok.Number
		if _, err := strconv.ParseInt(tok.Number, 10, 64); err == nil {
			n.Tag = "!!int"
		}
	case wirepolicy.TokenBool:
		n.Tag, n.Value = "!!bool", strconv.FormatBool(tok.Bool)
	default:
		n.Tag, n.Value = "!!null", "null"
	}
	return n
}

// Marshal renders v as YAML under the given policies.
func Marshal(v any, opts ...wirepolicy.Options) ([]byte, error) {
	s := NewSink()
	if err := wirepolicy.Encode(s, v, opts...); err != nil {
		return nil, err
	}
	return s.Bytes()
}

// Unmarshal decodes the single YAML document in data into the non-nil pointer
// v. Empty input decodes as null; a second document is an error.
func Unmarshal(data []byte, v any, opts ...wirepolicy.Options) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var root yaml.Node
	if err := dec.Decode(&root); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err != nil {
			return err
		}
		return &wirepolicy.FormatError{Path: "/", Offset: -1, Msg: fmt.Sprintf("unexpected second document at line %d", extra.Line)}
	}
	return wirepolicy.Decode(SourceFromNode(&root), v, opts...)
}
