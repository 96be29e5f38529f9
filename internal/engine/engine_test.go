package engine

import (
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type sliceSource struct {
	toks []Token
	pos  int
}

func (s *sliceSource) NextToken() (Token, error) {
	if s.pos >= len(s.toks) {
		return Token{}, io.EOF
	}
	t := s.toks[s.pos]
	s.pos++
	return t, nil
}

func (s *sliceSource) Location() int64 { return int64(s.pos) }

func src(toks ...Token) *sliceSource { return &sliceSource{toks: toks} }

var (
	bo = Token{Kind: KindBeginObject}
	eo = Token{Kind: KindEndObject}
	ba = Token{Kind: KindBeginArray}
	ea = Token{Kind: KindEndArray}
	nl = Token{Kind: KindNull}
)

func k(s string) Token { return Token{Kind: KindKey, String: s} }
func s(v string) Token { return Token{Kind: KindString, String: v} }
func n(v string) Token { return Token{Kind: KindNumber, Number: v} }
func b(v bool) Token   { return Token{Kind: KindBool, Bool: v} }

func TestKind_String(t *testing.T) {
	if KindBeginObject.String() != "begin_object" || KindNull.String() != "null" {
		t.Fatalf("unexpected names")
	}
	if Kind(42).String() != "kind(42)" {
		t.Fatalf("unexpected fallback: %s", Kind(42))
	}
	if !KindNumber.IsScalar() || KindKey.IsScalar() || KindBeginArray.IsScalar() {
		t.Fatalf("IsScalar mismatch")
	}
}

func TestDecodeValue(t *testing.T) {
	in := src(k("a"), ba, n("1"), s("x"), b(true), nl, ea, k("o"), bo, eo, eo)
	v, err := DecodeValue(in, bo, Float64)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[string]any{"a": []any{1.0, "x", true, nil}, "o": map[string]any{}}
	if diff := cmp.Diff(want, v); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	v, err = DecodeValue(src(), n("12345678901234567890"), JSONNumber)
	if err != nil || v != json.Number("12345678901234567890") {
		t.Fatalf("unexpected json.Number decode: %v %v", v, err)
	}
	if _, err := DecodeValue(src(), n("x"), Float64); err == nil {
		t.Fatalf("bad number text must fail")
	}
}

func TestDecodeValue_Errors(t *testing.T) {
	var ue UnexpectedTokenError
	if _, err := DecodeValue(src(), ea, Float64); !errors.As(err, &ue) || ue.Token.Kind != KindEndArray {
		t.Fatalf("expected UnexpectedTokenError, got %v", err)
	}
	if _, err := DecodeValue(src(s("not a key")), bo, Float64); !errors.As(err, &ue) {
		t.Fatalf("expected UnexpectedTokenError for a value in key position, got %v", err)
	}
	if _, err := DecodeValue(src(k("a")), bo, Float64); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected io.ErrUnexpectedEOF, got %v", err)
	}
}

func TestSkipValue(t *testing.T) {
	in := src(k("a"), ba, bo, eo, ea, eo, s("after"))
	if err := SkipValue(in, bo); err != nil {
		t.Fatalf("skip: %v", err)
	}
	tok, _ := in.NextToken()
	if tok.String != "after" {
		t.Fatalf("skip consumed too much or too little, next is %+v", tok)
	}
	if err := SkipValue(src(), s("x")); err != nil {
		t.Fatalf("scalars need no further tokens: %v", err)
	}
	if err := SkipValue(src(), eo); err == nil {
		t.Fatalf("end tokens cannot start a value")
	}
	if err := SkipValue(src(ba), ba); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected io.ErrUnexpectedEOF, got %v", err)
	}
}

func TestCopyValue_Rename(t *testing.T) {
	w := NewJSONWriter()
	in := src(k("A"), ba, bo, k("B"), s("C"), eo, ea, eo)
	lower := func(s string) string { return "x" + s }
	if err := CopyValue(w, in, bo, lower); err != nil {
		t.Fatalf("copy: %v", err)
	}
	if string(w.Bytes()) != `{"xA":[{"xB":"C"}]}` {
		t.Fatalf("unexpected output: %s", w.Bytes())
	}
}

func TestCaptureRaw(t *testing.T) {
	raw, err := CaptureRaw(src(k("n"), n("1.50"), k("s"), s("a\"b"), eo), bo)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if string(raw) != `{"n":1.50,"s":"a\"b"}` {
		t.Fatalf("unexpected raw: %s", raw)
	}
}

func TestJSONWriter_WriteRaw(t *testing.T) {
	w := NewJSONWriter()
	for _, tok := range []Token{ba, n("1")} {
		if err := w.WriteToken(tok); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := w.WriteRaw([]byte(`{"a":true}`)); err != nil {
		t.Fatalf("raw: %v", err)
	}
	if err := w.WriteRaw(nil); !errors.Is(err, ErrSinkState) {
		t.Fatalf("empty raw values are rejected, got %v", err)
	}
	if err := w.WriteToken(ea); err != nil {
		t.Fatalf("write: %v", err)
	}
	if string(w.Bytes()) != `[1,{"a":true}]` || !w.Complete() {
		t.Fatalf("unexpected output: %s", w.Bytes())
	}
	if err := w.WriteRaw([]byte(`1`)); !errors.Is(err, ErrSinkState) {
		t.Fatalf("a second top-level value is rejected, got %v", err)
	}
}

func TestEnforcement_Duplicates(t *testing.T) {
	toks := []Token{bo, k("a"), n("1"), k("b"), bo, k("c"), nl, k("c"), nl, eo, k("a"), n("2"), eo}

	var issues []SimpleIssue
	w := WrapWithEnforcement(src(toks...), EnforceOptions{OnDuplicate: DupWarn, IssueSink: func(si SimpleIssue) {
		issues = append(issues, si)
	}})
	for {
		if _, err := w.NextToken(); err != nil {
			if err != io.EOF {
				t.Fatalf("warn mode must not fail: %v", err)
			}
			break
		}
	}
	var paths []string
	for _, si := range issues {
		if si.Code != "duplicate_key" {
			t.Fatalf("unexpected code %s", si.Code)
		}
		paths = append(paths, si.Path)
	}
	if diff := cmp.Diff([]string{"/b/c", "/a"}, paths); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}

	w = WrapWithEnforcement(src(toks...), EnforceOptions{OnDuplicate: DupError})
	var err error
	for err == nil {
		_, err = w.NextToken()
	}
	var ie IssueError
	if !errors.As(err, &ie) || ie.Path != "/b/c" {
		t.Fatalf("expected duplicate error at /b/c, got %v", err)
	}
}

func TestEnforcement_MaxDepthAndArrayPaths(t *testing.T) {
	toks := []Token{ba, n("0"), bo, k("x"), ba, ea, eo, ea}
	w := WrapWithEnforcement(src(toks...), EnforceOptions{MaxDepth: 2})
	var err error
	for err == nil {
		_, err = w.NextToken()
	}
	var ie IssueError
	if !errors.As(err, &ie) || ie.Code != "max_depth" || ie.Path != "/1/x" {
		t.Fatalf("expected max_depth at /1/x, got %v", err)
	}
	if (EnforceOptions{}).Enabled() {
		t.Fatalf("zero options enforce nothing")
	}
}

func TestJoinPointer(t *testing.T) {
	if got := JoinPointer("/a", "b/c~d"); got != "/a/b~1c~0d" {
		t.Fatalf("unexpected pointer %s", got)
	}
	if got := JoinPointer("", ""); got != "/" {
		t.Fatalf("empty token appends a slash, got %s", got)
	}
}
