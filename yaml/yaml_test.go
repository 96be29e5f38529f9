package yaml_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/reoring/wirepolicy"
	"github.com/reoring/wirepolicy/yaml"
)

type address struct {
	City string
	Zip  string `wire:"name=postal_code"`
}

type person struct {
	FirstName string
	LastName  string `wire:"name=last_name"`
	Age       int
	Tags      []string
	Home      *address
	Extra     wirepolicy.ExtensionData[any] `wire:"extension"`
}

func TestUnmarshal_AppliesPolicies(t *testing.T) {
	in := `
firstName: John
last_name: Doe
age: 30
tags: [a, b]
home:
  city: Oslo
  postal_code: "0150"
nick: jd
score: 1.5
big: 0x10
`
	var got *person
	if err := yaml.Unmarshal([]byte(in), &got, wirepolicy.Options{NamingPolicy: wirepolicy.CamelCase}); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := &person{FirstName: "John", LastName: "Doe", Age: 30, Tags: []string{"a", "b"},
		Home: &address{City: "Oslo", Zip: "0150"}}
	want.Extra.Set("nick", "jd")
	want.Extra.Set("score", 1.5)
	want.Extra.Set("big", 16.0)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshal_Scalars(t *testing.T) {
	type flat struct {
		FirstName string
		Code      string
		Ratio     float64
		Ok        bool
		Missing   *string
	}
	out, err := yaml.Marshal(flat{FirstName: "John", Code: "123", Ratio: 0.5, Ok: true},
		wirepolicy.Options{NamingPolicy: wirepolicy.SnakeCase})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := "first_name: John\ncode: \"123\"\nratio: 0.5\nok: true\nmissing: null\n"
	if string(out) != want {
		t.Fatalf("unexpected output\n got: %q\nwant: %q", out, want)
	}
}

func TestRoundTrip(t *testing.T) {
	in := &person{FirstName: "Ann", LastName: "Lee", Age: 41, Tags: []string{"x"}, Home: &address{City: "Rome", Zip: "00100"}}
	in.Extra.Set("note", "hi")
	in.Extra.Set("list", []any{1.0, "two"})
	for _, opts := range []wirepolicy.Options{{}, {NamingPolicy: wirepolicy.KebabCase}} {
		data, err := yaml.Marshal(in, opts)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var out *person
		if err := yaml.Unmarshal(data, &out, opts); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if diff := cmp.Diff(in, out); diff != "" {
			t.Fatalf("round trip mismatch for\n%s(-want +got):\n%s", data, diff)
		}
	}
}

func TestSource_DuplicateKeys(t *testing.T) {
	in := []byte("FirstName: a\nAge: 1\nFirstName: b\n")

	src, err := yaml.NewSource(in)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var got person
	if err := wirepolicy.Decode(src, &got); err != nil {
		t.Fatalf("lenient sources keep the last value: %v", err)
	}
	if got.FirstName != "b" {
		t.Fatalf("expected last value, got %q", got.FirstName)
	}

	src, _ = yaml.NewSource(in)
	err = wirepolicy.Decode(src.Strict(), &got)
	var de *yaml.DuplicateKeyError
	if !errors.As(err, &de) {
		t.Fatalf("expected DuplicateKeyError, got %v", err)
	}
	if de.Key != "FirstName" || de.FirstLine != 1 || de.Line != 3 {
		t.Fatalf("unexpected positions: %+v", de)
	}
}

func TestSource_AliasesAndLines(t *testing.T) {
	in := "base: &b\n  City: Paris\ncopy: *b\n"
	type pair struct {
		Base address
		Copy *address
	}
	src, err := yaml.NewReaderSource(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if src.Location() != -1 || src.Line() != 0 {
		t.Fatalf("no position before the first token")
	}
	var got pair
	if err := wirepolicy.Decode(src, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Base.City != "Paris" || got.Copy == nil || got.Copy.City != "Paris" {
		t.Fatalf("aliases resolve to their anchor: %+v", got)
	}
	if src.Line() == 0 {
		t.Fatalf("expected a line after reading")
	}

	if _, err := yaml.NewReaderSource(strings.NewReader("")); !errors.Is(err, io.EOF) {
		t.Fatalf("empty streams report io.EOF, got %v", err)
	}
}

func TestSource_Tokens(t *testing.T) {
	src, err := yaml.NewSource([]byte("[~, yes, -3, 2.50, .inf, text, '7']"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var got []wirepolicy.Token
	for {
		tok, err := src.NextToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		tok.Offset = 0
		got = append(got, tok)
	}
	want := []wirepolicy.Token{
		{Kind: wirepolicy.TokenBeginArray},
		{Kind: wirepolicy.TokenNull},
		{Kind: wirepolicy.TokenString, String: "yes"},
		{Kind: wirepolicy.TokenNumber, Number: "-3"},
		{Kind: wirepolicy.TokenNumber, Number: "2.5"},
		{Kind: wirepolicy.TokenString, String: ".inf"},
		{Kind: wirepolicy.TokenString, String: "text"},
		{Kind: wirepolicy.TokenString, String: "7"},
		{Kind: wirepolicy.TokenEndArray},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestSource_EmptyDocumentIsNull(t *testing.T) {
	var got *person
	if err := yaml.Unmarshal([]byte(""), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestUnmarshal_RejectsSecondDocument(t *testing.T) {
	var got *person
	err := yaml.Unmarshal([]byte("firstName: a\n---\nfirstName: b\n"), &got)
	if !errors.Is(err, wirepolicy.ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
	if err := yaml.Unmarshal([]byte("---\nfirstName: a\n"), &got); err != nil || got.FirstName != "a" {
		t.Fatalf("a leading marker is one document: %+v %v", got, err)
	}
}

func TestSink_Errors(t *testing.T) {
	s := yaml.NewSink()
	if _, err := s.Bytes(); !errors.Is(err, yaml.ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
	if err := s.WriteToken(wirepolicy.Token{Kind: wirepolicy.TokenKey, String: "a"}); err == nil {
		t.Fatalf("keys need an open object")
	}
	if err := s.WriteToken(wirepolicy.Token{Kind: wirepolicy.TokenBeginObject}); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := s.WriteToken(wirepolicy.Token{Kind: wirepolicy.TokenString, String: "v"}); err == nil {
		t.Fatalf("values need a key inside objects")
	}
	if err := s.WriteToken(wirepolicy.Token{Kind: wirepolicy.TokenEndArray}); err == nil {
		t.Fatalf("mismatched end must fail")
	}
	if _, err := s.Node(); !errors.Is(err, yaml.ErrIncomplete) {
		t.Fatalf("open objects are incomplete")
	}
}
