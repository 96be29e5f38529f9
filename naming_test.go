package wirepolicy_test

import (
	"testing"

	"github.com/reoring/wirepolicy"
)

func TestCamelCase(t *testing.T) {
	cases := map[string]string{
		"":                 "",
		"FirstName":        "firstName",
		"firstName":        "firstName",
		"SomeBooleanValue": "someBooleanValue",
		"ID":               "id",
		"URLValue":         "urlValue",
		"IOStream":         "ioStream",
		"A":                "a",
		"ABC DEF":          "abc DEF",
		"last_name":        "last_name",
		"Élan":             "élan",
	}
	for in, want := range cases {
		if got := wirepolicy.CamelCase(in); got != want {
			t.Fatalf("CamelCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSnakeAndKebabCase(t *testing.T) {
	cases := []struct{ in, snake, kebab string }{
		{"FirstName", "first_name", "first-name"},
		{"HTTPServerID", "http_server_id", "http-server-id"},
		{"someNumber", "some_number", "some-number"},
		{"already_snake", "already_snake", "already-snake"},
		{"Version2Name", "version2_name", "version2-name"},
		{"", "", ""},
	}
	for _, tc := range cases {
		if got := wirepolicy.SnakeCase(tc.in); got != tc.snake {
			t.Fatalf("SnakeCase(%q) = %q, want %q", tc.in, got, tc.snake)
		}
		if got := wirepolicy.KebabCase(tc.in); got != tc.kebab {
			t.Fatalf("KebabCase(%q) = %q, want %q", tc.in, got, tc.kebab)
		}
	}
}

func TestNamingPolicyByName(t *testing.T) {
	for _, name := range []string{"", "none", "camel", "Snake", "KEBAB"} {
		if _, ok := wirepolicy.NamingPolicyByName(name); !ok {
			t.Fatalf("%q should be known", name)
		}
	}
	if p, _ := wirepolicy.NamingPolicyByName("none"); p != nil {
		t.Fatalf("none must yield a nil policy")
	}
	if p, _ := wirepolicy.NamingPolicyByName("camel"); p("FirstName") != "firstName" {
		t.Fatalf("camel resolves to CamelCase")
	}
	if _, ok := wirepolicy.NamingPolicyByName("pascal"); ok {
		t.Fatalf("pascal is not a built-in policy")
	}
}
