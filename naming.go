package wirepolicy

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// CamelCase lower-cases the leading run of upper-case letters, keeping the
// last one upper-case when it starts the next word: "FirstName" -> "firstName",
// "URLValue" -> "urlValue", "ID" -> "id".
func CamelCase(s string) string {
	if s == "" {
		return s
	}
	if r, _ := utf8.DecodeRuneInString(s); !unicode.IsUpper(r) {
		return s
	}
	rs := []rune(s)
	for i := range rs {
		if i == 1 && !unicode.IsUpper(rs[i]) {
			break
		}
		if i > 0 && i+1 < len(rs) && !unicode.IsUpper(rs[i+1]) {
			if rs[i+1] == ' ' {
				rs[i] = unicode.ToLower(rs[i])
			}
			break
		}
		rs[i] = unicode.ToLower(rs[i])
	}
	return string(rs)
}

// SnakeCase joins lower-cased words with underscores: "FirstName" -> "first_name".
func SnakeCase(s string) string { return joinWords(s, '_') }

// KebabCase joins lower-cased words with hyphens: "FirstName" -> "first-name".
func KebabCase(s string) string { return joinWords(s, '-') }

// NamingPolicyByName returns the built-in policy for "camel", "snake" or
// "kebab". The empty string and "none" yield a nil policy.
func NamingPolicyByName(name string) (func(string) string, bool) {
	switch strings.ToLower(name) {
	case "", "none":
		return nil, true
	case "camel":
		return CamelCase, true
	case "snake":
		return SnakeCase, true
	case "kebab":
		return KebabCase, true
	}
	return nil, false
}

func joinWords(s string, sep byte) string {
	var b strings.Builder
	for i, w := range splitWords(s) {
		if i > 0 {
			b.WriteByte(sep)
		}
		b.WriteString(strings.ToLower(w))
	}
	return b.String()
}

// splitWords breaks an identifier at case transitions and separators.
// Acronyms stay together: "HTTPServerID" -> HTTP, Server, ID.
func splitWords(s string) []string {
	var words []string
	rs := []rune(s)
	start := -1
	for i, r := range rs {
		if r == '_' || r == '-' || r == ' ' || r == '.' {
			if start >= 0 {
				words = append(words, string(rs[start:i]))
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
			continue
		}
		prev := rs[i-1]
		if unicode.IsUpper(r) {
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if !unicode.IsUpper(prev) || nextLower {
				words = append(words, string(rs[start:i]))
				start = i
			}
		}
	}
	if start >= 0 {
		words = append(words, string(rs[start:]))
	}
	return words
}
