package engine

import (
	"strconv"
	"strings"
)

// DuplicateStrictness controls duplicate key handling.
type DuplicateStrictness int

const (
	DupIgnore DuplicateStrictness = iota
	DupWarn
	DupError
)

// SimpleIssue is a minimal issue representation used by the enforcement layer.
type SimpleIssue struct {
	Code    string
	Path    string
	Message string
	Offset  int64
}

// IssueError is a lightweight error carrying a SimpleIssue.
type IssueError struct{ SimpleIssue }

func (e IssueError) Error() string { return e.SimpleIssue.Message }

// EnforceOptions controls runtime enforcement behavior.
type EnforceOptions struct {
	OnDuplicate DuplicateStrictness
	// MaxDepth limits container nesting; 0 disables the check.
	MaxDepth int
	// IssueSink receives non-fatal issues (duplicate keys in warn mode).
	IssueSink func(SimpleIssue)
}

// Enabled reports whether any check is switched on.
func (o EnforceOptions) Enabled() bool {
	return o.OnDuplicate != DupIgnore || o.MaxDepth > 0
}

type containerKind int

const (
	kindObject containerKind = iota
	kindArray
)

type enforceFrame struct {
	kind         containerKind
	keys         map[string]struct{}
	expectingKey bool
	path         string
	nextIndex    int
	pendingKey   string
}

// WrapWithEnforcement returns a TokenSource that enforces the duplicate key
// policy and maximum nesting depth while tokens flow through it.
func WrapWithEnforcement(inner TokenSource, opt EnforceOptions) TokenSource {
	return &enforcingTokenSource{inner: inner, opt: opt}
}

type enforcingTokenSource struct {
	inner TokenSource
	opt   EnforceOptions
	stack []enforceFrame
}

func (e *enforcingTokenSource) NextToken() (Token, error) {
	tok, err := e.inner.NextToken()
	if err != nil {
		return Token{}, err
	}
	path := e.pathFor(tok)

	switch tok.Kind {
	case KindBeginObject, KindBeginArray:
		f := enforceFrame{kind: kindArray, path: path}
		if tok.Kind == KindBeginObject {
			f = enforceFrame{kind: kindObject, keys: make(map[string]struct{}), expectingKey: true, path: path}
		}
		e.stack = append(e.stack, f)
		if e.opt.MaxDepth > 0 && len(e.stack) > e.opt.MaxDepth {
			return Token{}, IssueError{e.issue("max_depth", path, "max depth exceeded", tok)}
		}
	case KindEndObject, KindEndArray:
		if n := len(e.stack); n > 0 {
			e.stack = e.stack[:n-1]
		}
		e.valueDone()
	case KindKey:
		if top := e.top(); top != nil && top.kind == kindObject && top.expectingKey {
			if _, dup := top.keys[tok.String]; dup && e.opt.OnDuplicate != DupIgnore {
				si := e.issue("duplicate_key", path, "key '"+tok.String+"' duplicated", tok)
				if e.opt.OnDuplicate == DupError {
					return Token{}, IssueError{si}
				}
				if e.opt.IssueSink != nil {
					e.opt.IssueSink(si)
				}
			}
			top.keys[tok.String] = struct{}{}
			top.expectingKey = false
			top.pendingKey = tok.String
		}
	default:
		e.valueDone()
	}
	return tok, nil
}

func (e *enforcingTokenSource) Location() int64 { return e.inner.Location() }

func (e *enforcingTokenSource) issue(code, path, msg string, tok Token) SimpleIssue {
	return SimpleIssue{Code: code, Path: normalizeIssuePath(path), Message: msg, Offset: tok.Offset}
}

func (e *enforcingTokenSource) top() *enforceFrame {
	if n := len(e.stack); n > 0 {
		return &e.stack[n-1]
	}
	return nil
}

// valueDone returns the enclosing object to key position after a value.
func (e *enforcingTokenSource) valueDone() {
	if top := e.top(); top != nil && top.kind == kindObject && !top.expectingKey {
		top.expectingKey = true
		top.pendingKey = ""
	}
}

// pathFor computes the JSON Pointer of the value or key carried by tok.
func (e *enforcingTokenSource) pathFor(tok Token) string {
	top := e.top()
	if top == nil {
		return ""
	}
	switch tok.Kind {
	case KindKey:
		return joinJSONPointer(top.path, tok.String)
	case KindEndObject, KindEndArray:
		return top.path
	}
	if top.kind == kindArray {
		p := joinJSONPointer(top.path, strconv.Itoa(top.nextIndex))
		top.nextIndex++
		return p
	}
	if !top.expectingKey {
		return joinJSONPointer(top.path, top.pendingKey)
	}
	return top.path
}

func normalizeIssuePath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}

var jsonPointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// JoinPointer appends one escaped reference token to a JSON Pointer.
func JoinPointer(base, token string) string { return joinJSONPointer(base, token) }

func joinJSONPointer(base, token string) string {
	return base + "/" + jsonPointerEscaper.Replace(token)
}
