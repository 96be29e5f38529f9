package wirepolicy

import "reflect"

// Operation is the direction of a call.
type Operation int

const (
	OpDecode Operation = iota
	OpEncode
)

// Reason explains why a member was skipped.
type Reason int

const (
	Included Reason = iota
	ReasonIgnored
	ReasonImmutable
	ReasonRestricted
	ReasonExtension
	ReasonNull
)

var reasonNames = [...]string{
	Included:         "included",
	ReasonIgnored:    "ignored",
	ReasonImmutable:  "immutable",
	ReasonRestricted: "restricted",
	ReasonExtension:  "extension",
	ReasonNull:       "null",
}

func (r Reason) String() string {
	if r >= 0 && int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return "unknown"
}

// Resolution is the decision for one member in one call.
type Resolution struct {
	Skip   bool
	Reason Reason
	Name   string // wire name to use; empty when skipped
}

// Resolve decides whether m takes part in op and under which name. value is
// consulted only for null-ness when encoding; an invalid value counts as null.
// The first matching rule wins.
func Resolve(m Member, opts Options, op Operation, value reflect.Value) Resolution {
	switch {
	case m.Ignored:
		return skip(ReasonIgnored)
	case !m.Mutable && (op == OpDecode || opts.ExcludeImmutable):
		return skip(ReasonImmutable)
	case m.Visibility == Restricted && m.WireName == "":
		return skip(ReasonRestricted)
	case m.Extension:
		return skip(ReasonExtension)
	}
	if op == OpEncode && isNull(value) {
		switch m.Nulls {
		case NullExclude:
			return skip(ReasonNull)
		case NullDefault:
			if opts.SuppressNulls {
				return skip(ReasonNull)
			}
		}
	}
	return Resolution{Name: opts.wireName(m.Key())}
}

func skip(r Reason) Resolution { return Resolution{Skip: true, Reason: r} }

// isNull reports whether v encodes as a document null.
func isNull(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return v.IsNil()
	}
	return false
}
