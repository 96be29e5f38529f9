package wirepolicy

import (
	"fmt"
	"reflect"
	"strings"
)

// Visibility tells whether a member is reachable by name from outside its
// package.
type Visibility int

const (
	Public     Visibility = iota // exported field
	Restricted                   // unexported field; serialized only with an explicit wire name
)

func (v Visibility) String() string {
	if v == Restricted {
		return "restricted"
	}
	return "public"
}

// NullHandling overrides the global null suppression for one member.
type NullHandling int

const (
	NullDefault NullHandling = iota // follow Options.SuppressNulls
	NullInclude                     // always write null
	NullExclude                     // never write null
)

func (n NullHandling) String() string {
	switch n {
	case NullInclude:
		return "include"
	case NullExclude:
		return "exclude"
	}
	return "default"
}

// Member describes one serializable struct field.
type Member struct {
	Name       string // Go field name
	WireName   string // explicit override; empty when absent
	Visibility Visibility
	Mutable    bool
	Ignored    bool
	Nulls      NullHandling
	Extension  bool
	Nested     bool
	Type       reflect.Type
	Index      []int // reflect field path from the owning struct
	Depth      int   // embedding depth; 0 for direct fields

	sink    sinkShape
	rawSink bool
}

// Key returns the member's name before any naming policy.
func (m Member) Key() string {
	if m.WireName != "" {
		return m.WireName
	}
	return m.Name
}

// TagName is the struct tag key holding member metadata.
const TagName = "wire"

// Tag is the parsed form of a member's struct tags.
type Tag struct {
	Name      string
	Ignored   bool
	ReadOnly  bool
	Nulls     NullHandling
	Extension bool
}

// ParseTag parses a `wire` tag value together with an optional `json` tag
// value. Priority for the name is wire:"name=..." > json tag name; "-" in
// either tag ignores the field.
func ParseTag(wire, json string) (Tag, error) {
	var ts Tag
	if json != "" {
		jn, _, _ := strings.Cut(json, ",")
		if jn == "-" && json == "-" {
			ts.Ignored = true
		} else {
			ts.Name = jn
		}
	}
	if wire == "" {
		return ts, nil
	}
	if wire == "-" {
		ts.Ignored = true
		return ts, nil
	}
	for _, p := range strings.Split(wire, ",") {
		p = strings.TrimSpace(p)
		key, val, hasVal := strings.Cut(p, "=")
		switch key {
		case "":
			continue
		case "name":
			if !hasVal || val == "" {
				return ts, fmt.Errorf("option %q needs a value", key)
			}
			ts.Name = val
		case "ignore":
			ts.Ignored = true
		case "readonly":
			ts.ReadOnly = true
		case "extension":
			ts.Extension = true
		case "nulls":
			switch val {
			case "include":
				ts.Nulls = NullInclude
			case "exclude":
				ts.Nulls = NullExclude
			case "default":
				ts.Nulls = NullDefault
			default:
				return ts, fmt.Errorf("nulls=%q: want include, exclude or default", val)
			}
		default:
			return ts, fmt.Errorf("unknown option %q", key)
		}
		if hasVal && key != "name" && key != "nulls" {
			return ts, fmt.Errorf("option %q takes no value", key)
		}
	}
	return ts, nil
}
