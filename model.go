package wirepolicy

import (
	"encoding"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"unsafe"

	gojson "github.com/goccy/go-json"
)

// Model is the ordered member table of one struct type.
type Model struct {
	Type    reflect.Type
	Members []Member
	ext     int // index of the extension sink plus one; 0 when absent
}

// Extension returns the member that collects unmatched keys.
func (m *Model) Extension() (Member, bool) {
	i := m.extIndex()
	if i < 0 || i >= len(m.Members) {
		return Member{}, false
	}
	return m.Members[i], true
}

func (m *Model) extIndex() int { return m.ext - 1 }

// Member looks a member up by Go field name.
func (m *Model) Member(name string) (Member, bool) {
	for _, mem := range m.Members {
		if mem.Name == name {
			return mem, true
		}
	}
	return Member{}, false
}

// match finds the member for a document key: case-insensitive against the
// wire name, then the Go name, then the policy-applied name. The first member
// in declaration order wins. Extension members never match.
func (m *Model) match(key string, o *Options) int {
	for i := range m.Members {
		mem := &m.Members[i]
		if mem.Extension {
			continue
		}
		if mem.WireName != "" && strings.EqualFold(key, mem.WireName) {
			return i
		}
		if strings.EqualFold(key, mem.Name) {
			return i
		}
		if o.NamingPolicy != nil && strings.EqualFold(key, o.NamingPolicy(mem.Key())) {
			return i
		}
	}
	return -1
}

type modelEntry struct {
	m   *Model
	err error
}

var models sync.Map // reflect.Type -> modelEntry

// ModelOf returns the cached model for t. Pointer types resolve to their
// struct element.
func ModelOf(t reflect.Type) (*Model, error) {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, &ModelError{Type: fmt.Sprint(t), Reason: "not a struct type"}
	}
	if e, ok := models.Load(t); ok {
		me := e.(modelEntry)
		return me.m, me.err
	}
	m, err := buildModel(t)
	e, _ := models.LoadOrStore(t, modelEntry{m: m, err: err})
	me := e.(modelEntry)
	return me.m, me.err
}

// ModelFor is ModelOf for a type parameter.
func ModelFor[T any]() (*Model, error) { return ModelOf(reflect.TypeFor[T]()) }

// Compile builds the models of t and of every nested struct type reachable
// from it, so metadata errors surface before data is processed.
func Compile(t reflect.Type) error {
	return compile(t, make(map[reflect.Type]bool))
}

func compile(t reflect.Type, seen map[reflect.Type]bool) error {
	m, err := ModelOf(t)
	if err != nil {
		return err
	}
	if seen[m.Type] {
		return nil
	}
	seen[m.Type] = true
	for _, mem := range m.Members {
		if mem.Nested {
			if err := compile(mem.Type, seen); err != nil {
				return err
			}
		}
	}
	return nil
}

// MustCompile is Compile for package initialization; it panics on error.
func MustCompile(t reflect.Type) *Model {
	if err := Compile(t); err != nil {
		panic(err)
	}
	m, _ := ModelOf(t)
	return m
}

func buildModel(t reflect.Type) (*Model, error) {
	var members []Member
	if err := collectMembers(t, t, nil, 0, map[reflect.Type]bool{t: true}, &members); err != nil {
		return nil, err
	}
	members = shadow(members)
	m := &Model{Type: t, Members: members}
	for i, mem := range members {
		if !mem.Extension || mem.Ignored {
			continue
		}
		if m.ext > 0 {
			return nil, &ModelError{Type: t.String(), Field: mem.Name,
				Reason: "more than one extension member (first is " + members[m.extIndex()].Name + ")"}
		}
		m.ext = i + 1
	}
	return m, nil
}

func collectMembers(root, t reflect.Type, parent []int, depth int, visiting map[reflect.Type]bool, out *[]Member) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Name == "_" {
			continue
		}
		tag, err := ParseTag(sf.Tag.Get(TagName), sf.Tag.Get("json"))
		if err != nil {
			return &ModelError{Type: root.String(), Field: sf.Name, Reason: err.Error()}
		}
		index := append(slices.Clone(parent), i)

		if sf.Anonymous && tag.Name == "" && !tag.Ignored && !tag.Extension {
			et := sf.Type
			if et.Kind() == reflect.Pointer {
				et = et.Elem()
			}
			if et.Kind() == reflect.Struct && !marshalsItself(et) {
				if visiting[et] {
					continue
				}
				visiting[et] = true
				err := collectMembers(root, et, index, depth+1, visiting, out)
				delete(visiting, et)
				if err != nil {
					return err
				}
				continue
			}
		}

		mem := Member{
			Name:       sf.Name,
			WireName:   tag.Name,
			Visibility: Public,
			Mutable:    !tag.ReadOnly,
			Ignored:    tag.Ignored,
			Nulls:      tag.Nulls,
			Extension:  tag.Extension,
			Type:       sf.Type,
			Index:      index,
			Depth:      depth,
		}
		if !sf.IsExported() {
			mem.Visibility = Restricted
		}
		if tag.Extension {
			shape, raw, ok := extensionShape(sf.Type)
			if !ok {
				return &ModelError{Type: root.String(), Field: sf.Name,
					Reason: "extension member must be ExtensionData[any], ExtensionData[RawValue], a pointer to either, or map[string]any / map[string]RawValue; got " + sf.Type.String()}
			}
			mem.sink, mem.rawSink = shape, raw
		} else {
			mem.Nested = isNested(sf.Type)
		}
		*out = append(*out, mem)
	}
	return nil
}

// shadow drops members hidden by a shallower member with the same key.
// Among equally deep members the first one declared survives.
func shadow(members []Member) []Member {
	best := make(map[string]int, len(members))
	for i, m := range members {
		k := m.Key()
		if j, ok := best[k]; !ok || m.Depth < members[j].Depth {
			best[k] = i
		}
	}
	if len(best) == len(members) {
		return members
	}
	out := make([]Member, 0, len(best))
	for i, m := range members {
		if best[m.Key()] == i {
			out = append(out, m)
		}
	}
	return out
}

var (
	marshalerType       = reflect.TypeFor[gojson.Marshaler]()
	unmarshalerType     = reflect.TypeFor[gojson.Unmarshaler]()
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// marshalsItself reports whether t or *t controls its own encoding.
func marshalsItself(t reflect.Type) bool {
	pt := reflect.PointerTo(t)
	for _, it := range []reflect.Type{marshalerType, unmarshalerType, textMarshalerType, textUnmarshalerType} {
		if t.Implements(it) || pt.Implements(it) {
			return true
		}
	}
	return false
}

// isNested reports whether values of t are read and written member by member.
func isNested(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return false
	}
	if shape, _, _ := extensionShape(t); shape != sinkNone {
		return false
	}
	return !marshalsItself(t)
}

// field returns the member's value inside the struct value v. Nil embedded
// pointers on the path are allocated when alloc is set and reported as absent
// otherwise. Unexported fields are reached through their address, so v must
// be addressable.
func field(v reflect.Value, index []int, alloc bool) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				if !alloc {
					return reflect.Value{}, false
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
		if !v.CanSet() && v.CanAddr() {
			v = reflect.NewAt(v.Type(), unsafe.Pointer(v.UnsafeAddr())).Elem()
		}
	}
	return v, true
}
