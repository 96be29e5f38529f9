package wirepolicy

import (
	"iter"
	"reflect"
	"slices"
	"strings"

	gojson "github.com/goccy/go-json"
)

// ExtensionData collects object members that match no struct field, in the
// order they were first seen. V selects the capture mode: any stores the
// decoded value (maps, slices, strings, numbers, bools, nil); RawValue stores
// the encoded JSON text.
//
// The zero value is ready to use.
type ExtensionData[V any] struct {
	keys []string
	vals map[string]V
}

// Set stores v under key. An existing key keeps its position.
func (e *ExtensionData[V]) Set(key string, v V) {
	if e.vals == nil {
		e.vals = make(map[string]V)
	}
	if _, ok := e.vals[key]; !ok {
		e.keys = append(e.keys, key)
	}
	e.vals[key] = v
}

// Get returns the value stored under key.
func (e *ExtensionData[V]) Get(key string) (V, bool) {
	v, ok := e.vals[key]
	return v, ok
}

// Delete removes key.
func (e *ExtensionData[V]) Delete(key string) {
	if _, ok := e.vals[key]; !ok {
		return
	}
	delete(e.vals, key)
	for i, k := range e.keys {
		if k == key {
			e.keys = append(e.keys[:i], e.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of entries.
func (e *ExtensionData[V]) Len() int { return len(e.keys) }

// Keys returns the keys in insertion order.
func (e *ExtensionData[V]) Keys() []string { return append([]string(nil), e.keys...) }

// All iterates entries in insertion order.
func (e *ExtensionData[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		for _, k := range e.keys {
			if !yield(k, e.vals[k]) {
				return
			}
		}
	}
}

// Equal reports whether both containers hold equal entries in the same order.
func (e ExtensionData[V]) Equal(o ExtensionData[V]) bool {
	if len(e.keys) != len(o.keys) {
		return false
	}
	for i, k := range e.keys {
		if o.keys[i] != k || !reflect.DeepEqual(e.vals[k], o.vals[k]) {
			return false
		}
	}
	return true
}

// MarshalJSON renders the entries as one object in insertion order. Keys are
// written as stored; naming policies apply only when the container is a
// member of an encoded struct.
func (e ExtensionData[V]) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range e.keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := gojson.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := gojson.Marshal(e.vals[k])
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, vb...)
	}
	return append(buf, '}'), nil
}

func (e *ExtensionData[V]) elem() reflect.Type { return reflect.TypeFor[V]() }

func (e *ExtensionData[V]) put(key string, v any) {
	if v == nil {
		var zero V
		e.Set(key, zero)
		return
	}
	e.Set(key, v.(V))
}

func (e *ExtensionData[V]) each(fn func(key string, v any) error) error {
	for _, k := range e.keys {
		if err := fn(k, e.vals[k]); err != nil {
			return err
		}
	}
	return nil
}

// extensionContainer is implemented by *ExtensionData[V].
type extensionContainer interface {
	elem() reflect.Type
	put(key string, v any)
	each(fn func(key string, v any) error) error
}

var (
	rawValueType           = reflect.TypeFor[RawValue]()
	anyType                = reflect.TypeFor[any]()
	extensionContainerType = reflect.TypeFor[extensionContainer]()
)

// sinkShape records how an extension member stores its entries.
type sinkShape int

const (
	sinkNone    sinkShape = iota
	sinkData              // ExtensionData[V]
	sinkDataPtr           // *ExtensionData[V]
	sinkMap               // map[string]any or map[string]RawValue
)

// extensionShape classifies t as an extension container. raw reports the
// capture mode.
func extensionShape(t reflect.Type) (shape sinkShape, raw bool, ok bool) {
	switch {
	case t.Kind() == reflect.Struct && reflect.PointerTo(t).Implements(extensionContainerType):
		shape = sinkData
	case t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct && t.Implements(extensionContainerType):
		shape = sinkDataPtr
	case t.Kind() == reflect.Map && t.Key().Kind() == reflect.String:
		shape = sinkMap
	default:
		return sinkNone, false, false
	}
	elem := containerElem(t, shape)
	return shape, elem == rawValueType, elem == anyType || elem == rawValueType
}

// containerElem returns V for ExtensionData[V] or the map element type.
func containerElem(t reflect.Type, shape sinkShape) reflect.Type {
	switch shape {
	case sinkData:
		return reflect.New(t).Interface().(extensionContainer).elem()
	case sinkDataPtr:
		return reflect.New(t.Elem()).Interface().(extensionContainer).elem()
	}
	return t.Elem()
}

// extPut inserts one captured entry into the extension member fv, creating
// the container when absent.
func extPut(fv reflect.Value, shape sinkShape, key string, v any) {
	switch shape {
	case sinkData:
		fv.Addr().Interface().(extensionContainer).put(key, v)
	case sinkDataPtr:
		if fv.IsNil() {
			fv.Set(reflect.New(fv.Type().Elem()))
		}
		fv.Interface().(extensionContainer).put(key, v)
	case sinkMap:
		if fv.IsNil() {
			fv.Set(reflect.MakeMap(fv.Type()))
		}
		ev := reflect.Zero(fv.Type().Elem())
		if v != nil {
			ev = reflect.ValueOf(v)
		}
		fv.SetMapIndex(reflect.ValueOf(key).Convert(fv.Type().Key()), ev)
	}
}

// extEach visits the entries of fv in write order. Plain maps are visited in
// sorted key order.
func extEach(fv reflect.Value, shape sinkShape, fn func(key string, v any) error) error {
	switch shape {
	case sinkData:
		return fv.Addr().Interface().(extensionContainer).each(fn)
	case sinkDataPtr:
		if fv.IsNil() {
			return nil
		}
		return fv.Interface().(extensionContainer).each(fn)
	case sinkMap:
		keys := fv.MapKeys()
		sortStringValues(keys)
		for _, k := range keys {
			if err := fn(k.String(), fv.MapIndex(k).Interface()); err != nil {
				return err
			}
		}
	}
	return nil
}

func sortStringValues(vs []reflect.Value) {
	slices.SortFunc(vs, func(a, b reflect.Value) int { return strings.Compare(a.String(), b.String()) })
}
