package wirepolicy_test

import (
	"reflect"

	"github.com/google/go-cmp/cmp"

	"github.com/reoring/wirepolicy"
)

type SimpleObject struct {
	FirstName        string
	LastName         string
	SomeNumber       int
	SomeBooleanValue bool
}

type NestedObject struct {
	SomeStrings []string
	SomeNumbers []int
}

type HasNestedObject struct {
	Nested *NestedObject
	SimpleObject
}

type JsonPropNameAttrObject struct {
	FirstName        string
	LastName         string `wire:"name=last_name"`
	SomeNumber       int
	SomeBooleanValue bool
}

type InternalPropertiesObject struct {
	internalString        string `wire:"name=internal_string"`
	anotherInternalString string
	FirstName             string
	LastName              string
	SomeNumber            int
	SomeBooleanValue      bool
}

type JsonIgnoreAttrObject struct {
	FirstName        string
	LastName         string
	SomeNumber       int `wire:"ignore"`
	SomeBooleanValue bool
}

type IgnoreNullAttrObject struct {
	FirstName        string
	LastName         *string `wire:"nulls=exclude"`
	SomeNumber       int
	SomeBooleanValue bool
}

type IncludeNullAttrObject struct {
	FirstName        string
	LastName         *string `wire:"nulls=include"`
	SomeNumber       int
	SomeBooleanValue bool
}

type ReadOnlyPropsObject struct {
	FirstName        string `wire:"readonly"`
	LastName         string
	SomeNumber       int
	SomeBooleanValue bool
}

type ExtensionDataObject struct {
	FirstName        string
	LastName         string
	SomeNumber       int
	SomeBooleanValue bool
	Extra            wirepolicy.ExtensionData[any] `wire:"extension"`
}

type ExtensionDataRawObject struct {
	FirstName        string
	LastName         string
	SomeNumber       int
	SomeBooleanValue bool
	Extra            *wirepolicy.ExtensionData[wirepolicy.RawValue] `wire:"extension"`
}

func ptr[T any](v T) *T { return &v }

func newSimpleObject() *SimpleObject {
	return &SimpleObject{FirstName: "John", LastName: "Doe", SomeNumber: 100, SomeBooleanValue: true}
}

func newHasNestedObject() *HasNestedObject {
	return &HasNestedObject{
		Nested: &NestedObject{
			SomeStrings: []string{"One", "Two", "Three", "Four", "Five"},
			SomeNumbers: []int{1, 2, 3, 4, 5},
		},
		SimpleObject: *newSimpleObject(),
	}
}

func newJsonPropNameAttrObject() *JsonPropNameAttrObject {
	return &JsonPropNameAttrObject{FirstName: "John", LastName: "Doe", SomeNumber: 100, SomeBooleanValue: true}
}

func newInternalPropertiesObject() *InternalPropertiesObject {
	return &InternalPropertiesObject{
		internalString:        "Internal String Stuff",
		anotherInternalString: "Another Internal String",
		FirstName:             "John",
		LastName:              "Doe",
		SomeNumber:            100,
		SomeBooleanValue:      true,
	}
}

func newJsonIgnoreAttrObject() *JsonIgnoreAttrObject {
	return &JsonIgnoreAttrObject{FirstName: "John", LastName: "Doe", SomeNumber: 100, SomeBooleanValue: true}
}

func newIgnoreNullAttrObject() *IgnoreNullAttrObject {
	return &IgnoreNullAttrObject{FirstName: "John", SomeNumber: 100, SomeBooleanValue: true}
}

func newIncludeNullAttrObject() *IncludeNullAttrObject {
	return &IncludeNullAttrObject{FirstName: "John", SomeNumber: 100, SomeBooleanValue: true}
}

func newReadOnlyPropsObject() *ReadOnlyPropsObject {
	return &ReadOnlyPropsObject{FirstName: "John", LastName: "Doe", SomeNumber: 100, SomeBooleanValue: true}
}

func newExtensionDataObject() *ExtensionDataObject {
	o := &ExtensionDataObject{FirstName: "John", LastName: "Doe", SomeNumber: 100, SomeBooleanValue: true}
	o.Extra.Set("key1", "value1")
	o.Extra.Set("key2", "value2")
	o.Extra.Set("key3", "value3")
	return o
}

func newExtensionDataRawObject() *ExtensionDataRawObject {
	o := &ExtensionDataRawObject{FirstName: "John", LastName: "Doe", SomeNumber: 100, SomeBooleanValue: true,
		Extra: &wirepolicy.ExtensionData[wirepolicy.RawValue]{}}
	o.Extra.Set("key1", wirepolicy.RawValue(`"value1"`))
	o.Extra.Set("key2", wirepolicy.RawValue(`"value2"`))
	o.Extra.Set("key3", wirepolicy.RawValue(`"value3"`))
	return o
}

// testRegistry handles every struct type and supplies the read-only default
// that a constructor would set.
func testRegistry() *wirepolicy.Registry {
	r := wirepolicy.NewRegistry()
	r.HandleAllStructs()
	wirepolicy.RegisterFactory(r, func() *ReadOnlyPropsObject { return &ReadOnlyPropsObject{FirstName: "John"} })
	return r
}

// wireOnly compares only the members a decode can populate: members the
// policy skips on read are ignored. Extension members are compared through
// their Equal method.
func wireOnly() cmp.Option {
	return cmp.Options{
		cmp.FilterPath(func(p cmp.Path) bool {
			sf, ok := p.Last().(cmp.StructField)
			if !ok {
				return false
			}
			m, err := wirepolicy.ModelOf(p.Index(-2).Type())
			if err != nil {
				return false
			}
			mem, ok := m.Member(sf.Name())
			if !ok {
				return false
			}
			res := wirepolicy.Resolve(mem, wirepolicy.Options{}, wirepolicy.OpDecode, reflect.Value{})
			return res.Skip && res.Reason != wirepolicy.ReasonExtension
		}, cmp.Ignore()),
		cmp.AllowUnexported(InternalPropertiesObject{}),
	}
}
