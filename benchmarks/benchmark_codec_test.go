package wirepolicy_test

import (
	"bytes"
	"encoding/json"
	"strconv"
	"testing"

	gojson "github.com/goccy/go-json"

	"github.com/reoring/wirepolicy"
	"github.com/reoring/wirepolicy/msgpack"
	"github.com/reoring/wirepolicy/yaml"
)

type line struct {
	SKU   string `wire:"name=sku" json:"sku"`
	Qty   int
	Price float64
}

type order struct {
	ID       string `wire:"name=id" json:"id"`
	Customer string
	Lines    []*line
	Ship     *line
	Note     *string
	Extra    wirepolicy.ExtensionData[any] `wire:"extension" json:"-"`
}

func sampleOrder() *order {
	o := &order{ID: "o-1", Customer: "c-9", Ship: &line{SKU: "ship", Qty: 1, Price: 4.5}}
	for i := 0; i < 20; i++ {
		o.Lines = append(o.Lines, &line{SKU: "sku-" + strconv.Itoa(i), Qty: i, Price: float64(i) * 1.25})
	}
	o.Extra.Set("channel", "web")
	return o
}

func orderJSON(tb testing.TB) []byte {
	tb.Helper()
	data, err := wirepolicy.Marshal(sampleOrder(), wirepolicy.Options{NamingPolicy: wirepolicy.CamelCase})
	if err != nil {
		tb.Fatalf("marshal: %v", err)
	}
	return data
}

func Benchmark_Marshal_Policy(b *testing.B) {
	o := sampleOrder()
	opts := wirepolicy.Options{NamingPolicy: wirepolicy.CamelCase, SuppressNulls: true}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := wirepolicy.Marshal(o, opts); err != nil {
			b.Fatal(err)
		}
	}
}

func Benchmark_Marshal_GoJSONBaseline(b *testing.B) {
	o := sampleOrder()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := gojson.Marshal(o); err != nil {
			b.Fatal(err)
		}
	}
}

func Benchmark_Unmarshal_Policy_GoJSONDriver(b *testing.B) {
	data := orderJSON(b)
	opts := wirepolicy.Options{NamingPolicy: wirepolicy.CamelCase}
	wirepolicy.SetJSONDriver(wirepolicy.GoJSONDriver())
	defer wirepolicy.UseDefaultJSONDriver()
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var o *order
		if err := wirepolicy.Unmarshal(data, &o, opts); err != nil {
			b.Fatal(err)
		}
	}
}

func Benchmark_Unmarshal_Policy_StdlibDriver(b *testing.B) {
	data := orderJSON(b)
	opts := wirepolicy.Options{NamingPolicy: wirepolicy.CamelCase}
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var o *order
		if err := wirepolicy.DecodeReader(bytes.NewReader(data), &o, opts); err != nil {
			b.Fatal(err)
		}
	}
}

func Benchmark_Unmarshal_Enforced(b *testing.B) {
	data := orderJSON(b)
	opts := wirepolicy.Options{NamingPolicy: wirepolicy.CamelCase, OnDuplicateKey: wirepolicy.Error, MaxDepth: 16}
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var o *order
		if err := wirepolicy.Unmarshal(data, &o, opts); err != nil {
			b.Fatal(err)
		}
	}
}

func Benchmark_Unmarshal_StdlibBaseline(b *testing.B) {
	data := orderJSON(b)
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var o order
		if err := json.Unmarshal(data, &o); err != nil {
			b.Fatal(err)
		}
	}
}

func Benchmark_NumberMode_Extension(b *testing.B) {
	data := []byte(`{"id":"x","a":1,"b":2.5,"c":-3.75,"d":[1,2,3]}`)
	for _, mode := range []struct {
		name string
		mode wirepolicy.NumberMode
	}{{"Float64", wirepolicy.NumberFloat64}, {"JSONNumber", wirepolicy.NumberJSONNumber}} {
		b.Run(mode.name, func(b *testing.B) {
			opts := wirepolicy.Options{NumberMode: mode.mode}
			b.ReportAllocs()
			b.SetBytes(int64(len(data)))
			for i := 0; i < b.N; i++ {
				var o *order
				if err := wirepolicy.Unmarshal(data, &o, opts); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func Benchmark_Formats_RoundTrip(b *testing.B) {
	o := sampleOrder()
	b.Run("yaml", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			data, err := yaml.Marshal(o)
			if err != nil {
				b.Fatal(err)
			}
			var out *order
			if err := yaml.Unmarshal(data, &out); err != nil {
				b.Fatal(err)
			}
		}
	})
	b.Run("msgpack", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			data, err := msgpack.Marshal(o)
			if err != nil {
				b.Fatal(err)
			}
			var out *order
			if err := msgpack.Unmarshal(data, &out); err != nil {
				b.Fatal(err)
			}
		}
	})
}
