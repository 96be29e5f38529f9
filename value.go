package wirepolicy

import (
	"reflect"
	"strconv"

	gojson "github.com/goccy/go-json"

	eng "github.com/reoring/wirepolicy/internal/engine"
)

// ValueCodec reads and writes leaf values: everything that is neither a
// nested member nor an extension entry handled by the engine.
type ValueCodec interface {
	// DecodeValue reads the value starting at first into dst, which is
	// settable.
	DecodeValue(src Source, first Token, dst reflect.Value, opts *Options) error
	// EncodeValue writes v as exactly one value.
	EncodeValue(sink Sink, v reflect.Value, opts *Options) error
}

// GoJSONValues is the default ValueCodec. Scalars of plain kinds are handled
// directly; everything else round-trips through goccy/go-json.
var GoJSONValues ValueCodec = goJSONValues{}

type goJSONValues struct{}

func (goJSONValues) DecodeValue(src Source, first Token, dst reflect.Value, opts *Options) error {
	if dst.Kind() == reflect.Interface && dst.NumMethod() == 0 {
		v, err := eng.DecodeValue(src, first, numberConv(opts))
		if err != nil {
			return err
		}
		if v == nil {
			dst.SetZero()
		} else {
			dst.Set(reflect.ValueOf(v))
		}
		return nil
	}
	if !customDecoding(dst.Type()) {
		if ok, err := decodeScalar(first, dst); ok || err != nil {
			return err
		}
	}
	raw, err := eng.CaptureRaw(src, first)
	if err != nil {
		return err
	}
	return gojson.Unmarshal(raw, dst.Addr().Interface())
}

// decodeScalar assigns a scalar token to a plain-kind destination. It returns
// false when the pair needs the generic path.
func decodeScalar(tok Token, dst reflect.Value) (bool, error) {
	switch {
	case tok.Kind == TokenString && dst.Kind() == reflect.String:
		dst.SetString(tok.String)
	case tok.Kind == TokenBool && dst.Kind() == reflect.Bool:
		dst.SetBool(tok.Bool)
	case tok.Kind == TokenNumber && dst.CanInt():
		n, err := strconv.ParseInt(tok.Number, 10, 64)
		if err != nil || dst.OverflowInt(n) {
			return false, nil
		}
		dst.SetInt(n)
	case tok.Kind == TokenNumber && dst.CanUint():
		n, err := strconv.ParseUint(tok.Number, 10, 64)
		if err != nil || dst.OverflowUint(n) {
			return false, nil
		}
		dst.SetUint(n)
	case tok.Kind == TokenNumber && dst.CanFloat():
		n, err := strconv.ParseFloat(tok.Number, dst.Type().Bits())
		if err != nil {
			return false, nil
		}
		dst.SetFloat(n)
	case tok.Kind == TokenNull && dst.Kind() == reflect.Pointer:
		dst.SetZero()
	default:
		return false, nil
	}
	return true, nil
}

func (goJSONValues) EncodeValue(sink Sink, v reflect.Value, _ *Options) error {
	if !v.IsValid() || isNull(v) {
		return sink.WriteToken(Token{Kind: TokenNull})
	}
	if !customEncoding(v.Type()) {
		switch {
		case v.Kind() == reflect.String:
			return sink.WriteToken(Token{Kind: TokenString, String: v.String()})
		case v.Kind() == reflect.Bool:
			return sink.WriteToken(Token{Kind: TokenBool, Bool: v.Bool()})
		case v.CanInt():
			return sink.WriteToken(Token{Kind: TokenNumber, Number: strconv.FormatInt(v.Int(), 10)})
		case v.CanUint():
			return sink.WriteToken(Token{Kind: TokenNumber, Number: strconv.FormatUint(v.Uint(), 10)})
		}
	}
	raw, err := gojson.Marshal(v.Interface())
	if err != nil {
		return err
	}
	return sink.WriteRaw(raw)
}

func customDecoding(t reflect.Type) bool {
	pt := reflect.PointerTo(t)
	return pt.Implements(unmarshalerType) || pt.Implements(textUnmarshalerType)
}

func customEncoding(t reflect.Type) bool {
	if t.Implements(marshalerType) || t.Implements(textMarshalerType) {
		return true
	}
	pt := reflect.PointerTo(t)
	return pt.Implements(marshalerType) || pt.Implements(textMarshalerType)
}

func numberConv(o *Options) eng.NumberConv {
	if o != nil && o.NumberMode == NumberJSONNumber {
		return eng.JSONNumber
	}
	return eng.Float64
}
