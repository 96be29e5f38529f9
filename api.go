package wirepolicy

import "io"

// Marshal renders v as compact JSON using DefaultRegistry.
func Marshal(v any, opts ...Options) ([]byte, error) { return DefaultRegistry.Marshal(v, opts...) }

// Unmarshal decodes JSON data into the non-nil pointer v using DefaultRegistry.
func Unmarshal(data []byte, v any, opts ...Options) error {
	return DefaultRegistry.Unmarshal(data, v, opts...)
}

// Encode writes v to sink using DefaultRegistry.
func Encode(sink Sink, v any, opts ...Options) error { return DefaultRegistry.Encode(sink, v, opts...) }

// Decode reads one value from src into the non-nil pointer v using DefaultRegistry.
func Decode(src Source, v any, opts ...Options) error { return DefaultRegistry.Decode(src, v, opts...) }

// UnmarshalAs decodes JSON data into a new T.
func UnmarshalAs[T any](data []byte, opts ...Options) (*T, error) {
	var out *T
	if err := Unmarshal(data, &out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeReader decodes one JSON value from rd into the non-nil pointer v.
func DecodeReader(rd io.Reader, v any, opts ...Options) error {
	return Decode(JSONReader(rd), v, opts...)
}
