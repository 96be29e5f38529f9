package wirepolicy

import "reflect"

// writer holds the state of one encode call.
type writer struct {
	sink Sink
	opts *Options
}

func newWriter(sink Sink, o *Options) *writer {
	return &writer{sink: sink, opts: o}
}

// writeRoot writes v, a struct or a pointer chain ending in one. Nil pointers
// write null.
func (w *writer) writeRoot(v reflect.Value, m *Model) error {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return w.sink.WriteToken(Token{Kind: TokenNull})
		}
		v = v.Elem()
	}
	if !v.CanAddr() {
		p := reflect.New(v.Type())
		p.Elem().Set(v)
		v = p.Elem()
	}
	return w.writeObject(v, m)
}

// writeObject writes the addressable struct value v member by member.
func (w *writer) writeObject(v reflect.Value, m *Model) error {
	if err := w.sink.WriteToken(Token{Kind: TokenBeginObject}); err != nil {
		return err
	}
	for i := range m.Members {
		mem := &m.Members[i]
		fv, present := field(v, mem.Index, false)
		res := Resolve(*mem, *w.opts, OpEncode, fv)
		if i == m.extIndex() {
			if !present || res.Reason != ReasonExtension {
				continue
			}
			if err := w.writeExtension(fv, mem); err != nil {
				return err
			}
			continue
		}
		if res.Skip {
			continue
		}
		if err := w.sink.WriteToken(Token{Kind: TokenKey, String: res.Name}); err != nil {
			return err
		}
		if err := w.writeMember(fv, mem); err != nil {
			return err
		}
	}
	return w.sink.WriteToken(Token{Kind: TokenEndObject})
}

func (w *writer) writeMember(fv reflect.Value, mem *Member) error {
	if !fv.IsValid() {
		return w.sink.WriteToken(Token{Kind: TokenNull})
	}
	if !mem.Nested {
		return w.opts.Values.EncodeValue(w.sink, fv, w.opts)
	}
	if fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return w.sink.WriteToken(Token{Kind: TokenNull})
		}
		fv = fv.Elem()
	}
	nm, err := ModelOf(fv.Type())
	if err != nil {
		return err
	}
	return w.writeObject(fv, nm)
}

// writeExtension writes the entries of the extension sink in place, keys
// passed through the naming policy.
func (w *writer) writeExtension(fv reflect.Value, mem *Member) error {
	return extEach(fv, mem.sink, func(key string, val any) error {
		if err := w.sink.WriteToken(Token{Kind: TokenKey, String: w.opts.wireName(key)}); err != nil {
			return err
		}
		if raw, ok := val.(RawValue); ok {
			if len(raw) == 0 {
				return w.sink.WriteToken(Token{Kind: TokenNull})
			}
			return w.sink.WriteRaw(raw)
		}
		return w.opts.Values.EncodeValue(w.sink, reflect.ValueOf(val), w.opts)
	})
}
