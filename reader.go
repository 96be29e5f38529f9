package wirepolicy

import (
	"errors"
	"io"
	"reflect"

	"go.uber.org/zap"

	eng "github.com/reoring/wirepolicy/internal/engine"
)

// reader holds the state of one decode call.
type reader struct {
	src  Source
	opts *Options
	reg  *Registry
	log  *zap.Logger
}

func newReader(src Source, o *Options, reg *Registry) *reader {
	return &reader{src: enforce(src, o), opts: o, reg: reg, log: o.Logger}
}

// next reads one token inside an open value; end of input is a format error.
func (r *reader) next(path string) (Token, error) {
	tok, err := r.src.NextToken()
	if err != nil {
		return Token{}, r.wrap(err, path)
	}
	return tok, nil
}

// wrap turns token-level failures into FormatError. Other errors, including
// tokenizer syntax errors and value codec errors, pass through unchanged.
func (r *reader) wrap(err error, path string) error {
	var fe *FormatError
	if errors.As(err, &fe) {
		return err
	}
	var ie eng.IssueError
	if errors.As(err, &ie) {
		return &FormatError{Path: ie.Path, Offset: ie.Offset, Msg: ie.Message}
	}
	var ue eng.UnexpectedTokenError
	if errors.As(err, &ue) {
		return formatErr(path, ue.Token.Offset, "unexpected "+ue.Token.Kind.String(), nil)
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return formatErr(path, r.src.Location(), "unexpected end of input", io.ErrUnexpectedEOF)
	}
	return err
}

// readRoot reads one object into a fresh instance of the struct type t and
// returns a pointer to it.
func (r *reader) readRoot(t reflect.Type, m *Model) (reflect.Value, error) {
	tok, err := r.src.NextToken()
	if err != nil {
		return reflect.Value{}, r.wrap(err, "")
	}
	if tok.Kind != TokenBeginObject {
		return reflect.Value{}, formatErr("", tok.Offset, "expected start of object, got "+tok.Kind.String(), nil)
	}
	inst, err := r.reg.instantiate(t)
	if err != nil {
		return reflect.Value{}, err
	}
	if err := r.readObject(inst.Elem(), m, ""); err != nil {
		return reflect.Value{}, err
	}
	return inst, nil
}

// readObject fills the struct value dst from the members of an object whose
// start token has already been consumed.
func (r *reader) readObject(dst reflect.Value, m *Model, path string) error {
	seen := make([]string, len(m.Members)) // key that last set each member
	for {
		tok, err := r.next(path)
		if err != nil {
			return err
		}
		switch tok.Kind {
		case TokenEndObject:
			return nil
		case TokenKey:
		default:
			return formatErr(path, tok.Offset, "expected key or end of object, got "+tok.Kind.String(), nil)
		}
		key := tok.String
		vpath := eng.JoinPointer(path, key)
		vt, err := r.next(vpath)
		if err != nil {
			return err
		}

		i := m.match(key, r.opts)
		if i < 0 {
			if err := r.overflow(dst, m, key, vt, vpath); err != nil {
				return err
			}
			continue
		}
		mem := &m.Members[i]
		if res := Resolve(*mem, *r.opts, OpDecode, reflect.Value{}); res.Skip {
			if ce := r.log.Check(zap.DebugLevel, "skipping member"); ce != nil {
				ce.Write(zap.String("member", mem.Name), zap.Stringer("reason", res.Reason), zapPath(vpath))
			}
			if err := eng.SkipValue(r.src, vt); err != nil {
				return r.wrap(err, vpath)
			}
			continue
		}
		if prev := seen[i]; prev != "" {
			if err := r.duplicate(mem, prev, tok, vpath); err != nil {
				return err
			}
		}
		seen[i] = key

		fv, _ := field(dst, mem.Index, true)
		if mem.Nested {
			err = r.readNested(vt, fv, mem, vpath)
		} else {
			err = r.opts.Values.DecodeValue(r.src, vt, fv, r.opts)
		}
		if err != nil {
			return r.wrap(err, vpath)
		}
	}
}

// duplicate handles a second key for the same member. Exact repeats are left
// to the enforcement wrapper; keys that differ only in case are subject to
// OnDuplicateKey here.
func (r *reader) duplicate(mem *Member, prev string, tok Token, path string) error {
	if prev == tok.String || r.opts.OnDuplicateKey == Ignore {
		if ce := r.log.Check(zap.DebugLevel, "duplicate member, last value wins"); ce != nil {
			ce.Write(zap.String("member", mem.Name), zapPath(path))
		}
		return nil
	}
	msg := "key '" + tok.String + "' duplicates '" + prev + "' for member " + mem.Name
	if r.opts.OnDuplicateKey == Error {
		return formatErr(path, tok.Offset, msg, nil)
	}
	r.log.Warn("duplicate key", zap.String("detail", msg), zapPath(path), zapOffset(tok.Offset))
	return nil
}

// overflow routes a key that matched no member into the extension sink, or
// drops it when the type has none.
func (r *reader) overflow(dst reflect.Value, m *Model, key string, vt Token, path string) error {
	ext, ok := m.Extension()
	if !ok {
		if ce := r.log.Check(zap.DebugLevel, "dropping unmatched key"); ce != nil {
			ce.Write(zapKey(key), zapPath(path), zapType(m.Type))
		}
		if err := eng.SkipValue(r.src, vt); err != nil {
			return r.wrap(err, path)
		}
		return nil
	}
	var v any
	if ext.rawSink {
		raw, err := eng.CaptureRaw(r.src, vt)
		if err != nil {
			return r.wrap(err, path)
		}
		v = RawValue(raw)
	} else {
		dv, err := eng.DecodeValue(r.src, vt, numberConv(r.opts))
		if err != nil {
			return r.wrap(err, path)
		}
		v = dv
	}
	fv, _ := field(dst, ext.Index, true)
	extPut(fv, ext.sink, key, v)
	return nil
}

// readNested reads a nested member. Null zeroes the member; any other
// non-object value is a format error.
func (r *reader) readNested(vt Token, fv reflect.Value, mem *Member, path string) error {
	switch vt.Kind {
	case TokenNull:
		fv.SetZero()
		return nil
	case TokenBeginObject:
	default:
		return formatErr(path, vt.Offset, "member "+mem.Name+" expects an object, got "+vt.Kind.String(), nil)
	}
	st := mem.Type
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}
	nm, err := ModelOf(st)
	if err != nil {
		return err
	}
	inst, err := r.reg.instantiate(st)
	if err != nil {
		return err
	}
	if err := r.readObject(inst.Elem(), nm, path); err != nil {
		return err
	}
	if mem.Type.Kind() == reflect.Pointer {
		fv.Set(inst)
	} else {
		fv.Set(inst.Elem())
	}
	return nil
}
