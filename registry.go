package wirepolicy

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// ErrNotHandled indicates a registry has no codec for a type.
var ErrNotHandled = errors.New("type not handled")

// Registry selects the policy codec for struct types equal to, or derived
// from, a registered base type. In Go a type derives from a base when it
// embeds the base, directly or through other embedded structs. Registries are
// safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	all       bool
	bases     map[reflect.Type]struct{}
	factories map[reflect.Type]func() any
	codecs    map[reflect.Type]*Codec
	log       *zap.Logger
}

// NewRegistry returns a registry that handles no types until Handle or
// HandleAllStructs is called.
func NewRegistry() *Registry {
	return &Registry{
		bases:     make(map[reflect.Type]struct{}),
		factories: make(map[reflect.Type]func() any),
		codecs:    make(map[reflect.Type]*Codec),
		log:       zap.NewNop(),
	}
}

// DefaultRegistry handles every struct type. The package-level Marshal,
// Unmarshal, Encode and Decode use it.
var DefaultRegistry = func() *Registry {
	r := NewRegistry()
	r.HandleAllStructs()
	return r
}()

// HandleAllStructs makes r handle every struct type.
func (r *Registry) HandleAllStructs() {
	r.mu.Lock()
	r.all = true
	r.mu.Unlock()
}

// SetLogger sets the logger for registry events; nil restores the no-op logger.
func (r *Registry) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	r.mu.Lock()
	r.log = l
	r.mu.Unlock()
}

// Handle registers T as a base type of r.
func Handle[T any](r *Registry) {
	t := structType(reflect.TypeFor[T]())
	r.mu.Lock()
	r.bases[t] = struct{}{}
	r.mu.Unlock()
}

// RegisterFactory installs the constructor used whenever r instantiates T,
// including nested members of type T. A factory returning nil makes the read
// fail with an InstantiationError.
func RegisterFactory[T any](r *Registry, f func() *T) {
	t := reflect.TypeFor[T]()
	r.mu.Lock()
	r.factories[t] = func() any { return f() }
	r.mu.Unlock()
}

// CanHandle reports whether t (or the struct a pointer type points to) is a
// registered base or embeds one.
func (r *Registry) CanHandle(t reflect.Type) bool {
	t = structType(t)
	if t == nil || t.Kind() != reflect.Struct {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.all {
		return true
	}
	return r.derives(t, make(map[reflect.Type]bool))
}

func (r *Registry) derives(t reflect.Type, seen map[reflect.Type]bool) bool {
	if _, ok := r.bases[t]; ok {
		return true
	}
	if seen[t] {
		return false
	}
	seen[t] = true
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.Anonymous {
			continue
		}
		if et := structType(sf.Type); et != nil && et.Kind() == reflect.Struct && r.derives(et, seen) {
			return true
		}
	}
	return false
}

// Codec is the compiled policy codec of one struct type.
type Codec struct {
	Type  reflect.Type
	Model *Model
	reg   *Registry
}

// CodecFor returns the cached codec for t, compiling its models on first use.
func (r *Registry) CodecFor(t reflect.Type) (*Codec, error) {
	if !r.CanHandle(t) {
		return nil, fmt.Errorf("%w: %v", ErrNotHandled, t)
	}
	t = structType(t)

	// Fast path: read-lock cache check
	r.mu.RLock()
	if c, ok := r.codecs[t]; ok {
		r.mu.RUnlock()
		return c, nil
	}
	r.mu.RUnlock()

	if err := Compile(t); err != nil {
		return nil, err
	}
	m, _ := ModelOf(t)

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.codecs[t]; ok {
		return c, nil
	}
	c := &Codec{Type: t, Model: m, reg: r}
	r.codecs[t] = c
	r.log.Debug("compiled codec", zapType(t), zap.Int("members", len(m.Members)))
	return c, nil
}

// Read reads one object from src into a new instance and returns a pointer
// to it.
func (c *Codec) Read(src Source, opts ...Options) (reflect.Value, error) {
	o := lastOptions(opts)
	return newReader(src, o, c.reg).readRoot(c.Type, c.Model)
}

// Write writes v, a value or pointer of the codec's type, to sink.
func (c *Codec) Write(sink Sink, v reflect.Value, opts ...Options) error {
	o := lastOptions(opts)
	return newWriter(sink, o).writeRoot(v, c.Model)
}

// instantiate returns a pointer to a fresh T, from the registered factory
// when there is one.
func (r *Registry) instantiate(t reflect.Type) (reflect.Value, error) {
	r.mu.RLock()
	f := r.factories[t]
	r.mu.RUnlock()
	if f == nil {
		return reflect.New(t), nil
	}
	p := reflect.ValueOf(f())
	if !p.IsValid() || p.IsNil() {
		return reflect.Value{}, &InstantiationError{Type: t.String(), Reason: "factory returned nil"}
	}
	return p, nil
}

// Encode writes v to sink. Handled types go through their codec, everything
// else through the options' ValueCodec.
func (r *Registry) Encode(sink Sink, v any, opts ...Options) error {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return sink.WriteToken(Token{Kind: TokenNull})
	}
	if r.CanHandle(rv.Type()) {
		c, err := r.CodecFor(rv.Type())
		if err != nil {
			return err
		}
		return c.Write(sink, rv, opts...)
	}
	o := lastOptions(opts)
	return o.Values.EncodeValue(sink, rv, o)
}

// Decode reads one value from src into the non-nil pointer v. Handled struct
// targets, and pointers to them, receive a fresh instance.
func (r *Registry) Decode(src Source, v any, opts ...Options) error {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return &InstantiationError{Type: fmt.Sprintf("%T", v), Reason: "destination must be a non-nil pointer"}
	}
	dst := rv.Elem()
	t := dst.Type()
	if !r.CanHandle(t) {
		o := lastOptions(opts)
		rd := newReader(src, o, r)
		tok, err := rd.src.NextToken()
		if err != nil {
			return rd.wrap(err, "")
		}
		if err := o.Values.DecodeValue(rd.src, tok, dst, o); err != nil {
			return rd.wrap(err, "")
		}
		return nil
	}
	c, err := r.CodecFor(t)
	if err != nil {
		return err
	}
	if t.Kind() == reflect.Struct {
		p, err := c.Read(src, opts...)
		if err != nil {
			return err
		}
		dst.Set(p.Elem())
		return nil
	}
	return c.readPointer(src, dst, opts...)
}

// readPointer fills a *T destination, where a document null yields nil.
func (c *Codec) readPointer(src Source, dst reflect.Value, opts ...Options) error {
	for dst.Type().Elem().Kind() == reflect.Pointer {
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		dst = dst.Elem()
	}
	o := lastOptions(opts)
	rd := newReader(src, o, c.reg)
	tok, err := rd.src.NextToken()
	if err != nil {
		return rd.wrap(err, "")
	}
	switch tok.Kind {
	case TokenNull:
		dst.SetZero()
		return nil
	case TokenBeginObject:
	default:
		return formatErr("", tok.Offset, "expected start of object, got "+tok.Kind.String(), nil)
	}
	inst, err := c.reg.instantiate(c.Type)
	if err != nil {
		return err
	}
	if err := rd.readObject(inst.Elem(), c.Model, ""); err != nil {
		return err
	}
	dst.Set(inst)
	return nil
}

// Marshal renders v as compact JSON.
func (r *Registry) Marshal(v any, opts ...Options) ([]byte, error) {
	s := NewJSONSink()
	if err := r.Encode(s, v, opts...); err != nil {
		return nil, err
	}
	return s.Bytes(), nil
}

// Unmarshal decodes JSON data into the non-nil pointer v. data must hold
// exactly one value.
func (r *Registry) Unmarshal(data []byte, v any, opts ...Options) error {
	src := JSONBytes(data)
	if err := r.Decode(src, v, opts...); err != nil {
		return err
	}
	return expectEnd(src)
}

// expectEnd fails unless src is exhausted.
func expectEnd(src Source) error {
	tok, err := src.NextToken()
	switch {
	case errors.Is(err, io.EOF):
		return nil
	case err != nil:
		return formatErr("", src.Location(), "invalid data after top-level value", err)
	}
	return formatErr("", tok.Offset, "unexpected "+tok.Kind.String()+" after top-level value", nil)
}

func structType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
