package wirepolicy

import "go.uber.org/zap"

// NumberMode dictates how numbers are interpreted when they are decoded
// without a concrete Go type (structured extension capture, `any` members).
type NumberMode int

const (
	NumberFloat64    NumberMode = iota // float64, with potential precision loss.
	NumberJSONNumber                   // Preserve the literal as json.Number.
)

// Severity expresses how an enforcement finding is treated.
type Severity int

const (
	Ignore Severity = iota
	Warn
	Error
)

// Options configures a single Marshal/Unmarshal call. The zero value is the
// default behavior: names unchanged, nulls written, read-only members written.
type Options struct {
	// NamingPolicy transforms member wire names and extension keys on write.
	// On read, keys also match the policy-applied name.
	NamingPolicy func(string) string
	// SuppressNulls skips null members on write unless a member overrides it.
	SuppressNulls bool
	// ExcludeImmutable skips read-only members on write.
	ExcludeImmutable bool

	NumberMode NumberMode
	// MaxDepth limits container nesting on read; 0 means unlimited.
	MaxDepth int
	// OnDuplicateKey controls repeated keys within one object. Ignore keeps
	// the last occurrence.
	OnDuplicateKey Severity

	// Values handles leaf values. Nil selects GoJSONValues.
	Values ValueCodec
	// Logger receives debug diagnostics. Nil disables logging.
	Logger *zap.Logger
}

// lastOptions implements the trailing variadic convention: the last value wins.
func lastOptions(opts []Options) *Options {
	var o Options
	if n := len(opts); n > 0 {
		o = opts[n-1]
	}
	if o.Values == nil {
		o.Values = GoJSONValues
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return &o
}

// wireName applies the naming policy, if any.
func (o *Options) wireName(s string) string {
	if o.NamingPolicy == nil {
		return s
	}
	return o.NamingPolicy(s)
}
