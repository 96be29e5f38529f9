package wirepolicy

import (
	"io"
	"sync"

	eng "github.com/reoring/wirepolicy/internal/engine"
	gojsonsrc "github.com/reoring/wirepolicy/source/gojson"
	jsonsrc "github.com/reoring/wirepolicy/source/json"
)

// Kind enumerates document token kinds.
type Kind = eng.Kind

const (
	TokenBeginObject = eng.KindBeginObject
	TokenEndObject   = eng.KindEndObject
	TokenBeginArray  = eng.KindBeginArray
	TokenEndArray    = eng.KindEndArray
	TokenKey         = eng.KindKey
	TokenString      = eng.KindString
	TokenNumber      = eng.KindNumber
	TokenBool        = eng.KindBool
	TokenNull        = eng.KindNull
)

// Token describes a token in the input stream. String holds key and string
// text, Number holds the number literal. Offset records the byte position
// when known (-1 otherwise).
type Token = eng.Token

// Source is a forward-only cursor over document tokens. Exhaustion is
// reported as io.EOF.
type Source interface {
	NextToken() (Token, error)
	Location() int64 // byte offset; -1 if unknown
}

// JSONDriver converts JSON input into a Source via a pluggable SPI. The default
// implementation is based on encoding/json and may be swapped with SetJSONDriver.
type JSONDriver interface {
	NewReader(r io.Reader) Source
	NewBytes(b []byte) Source
	Name() string
}

var (
	jsonDriverMu      sync.RWMutex
	currentJSONDriver JSONDriver = stdlibJSONDriver{}
)

// SetJSONDriver replaces the global JSON driver; nil values are ignored.
func SetJSONDriver(d JSONDriver) {
	if d == nil {
		return
	}
	jsonDriverMu.Lock()
	currentJSONDriver = d
	jsonDriverMu.Unlock()
}

// UseDefaultJSONDriver restores the default encoding/json backed driver.
func UseDefaultJSONDriver() {
	jsonDriverMu.Lock()
	currentJSONDriver = stdlibJSONDriver{}
	jsonDriverMu.Unlock()
}

// CurrentJSONDriver returns the driver used by JSONReader and JSONBytes.
func CurrentJSONDriver() JSONDriver {
	jsonDriverMu.RLock()
	d := currentJSONDriver
	jsonDriverMu.RUnlock()
	return d
}

// StdlibJSONDriver returns the default driver, backed by encoding/json.
func StdlibJSONDriver() JSONDriver { return stdlibJSONDriver{} }

// GoJSONDriver returns a driver backed by goccy/go-json. Its sources read the
// whole input and validate it before yielding tokens.
func GoJSONDriver() JSONDriver { return goJSONDriver{} }

type goJSONDriver struct{}

func (goJSONDriver) NewReader(r io.Reader) Source { return gojsonsrc.NewReader(r) }
func (goJSONDriver) NewBytes(b []byte) Source     { return gojsonsrc.NewBytes(b) }
func (goJSONDriver) Name() string                 { return "go-json" }

type stdlibJSONDriver struct{}

func (stdlibJSONDriver) NewReader(r io.Reader) Source { return jsonsrc.NewReader(r) }
func (stdlibJSONDriver) NewBytes(b []byte) Source     { return jsonsrc.NewBytes(b) }
func (stdlibJSONDriver) Name() string                 { return "encoding/json" }

// JSONReader wraps an io.Reader as a JSON Source.
func JSONReader(r io.Reader) Source { return CurrentJSONDriver().NewReader(r) }

// JSONBytes wraps a byte slice as a JSON Source.
func JSONBytes(b []byte) Source { return CurrentJSONDriver().NewBytes(b) }

// enforce wraps src with duplicate-key and depth checks when o asks for them.
func enforce(src Source, o *Options) Source {
	eo := eng.EnforceOptions{OnDuplicate: toEngineDup(o.OnDuplicateKey), MaxDepth: o.MaxDepth}
	if !eo.Enabled() {
		return src
	}
	log := o.Logger
	eo.IssueSink = func(si eng.SimpleIssue) {
		log.Warn("duplicate key", zapPath(si.Path), zapOffset(si.Offset))
	}
	return eng.WrapWithEnforcement(src, eo)
}

func toEngineDup(s Severity) eng.DuplicateStrictness {
	switch s {
	case Warn:
		return eng.DupWarn
	case Error:
		return eng.DupError
	}
	return eng.DupIgnore
}
