package wirepolicy

import (
	"reflect"

	"go.uber.org/zap"
)

func zapPath(p string) zap.Field       { return zap.String("path", normalizePath(p)) }
func zapOffset(o int64) zap.Field      { return zap.Int64("offset", o) }
func zapKey(k string) zap.Field        { return zap.String("key", k) }
func zapType(t reflect.Type) zap.Field { return zap.Stringer("type", t) }
