package cftemplate

import (
	"math"
	"reflect"
)

// Context holds the variable bindings that decide conditional directives.
// It is read-only during a resolution and shared by every nested require
// and conditional body.
type Context map[string]any

// Has reports whether name is bound, regardless of its value
func (c Context) Has(name string) bool {
	_, ok := c[name]
	return ok
}

// Truthy reports whether name is bound to a truthy value.
// Unbound names, nil, false, numeric zero, NaN and the empty string are falsy.
func (c Context) Truthy(name string) bool {
	value, ok := c[name]
	if !ok {
		return false
	}
	return isTruthy(value)
}

func isTruthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0 && !math.IsNaN(v)
	case float32:
		return v != 0 && !math.IsNaN(float64(v))
	case int:
		return v != 0
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	default:
		return true
	}
}
