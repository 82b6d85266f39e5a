// Package layout answers size, alignment and pointer questions about Go
// types so that values can be placed in memory the garbage collector does
// not scan.
package layout

import (
	"reflect"
	"sync"
)

// Info describes how a type occupies memory.
type Info struct {
	Size  uintptr
	Align uintptr
	// PointerFree is true when no value of the type holds a reference the
	// garbage collector would need to trace.
	PointerFree bool
}

var cache sync.Map // reflect.Type -> Info

// Of returns the layout of T.
func Of[T any]() Info {
	return TypeInfo(reflect.TypeOf((*T)(nil)).Elem())
}

// TypeInfo returns the layout of t.
func TypeInfo(t reflect.Type) Info {
	if v, ok := cache.Load(t); ok {
		return v.(Info)
	}
	info := Info{
		Size:        t.Size(),
		Align:       uintptr(t.Align()),
		PointerFree: PointerFree(t),
	}
	cache.Store(t, info)
	return info
}

// PointerFree reports whether t contains no pointers, strings, slices,
// maps, channels, funcs or interfaces at any depth.
func PointerFree(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return t.Len() == 0 || PointerFree(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if !PointerFree(t.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
