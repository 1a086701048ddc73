// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package estream

import (
	"fmt"
	"reflect"
	"sync"
)

// Stream items are persisted as raw bytes, so their layout must be free of
// anything the collector traces: pointers, maps, slices, strings,
// channels, funcs and interfaces. The scan runs once per type; hot paths
// hit the cache.

var unmanagedCache sync.Map // reflect.Type → bool

func checkUnmanaged[T any]() error {
	t := reflect.TypeFor[T]()
	if ok, hit := unmanagedCache.Load(t); hit {
		if ok.(bool) {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrManagedType, t)
	}
	ok := isUnmanaged(t)
	unmanagedCache.Store(t, ok)
	if !ok {
		return fmt.Errorf("%w: %s", ErrManagedType, t)
	}
	return nil
}

func isUnmanaged(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Uintptr, reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return isUnmanaged(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if !isUnmanaged(t.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		// Ptr, UnsafePointer, Slice, String, Map, Chan, Func, Interface.
		return false
	}
}
