package gekko2d

import (
	"reflect"
)

func reflectSliceMake(elem reflect.Type) any {
	return reflect.MakeSlice(reflect.SliceOf(elem), 0, 1).Interface()
}

func reflectSliceGet(slice any, idx int) reflect.Value {
	return reflect.ValueOf(slice).Index(idx)
}

func reflectSliceSet(slice any, idx int, val reflect.Value) {
	reflect.ValueOf(slice).Index(idx).Set(val)
}

func reflectSliceAppend(slice any, val reflect.Value) any {
	return reflect.Append(
		reflect.ValueOf(slice),
		val,
	).Interface()
}

// reflectSliceTruncate returns slice[:n], zeroing the dropped tail so it does
// not pin memory.
func reflectSliceTruncate(slice any, n int) any {
	v := reflect.ValueOf(slice)
	zero := reflect.Zero(v.Type().Elem())
	for i := n; i < v.Len(); i++ {
		v.Index(i).Set(zero)
	}
	return v.Slice(0, n).Interface()
}
