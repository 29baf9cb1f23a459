package jobrunner

import "reflect"

// funcPointer extracts a comparable identity for a func value. Go forbids
// comparing funcs with ==; this is the standard idiom for registries keyed
// by callback identity (the source compares C function pointers directly
// via ==).
func funcPointer(f Callback) uintptr {
	if f == nil {
		return 0
	}
	return reflect.ValueOf(f).Pointer()
}
