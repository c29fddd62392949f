package utils

import (
	"fmt"
	"unsafe"
)

// SliceByteToGeneric reinterprets a slice of byte as a slice of T without copying.
// The caller must keep b alive as long as the returned slice is in use.
// Usage:
// b := make([]byte, 4*n)
// f := SliceByteToGeneric[float32](b)
func SliceByteToGeneric[T any](b []byte) []T {
	if len(b) == 0 {
		return nil
	}
	var t T
	size := int(unsafe.Sizeof(t))
	if len(b)%size != 0 {
		panic(fmt.Sprintf("len must be a multiple of %d", size))
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), len(b)/size)
}

// SliceGenericToByte reinterprets a slice of T as a slice of byte without copying.
func SliceGenericToByte[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var t T
	size := int(unsafe.Sizeof(t))
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*size)
}
