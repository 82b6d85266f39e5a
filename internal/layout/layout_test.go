package layout

import (
	"reflect"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

type vec3 struct {
	X, Y, Z float32
}

type withString struct {
	ID   uint32
	Name string
}

type nested struct {
	A [4]vec3
	B [0]*int
	C struct {
		D int64
		E [2]uint8
	}
}

type nestedPtr struct {
	A [2]struct{ P *int }
}

func TestPointerFree(t *testing.T) {
	tests := []struct {
		name string
		typ  reflect.Type
		want bool
	}{
		{"uint8", reflect.TypeOf((*uint8)(nil)).Elem(), true},
		{"float64", reflect.TypeOf((*float64)(nil)).Elem(), true},
		{"complex128", reflect.TypeOf((*complex128)(nil)).Elem(), true},
		{"uintptr", reflect.TypeOf((*uintptr)(nil)).Elem(), true},
		{"array", reflect.TypeOf((*[16]int32)(nil)).Elem(), true},
		{"struct", reflect.TypeOf((*vec3)(nil)).Elem(), true},
		{"nested", reflect.TypeOf((*nested)(nil)).Elem(), true},
		{"empty struct", reflect.TypeOf((*struct{})(nil)).Elem(), true},
		{"pointer", reflect.TypeOf((**int)(nil)).Elem(), false},
		{"string", reflect.TypeOf((*string)(nil)).Elem(), false},
		{"slice", reflect.TypeOf((*[]byte)(nil)).Elem(), false},
		{"map", reflect.TypeOf((*map[int]int)(nil)).Elem(), false},
		{"chan", reflect.TypeOf((*chan int)(nil)).Elem(), false},
		{"func", reflect.TypeOf((*func())(nil)).Elem(), false},
		{"interface", reflect.TypeOf((*any)(nil)).Elem(), false},
		{"unsafe pointer", reflect.TypeOf((*unsafe.Pointer)(nil)).Elem(), false},
		{"struct with string", reflect.TypeOf((*withString)(nil)).Elem(), false},
		{"array of pointer structs", reflect.TypeOf((*nestedPtr)(nil)).Elem(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PointerFree(tt.typ))
		})
	}
}

func TestOf(t *testing.T) {
	info := Of[vec3]()
	assert.Equal(t, unsafe.Sizeof(vec3{}), info.Size)
	assert.Equal(t, unsafe.Alignof(vec3{}), info.Align)
	assert.True(t, info.PointerFree)

	// Second lookup is served from the cache and must agree.
	assert.Equal(t, info, Of[vec3]())

	info = Of[withString]()
	assert.False(t, info.PointerFree)
	assert.Equal(t, unsafe.Sizeof(withString{}), info.Size)
}
