// Package require provides a minimal assertion surface for packages that
// must not pull testify into their build graph. Its API is a deliberate
// subset of github.com/stretchr/testify/require so call sites read the
// same regardless of which is imported.
package require

import (
	"reflect"
	"testing"
)

// NoError fails the test immediately if err is non-nil.
func NoError(t *testing.T, err error, msgAndArgs ...interface{}) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v %v", err, msgAndArgs)
	}
}

// Error fails the test immediately if err is nil.
func Error(t *testing.T, err error, msgAndArgs ...interface{}) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected an error %v", msgAndArgs)
	}
}

// Equal fails the test immediately if want != got.
func Equal(t *testing.T, want, got interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("not equal: want %#v, got %#v %v", want, got, msgAndArgs)
	}
}

// True fails the test immediately if v is false.
func True(t *testing.T, v bool, msgAndArgs ...interface{}) {
	t.Helper()
	if !v {
		t.Fatalf("expected true %v", msgAndArgs)
	}
}

// False fails the test immediately if v is true.
func False(t *testing.T, v bool, msgAndArgs ...interface{}) {
	t.Helper()
	if v {
		t.Fatalf("expected false %v", msgAndArgs)
	}
}

// Len fails the test immediately if the collection's length != n.
func Len(t *testing.T, v interface{}, n int, msgAndArgs ...interface{}) {
	t.Helper()
	rv := reflect.ValueOf(v)
	if rv.Len() != n {
		t.Fatalf("expected length %d, got %d %v", n, rv.Len(), msgAndArgs)
	}
}

// Nil fails the test immediately if v is non-nil.
func Nil(t *testing.T, v interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if v == nil {
		return
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		if rv.IsNil() {
			return
		}
	}
	t.Fatalf("expected nil, got %#v %v", v, msgAndArgs)
}
