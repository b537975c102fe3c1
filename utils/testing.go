package utils

import (
	"errors"
	"math"
	"strings"
	"testing"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// AssertEquals verifies that the expected generic object T is equal to result T.
// If expected differs from result in any way, the test will fail immediately.
func AssertEquals[T comparable](t *testing.T, expected T, result T) {
	t.Helper()
	if expected != result {
		t.Logf("%s is failed. Got '%v', expected '%v'", t.Name(), result, expected)
		t.FailNow()
	}
}

// AssertEqualsMsg is like AssertEquals, but it also prints a custom message when the test fails.
func AssertEqualsMsg[T comparable](t *testing.T, expected T, result T, msg string) {
	t.Helper()
	if expected != result {
		t.Logf("%s is failed; %s - Got '%v', expected '%v'", t.Name(), msg, result, expected)
		t.FailNow()
	}
}

// AssertInDelta compares two floats allowing an absolute error of delta.
func AssertInDelta(t *testing.T, expected float64, result float64, delta float64) {
	t.Helper()
	if math.Abs(expected-result) > delta {
		t.Logf("%s is failed. Got '%v', expected '%v' (delta %v)", t.Name(), result, expected, delta)
		t.FailNow()
	}
}

// AssertSliceEquals is like AssertEquals but works for slices
// Each element of the expected slice must be equal to the corresponding element in the result slice, in the same order.
func AssertSliceEquals[T comparable](t *testing.T, expected []T, result []T) {
	t.Helper()
	if equal := slices.Equal(expected, result); !equal {
		t.Logf("%s is failed Got '%v', expected '%v'", t.Name(), result, expected)
		t.FailNow()
	}
}

// AssertMapEquals checks that both maps contain the same key-value pairs.
func AssertMapEquals[K comparable, V comparable](t *testing.T, expectedMap map[K]V, resultMap map[K]V) {
	t.Helper()
	if equal := maps.Equal(expectedMap, resultMap); !equal {
		t.Logf("%s is failed. Got '%v', expected '%v'", t.Name(), resultMap, expectedMap)
		t.FailNow()
	}
}

// AssertNil checks that result is nil. Useful for checking that there are no errors.
func AssertNil(t *testing.T, result interface{}) {
	t.Helper()
	if nil != result {
		t.Logf("%s is failed. Got '%v', expected nil", t.Name(), result)
		t.FailNow()
	}
}

// AssertNilMsg is like AssertNil, but it also prints a custom message when the test fails.
func AssertNilMsg(t *testing.T, result interface{}, msg string) {
	t.Helper()
	if nil != result {
		t.Logf("%s is failed; %s - Got '%v', expected nil", t.Name(), msg, result)
		t.FailNow()
	}
}

// AssertNonNil checks that result is non-nil.
func AssertNonNil(t *testing.T, result interface{}) {
	t.Helper()
	if nil == result {
		t.Logf("%s is failed. Got '%v', expected non-nil", t.Name(), result)
		t.FailNow()
	}
}

// AssertTrue verifies that given boolean is true, otherwise fails the test immediately
func AssertTrue(t *testing.T, isTrue bool) {
	t.Helper()
	if !isTrue {
		t.Logf("%s is failed. Got false", t.Name())
		t.FailNow()
	}
}

// AssertTrueMsg verifies that given boolean is true, otherwise fails the test immediately and prints a custom message
func AssertTrueMsg(t *testing.T, isTrue bool, msg string) {
	t.Helper()
	if !isTrue {
		t.Logf("%s is false - %s", t.Name(), msg)
		t.FailNow()
	}
}

// AssertFalse verifies that given boolean is false, otherwise fails the test immediately
func AssertFalse(t *testing.T, isTrue bool) {
	t.Helper()
	if isTrue {
		t.Logf("%s is failed. Got true", t.Name())
		t.FailNow()
	}
}

// AssertErrorIs checks that err wraps target.
func AssertErrorIs(t *testing.T, err error, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Logf("%s is failed. Got error '%v', expected '%v'", t.Name(), err, target)
		t.FailNow()
	}
}

// AssertContains checks that s holds substr, printing s when it does not.
func AssertContains(t *testing.T, s string, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Logf("%s is failed. %q not found in:\n%s", t.Name(), substr, s)
		t.FailNow()
	}
}
