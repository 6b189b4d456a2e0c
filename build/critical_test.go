package build

import (
	"strings"
	"testing"
)

// TestCritical checks that Critical panics when DEBUG is enabled.
func TestCritical(t *testing.T) {
	DEBUG = true
	defer func() { DEBUG = false }()

	defer func() {
		r := recover()
		s, ok := r.(string)
		if !ok || !strings.Contains(s, "critical test killstring") {
			t.Error("panic did not carry the expected message:", r)
		}
	}()
	Critical("critical test killstring")
}

// TestCriticalVariadic checks that variadic arguments are joined correctly.
func TestCriticalVariadic(t *testing.T) {
	DEBUG = true
	defer func() { DEBUG = false }()

	defer func() {
		r := recover()
		s, ok := r.(string)
		if !ok || !strings.Contains(s, "variadic critical test killstring") {
			t.Error("panic did not carry the expected message:", r)
		}
	}()
	Critical("variadic", "critical", "test", "killstring")
}

// TestCriticalNoPanic checks that Critical does not panic when DEBUG is
// disabled.
func TestCriticalNoPanic(t *testing.T) {
	Critical("should not panic")
}
