// Package must provides assertion helpers for conditions that should
// never be false if the rest of the program is correct.
//
// These are for programmer errors, not user errors: a failed assertion
// means a core invariant was broken and the caller should not try to
// recover from it.
package must

import "fmt"

// Be panics if cond is false.
func Be(cond bool, msg string) {
	if !cond {
		panic(msg)
	}
}

// Bef panics with a formatted message if cond is false.
func Bef(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}

// NotBeBlank panics if s is empty.
func NotBeBlank(s, msg string) {
	if s == "" {
		panic(msg)
	}
}

// NotBeBlankf panics with a formatted message if s is empty.
func NotBeBlankf(s, format string, args ...any) {
	if s == "" {
		panic(fmt.Sprintf(format, args...))
	}
}

// Fail unconditionally panics with msg. Use it in switch default cases
// that are believed to be unreachable.
func Fail(msg string) {
	panic(msg)
}

// Failf unconditionally panics with a formatted message.
func Failf(format string, args ...any) {
	panic(fmt.Sprintf(format, args...))
}

// NoError panics if err is non-nil. Use only for errors that truly
// cannot occur (e.g. marshalling a value of a known-good static shape).
func NoError(err error) {
	if err != nil {
		panic(err)
	}
}
