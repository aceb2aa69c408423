// Package internal contains test helpers for trtest.
package internal

// RunAction is used only in unit tests, but exported because it has to be in a separate package
// so that it shows up in stacktraces as non-trtest code.
func RunAction(action func()) {
	action()
}
