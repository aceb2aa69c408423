// Package framework contains the low-level implementation of test harness infrastructure that
// is independent of what page is being tested. The base package contains shared types such as
// Logger; other components are in the subpackages harness and trtest.
//
// The general model is:
//
// 1. The test harness owns a browser driver and can open any number of independent page
// sessions against an external web page. Each session is used by exactly one sequential
// sequence of test cases.
//
// 2. There is a general notion of a test scope which is similar to Go's testing.T, allowing
// pieces of test logic to be associated with a test identifier and to accumulate
// success/failure results, elapsed time, and captured debug output.
//
// The domain-specific code that knows what is being tested (the translit and translittests
// packages) is responsible for driving the page through each case and for deciding what
// counts as a failure.
package framework
