// Package trtest contains a test runner framework that is similar to Go's testing package,
// but is run as regular Go application code rather than Go tests. It adds richer capabilities
// for configuration, logging, and result reporting: every test scope records its elapsed time,
// failures are classified by kind so that flaky harness failures (timeouts, stale page state)
// can be told apart from genuine value mismatches, and a fatal condition can abort the rest of
// the run.
package trtest
