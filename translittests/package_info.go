// Package translittests runs the fixture catalogue against translator page sessions.
//
// Every suite is a test scope and every case is a subtest within it, so filters, loggers, and
// result reporting all work in terms of "suite/case" test IDs. Cases can be split across several
// independent page sessions that run in parallel.
package translittests
