// Package mocksite is a stand-in for the remote transliteration page. It reproduces what makes the
// real page hard to test: the input textarea carries the same classes as the output region,
// input is debounced, and output arrives in several partial updates over a server-sent event
// stream before it is final.
//
// Tests use it to exercise the browser harness without network access, and the harness binary can
// run its suites against it with -mock-site.
package mocksite
