// Package translit drives one transliteration page through a test case and decides when its
// output can be trusted.
//
// The page updates its output asynchronously and keeps no useful signal of when it is done, so
// every read goes through the same protocol: reset the input surface to a known baseline,
// submit the input, wait until the output has been non-empty and unchanged for a quiet period,
// then extract it. A Session owns that protocol for one page; it knows nothing about browsers,
// only about the Surface interfaces that framework/harness implements.
package translit
