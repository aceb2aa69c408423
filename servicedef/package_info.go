// Package servicedef describes the external page that the harness drives: where it lives, how
// its input is found, and the styling signature shared by the output region (and, as a trap, by
// the input textarea).
//
// Nothing in here talks to the page; see framework/harness for that.
package servicedef
