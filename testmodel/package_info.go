// Package testmodel contains the data model for transliteration fixtures: the cases a suite
// runs and the validation rules they must satisfy before anything is run.
package testmodel
