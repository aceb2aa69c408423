package testmodel

import (
	"fmt"
	"strings"
)

// TestCase is one transliteration check: typing Input into the page must produce exactly
// Expected (after surrounding whitespace is trimmed from the page output).
//
// Name, Category, Grammar and Length are descriptive. They are attached to the case's test scope
// as tags, and so appear in debug output and in the JSON report, but never affect whether a case
// passes.
type TestCase struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Input    string `json:"input"`
	Expected string `json:"expected"`
	Category string `json:"category,omitempty"`
	Grammar  string `json:"grammar,omitempty"`
	Length   string `json:"length,omitempty"`
}

// Title is the name used for the case's test scope.
func (tc TestCase) Title() string {
	if tc.Name == "" {
		return tc.ID
	}
	return tc.ID + " - " + tc.Name
}

// Tags returns the non-empty descriptive attributes of the case.
func (tc TestCase) Tags() []string {
	return tags(tc.Category, tc.Grammar, tc.Length)
}

func tags(category, grammar, length string) []string {
	var ret []string
	for _, s := range []string{category, grammar, lengthTag(length)} {
		if s = strings.TrimSpace(s); s != "" {
			ret = append(ret, s)
		}
	}
	return ret
}

func lengthTag(length string) string {
	if strings.TrimSpace(length) == "" {
		return ""
	}
	return "length:" + strings.TrimSpace(length)
}

// InteractiveCase checks the page while input is typed keystroke by keystroke: after
// PartialInput has been typed some output must already be visible, and after the rest of Input
// has been typed the output must settle to ExpectedFull.
type InteractiveCase struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	Input        string `json:"input"`
	PartialInput string `json:"partialInput"`
	ExpectedFull string `json:"expectedFull"`
	Category     string `json:"category,omitempty"`
	Grammar      string `json:"grammar,omitempty"`
	Length       string `json:"length,omitempty"`
}

func (ic InteractiveCase) Title() string {
	if ic.Name == "" {
		return ic.ID
	}
	return ic.ID + " - " + ic.Name
}

// Tags returns the non-empty descriptive attributes of the case.
func (ic InteractiveCase) Tags() []string {
	return tags(ic.Category, ic.Grammar, ic.Length)
}

// Remainder is the part of Input that follows PartialInput.
func (ic InteractiveCase) Remainder() string {
	return strings.TrimPrefix(ic.Input, ic.PartialInput)
}

// Suite is the contents of one fixture file.
type Suite struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Cases       []TestCase        `json:"cases"`
	Interactive []InteractiveCase `json:"interactive,omitempty"`
}

// CaseCount is the number of runnable cases of both kinds.
func (s Suite) CaseCount() int {
	return len(s.Cases) + len(s.Interactive)
}

// FieldProblem identifies one invalid entry in a fixture file.
type FieldProblem struct {
	Index   int
	ID      string
	Missing []string
	Reason  string
}

func (p FieldProblem) String() string {
	where := fmt.Sprintf("case #%d", p.Index)
	if p.ID != "" {
		where += fmt.Sprintf(" (%s)", p.ID)
	}
	if len(p.Missing) > 0 {
		return fmt.Sprintf("%s: missing %s", where, strings.Join(p.Missing, ", "))
	}
	return fmt.Sprintf("%s: %s", where, p.Reason)
}

// MalformedFixtureError means the catalogue cannot be used. It is reported before any page is
// opened.
type MalformedFixtureError struct {
	File     string
	Problems []FieldProblem
	Err      error
}

func (e *MalformedFixtureError) Error() string {
	var sb strings.Builder
	sb.WriteString("malformed fixture")
	if e.File != "" {
		sb.WriteString(" " + e.File)
	}
	if e.Err != nil {
		sb.WriteString(": " + e.Err.Error())
	}
	for _, p := range e.Problems {
		sb.WriteString("\n  " + p.String())
	}
	return sb.String()
}

func (e *MalformedFixtureError) Unwrap() error { return e.Err }
