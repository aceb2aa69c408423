package translit

import (
	"context"
	"strings"
)

// InputInjectable is the input side of the page.
type InputInjectable interface {
	// Clear empties the input.
	Clear(ctx context.Context) error

	// Fill replaces the input with text in one step.
	Fill(ctx context.Context, text string) error

	// Type sends a single keystroke.
	Type(ctx context.Context, r rune) error

	// InputValue returns the current content of the input.
	InputValue(ctx context.Context) (string, error)
}

// OutputObservable is the output side of the page.
type OutputObservable interface {
	// OutputCandidates returns, in document order, every element that carries the output
	// region's styling. Some of them are not the output.
	OutputCandidates(ctx context.Context) ([]OutputCandidate, error)
}

// Surface is everything a Session needs from a page.
type Surface interface {
	InputInjectable
	OutputObservable
}

// OutputCandidate describes one element matching the output styling signature.
type OutputCandidate struct {
	Tag             string `json:"tag"`
	Role            string `json:"role"`
	ContentEditable bool   `json:"contentEditable"`
	Text            string `json:"text"`
}

// IsInputLike is true for elements that accept text input. The page's input textarea has the
// same classes as its output, so these have to be excluded.
func (c OutputCandidate) IsInputLike() bool {
	switch strings.ToUpper(c.Tag) {
	case "TEXTAREA", "INPUT":
		return true
	}
	return strings.EqualFold(c.Role, "textbox") || c.ContentEditable
}

// SelectOutput picks the true output element: the first candidate in document order that is not
// input-like and has non-blank text. It returns false if there is none, which is the page's
// baseline state.
func SelectOutput(candidates []OutputCandidate) (OutputCandidate, bool) {
	for _, c := range candidates {
		if !c.IsInputLike() && strings.TrimSpace(c.Text) != "" {
			return c, true
		}
	}
	return OutputCandidate{}, false
}

// NormalizeOutput is the only transformation applied to output before comparison: leading and
// trailing whitespace is removed. Inner whitespace and all other characters, including
// zero-width joiners, are kept.
func NormalizeOutput(raw string) string {
	return strings.TrimSpace(raw)
}
