package translittests

import (
	"context"
	"sync"

	"github.com/sinhala-translit/translit-test-harness/mocksite"
	"github.com/sinhala-translit/translit-test-harness/translit"
)

// fakeSurface shows the transliteration of its input immediately. Inputs listed in silent never
// produce any output.
type fakeSurface struct {
	lock   sync.Mutex
	input  string
	silent map[string]bool
	closed bool
}

func (f *fakeSurface) Clear(context.Context) error {
	f.lock.Lock()
	f.input = ""
	f.lock.Unlock()
	return nil
}

func (f *fakeSurface) Fill(_ context.Context, text string) error {
	f.lock.Lock()
	f.input = text
	f.lock.Unlock()
	return nil
}

func (f *fakeSurface) Type(_ context.Context, r rune) error {
	f.lock.Lock()
	f.input += string(r)
	f.lock.Unlock()
	return nil
}

func (f *fakeSurface) InputValue(context.Context) (string, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.input, nil
}

func (f *fakeSurface) OutputCandidates(context.Context) ([]translit.OutputCandidate, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	output := ""
	if !f.silent[f.input] {
		output = mocksite.Transliterate(f.input, mocksite.DefaultDictionary()).Final()
	}
	return []translit.OutputCandidate{
		{Tag: "TEXTAREA", Text: f.input},
		{Tag: "DIV", Text: output},
	}, nil
}

func (f *fakeSurface) Close() error {
	f.lock.Lock()
	f.closed = true
	f.lock.Unlock()
	return nil
}
