package translit

import (
	"context"
	"strings"
	"sync"
	"time"
)

// fakePage imitates the translator page: output for the current input is revealed one word per
// wordDelay after the last input change, and the input textarea carries the output's classes.
type fakePage struct {
	lock sync.Mutex

	input     string
	inputAt   time.Time
	wordDelay time.Duration
	translate func(string) string

	// after the input is cleared, the previous output stays visible for clearLag
	prevOutput string
	clearedAt  time.Time
	clearLag   time.Duration

	// script, if set, overrides the output based on time since the last input change
	script func(elapsed time.Duration) string

	ignoreClear bool
	typed       []rune
	fills       []string

	fillStarted chan struct{}
	fillRelease chan struct{}
}

var fakeDictionary = map[string]string{ //nolint:gochecknoglobals
	"mama":     "මම",
	"eyaa":     "එයා",
	"gedhara":  "ගෙදර",
	"giyaa.":   "ගියා.",
	"api":      "අපි",
	"thaama":   "තාම",
	"kanavaa":  "කනවා",
	"kaeema":   "කෑම",
	"kannavaa": "කන්නවා",
	"yanavaa":  "යනවා",
}

func dictionaryTranslate(input string) string {
	words := strings.Fields(input)
	for i, w := range words {
		if s, ok := fakeDictionary[w]; ok {
			words[i] = s
		}
	}
	return strings.Join(words, " ")
}

func newFakePage() *fakePage {
	return &fakePage{
		wordDelay: 15 * time.Millisecond,
		translate: dictionaryTranslate,
	}
}

func (p *fakePage) setInput(text string) {
	now := time.Now()
	if text == "" && p.input != "" {
		p.prevOutput = p.outputAt(now)
		p.clearedAt = now
	}
	p.input = text
	p.inputAt = now
}

func (p *fakePage) outputAt(now time.Time) string {
	if p.input == "" {
		if p.clearLag > 0 && now.Sub(p.clearedAt) < p.clearLag {
			return p.prevOutput
		}
		return ""
	}
	elapsed := now.Sub(p.inputAt)
	if p.script != nil {
		return p.script(elapsed)
	}
	words := strings.SplitAfter(p.translate(p.input), " ")
	n := len(words)
	if p.wordDelay > 0 {
		n = int(elapsed / p.wordDelay)
	}
	if n > len(words) {
		n = len(words)
	}
	return strings.Join(words[:n], "")
}

func (p *fakePage) Clear(context.Context) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if !p.ignoreClear {
		p.setInput("")
	}
	return nil
}

func (p *fakePage) Fill(_ context.Context, text string) error {
	if p.fillStarted != nil {
		close(p.fillStarted)
		<-p.fillRelease
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	p.fills = append(p.fills, text)
	p.setInput(text)
	return nil
}

func (p *fakePage) Type(_ context.Context, r rune) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.typed = append(p.typed, r)
	p.setInput(p.input + string(r))
	return nil
}

func (p *fakePage) InputValue(context.Context) (string, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.input, nil
}

func (p *fakePage) OutputCandidates(context.Context) ([]OutputCandidate, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	out := p.outputAt(time.Now())
	if out != "" {
		out = "\n  " + out + " \n"
	}
	return []OutputCandidate{
		{Tag: "TEXTAREA", Role: "textbox", Text: p.input},
		{Tag: "DIV", Text: out},
	}, nil
}

func (p *fakePage) typedText() string {
	p.lock.Lock()
	defer p.lock.Unlock()
	return string(p.typed)
}

func testConfig() Config {
	return Config{
		ResetTimeout:      300 * time.Millisecond,
		ResetQuietPeriod:  20 * time.Millisecond,
		SettleTimeout:     500 * time.Millisecond,
		SettleQuietPeriod: 60 * time.Millisecond,
		PollInterval:      5 * time.Millisecond,
		KeystrokeDelay:    2 * time.Millisecond,
		CaseTimeout:       2 * time.Second,
		PartialWait:       300 * time.Millisecond,
		Mode:              DeliveryAtomic,
	}
}
