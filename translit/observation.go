package translit

import (
	"strings"
	"time"

	o "github.com/sinhala-translit/translit-test-harness/framework/opt"
)

// ObservationState tracks the output across the polls of a single wait. It is created fresh for
// each wait and thrown away afterward.
type ObservationState struct {
	LastObservedText string
	StableSince      o.Maybe[time.Time]
}

// Observe records the text seen at time now. The stability clock restarts whenever the text
// differs from the previous observation.
func (s *ObservationState) Observe(text string, now time.Time) {
	if s.StableSince.IsDefined() && text == s.LastObservedText {
		return
	}
	s.LastObservedText = text
	s.StableSince = o.Some(now)
}

// Settled is true once the last observed text is non-blank and has not changed for quiet.
func (s ObservationState) Settled(now time.Time, quiet time.Duration) bool {
	if !s.StableSince.IsDefined() || strings.TrimSpace(s.LastObservedText) == "" {
		return false
	}
	return now.Sub(s.StableSince.Value()) >= quiet
}

// baselineState tracks how long the input surface has been empty during a reset.
type baselineState struct {
	emptySince     o.Maybe[time.Time]
	residualInput  string
	residualOutput string
}

func (b *baselineState) observe(input, output string, now time.Time) {
	b.residualInput = input
	b.residualOutput = output
	if input != "" || strings.TrimSpace(output) != "" {
		b.emptySince = o.None[time.Time]()
		return
	}
	if !b.emptySince.IsDefined() {
		b.emptySince = o.Some(now)
	}
}

func (b baselineState) reached(now time.Time, quiet time.Duration) bool {
	return b.emptySince.IsDefined() && now.Sub(b.emptySince.Value()) >= quiet
}
