package servicedef

import "time"

const (
	DefaultBaseURL = "https://www.swifttranslator.com/"

	// DefaultInputLabel is the accessible name of the input textbox.
	DefaultInputLabel = "Input Your Singlish Text Here."

	// DefaultOutputSelector matches every element carrying the output region's class signature.
	// The input textarea carries the same classes, so matches must be disambiguated.
	DefaultOutputSelector = "div.w-full.h-80.p-3.rounded-lg.ring-1.ring-slate-300.whitespace-pre-wrap"

	DefaultPageReadyTimeout = 30 * time.Second
)

// SurfaceParams identifies the page and the elements the harness interacts with.
type SurfaceParams struct {
	BaseURL          string        `json:"baseURL"`
	InputLabel       string        `json:"inputLabel"`
	OutputSelector   string        `json:"outputSelector"`
	PageReadyTimeout time.Duration `json:"pageReadyTimeout"`
	Headless         bool          `json:"headless"`
}

// DefaultSurfaceParams returns the parameters for the live translator site.
func DefaultSurfaceParams() SurfaceParams {
	return SurfaceParams{
		BaseURL:          DefaultBaseURL,
		InputLabel:       DefaultInputLabel,
		OutputSelector:   DefaultOutputSelector,
		PageReadyTimeout: DefaultPageReadyTimeout,
		Headless:         true,
	}
}

// WithDefaults fills in any empty field from DefaultSurfaceParams. Headless is left as is.
func (p SurfaceParams) WithDefaults() SurfaceParams {
	d := DefaultSurfaceParams()
	if p.BaseURL == "" {
		p.BaseURL = d.BaseURL
	}
	if p.InputLabel == "" {
		p.InputLabel = d.InputLabel
	}
	if p.OutputSelector == "" {
		p.OutputSelector = d.OutputSelector
	}
	if p.PageReadyTimeout <= 0 {
		p.PageReadyTimeout = d.PageReadyTimeout
	}
	return p
}

// OutputClassSignature returns the class names from an element selector such as
// DefaultOutputSelector, in order.
func OutputClassSignature(selector string) []string {
	var classes []string
	start := -1
	for i := 0; i <= len(selector); i++ {
		if i == len(selector) || selector[i] == '.' {
			if start >= 0 && i > start {
				classes = append(classes, selector[start:i])
			}
			start = i + 1
		}
	}
	return classes
}
