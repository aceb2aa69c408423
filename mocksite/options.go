package mocksite

import (
	"errors"
	"time"

	"github.com/sinhala-translit/translit-test-harness/framework"
	"github.com/sinhala-translit/translit-test-harness/framework/helpers"
	"github.com/sinhala-translit/translit-test-harness/servicedef"
)

const (
	DefaultDebounceDelay = 200 * time.Millisecond
	DefaultWordDelay     = 150 * time.Millisecond
	DefaultTitle         = "Singlish to Sinhala Translator"
)

// Options controls the behavior of a mock site.
type Options struct {
	// DebounceDelay is how long the page waits after the last keystroke before requesting a
	// conversion.
	DebounceDelay time.Duration
	// WordDelay is the interval between partial updates.
	WordDelay time.Duration
	// PageLoadDelay holds back the page itself, to simulate a slow site.
	PageLoadDelay time.Duration
	Dictionary    map[string]string
	InputLabel    string
	Title         string
	Logger        framework.Logger
}

// Option is a functional option for Start and NewSite.
type Option = helpers.ConfigOption[Options]

func defaultOptions() Options {
	return Options{
		DebounceDelay: DefaultDebounceDelay,
		WordDelay:     DefaultWordDelay,
		Dictionary:    DefaultDictionary(),
		InputLabel:    servicedef.DefaultInputLabel,
		Title:         DefaultTitle,
		Logger:        framework.NullLogger(),
	}
}

func WithDebounceDelay(d time.Duration) Option {
	return helpers.OptionFunc[Options](func(o *Options) error {
		if d < 0 {
			return errors.New("debounce delay cannot be negative")
		}
		o.DebounceDelay = d
		return nil
	})
}

func WithWordDelay(d time.Duration) Option {
	return helpers.OptionFunc[Options](func(o *Options) error {
		if d < 0 {
			return errors.New("word delay cannot be negative")
		}
		o.WordDelay = d
		return nil
	})
}

func WithPageLoadDelay(d time.Duration) Option {
	return helpers.OptionFunc[Options](func(o *Options) error {
		o.PageLoadDelay = d
		return nil
	})
}

// WithDictionary adds words to the dictionary, replacing any existing entries for them.
func WithDictionary(words map[string]string) Option {
	return helpers.OptionFunc[Options](func(o *Options) error {
		for k, v := range words {
			o.Dictionary[k] = v
		}
		return nil
	})
}

func WithInputLabel(label string) Option {
	return helpers.OptionFunc[Options](func(o *Options) error {
		if label == "" {
			return errors.New("input label cannot be empty")
		}
		o.InputLabel = label
		return nil
	})
}

func WithLogger(logger framework.Logger) Option {
	return helpers.OptionFunc[Options](func(o *Options) error {
		if logger == nil {
			logger = framework.NullLogger()
		}
		o.Logger = logger
		return nil
	})
}
