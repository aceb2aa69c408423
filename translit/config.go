package translit

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// DeliveryMode says how input text reaches the page.
type DeliveryMode int

const (
	// DeliveryAtomic sets the whole input at once, like a paste.
	DeliveryAtomic DeliveryMode = iota

	// DeliveryIncremental types the input one character at a time, paced by Config.KeystrokeDelay.
	DeliveryIncremental
)

func (m DeliveryMode) String() string {
	switch m {
	case DeliveryAtomic:
		return "atomic"
	case DeliveryIncremental:
		return "incremental"
	default:
		return fmt.Sprintf("DeliveryMode(%d)", int(m))
	}
}

// ParseDeliveryMode accepts the names returned by String.
func ParseDeliveryMode(s string) (DeliveryMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "atomic", "":
		return DeliveryAtomic, nil
	case "incremental":
		return DeliveryIncremental, nil
	default:
		return 0, fmt.Errorf("unknown delivery mode %q (expected atomic or incremental)", s)
	}
}

// Set implements flag.Value.
func (m *DeliveryMode) Set(s string) error {
	parsed, err := ParseDeliveryMode(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Config holds every timing parameter of the synchronization protocol. There are no package-level
// defaults in effect at run time; callers pass a Config explicitly, usually starting from
// DefaultConfig.
type Config struct {
	// ResetTimeout bounds how long ResetInputSurface waits for the page to reach its baseline.
	ResetTimeout time.Duration

	// ResetQuietPeriod is how long input and output must both stay empty after clearing.
	ResetQuietPeriod time.Duration

	// SettleTimeout bounds AwaitSettledOutput when the caller does not give its own timeout.
	SettleTimeout time.Duration

	// SettleQuietPeriod is how long the output must stay non-empty and unchanged to count as
	// settled. It must be shorter than SettleTimeout.
	SettleQuietPeriod time.Duration

	// PollInterval is the time between two observations of the page.
	PollInterval time.Duration

	// KeystrokeDelay is the time between two characters in DeliveryIncremental mode.
	KeystrokeDelay time.Duration

	// CaseTimeout bounds a whole case, from reset to comparison. In DeliveryIncremental mode it
	// includes the time spent typing, so long inputs need it raised; see TypingTime.
	CaseTimeout time.Duration

	// PartialWait bounds how long an interactive case waits for output after typing the partial
	// input.
	PartialWait time.Duration

	// InterCaseDelay is an optional pause between cases, to go easy on the remote site.
	InterCaseDelay time.Duration

	// Mode is the delivery mode RunCase uses.
	Mode DeliveryMode
}

// DefaultConfig returns timings that work against the live translator site.
func DefaultConfig() Config {
	return Config{
		ResetTimeout:      5 * time.Second,
		ResetQuietPeriod:  300 * time.Millisecond,
		SettleTimeout:     10 * time.Second,
		SettleQuietPeriod: time.Second,
		PollInterval:      100 * time.Millisecond,
		KeystrokeDelay:    150 * time.Millisecond,
		CaseTimeout:       30 * time.Second,
		PartialWait:       3 * time.Second,
		Mode:              DeliveryAtomic,
	}
}

// TypingTime is how long DeliveryIncremental mode takes to type text.
func (c Config) TypingTime(text string) time.Duration {
	n := utf8.RuneCountInString(text)
	if n < 2 {
		return 0
	}
	return time.Duration(n-1) * c.KeystrokeDelay
}

// Validate reports every inconsistent setting at once.
func (c Config) Validate() error {
	var errs []error
	positive := func(name string, d time.Duration) {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive (got %s)", name, d))
		}
	}
	positive("reset timeout", c.ResetTimeout)
	positive("settle timeout", c.SettleTimeout)
	positive("settle quiet period", c.SettleQuietPeriod)
	positive("poll interval", c.PollInterval)
	positive("case timeout", c.CaseTimeout)
	positive("partial wait", c.PartialWait)
	if c.ResetQuietPeriod < 0 {
		errs = append(errs, errors.New("reset quiet period must not be negative"))
	}
	if c.KeystrokeDelay < 0 {
		errs = append(errs, errors.New("keystroke delay must not be negative"))
	}
	if c.InterCaseDelay < 0 {
		errs = append(errs, errors.New("inter-case delay must not be negative"))
	}
	if c.SettleQuietPeriod >= c.SettleTimeout {
		errs = append(errs, fmt.Errorf("settle quiet period (%s) must be shorter than settle timeout (%s)",
			c.SettleQuietPeriod, c.SettleTimeout))
	}
	if c.ResetQuietPeriod >= c.ResetTimeout {
		errs = append(errs, fmt.Errorf("reset quiet period (%s) must be shorter than reset timeout (%s)",
			c.ResetQuietPeriod, c.ResetTimeout))
	}
	if c.PollInterval > c.SettleQuietPeriod {
		errs = append(errs, fmt.Errorf("poll interval (%s) must not be longer than settle quiet period (%s)",
			c.PollInterval, c.SettleQuietPeriod))
	}
	if c.CaseTimeout < c.SettleTimeout {
		errs = append(errs, fmt.Errorf("case timeout (%s) must not be shorter than settle timeout (%s)",
			c.CaseTimeout, c.SettleTimeout))
	}
	if c.Mode != DeliveryAtomic && c.Mode != DeliveryIncremental {
		errs = append(errs, fmt.Errorf("invalid delivery mode %s", c.Mode))
	}
	return errors.Join(errs...)
}
