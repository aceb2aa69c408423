package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/sinhala-translit/translit-test-harness/data"
	"github.com/sinhala-translit/translit-test-harness/framework/trtest"
	"github.com/sinhala-translit/translit-test-harness/servicedef"
	"github.com/sinhala-translit/translit-test-harness/translit"

	"github.com/joho/godotenv"
)

const (
	baseURLEnvVar  = "TRANSLIT_BASE_URL"
	defaultEnvFile = ".env"
)

type commandParams struct {
	surface         servicedef.SurfaceParams
	config          translit.Config
	filters         trtest.RegexFilters
	parallel        int
	skipInteractive bool
	debug           bool
	debugAll        bool
	jUnitFile       string
	jsonReportFile  string
	progress        bool
	recordFailures  string
	skipFile        string
	configFile      string
	envFile         string
	fixturesDir     string
	mockSite        bool
}

func (c *commandParams) flagSet() *flag.FlagSet {
	c.surface = servicedef.DefaultSurfaceParams()
	c.config = translit.DefaultConfig()
	c.parallel = 1

	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.StringVar(&c.surface.BaseURL, "url", c.surface.BaseURL, "translator page URL (env: "+baseURLEnvVar+")")
	flags.BoolVar(&c.surface.Headless, "headless", c.surface.Headless, "run the browser without a window")
	flags.DurationVar(&c.surface.PageReadyTimeout, "page-ready-timeout", c.surface.PageReadyTimeout,
		"how long to wait for the page to load")
	flags.DurationVar(&c.config.ResetTimeout, "reset-timeout", c.config.ResetTimeout,
		"how long to wait for the page to clear before each case")
	flags.DurationVar(&c.config.ResetQuietPeriod, "reset-quiet-period", c.config.ResetQuietPeriod,
		"how long input and output must stay empty to count as reset")
	flags.DurationVar(&c.config.SettleTimeout, "settle-timeout", c.config.SettleTimeout,
		"how long to wait for the output to settle")
	flags.DurationVar(&c.config.SettleQuietPeriod, "settle-quiet-period", c.config.SettleQuietPeriod,
		"how long output must stay unchanged to count as settled")
	flags.DurationVar(&c.config.PollInterval, "poll-interval", c.config.PollInterval, "interval between page reads")
	flags.DurationVar(&c.config.KeystrokeDelay, "keystroke-delay", c.config.KeystrokeDelay,
		"interval between key presses in incremental mode")
	flags.DurationVar(&c.config.CaseTimeout, "case-timeout", c.config.CaseTimeout, "upper bound on one case")
	flags.DurationVar(&c.config.PartialWait, "partial-wait", c.config.PartialWait,
		"how long to wait for partial output in interactive cases")
	flags.DurationVar(&c.config.InterCaseDelay, "inter-case-delay", c.config.InterCaseDelay,
		"pause between cases, to go easy on the site")
	flags.Var(&c.config.Mode, "mode", "input delivery: atomic or incremental")
	flags.IntVar(&c.parallel, "parallel", c.parallel, "number of independent page sessions")
	flags.BoolVar(&c.skipInteractive, "skip-interactive", false, "do not run interactive (typing) cases")
	flags.Var(&c.filters.MustMatch, "run", "regex pattern(s) to select tests to run")
	flags.Var(&c.filters.MustNotMatch, "skip", "regex pattern(s) to select tests not to run")
	flags.BoolVar(&c.debug, "debug", false, "enable debug logging for failed tests")
	flags.BoolVar(&c.debugAll, "debug-all", false, "enable debug logging for all tests")
	flags.StringVar(&c.jUnitFile, "junit", "", "write JUnit XML output to the specified path")
	flags.StringVar(&c.jsonReportFile, "json-report", "", "write a JSON report to the specified path")
	flags.BoolVar(&c.progress, "progress", false, "show a progress bar instead of per-test output")
	flags.StringVar(&c.recordFailures, "record-failures", "", "write the IDs of failed tests to the specified file")
	flags.StringVar(&c.skipFile, "skip-file", "", "file of test IDs to skip, one per line")
	flags.StringVar(&c.configFile, "config", "", "JSON or YAML file of flag values")
	flags.StringVar(&c.envFile, "env-file", defaultEnvFile, "file of environment variables to load")
	flags.StringVar(&c.fixturesDir, "fixtures", "", "directory of fixture files to use instead of the built-in ones")
	flags.BoolVar(&c.mockSite, "mock-site", false, "run against a local mock of the translator page")
	return flags
}

// Read parses the command line. Settings are taken from, in order of precedence: flags, the
// -config file, the environment (including the -env-file), and built-in defaults.
func (c *commandParams) Read(args []string) bool {
	flags := c.flagSet()
	if err := c.parse(flags, args[1:]); err != nil {
		if !errors.Is(err, errUsageShown) {
			fmt.Fprintln(os.Stderr, err)
			flags.Usage()
		}
		return false
	}
	return true
}

// errUsageShown means the flag package has already printed the problem and the usage text.
var errUsageShown = errors.New("invalid command line") //nolint:gochecknoglobals

func (c *commandParams) parse(flags *flag.FlagSet, args []string) error {
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsageShown, err)
	}
	if flags.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", flags.Args())
	}
	explicit := make(map[string]bool)
	flags.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	if c.configFile != "" {
		if err := applyConfigFile(flags, c.configFile, explicit); err != nil {
			return err
		}
	}

	if err := godotenv.Load(c.envFile); err != nil {
		if explicit["env-file"] || !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("cannot load environment file %s: %w", c.envFile, err)
		}
	}
	if !explicit["url"] {
		if u := os.Getenv(baseURLEnvVar); u != "" {
			c.surface.BaseURL = u
		}
	}

	if c.parallel < 1 {
		return errors.New("-parallel must be at least 1")
	}
	if err := c.config.Validate(); err != nil {
		return err
	}
	return nil
}

// applyConfigFile sets every flag named in the file that was not given on the command line, and
// adds it to explicit. Values are written as they would be on the command line; a list sets a repeatable flag once
// per item.
func applyConfigFile(flags *flag.FlagSet, path string, explicit map[string]bool) error {
	raw, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("cannot read config file: %w", err)
	}
	var settings map[string]any
	if err := data.ParseJSONOrYAML(raw, &settings); err != nil {
		return fmt.Errorf("cannot parse config file %s: %w", path, err)
	}
	names := make([]string, 0, len(settings))
	for name := range settings {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if name == "config" || flags.Lookup(name) == nil {
			return fmt.Errorf("config file %s: unknown setting %q", path, name)
		}
		if explicit[name] {
			continue
		}
		values, ok := settings[name].([]any)
		if !ok {
			values = []any{settings[name]}
		}
		for _, v := range values {
			if err := flags.Set(name, fmt.Sprint(v)); err != nil {
				return fmt.Errorf("config file %s: invalid value for %q: %w", path, name, err)
			}
		}
		explicit[name] = true
	}
	return nil
}
