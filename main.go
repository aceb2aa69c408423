package main

import (
	"bufio"
	"context"
	_ "embed" // this is required in order for go:embed to work
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"regexp"
	"strings"

	"github.com/sinhala-translit/translit-test-harness/data"
	"github.com/sinhala-translit/translit-test-harness/framework"
	"github.com/sinhala-translit/translit-test-harness/framework/harness"
	"github.com/sinhala-translit/translit-test-harness/framework/trtest"
	"github.com/sinhala-translit/translit-test-harness/mocksite"
	"github.com/sinhala-translit/translit-test-harness/translit"
	"github.com/sinhala-translit/translit-test-harness/translittests"

	"github.com/google/uuid"
)

//go:embed VERSION
var versionString string // comes from the VERSION file which we update for each release

func main() {
	fmt.Printf("translit-test-harness v%s\n", strings.TrimSpace(versionString))

	var params commandParams
	if !params.Read(os.Args) {
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	results, err := run(ctx, params)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if !results.OK() {
		os.Exit(1)
	}
}

func run(ctx context.Context, params commandParams) (*trtest.Results, error) {
	if params.skipFile != "" {
		if err := loadSuppressions(&params); err != nil {
			return nil, err
		}
	}

	catalogue, err := loadCatalogue(params.fixturesDir)
	if err != nil {
		return nil, err
	}
	for _, f := range catalogue.Files() {
		fmt.Printf("Loaded fixtures: %s\n", f)
	}

	warnSlowCases(catalogue, params.config)

	mainDebugLogger := framework.NullLogger()
	if params.debugAll {
		mainDebugLogger = log.New(os.Stdout, "", log.LstdFlags)
	}

	if params.mockSite {
		site, err := startMockSite(catalogue, mainDebugLogger)
		if err != nil {
			return nil, err
		}
		defer func() { _ = site.Close() }()
		params.surface.BaseURL = site.URL
	}

	h, err := harness.NewTestHarness(ctx, params.surface, mainDebugLogger, os.Stdout)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := h.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to shut down browser: %s\n", err)
		}
	}()

	fmt.Println()
	params.filters.Describe(os.Stdout)

	total := translittests.CountSelected(catalogue, params.filters.Match, !params.skipInteractive)
	testLogger := makeTestLogger(params, h, total)

	results := translittests.RunTranslitTestSuite(ctx, newSurfaceOpener(h), translittests.SuiteParams{
		Catalogue:       catalogue,
		Config:          params.config,
		Filter:          params.filters.Match,
		TestLogger:      testLogger,
		Parallel:        params.parallel,
		SkipInteractive: params.skipInteractive,
	})

	fmt.Println()
	logErr := testLogger.EndLog(results)
	if params.progress {
		trtest.PrintResults(os.Stdout, results)
	}
	if logErr != nil {
		return nil, fmt.Errorf("error writing log: %v", logErr)
	}

	if params.recordFailures != "" {
		if err := recordFailures(params.recordFailures, results); err != nil {
			return nil, err
		}
	}

	return &results, nil
}

// warnSlowCases lists the cases that cannot finish typing within the case timeout. They will be
// reported as timeouts.
func warnSlowCases(catalogue *data.Catalogue, config translit.Config) {
	warn := func(id, input string) {
		if typing := config.TypingTime(input); typing >= config.CaseTimeout {
			fmt.Printf("Warning: typing %s takes %s, which exceeds the case timeout of %s\n",
				id, typing, config.CaseTimeout)
		}
	}
	if config.Mode == translit.DeliveryIncremental {
		for _, tc := range catalogue.Cases() {
			warn(tc.ID, tc.Input)
		}
	}
	for _, ic := range catalogue.InteractiveCases() {
		warn(ic.ID, ic.Input)
	}
}

func loadCatalogue(fixturesDir string) (*data.Catalogue, error) {
	var fsys fs.FS
	dir := data.SuitesDir
	if fixturesDir == "" {
		fsys = data.EmbeddedFiles()
	} else {
		fsys, dir = os.DirFS(fixturesDir), "."
	}
	return data.LoadCatalogue(fsys, dir)
}

// startMockSite serves a mock page whose dictionary is learned from the fixtures, so that the
// fixtures that are correct pass against it.
func startMockSite(catalogue *data.Catalogue, logger framework.Logger) (*mocksite.Server, error) {
	pairs := func(yield func(string, string) bool) {
		for _, tc := range catalogue.Cases() {
			if !yield(tc.Input, tc.Expected) {
				return
			}
		}
		for _, ic := range catalogue.InteractiveCases() {
			if !yield(ic.Input, ic.ExpectedFull) {
				return
			}
		}
	}
	site, err := mocksite.Start(
		mocksite.WithDictionary(mocksite.LearnDictionary(pairs)),
		mocksite.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	fmt.Printf("Running against mock site at %s\n", site.URL)
	return site, nil
}

func newSurfaceOpener(h *harness.TestHarness) translittests.SurfaceOpener {
	return func(ctx context.Context, logger framework.Logger) (translit.Surface, error) {
		s, err := h.NewSession(ctx, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

func makeTestLogger(params commandParams, h *harness.TestHarness, total int) trtest.TestLogger {
	properties := []trtest.RunProperty{
		{Name: "runId", Value: uuid.NewString()},
		{Name: "version", Value: strings.TrimSpace(versionString)},
		{Name: "baseURL", Value: h.Params().BaseURL},
		{Name: "pageTitle", Value: h.SiteInfo().Title},
		{Name: "deliveryMode", Value: params.config.Mode.String()},
	}

	var loggers []trtest.TestLogger
	if params.progress {
		loggers = append(loggers, trtest.NewProgressTestLogger(os.Stdout, total, 2))
	} else {
		loggers = append(loggers, trtest.ConsoleTestLogger{
			DebugOutputOnFailure: params.debug || params.debugAll,
			DebugOutputOnSuccess: params.debugAll,
		})
	}
	if params.jUnitFile != "" {
		loggers = append(loggers, trtest.NewJUnitTestLogger(params.jUnitFile, properties...))
	}
	if params.jsonReportFile != "" {
		loggers = append(loggers, trtest.NewJSONReportLogger(params.jsonReportFile, properties...))
	}
	if len(loggers) == 1 {
		return loggers[0]
	}
	return &trtest.MultiTestLogger{Loggers: loggers}
}

func recordFailures(path string, results trtest.Results) error {
	f, err := os.Create(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("cannot create suppression file: %v", err)
	}
	for _, test := range results.Failures {
		if len(test.TestID) > 0 {
			fmt.Fprintln(f, test.TestID)
		}
	}
	return f.Close()
}

func loadSuppressions(params *commandParams) error {
	file, err := os.Open(params.skipFile)
	if err != nil {
		return fmt.Errorf("cannot open provided suppression file: %v", err)
	}
	defer func() { _ = file.Close() }()
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		// Ignore blank lines
		if strings.TrimSpace(line) == "" {
			continue
		}
		escaped := regexp.QuoteMeta(line)
		if err := params.filters.MustNotMatch.Set(escaped); err != nil {
			return fmt.Errorf("cannot parse suppression: %v", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("while processing suppression file: %v", err)
	}
	return nil
}
