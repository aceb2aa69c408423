package trtest

import (
	"io"

	"github.com/sinhala-translit/translit-test-harness/framework"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// ProgressTestLogger shows a progress bar instead of per-test lines. Only scopes at LeafDepth
// (the number of components in a test case's TestID) are counted.
type ProgressTestLogger struct {
	LeafDepth int

	bar    *progressbar.ProgressBar
	passed int
	failed int
	flaky  int
}

func NewProgressTestLogger(out io.Writer, total int, leafDepth int) *ProgressTestLogger {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription(progressDescription(0, 0, 0)),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &ProgressTestLogger{LeafDepth: leafDepth, bar: bar}
}

func progressDescription(passed, failed, flaky int) string {
	return color.CyanString("Running cases ") +
		color.GreenString("[passed: %d ", passed) +
		color.RedString("failed: %d ", failed) +
		color.MagentaString("harness: %d]", flaky)
}

func (p *ProgressTestLogger) TestStarted(TestID)      {}
func (p *ProgressTestLogger) TestError(TestID, error) {}

func (p *ProgressTestLogger) TestFinished(id TestID, result TestResult, _ framework.CapturedOutput) {
	if len(id) != p.LeafDepth {
		return
	}
	switch {
	case len(result.Errors) == 0:
		p.passed++
	case result.Kind.IsFlaky():
		p.flaky++
	default:
		p.failed++
	}
	p.advance()
}

func (p *ProgressTestLogger) TestSkipped(id TestID, _ string) {
	if len(id) == p.LeafDepth {
		p.advance()
	}
}

func (p *ProgressTestLogger) advance() {
	p.bar.Describe(progressDescription(p.passed, p.failed, p.flaky))
	_ = p.bar.Add(1)
}

func (p *ProgressTestLogger) EndLog(Results) error {
	return p.bar.Finish()
}
