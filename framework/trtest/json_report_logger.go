package trtest

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sinhala-translit/translit-test-harness/framework"
	o "github.com/sinhala-translit/translit-test-harness/framework/opt"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// JSONReportLogger writes a machine-readable report of every leaf test when the run ends. Value
// mismatches are written with separate "expected" and "actual" properties, untruncated.
type JSONReportLogger struct {
	filePath   string
	properties []RunProperty
	testIDs    []TestID
	tests      map[string]testStatus
	lock       sync.Mutex
}

func NewJSONReportLogger(filePath string, properties ...RunProperty) *JSONReportLogger {
	return &JSONReportLogger{
		filePath:   filePath,
		properties: properties,
		tests:      make(map[string]testStatus),
	}
}

func (j *JSONReportLogger) TestStarted(id TestID) {
	j.lock.Lock()
	defer j.lock.Unlock()
	j.testIDs = append(j.testIDs, id)
	j.tests[id.String()] = testStatus{startTime: time.Now()}
}

func (j *JSONReportLogger) TestError(id TestID, err error) {
	j.lock.Lock()
	defer j.lock.Unlock()
	status := j.tests[id.String()]
	status.failures = append(status.failures, err)
	j.tests[id.String()] = status
}

func (j *JSONReportLogger) TestFinished(id TestID, result TestResult, debugOutput framework.CapturedOutput) {
	j.lock.Lock()
	defer j.lock.Unlock()
	status := j.tests[id.String()]
	status.duration = result.Duration
	status.kind = result.Kind
	status.output = debugOutput.ToString("")
	status.tags = result.Tags
	j.tests[id.String()] = status
}

func (j *JSONReportLogger) TestSkipped(id TestID, reason string) {
	j.lock.Lock()
	defer j.lock.Unlock()
	status := j.tests[id.String()]
	status.skipped = o.Some(reason)
	j.tests[id.String()] = status
}

func (j *JSONReportLogger) EndLog(results Results) error {
	j.lock.Lock()
	defer j.lock.Unlock()

	fmt.Printf("Writing JSON report to %s\n", j.filePath)

	data, err := j.render(results)
	if err != nil {
		return err
	}
	return os.WriteFile(j.filePath, data, 0644) //nolint:gosec
}

func (j *JSONReportLogger) render(results Results) ([]byte, error) {
	w := jwriter.NewWriter()
	obj := w.Object()

	props := obj.Name("properties").Object()
	for _, p := range j.properties {
		props.Name(p.Name).String(p.Value)
	}
	props.End()

	passed, failed, skipped := 0, 0, 0
	tests := obj.Name("tests").Array()
	for _, id := range j.testIDs {
		if len(id) < 2 {
			continue
		}
		status := j.tests[id.String()]
		t := tests.Object()
		t.Name("id").String(id.String())
		if len(status.tags) > 0 {
			tags := t.Name("tags").Array()
			for _, tag := range status.tags {
				tags.String(tag)
			}
			tags.End()
		}
		switch {
		case status.skipped.IsDefined():
			skipped++
			t.Name("status").String("skipped")
			t.Name("reason").String(status.skipped.Value())
		case len(status.failures) > 0:
			failed++
			kind := status.kind
			if kind == KindNone {
				kind = KindOf(status.failures[0])
			}
			t.Name("status").String("failed")
			t.Name("kind").String(string(kind))
		default:
			passed++
			t.Name("status").String("passed")
		}
		t.Name("durationMs").Int(int(status.duration / time.Millisecond))
		if len(status.failures) > 0 {
			errs := t.Name("errors").Array()
			for _, e := range status.failures {
				eo := errs.Object()
				eo.Name("message").String(e.Error())
				var vm ValueMismatch
				if errors.As(e, &vm) {
					eo.Name("expected").String(vm.ExpectedValue())
					eo.Name("actual").String(vm.ActualValue())
				}
				eo.End()
			}
			errs.End()
		}
		t.Maybe("output", status.output != "").String(status.output)
		t.End()
	}
	tests.End()

	summary := obj.Name("summary").Object()
	summary.Name("passed").Int(passed)
	summary.Name("failed").Int(failed)
	summary.Name("skipped").Int(skipped)
	summary.Name("ok").Bool(results.OK())
	summary.Maybe("aborted", results.Aborted != "").String(results.Aborted)
	summary.End()

	obj.End()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return append(w.Bytes(), '\n'), nil
}
