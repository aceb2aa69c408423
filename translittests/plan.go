package translittests

import (
	"github.com/sinhala-translit/translit-test-harness/data"
	"github.com/sinhala-translit/translit-test-harness/framework/trtest"
	"github.com/sinhala-translit/translit-test-harness/testmodel"
)

// planEntry is one case to run, of either kind.
type planEntry struct {
	suite       testmodel.Suite
	testCase    testmodel.TestCase
	interactive testmodel.InteractiveCase
	isInteract  bool
}

func (e planEntry) id() trtest.TestID {
	return trtest.TestID{e.suite.Name, e.title()}
}

func (e planEntry) title() string {
	if e.isInteract {
		return e.interactive.Title()
	}
	return e.testCase.Title()
}

func (e planEntry) tags() []string {
	if e.isInteract {
		return e.interactive.Tags()
	}
	return e.testCase.Tags()
}

// planCases lists the cases selected by filter in catalogue order: each suite's ordinary cases,
// then its interactive cases.
func planCases(catalogue *data.Catalogue, filter trtest.Filter, includeInteractive bool) []planEntry {
	var ret []planEntry
	selected := func(e planEntry) bool {
		return filter == nil || filter(e.id())
	}
	for _, suite := range catalogue.Suites() {
		for _, tc := range suite.Cases {
			if e := (planEntry{suite: suite, testCase: tc}); selected(e) {
				ret = append(ret, e)
			}
		}
		if !includeInteractive {
			continue
		}
		for _, ic := range suite.Interactive {
			if e := (planEntry{suite: suite, interactive: ic, isInteract: true}); selected(e) {
				ret = append(ret, e)
			}
		}
	}
	return ret
}

// shard deals entries out round-robin to n workers. Each shard keeps catalogue order.
func shard(entries []planEntry, n int) [][]planEntry {
	if n < 1 {
		n = 1
	}
	if n > len(entries) && len(entries) > 0 {
		n = len(entries)
	}
	ret := make([][]planEntry, n)
	for i, e := range entries {
		ret[i%n] = append(ret[i%n], e)
	}
	return ret
}

// groupBySuite splits a shard into runs of consecutive entries from the same suite.
func groupBySuite(entries []planEntry) [][]planEntry {
	var ret [][]planEntry
	for _, e := range entries {
		if n := len(ret); n > 0 && ret[n-1][0].suite.Name == e.suite.Name {
			ret[n-1] = append(ret[n-1], e)
			continue
		}
		ret = append(ret, []planEntry{e})
	}
	return ret
}

// CountSelected is the number of cases a run with the same filter will execute.
func CountSelected(catalogue *data.Catalogue, filter trtest.Filter, includeInteractive bool) int {
	return len(planCases(catalogue, filter, includeInteractive))
}
