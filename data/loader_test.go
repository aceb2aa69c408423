package data

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/sinhala-translit/translit-test-harness/testmodel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileEmbedding(t *testing.T) {
	files, err := dataFilesRoot.ReadDir(dataBasePath + "/" + SuitesDir)
	require.NoError(t, err)
	assert.NotEqual(t, 0, len(files))
}

func TestEmbeddedCatalogueIsValid(t *testing.T) {
	c, err := LoadCatalogue(EmbeddedFiles(), SuitesDir)
	require.NoError(t, err)

	var names []string
	for _, s := range c.Suites() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"positive", "error-handling", "interactive"}, names)

	tc, ok := c.Lookup("Pos_Fun_003")
	require.True(t, ok)
	assert.Equal(t, "eyaa gedhara giyaa.", tc.Input)
	assert.Equal(t, "එයා ගෙදර ගියා.", tc.Expected)

	var interactive []testmodel.InteractiveCase
	for _, ic := range c.InteractiveCases() {
		interactive = append(interactive, ic)
	}
	require.Len(t, interactive, 1)
	assert.Equal(t, "mama kae", interactive[0].PartialInput)
	assert.Equal(t, "mama kaeema kannavaa", interactive[0].Input)
	assert.Equal(t, "මම කෑම කන්නවා", interactive[0].ExpectedFull)
}

var twoSuites = fstest.MapFS{
	"suites/b.yml": {Data: []byte(`---
name: second
cases:
  - id: b1
    input: "api"
    expected: "අපි"
`)},
	"suites/a.json": {Data: []byte(`{"name": "first", "cases": [
  {"id": "a1", "input": "mama", "expected": "මම"},
  {"id": "a2", "input": "oyaa", "expected": "ඔයා"}
]}`)},
	"suites/notes.txt": {Data: []byte("ignored")},
}

func TestCasesIteratesInFileThenCaseOrder(t *testing.T) {
	c, err := LoadCatalogue(twoSuites, "suites")
	require.NoError(t, err)
	assert.Equal(t, 3, c.CaseCount())

	collect := func() []string {
		var ids []string
		for s, tc := range c.Cases() {
			ids = append(ids, s.Name+"/"+tc.ID)
		}
		return ids
	}
	expected := []string{"first/a1", "first/a2", "second/b1"}
	assert.Equal(t, expected, collect())
	assert.Equal(t, expected, collect(), "iteration should be restartable")
}

func TestCasesStopsEarly(t *testing.T) {
	c, err := LoadCatalogue(twoSuites, "suites")
	require.NoError(t, err)
	count := 0
	for range c.Cases() {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}

func TestSuiteNameDefaultsToFileName(t *testing.T) {
	fsys := fstest.MapFS{
		"x/numbers.yaml": {Data: []byte("cases:\n  - id: n1\n    input: \"10kg\"\n    expected: \"10kg\"\n")},
	}
	c, err := LoadCatalogue(fsys, "x")
	require.NoError(t, err)
	assert.Equal(t, "numbers", c.Suites()[0].Name)
}

func requireMalformed(t *testing.T, err error) *testmodel.MalformedFixtureError {
	t.Helper()
	require.Error(t, err)
	var mf *testmodel.MalformedFixtureError
	require.True(t, errors.As(err, &mf), "expected MalformedFixtureError, got %T: %s", err, err)
	return mf
}

func TestMissingExpectedIsMalformed(t *testing.T) {
	fsys := fstest.MapFS{
		"s/bad.yml": {Data: []byte(`---
cases:
  - id: ok
    input: "mama"
    expected: "මම"
  - id: broken
    input: "api"
`)},
	}
	_, err := LoadCatalogue(fsys, "s")
	mf := requireMalformed(t, err)
	assert.Equal(t, "s/bad.yml", mf.File)
	require.Len(t, mf.Problems, 1)
	assert.Equal(t, "broken", mf.Problems[0].ID)
	assert.Equal(t, []string{"expected"}, mf.Problems[0].Missing)
}

func TestDuplicateIDAcrossFilesIsMalformed(t *testing.T) {
	fsys := fstest.MapFS{
		"s/1.yml": {Data: []byte("cases:\n  - {id: dup, input: a, expected: අ}\n")},
		"s/2.yml": {Data: []byte("cases:\n  - {id: dup, input: a, expected: අ}\n")},
	}
	_, err := LoadCatalogue(fsys, "s")
	mf := requireMalformed(t, err)
	assert.Equal(t, "s/2.yml", mf.File)
	assert.Equal(t, "id already used in s/1.yml", mf.Problems[0].Reason)
}

func TestUnparseableFileIsMalformed(t *testing.T) {
	fsys := fstest.MapFS{
		"s/1.yml": {Data: []byte("cases: [\n")},
	}
	_, err := LoadCatalogue(fsys, "s")
	mf := requireMalformed(t, err)
	assert.Error(t, mf.Err)
}

func TestEmptyOrMissingDirectoryIsMalformed(t *testing.T) {
	_, err := LoadCatalogue(fstest.MapFS{}, "nowhere")
	requireMalformed(t, err)

	_, err = LoadCatalogue(fstest.MapFS{"s/readme.md": {Data: []byte("x")}}, "s")
	requireMalformed(t, err)
}
