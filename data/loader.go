package data

import (
	"embed"
	"fmt"
	"io/fs"
	"iter"
	"path"
	"sort"
	"strings"

	"github.com/sinhala-translit/translit-test-harness/testmodel"
)

//go:embed data-files
var dataFilesRoot embed.FS

const (
	dataBasePath = "data-files"

	// SuitesDir is the directory, relative to the embedded file root, that holds the built-in
	// fixture files.
	SuitesDir = "suites"
)

// EmbeddedFiles returns the built-in fixture files as a file system rooted at data/data-files.
func EmbeddedFiles() fs.FS {
	sub, err := fs.Sub(dataFilesRoot, dataBasePath)
	if err != nil {
		panic(err) // the directory is embedded at build time
	}
	return sub
}

// SourceFile is one suite as read from a fixture file.
type SourceFile struct {
	FilePath string
	Suite    testmodel.Suite
}

// Catalogue is the validated set of suites for a run. It is immutable once loaded.
type Catalogue struct {
	files []SourceFile
}

// LoadCatalogue reads every .json, .yml or .yaml file in dir, in name order, and validates all
// of it before returning. Any problem is reported as a *testmodel.MalformedFixtureError.
func LoadCatalogue(fsys fs.FS, dir string) (*Catalogue, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, &testmodel.MalformedFixtureError{File: dir, Err: err}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	c := &Catalogue{}
	idOwners := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !isFixtureFile(entry.Name()) {
			continue
		}
		filePath := path.Join(dir, entry.Name())
		source, err := LoadSuiteFile(fsys, filePath)
		if err != nil {
			return nil, err
		}
		var dups []testmodel.FieldProblem
		for i, id := range suiteIDs(source.Suite) {
			if owner, ok := idOwners[id]; ok {
				dups = append(dups, testmodel.FieldProblem{Index: i, ID: id,
					Reason: "id already used in " + owner})
				continue
			}
			idOwners[id] = filePath
		}
		if len(dups) > 0 {
			return nil, &testmodel.MalformedFixtureError{File: filePath, Problems: dups}
		}
		c.files = append(c.files, source)
	}
	if len(c.files) == 0 {
		return nil, &testmodel.MalformedFixtureError{File: dir, Err: fs.ErrNotExist}
	}
	return c, nil
}

// LoadSuiteFile reads and validates a single fixture file.
func LoadSuiteFile(fsys fs.FS, filePath string) (SourceFile, error) {
	raw, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return SourceFile{}, &testmodel.MalformedFixtureError{File: filePath, Err: err}
	}
	expanded, err := expandConstants(raw)
	if err != nil {
		return SourceFile{}, &testmodel.MalformedFixtureError{File: filePath, Err: err}
	}
	var suite testmodel.Suite
	if err := ParseJSONOrYAML(expanded, &suite); err != nil {
		return SourceFile{}, &testmodel.MalformedFixtureError{File: filePath, Err: err}
	}
	if suite.Name == "" {
		suite.Name = strings.TrimSuffix(path.Base(filePath), path.Ext(filePath))
	}
	if problems := suite.Validate(); len(problems) > 0 {
		return SourceFile{}, &testmodel.MalformedFixtureError{File: filePath, Problems: problems}
	}
	return SourceFile{FilePath: filePath, Suite: suite}, nil
}

func isFixtureFile(name string) bool {
	switch path.Ext(name) {
	case ".json", ".yml", ".yaml":
		return true
	}
	return false
}

func suiteIDs(s testmodel.Suite) []string {
	ids := make([]string, 0, s.CaseCount())
	for _, tc := range s.Cases {
		ids = append(ids, tc.ID)
	}
	for _, ic := range s.Interactive {
		ids = append(ids, ic.ID)
	}
	return ids
}

// Suites returns the suites in file order.
func (c *Catalogue) Suites() []testmodel.Suite {
	ret := make([]testmodel.Suite, 0, len(c.files))
	for _, f := range c.files {
		ret = append(ret, f.Suite)
	}
	return ret
}

// Files returns the source of each suite, in order.
func (c *Catalogue) Files() []SourceFile {
	return append([]SourceFile(nil), c.files...)
}

// Cases yields every non-interactive case with its suite, in file order and then case order.
// Each call starts a new iteration.
func (c *Catalogue) Cases() iter.Seq2[testmodel.Suite, testmodel.TestCase] {
	return func(yield func(testmodel.Suite, testmodel.TestCase) bool) {
		for _, f := range c.files {
			for _, tc := range f.Suite.Cases {
				if !yield(f.Suite, tc) {
					return
				}
			}
		}
	}
}

// InteractiveCases yields every interactive case with its suite, in order.
func (c *Catalogue) InteractiveCases() iter.Seq2[testmodel.Suite, testmodel.InteractiveCase] {
	return func(yield func(testmodel.Suite, testmodel.InteractiveCase) bool) {
		for _, f := range c.files {
			for _, ic := range f.Suite.Interactive {
				if !yield(f.Suite, ic) {
					return
				}
			}
		}
	}
}

// CaseCount is the total number of runnable cases of both kinds.
func (c *Catalogue) CaseCount() int {
	n := 0
	for _, f := range c.files {
		n += f.Suite.CaseCount()
	}
	return n
}

// Lookup finds a case by id.
func (c *Catalogue) Lookup(id string) (testmodel.TestCase, bool) {
	for _, tc := range c.Cases() {
		if tc.ID == id {
			return tc, true
		}
	}
	return testmodel.TestCase{}, false
}

func (s SourceFile) String() string {
	return fmt.Sprintf("%s (%d cases)", s.FilePath, s.Suite.CaseCount())
}
