package testmodel

import "strings"

// An empty expected value counts as missing: settled page output is never empty, so such a case
// could not pass.

// Validate checks that every case in the suite has the required fields. Duplicate ids within the
// suite are reported too; uniqueness across files is checked by the catalogue loader.
func (s Suite) Validate() []FieldProblem {
	var problems []FieldProblem
	seen := make(map[string]bool)
	checkID := func(index int, id string) {
		if id == "" {
			return
		}
		if seen[id] {
			problems = append(problems, FieldProblem{Index: index, ID: id, Reason: "duplicate id"})
		}
		seen[id] = true
	}
	for i, tc := range s.Cases {
		if missing := tc.missingFields(); len(missing) > 0 {
			problems = append(problems, FieldProblem{Index: i, ID: tc.ID, Missing: missing})
		}
		checkID(i, tc.ID)
	}
	for i, ic := range s.Interactive {
		index := len(s.Cases) + i
		if missing := ic.missingFields(); len(missing) > 0 {
			problems = append(problems, FieldProblem{Index: index, ID: ic.ID, Missing: missing})
		} else if !strings.HasPrefix(ic.Input, ic.PartialInput) || ic.PartialInput == ic.Input {
			problems = append(problems, FieldProblem{Index: index, ID: ic.ID,
				Reason: "partialInput must be a proper prefix of input"})
		}
		checkID(index, ic.ID)
	}
	return problems
}

func (tc TestCase) missingFields() []string {
	return missing(
		field{"id", tc.ID},
		field{"input", tc.Input},
		field{"expected", tc.Expected},
	)
}

func (ic InteractiveCase) missingFields() []string {
	return missing(
		field{"id", ic.ID},
		field{"input", ic.Input},
		field{"partialInput", ic.PartialInput},
		field{"expectedFull", ic.ExpectedFull},
	)
}

type field struct {
	name, value string
}

func missing(fields ...field) []string {
	var ret []string
	for _, f := range fields {
		if f.value == "" {
			ret = append(ret, f.name)
		}
	}
	return ret
}
