package merge

import (
	_ "embed"

	"gopkg.in/yaml.v3"
)

// FieldPolicy declares how one analysis field behaves during reconciliation.
//
//	scalar — conflict-check after normalization; text value wins on conflict
//	list   — set-overlap conflict check; union (capped) when consistent
//	text   — substring/token-overlap check; concatenated when consistent
type FieldPolicy string

const (
	PolicyScalar FieldPolicy = "scalar"
	PolicyList   FieldPolicy = "list"
	PolicyText   FieldPolicy = "text"
)

//go:embed policies.yaml
var policiesYAML []byte

type policyEntry struct {
	Name   string      `yaml:"name"`
	Policy FieldPolicy `yaml:"policy"`
}

type policyFile struct {
	Fields []policyEntry `yaml:"fields"`
}

// fieldPolicies holds the reconciliation table in declared order. The
// reconciler walks this list, so adding an analysis field is a data change
// here plus an accessor, not new merge logic.
var fieldPolicies = loadPolicies()

func loadPolicies() []policyEntry {
	var pf policyFile
	if err := yaml.Unmarshal(policiesYAML, &pf); err != nil {
		panic("merge: invalid embedded policy table: " + err.Error())
	}
	return pf.Fields
}

// PolicyFor returns the declared policy for a field, defaulting to scalar.
func PolicyFor(field string) FieldPolicy {
	for _, f := range fieldPolicies {
		if f.Name == field {
			return f.Policy
		}
	}
	return PolicyScalar
}
