package nl2sql

import (
	"errors"
	"fmt"
	"slices"

	"github.com/salesql/salesql/internal/schema"
)

var (
	ErrSchemaMismatch = errors.New("pattern bank does not match schema")
	ErrInvalidBank    = errors.New("invalid pattern bank")
)

type Shape string

const (
	ShapeScalar               Shape = "scalar"
	ShapeTable                Shape = "table"
	ShapeTimeSeries           Shape = "time_series"
	ShapeCategoricalAggregate Shape = "categorical_aggregate"
	ShapeUnrecognized         Shape = "unrecognized"
)

type (
	Predicate func(Question, *schema.Descriptor) bool
	Extractor func(Question, *schema.Descriptor, *Params)
	Template  func(Scope, Params) Statement
)

// Requirement names a column, or any column of a role, a rule depends on.
type Requirement struct {
	Column string
	Role   schema.Role
}

func (r Requirement) satisfiedBy(desc *schema.Descriptor) bool {
	if r.Column != "" {
		if r.Role == "" {
			_, ok := desc.Column(r.Column)
			return ok
		}
		return desc.HasColumn(r.Column, r.Role)
	}
	return len(desc.ColumnsByRole(r.Role)) > 0
}

func (r Requirement) String() string {
	if r.Column != "" {
		return fmt.Sprintf("column %q (%s)", r.Column, r.Role)
	}
	return fmt.Sprintf("a %s column", r.Role)
}

// Rule is one recognized question shape.
type Rule struct {
	ID          string
	Description string
	Example     string
	Shape       Shape
	Match       Predicate
	Extract     []Extractor
	Build       Template
	Requires    []Requirement
}

type Example struct {
	RuleID      string `json:"rule_id"`
	Description string `json:"description"`
	Question    string `json:"question"`
	Shape       Shape  `json:"shape"`
}

// Bank is an ordered, immutable list of rules. Earlier rules win.
type Bank struct {
	rules []Rule
}

func NewBank(rules ...Rule) Bank {
	return Bank{rules: slices.Clone(rules)}
}

func (b Bank) Rules() []Rule {
	return slices.Clone(b.rules)
}

func (b Bank) Len() int {
	return len(b.rules)
}

func (b Bank) Rule(id string) (Rule, bool) {
	for _, rule := range b.rules {
		if rule.ID == id {
			return rule, true
		}
	}
	return Rule{}, false
}

func (b Bank) Examples() []Example {
	var out []Example
	for _, rule := range b.rules {
		if rule.Example == "" {
			continue
		}
		out = append(out, Example{RuleID: rule.ID, Description: rule.Description, Question: rule.Example, Shape: rule.Shape})
	}
	return out
}

// Validate checks the bank structure and that every rule can be served by
// desc. Each rule's example is built once and any column it references
// must exist in desc.
func (b Bank) Validate(desc *schema.Descriptor) error {
	if desc == nil {
		return fmt.Errorf("%w: schema descriptor is required", ErrSchemaMismatch)
	}
	if len(b.rules) == 0 {
		return fmt.Errorf("%w: no rules", ErrInvalidBank)
	}

	var problems []error
	seen := map[string]bool{}
	for i, rule := range b.rules {
		if rule.ID == "" {
			problems = append(problems, fmt.Errorf("rule %d has no id", i))
		} else if seen[rule.ID] {
			problems = append(problems, fmt.Errorf("duplicate rule id %q", rule.ID))
		}
		seen[rule.ID] = true
		if rule.Match == nil {
			problems = append(problems, fmt.Errorf("rule %q has no predicate", rule.ID))
		}
		if rule.Shape == ShapeUnrecognized {
			if i != len(b.rules)-1 {
				problems = append(problems, fmt.Errorf("fallback rule %q must be last", rule.ID))
			}
		} else if rule.Build == nil {
			problems = append(problems, fmt.Errorf("rule %q has no template", rule.ID))
		}
	}
	if b.rules[len(b.rules)-1].Shape != ShapeUnrecognized {
		problems = append(problems, errors.New("last rule must be a fallback"))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidBank, errors.Join(problems...))
	}

	var mismatches []error
	for _, rule := range b.rules {
		satisfied := true
		for _, req := range rule.Requires {
			if !req.satisfiedBy(desc) {
				mismatches = append(mismatches, fmt.Errorf("rule %q requires %s", rule.ID, req))
				satisfied = false
			}
		}
		if !satisfied || rule.Build == nil || rule.Example == "" {
			continue
		}
		scope := newScope(desc, DuckDB, defaultListLimit)
		rule.Build(scope, rule.params(NewQuestion(rule.Example), desc))
		for _, column := range scope.columns() {
			if _, ok := desc.Column(column); !ok {
				mismatches = append(mismatches, fmt.Errorf("rule %q references unknown column %q", rule.ID, column))
			}
		}
	}
	if len(mismatches) > 0 {
		return fmt.Errorf("%w: %w", ErrSchemaMismatch, errors.Join(mismatches...))
	}
	return nil
}

func (r Rule) params(q Question, desc *schema.Descriptor) Params {
	var p Params
	for _, extract := range r.Extract {
		extract(q, desc, &p)
	}
	return p
}
