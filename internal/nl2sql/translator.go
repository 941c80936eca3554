package nl2sql

import (
	"fmt"

	"github.com/salesql/salesql/internal/schema"
)

const (
	defaultListLimit = 100

	unrecognizedMessage = "I could not match this question to a supported query. Try one of the example questions."
)

// Result is the outcome of one translation. SQL is empty when the question
// was not recognized; callers must not execute it in that case.
type Result struct {
	Question    string    `json:"question"`
	SQL         string    `json:"sql,omitempty"`
	Shape       Shape     `json:"shape"`
	RuleID      string    `json:"rule_id"`
	Explanation string    `json:"explanation"`
	Params      Params    `json:"params"`
	Columns     []string  `json:"columns,omitempty"`
	Suggestions []Example `json:"suggestions,omitempty"`
}

func (r Result) Recognized() bool {
	return r.Shape != ShapeUnrecognized && r.SQL != ""
}

type Option func(*Translator)

func WithDialect(dialect Dialect) Option {
	return func(t *Translator) {
		if dialect != nil {
			t.dialect = dialect
		}
	}
}

func WithListLimit(limit int) Option {
	return func(t *Translator) {
		if limit > 0 {
			t.listLimit = limit
		}
	}
}

// Translator maps questions onto the first matching rule of a bank. It holds
// no mutable state and is safe for concurrent use.
type Translator struct {
	desc      *schema.Descriptor
	bank      Bank
	dialect   Dialect
	listLimit int
}

func New(desc *schema.Descriptor, bank Bank, opts ...Option) (*Translator, error) {
	if err := bank.Validate(desc); err != nil {
		return nil, err
	}
	t := &Translator{
		desc:      desc,
		bank:      bank,
		dialect:   DuckDB,
		listLimit: defaultListLimit,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func (t *Translator) Schema() *schema.Descriptor {
	return t.desc
}

func (t *Translator) Bank() Bank {
	return t.bank
}

func (t *Translator) Dialect() Dialect {
	return t.dialect
}

func (t *Translator) Translate(question string) Result {
	q := NewQuestion(question)
	for _, rule := range t.bank.rules {
		if !rule.Match(q, t.desc) {
			continue
		}
		if rule.Shape == ShapeUnrecognized || rule.Build == nil {
			break
		}
		params := rule.params(q, t.desc)
		if params.Limit > t.listLimit {
			params.Limit = t.listLimit
		}
		scope := newScope(t.desc, t.dialect, t.listLimit)
		stmt := rule.Build(scope, params)
		explanation := rule.Description
		if details := params.describe(); details != "" {
			explanation = fmt.Sprintf("%s (%s)", rule.Description, details)
		}
		return Result{
			Question:    question,
			SQL:         stmt.SQL(),
			Shape:       rule.Shape,
			RuleID:      rule.ID,
			Explanation: explanation,
			Params:      params,
			Columns:     scope.columns(),
		}
	}
	return t.unrecognized(question)
}

func (t *Translator) unrecognized(question string) Result {
	ruleID := RuleFallback
	if n := len(t.bank.rules); n > 0 {
		ruleID = t.bank.rules[n-1].ID
	}
	return Result{
		Question:    question,
		Shape:       ShapeUnrecognized,
		RuleID:      ruleID,
		Explanation: unrecognizedMessage,
		Suggestions: t.bank.Examples(),
	}
}
