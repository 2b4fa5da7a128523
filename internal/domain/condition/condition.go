// Package condition defines the generic condition language and compiles it
// into the boolean query AST.
package condition

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/docdex/internal/domain"
)

// Op is a condition operator.
type Op string

// Supported operators. Aliases compile identically.
const (
	OpEq       Op = "eq"
	OpTerm     Op = "term"
	OpIn       Op = "in"
	OpTerms    Op = "terms"
	OpMatch    Op = "match"
	OpPhrase   Op = "phrase"
	OpContains Op = "contains"
	OpWildcard Op = "wildcard"
	OpPrefix   Op = "prefix"
	OpRange    Op = "range"
	OpGT       Op = "gt"
	OpGTE      Op = "gte"
	OpLT       Op = "lt"
	OpLTE      Op = "lte"
	OpExists   Op = "exists"
	OpMissing  Op = "missing"
)

// IsRange reports whether op belongs to the range family.
func (op Op) IsRange() bool {
	switch op {
	case OpRange, OpGT, OpGTE, OpLT, OpLTE:
		return true
	}
	return false
}

func (op Op) normalize() Op {
	return Op(strings.ToLower(strings.TrimSpace(string(op))))
}

// Condition is one leaf of the condition tree. A non-nil Group makes it a
// nested boolean group and the leaf keys are ignored.
type Condition struct {
	Field  string `json:"field,omitempty"`
	Op     Op     `json:"op,omitempty"`
	Value  any    `json:"value,omitempty"`
	Values []any  `json:"values,omitempty"`
	GT     any    `json:"gt,omitempty"`
	GTE    any    `json:"gte,omitempty"`
	LT     any    `json:"lt,omitempty"`
	LTE    any    `json:"lte,omitempty"`
	Group  *Group `json:"group,omitempty"`
}

// Group maps its buckets onto bool must, should, must_not and filter.
type Group struct {
	All     []Condition `json:"all,omitempty"`
	Any     []Condition `json:"any,omitempty"`
	None    []Condition `json:"none,omitempty"`
	Filters []Condition `json:"filters,omitempty"`
}

// IsEmpty reports whether the group has no conditions.
func (g Group) IsEmpty() bool {
	return len(g.All) == 0 && len(g.Any) == 0 && len(g.None) == 0 && len(g.Filters) == 0
}

// Validate rejects conditions that cannot compile: a leaf without an
// operator, or a leaf missing a key its operator requires.
func (g Group) Validate() error {
	for _, bucket := range [][]Condition{g.All, g.Any, g.None, g.Filters} {
		for i := range bucket {
			if err := bucket[i].Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Validate checks one condition. See Group.Validate.
func (c Condition) Validate() error {
	if c.Group != nil {
		return c.Group.Validate()
	}
	if c.Op.normalize() == "" {
		return fmt.Errorf("condition on %q has no operator: %w", c.Field, domain.ErrInvalidCondition)
	}
	_, err := CompileStrict(c)
	return err
}
