// Package rules applies shop price rules on top of the recommended price.
//
// A rule has an optional boolean "when" expression and a numeric "price" expression,
// both evaluated with expr against the quote environment. Matching rules run in order
// and each replaces the running price.
package rules

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
	"gopkg.in/yaml.v3"

	"github.com/Simplici0/costeo3d/internal/costing"
	"github.com/Simplici0/costeo3d/internal/pricing"
)

// Rule is the YAML shape of a price rule.
type Rule struct {
	Name  string `yaml:"name" json:"name"`
	When  string `yaml:"when,omitempty" json:"when,omitempty"`
	Price string `yaml:"price" json:"price"`
}

type compiledRule struct {
	name  string
	when  *vm.Program
	price *vm.Program
}

// Set is an ordered list of compiled rules. The zero value applies no rules.
type Set struct {
	rules []compiledRule
}

// Outcome is the result of applying a Set.
type Outcome struct {
	FinalPrice   float64  `json:"finalPrice"`
	AppliedRules []string `json:"appliedRules,omitempty"`
}

// Env builds the expression environment for a quote.
func Env(b costing.Breakdown, p pricing.Result) map[string]interface{} {
	return map[string]interface{}{
		"price":            p.RecommendedPrice,
		"recommendedPrice": p.RecommendedPrice,
		"totalBaseCost":    p.TotalBaseCost,
		"unitTotalCost":    b.UnitTotalCost,
		"quantity":         b.Quantity,
		"riskFactor":       b.RiskFactor,
		"machineMinutes":   b.TotalMachineMinutes,
		"marginPercent":    p.MarginPercent,
	}
}

// Compile validates and compiles rules in order.
func Compile(rules []Rule) (*Set, error) {
	env := Env(costing.Breakdown{}, pricing.Result{})
	set := &Set{rules: make([]compiledRule, 0, len(rules))}

	for i, r := range rules {
		if r.Name == "" {
			r.Name = fmt.Sprintf("rule-%d", i+1)
		}
		if r.Price == "" {
			return nil, fmt.Errorf("rule %q: price expression is required", r.Name)
		}

		c := compiledRule{name: r.Name}
		if r.When != "" {
			program, err := expr.Compile(r.When, expr.Env(env), expr.AsBool())
			if err != nil {
				return nil, fmt.Errorf("compile rule %q condition: %w", r.Name, err)
			}
			c.when = program
		}

		program, err := expr.Compile(r.Price, expr.Env(env))
		if err != nil {
			return nil, fmt.Errorf("compile rule %q price: %w", r.Name, err)
		}
		c.price = program

		set.rules = append(set.rules, c)
	}

	return set, nil
}

// Load reads and compiles a YAML rules file of the form `rules: [...]`.
// An empty path yields an empty Set.
func Load(path string) (*Set, error) {
	if path == "" {
		return &Set{}, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var doc struct {
		Rules []Rule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}

	return Compile(doc.Rules)
}

// Len returns the number of rules in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}

// Apply runs the rules against a breakdown and its recommended price.
func (s *Set) Apply(b costing.Breakdown, p pricing.Result) (Outcome, error) {
	out := Outcome{FinalPrice: p.RecommendedPrice}
	if s == nil {
		return out, nil
	}

	env := Env(b, p)
	for _, r := range s.rules {
		env["price"] = out.FinalPrice

		if r.when != nil {
			matched, err := expr.Run(r.when, env)
			if err != nil {
				return Outcome{}, fmt.Errorf("run rule %q condition: %w", r.name, err)
			}
			if ok, _ := matched.(bool); !ok {
				continue
			}
		}

		value, err := expr.Run(r.price, env)
		if err != nil {
			return Outcome{}, fmt.Errorf("run rule %q price: %w", r.name, err)
		}
		price, err := toFloat(value)
		if err != nil {
			return Outcome{}, fmt.Errorf("rule %q: %w", r.name, err)
		}

		out.FinalPrice = price
		out.AppliedRules = append(out.AppliedRules, r.name)
	}

	return out, nil
}

var errNotNumeric = errors.New("price expression did not return a finite number")

func toFloat(v interface{}) (float64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return 0, errNotNumeric
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errNotNumeric
	}
	return f, nil
}
