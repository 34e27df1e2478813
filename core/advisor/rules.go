package advisor

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/kilianp07/coldchain/core/model"
)

// Rule is an operator-defined advisory rule. When is a CEL expression over
// temperature, humidity, vibration, margin_hours and has_margin that must
// evaluate to a bool.
type Rule struct {
	Name     string         `json:"name"`
	When     string         `json:"when"`
	Priority model.Priority `json:"priority"`
	Action   string         `json:"action"`
	Message  string         `json:"message"`
}

type compiledRule struct {
	Rule
	prg cel.Program
}

func ruleEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("temperature", cel.DoubleType),
		cel.Variable("humidity", cel.DoubleType),
		cel.Variable("vibration", cel.DoubleType),
		cel.Variable("margin_hours", cel.DoubleType),
		cel.Variable("has_margin", cel.BoolType),
	)
}

func compileRules(rules []Rule) ([]compiledRule, error) {
	if len(rules) == 0 {
		return nil, nil
	}
	env, err := ruleEnv()
	if err != nil {
		return nil, fmt.Errorf("create rule environment: %w", err)
	}
	out := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		if r.Action == "" {
			return nil, fmt.Errorf("%w: rule %q has no action", model.ErrConfiguration, r.Name)
		}
		ast, issues := env.Compile(r.When)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("%w: rule %q: %v", model.ErrConfiguration, r.Name, issues.Err())
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return nil, fmt.Errorf("%w: rule %q must evaluate to bool, got %v", model.ErrConfiguration, r.Name, ast.OutputType())
		}
		prg, err := env.Program(ast, cel.CostLimit(10000))
		if err != nil {
			return nil, fmt.Errorf("%w: rule %q: %v", model.ErrConfiguration, r.Name, err)
		}
		if r.Priority == 0 {
			r.Priority = model.PriorityInfo
		}
		out = append(out, compiledRule{Rule: r, prg: prg})
	}
	return out, nil
}

func (a *Advisor) operator(in Input) []Recommendation {
	if len(a.rules) == 0 {
		return nil
	}
	vars := map[string]any{
		"temperature":  in.Sample.Temperature,
		"humidity":     in.Sample.Humidity,
		"vibration":    in.Sample.Vibration,
		"margin_hours": 0.0,
		"has_margin":   in.MarginHours != nil,
	}
	if in.MarginHours != nil {
		vars["margin_hours"] = *in.MarginHours
	}
	var out []Recommendation
	for _, r := range a.rules {
		val, _, err := r.prg.Eval(vars)
		if err != nil {
			a.log.Warnf("advisory rule %s failed: %v", r.Name, err)
			continue
		}
		hit, ok := val.Value().(bool)
		if !ok || !hit {
			continue
		}
		out = append(out, Recommendation{
			Type:     TypeOperator,
			Priority: r.Priority,
			Action:   r.Action,
			Message:  r.Message,
			Reason:   fmt.Sprintf("operator rule %s", r.Name),
		})
	}
	return out
}
