// Package scenarios replays scripted telemetry through the decision pipeline
// and compares each outcome with the expected decision.
package scenarios

import (
	"fmt"
	"strings"

	"github.com/kilianp07/coldchain/core/history"
	"github.com/kilianp07/coldchain/core/model"
	"github.com/kilianp07/coldchain/core/pipeline"
)

type StepResult struct {
	Index    int           `json:"index"`
	Kind     pipeline.Kind `json:"kind"`
	Target   string        `json:"target,omitempty"`
	Expected Expected      `json:"expected"`
	Passed   bool          `json:"passed"`
}

type Report struct {
	Name     string       `json:"name"`
	Steps    []StepResult `json:"steps"`
	Failures int          `json:"failures"`
}

func (r Report) Passed() bool { return r.Failures == 0 }

func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d/%d steps passed\n", r.Name, len(r.Steps)-r.Failures, len(r.Steps))
	for _, s := range r.Steps {
		if s.Passed {
			continue
		}
		fmt.Fprintf(&b, "  step %d: got %s %s, want %s %s\n", s.Index, s.Kind, s.Target, s.Expected.Decision, s.Expected.Target)
	}
	return b.String()
}

// Run evaluates every step in order against one session so trend and chaos
// state carry over between steps.
func Run(p *pipeline.Pipeline, sc *Scenario, parties map[string]string) (Report, error) {
	session, err := history.NewSession(history.Config{})
	if err != nil {
		return Report{}, err
	}
	base, err := toFacilities(sc.Facilities)
	if err != nil {
		return Report{}, err
	}

	rep := Report{Name: sc.Name, Steps: make([]StepResult, 0, len(sc.Steps))}
	for i, step := range sc.Steps {
		facilities := base
		if len(step.Facilities) > 0 {
			if facilities, err = toFacilities(step.Facilities); err != nil {
				return rep, fmt.Errorf("step %d: %w", i, err)
			}
		}
		road, err := model.ParseRoadCondition(step.Road)
		if err != nil {
			return rep, fmt.Errorf("step %d: %w", i, err)
		}
		ts := int64(i)
		session.SetChaos(step.Chaos, ts)

		b, err := p.Evaluate(session, pipeline.Request{
			Sample: model.TelemetrySample{
				Temperature: step.Temperature,
				Humidity:    step.Humidity,
				Vibration:   step.Vibration,
				Timestamp:   ts,
			},
			Facilities:    facilities,
			CargoValue:    sc.CargoValue,
			RoadCondition: road,
			Parties:       parties,
		})
		if err != nil {
			return rep, fmt.Errorf("step %d: %w", i, err)
		}
		res := StepResult{
			Index:    i,
			Kind:     b.Decision.Kind(),
			Target:   b.Decision.Target(),
			Expected: step.Expect,
		}
		res.Passed = matches(res, step.Expect)
		if !res.Passed {
			rep.Failures++
		}
		rep.Steps = append(rep.Steps, res)
	}
	return rep, nil
}

func matches(res StepResult, exp Expected) bool {
	if exp.Decision != "" {
		kind, err := pipeline.ParseKind(exp.Decision)
		if err != nil || kind != res.Kind {
			return false
		}
	}
	return exp.Target == "" || exp.Target == res.Target
}
