// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

// Package planner decomposes a user goal into an ordered execution plan and
// attaches the most relevant skills to each step. The decomposition itself is
// delegated to an LLM provider; the planner validates, normalizes, and
// annotates what comes back.
package planner

import (
	"fmt"

	"github.com/skillgate/skillgate/pkg/skills"
)

// Step count bounds enforced on every plan returned to a caller.
const (
	MinSteps = 3
	MaxSteps = 7
)

// PlanStep is one unit of work in an execution plan.
type PlanStep struct {
	Index          int            `json:"index"`
	Instruction    string         `json:"instruction"`
	SelectedSkills []skills.Match `json:"-"`
}

// SkillNames returns the names of the skills attached to the step.
func (s PlanStep) SkillNames() []string {
	out := make([]string, 0, len(s.SelectedSkills))
	for _, m := range s.SelectedSkills {
		out = append(out, m.Skill.Name)
	}
	return out
}

// ExecutionPlan is the ordered decomposition of a single goal. A plan is
// owned by the request that built it and never shared across requests.
type ExecutionPlan struct {
	Goal  string     `json:"goal"`
	Steps []PlanStep `json:"steps"`
}

// Validate checks the structural invariants every returned plan satisfies:
// between MinSteps and MaxSteps steps, indices exactly 0..len-1, no blank
// instructions.
func (p *ExecutionPlan) Validate() error {
	if p == nil {
		return fmt.Errorf("plan is nil")
	}
	if len(p.Steps) < MinSteps || len(p.Steps) > MaxSteps {
		return fmt.Errorf("plan has %d steps, want %d..%d", len(p.Steps), MinSteps, MaxSteps)
	}
	for i, step := range p.Steps {
		if step.Index != i {
			return fmt.Errorf("step %d carries index %d", i, step.Index)
		}
		if step.Instruction == "" {
			return fmt.Errorf("step %d has an empty instruction", i)
		}
	}
	return nil
}

// SkillHeaders returns the deduplicated union of headers of all skills
// attached across the plan, in first-reference order.
func (p *ExecutionPlan) SkillHeaders() []skills.Header {
	seen := make(map[string]struct{})
	var out []skills.Header
	for _, step := range p.Steps {
		for _, m := range step.SelectedSkills {
			if _, ok := seen[m.Skill.Name]; ok {
				continue
			}
			seen[m.Skill.Name] = struct{}{}
			out = append(out, m.Skill.Header())
		}
	}
	return out
}
