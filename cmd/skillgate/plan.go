// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/skillgate/skillgate/pkg/config"
	"github.com/skillgate/skillgate/pkg/planner"
	"github.com/skillgate/skillgate/pkg/skills"
)

// runPlan builds and prints an execution plan without running it. Useful for
// inspecting which skills the matcher attaches to each step.
func runPlan(ctx context.Context, global globalFlags, cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: skillgate plan <goal>")
	}
	goal := strings.Join(args, " ")

	reg, rejections, err := skills.Load(cfg.Skills.Dir)
	if err != nil {
		return err
	}
	for _, rej := range rejections {
		fmt.Fprintf(os.Stderr, "skipping %s: %s\n", rej.Dir, rej.Reason)
	}

	provider, err := buildProvider(cfg.LLM)
	if err != nil {
		return err
	}
	builder := planner.NewBuilder(provider, planner.BuilderConfig{
		Model:    cfg.LLM.Model,
		MinSteps: cfg.Gateway.PlanMinSteps,
		MaxSteps: cfg.Gateway.PlanMaxSteps,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	plan, err := builder.Build(ctx, goal, nil, reg, "")
	if err != nil {
		return err
	}

	if global.JSON {
		type stepView struct {
			Index       int      `json:"index"`
			Instruction string   `json:"instruction"`
			Skills      []string `json:"skills"`
		}
		out := struct {
			Goal  string     `json:"goal"`
			Steps []stepView `json:"steps"`
		}{Goal: plan.Goal}
		for _, step := range plan.Steps {
			out.Steps = append(out.Steps, stepView{step.Index, step.Instruction, step.SkillNames()})
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	}

	fmt.Printf("Goal: %s\n\n", plan.Goal)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tINSTRUCTION\tSKILLS")
	for _, step := range plan.Steps {
		fmt.Fprintf(w, "%d\t%s\t%s\n", step.Index, step.Instruction, strings.Join(step.SkillNames(), ", "))
	}
	return w.Flush()
}
