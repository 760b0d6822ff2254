// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/skillgate/skillgate/pkg/config"
	"github.com/skillgate/skillgate/pkg/skills"
)

func runSkills(global globalFlags, cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: skillgate skills <list|validate>")
	}
	switch args[0] {
	case "list":
		return runSkillsList(global, cfg)
	case "validate":
		return runSkillsValidate(global, cfg)
	default:
		return fmt.Errorf("unknown skills subcommand %q", args[0])
	}
}

func runSkillsList(global globalFlags, cfg *config.Config) error {
	reg, _, err := skills.Load(cfg.Skills.Dir)
	if err != nil {
		return err
	}
	headers := reg.Headers()
	if global.JSON {
		return json.NewEncoder(os.Stdout).Encode(headers)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDESCRIPTION")
	for _, h := range headers {
		fmt.Fprintf(w, "%s\t%s\n", h.Name, h.Description)
	}
	return w.Flush()
}

func runSkillsValidate(global globalFlags, cfg *config.Config) error {
	reg, rejections, err := skills.Load(cfg.Skills.Dir)
	if err != nil {
		return err
	}
	if global.JSON {
		out := struct {
			Loaded   int                `json:"loaded"`
			Rejected []skills.Rejection `json:"rejected"`
		}{Loaded: reg.Len(), Rejected: rejections}
		if err := json.NewEncoder(os.Stdout).Encode(out); err != nil {
			return err
		}
	} else {
		fmt.Printf("%d skill(s) loaded from %s\n", reg.Len(), cfg.Skills.Dir)
		for _, rej := range rejections {
			fmt.Printf("rejected %s: %s\n", rej.Dir, rej.Reason)
		}
	}
	if len(rejections) > 0 {
		return fmt.Errorf("%d manifest(s) rejected", len(rejections))
	}
	return nil
}
