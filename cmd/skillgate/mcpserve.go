// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/skillgate/skillgate/pkg/config"
	"github.com/skillgate/skillgate/pkg/mcp"
	"github.com/skillgate/skillgate/pkg/skills"
)

// runMCPServe exposes the skill registry over MCP on stdio, so editors and
// other agents can browse skills without going through the HTTP gateway.
// Headers stay the default disclosure; bodies require an explicit get_skill.
func runMCPServe(cfg *config.Config) error {
	reg, rejected, err := skills.Load(cfg.Skills.Dir)
	if err != nil {
		return fmt.Errorf("loading skills: %w", err)
	}
	for _, r := range rejected {
		fmt.Fprintf(os.Stderr, "skillgate: skipping %s\n", r)
	}

	srv := mcp.NewServer("skillgate", version)

	srv.RegisterTool("list_skills", "List available skill names and descriptions",
		func(ctx context.Context, _ map[string]interface{}) (*mcpgo.CallToolResult, error) {
			encoded, err := json.Marshal(reg.Headers())
			if err != nil {
				return mcp.ErrorResult(err.Error()), nil
			}
			return mcp.TextResult(string(encoded)), nil
		})

	srv.RegisterTool("get_skill", "Fetch the full instruction body of a named skill",
		func(ctx context.Context, args map[string]interface{}) (*mcpgo.CallToolResult, error) {
			name, _ := args["name"].(string)
			if name == "" {
				return mcp.ErrorResult("name is required"), nil
			}
			skill, ok := reg.Get(name)
			if !ok {
				return mcp.ErrorResult(fmt.Sprintf("unknown skill %q", name)), nil
			}
			return mcp.TextResult(skill.Body), nil
		},
		mcpgo.WithString("name", mcpgo.Required(), mcpgo.Description("Skill name")))

	srv.RegisterTool("search_skills", "Rank skills against a query by lexical overlap",
		func(ctx context.Context, args map[string]interface{}) (*mcpgo.CallToolResult, error) {
			query, _ := args["query"].(string)
			if query == "" {
				return mcp.ErrorResult("query is required"), nil
			}
			type hit struct {
				Name  string  `json:"name"`
				Score float64 `json:"score"`
			}
			var hits []hit
			for _, m := range reg.Search(query) {
				hits = append(hits, hit{Name: m.Skill.Name, Score: m.Score})
			}
			encoded, err := json.Marshal(hits)
			if err != nil {
				return mcp.ErrorResult(err.Error()), nil
			}
			return mcp.TextResult(string(encoded)), nil
		},
		mcpgo.WithString("query", mcpgo.Required(), mcpgo.Description("Free-text query")))

	return srv.ServeStdio()
}
