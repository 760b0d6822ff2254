// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

// Package skills loads Agent Skills from a directory tree and matches them
// against plan steps. A skill is a directory containing a SKILL.md file with
// YAML frontmatter (name, description, optional compatibility and metadata)
// followed by a free-text instruction body.
package skills

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Skill is an immutable instruction bundle loaded from a SKILL.md manifest.
type Skill struct {
	Name          string
	Description   string
	Compatibility string
	Metadata      map[string]string
	Body          string
	Path          string
	Dir           string
}

// Header is the part of a skill disclosed by default: name and description
// only, never the body.
type Header struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Header returns the disclosable header of the skill.
func (s *Skill) Header() Header {
	return Header{Name: s.Name, Description: s.Description}
}

const (
	manifestFileName  = "SKILL.md"
	maxNameLen        = 64
	maxDescriptionLen = 1024
	maxCompatLen      = 500
)

var namePattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type frontmatter struct {
	Name          string            `yaml:"name"`
	Description   string            `yaml:"description"`
	Compatibility string            `yaml:"compatibility"`
	Metadata      map[string]string `yaml:"metadata"`
}

// loadFile parses a single SKILL.md file. Validation against the containing
// directory name happens in the registry loader, which knows the scan context.
func loadFile(path string) (*Skill, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fm, body, err := splitFrontmatter(string(data))
	if err != nil {
		return nil, err
	}
	var parsed frontmatter
	if err := yaml.Unmarshal([]byte(fm), &parsed); err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	return &Skill{
		Name:          strings.TrimSpace(parsed.Name),
		Description:   strings.TrimSpace(parsed.Description),
		Compatibility: strings.TrimSpace(parsed.Compatibility),
		Metadata:      parsed.Metadata,
		Body:          strings.TrimSpace(body),
		Path:          path,
		Dir:           filepath.Dir(path),
	}, nil
}

func splitFrontmatter(content string) (string, string, error) {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "---") {
		return "", "", errors.New("missing frontmatter")
	}
	parts := strings.SplitN(trimmed, "---", 3)
	if len(parts) < 3 {
		return "", "", errors.New("invalid frontmatter")
	}
	return strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2]), nil
}

// validate enforces the manifest rules shared with the AgentSkills spec.
// The returned error message doubles as the rejection reason.
func validate(skill *Skill) error {
	if skill.Name == "" || skill.Description == "" {
		return errors.New("missing required field")
	}
	if utf8.RuneCountInString(skill.Name) > maxNameLen || !namePattern.MatchString(skill.Name) {
		return fmt.Errorf("invalid field: name %q", skill.Name)
	}
	if utf8.RuneCountInString(skill.Description) > maxDescriptionLen {
		return fmt.Errorf("invalid field: description exceeds %d characters", maxDescriptionLen)
	}
	if skill.Compatibility != "" && utf8.RuneCountInString(skill.Compatibility) > maxCompatLen {
		return fmt.Errorf("invalid field: compatibility exceeds %d characters", maxCompatLen)
	}
	if dirName := filepath.Base(skill.Dir); dirName != skill.Name {
		return fmt.Errorf("name/directory mismatch: %q vs %q", skill.Name, dirName)
	}
	return nil
}
