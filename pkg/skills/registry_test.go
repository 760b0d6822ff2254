// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSkill(t *testing.T, root, dir, content string) {
	t.Helper()
	skillDir := filepath.Join(root, dir)
	if err := os.MkdirAll(skillDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(skillDir, "SKILL.md"), []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestLoadValidSkill(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "pdf-processing", `---
name: pdf-processing
description: Extracts text and tables from PDF files.
compatibility: Requires pdftotext
metadata:
  author: example-org
---

Use this skill when dealing with PDFs.
`)

	reg, rejections, err := Load(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rejections) != 0 {
		t.Fatalf("unexpected rejections: %v", rejections)
	}
	skill, ok := reg.Get("pdf-processing")
	if !ok {
		t.Fatalf("expected skill to be registered")
	}
	if skill.Description != "Extracts text and tables from PDF files." {
		t.Errorf("unexpected description: %q", skill.Description)
	}
	if skill.Compatibility != "Requires pdftotext" {
		t.Errorf("unexpected compatibility: %q", skill.Compatibility)
	}
	if skill.Metadata["author"] != "example-org" {
		t.Errorf("unexpected metadata: %v", skill.Metadata)
	}
	if !strings.Contains(skill.Body, "dealing with PDFs") {
		t.Errorf("unexpected body: %q", skill.Body)
	}
}

func TestLoadMissingRequiredField(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "no-description", `---
name: no-description
---
Body only.
`)

	reg, rejections, err := Load(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if reg.Len() != 0 {
		t.Fatalf("expected empty registry, got %d skills", reg.Len())
	}
	if len(rejections) != 1 || rejections[0].Reason != "missing required field" {
		t.Fatalf("expected missing required field rejection, got %v", rejections)
	}
}

func TestLoadNameDirectoryMismatch(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "foo", `---
name: bar
description: A skill whose manifest name disagrees with its directory.
---
`)

	reg, rejections, err := Load(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rejections) != 1 || !strings.HasPrefix(rejections[0].Reason, "name/directory mismatch") {
		t.Fatalf("expected name/directory mismatch rejection, got %v", rejections)
	}
	// Excluded entirely: neither the manifest name nor the directory name resolve.
	if _, ok := reg.Get("bar"); ok {
		t.Errorf("skill must not be registered under manifest name")
	}
	if _, ok := reg.Get("foo"); ok {
		t.Errorf("skill must not be registered under directory name")
	}
}

func TestLoadDuplicateName(t *testing.T) {
	root := t.TempDir()
	// Walk order is lexical, so team-a's copy wins.
	manifest := `---
name: review
description: Reviews things.
---
`
	writeSkill(t, root, filepath.Join("team-a", "review"), manifest)
	writeSkill(t, root, filepath.Join("team-b", "review"), manifest)

	reg, rejections, err := Load(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected one registered skill, got %d", reg.Len())
	}
	skill, _ := reg.Get("review")
	if filepath.Base(filepath.Dir(skill.Dir)) != "team-a" {
		t.Errorf("first occurrence must win, got %q", skill.Dir)
	}
	if len(rejections) != 1 || rejections[0].Reason != "duplicate skill name" {
		t.Fatalf("expected duplicate skill name rejection, got %v", rejections)
	}
}

func TestLoadMalformedFrontmatter(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "broken", "no frontmatter at all\n")

	reg, rejections, err := Load(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if reg.Len() != 0 {
		t.Fatalf("expected empty registry")
	}
	if len(rejections) != 1 || rejections[0].Reason != "missing frontmatter" {
		t.Fatalf("expected missing frontmatter rejection, got %v", rejections)
	}
}

func TestLoadPartialFailure(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "good-skill", `---
name: good-skill
description: Loads fine.
---
`)
	writeSkill(t, root, "bad-skill", `---
description: Missing its name.
---
`)

	reg, rejections, err := Load(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("one bad skill must not abort the load, got %d skills", reg.Len())
	}
	if len(rejections) != 1 {
		t.Fatalf("expected exactly one rejection, got %v", rejections)
	}
}

func TestLoadMissingRoot(t *testing.T) {
	reg, rejections, err := Load(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("missing root must not error: %v", err)
	}
	if reg.Len() != 0 || len(rejections) != 0 {
		t.Fatalf("expected empty registry")
	}
}

func TestLoadIgnoresNonSkillEntries(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "README.md"), []byte("not a skill"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(root, "empty-dir"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	reg, rejections, err := Load(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if reg.Len() != 0 || len(rejections) != 0 {
		t.Fatalf("plain files and manifest-less dirs must be skipped silently")
	}
}

func TestLoadNestedGroupingDirectories(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, filepath.Join("writing", "release-notes"), `---
name: release-notes
description: Drafts release notes from merged changes.
---
Body.
`)
	writeSkill(t, root, filepath.Join("writing", "changelog"), `---
name: release-notes
description: Misnamed; directory says changelog.
---
Body.
`)

	reg, rejections, err := Load(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	// Only the immediate parent of a manifest counts as the skill directory;
	// the grouping directory above it has no effect on validation.
	if _, ok := reg.Get("release-notes"); !ok {
		t.Error("expected nested skill to be registered")
	}
	if len(rejections) != 1 || !strings.Contains(rejections[0].Reason, "name/directory mismatch") {
		t.Fatalf("unexpected rejections: %v", rejections)
	}
	if rejections[0].Dir != filepath.Join("writing", "changelog") {
		t.Errorf("rejection dir = %q", rejections[0].Dir)
	}
}

func TestListInsertionOrderAndRestart(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"alpha", "beta", "gamma"} {
		writeSkill(t, root, name, "---\nname: "+name+"\ndescription: The "+name+" skill.\n---\n")
	}

	reg, _, err := Load(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	collect := func() []string {
		var names []string
		for skill := range reg.List() {
			names = append(names, skill.Name)
		}
		return names
	}

	first := collect()
	second := collect()
	want := []string{"alpha", "beta", "gamma"}
	for i, name := range want {
		if first[i] != name || second[i] != name {
			t.Fatalf("expected stable insertion order %v, got %v then %v", want, first, second)
		}
	}

	// Early break must not poison later iterations.
	for range reg.List() {
		break
	}
	if got := collect(); len(got) != 3 {
		t.Fatalf("sequence must be restartable, got %v", got)
	}
}

func TestHolderSwapAndReload(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "first", "---\nname: first\ndescription: First skill.\n---\n")

	reg, _, err := Load(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	holder := NewHolder(reg)

	snapshot := holder.Get()
	writeSkill(t, root, "second", "---\nname: second\ndescription: Second skill.\n---\n")
	if _, err := holder.Reload(root); err != nil {
		t.Fatalf("reload: %v", err)
	}

	if snapshot.Len() != 1 {
		t.Errorf("in-flight snapshot must be unaffected by reload")
	}
	if holder.Get().Len() != 2 {
		t.Errorf("expected fresh snapshot after reload, got %d skills", holder.Get().Len())
	}
}
