// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"sync"

	gerrors "github.com/skillgate/skillgate/pkg/errors"
)

// Rejection records one skill excluded during a registry load. A rejection
// never aborts the load; the remaining skills are still registered.
type Rejection struct {
	Dir    string `json:"dir"`
	Reason string `json:"reason"`
}

func (r Rejection) String() string {
	return fmt.Sprintf("%s: %s", r.Dir, r.Reason)
}

// Registry is an immutable snapshot of loaded skills. It is built once by
// Load, never mutated afterward, and therefore safe for concurrent reads by
// any number of in-flight requests. Administrative reloads build a fresh
// Registry and swap it through a Holder.
type Registry struct {
	skills map[string]*Skill
	order  []string
}

// Load walks root for SKILL.md manifests. Skill directories may nest under
// grouping directories; only the immediate parent of a manifest counts as the
// skill directory. Each invalid manifest excludes exactly that one skill and
// is reported in the returned rejections; a missing root yields an empty
// registry. Insertion order is the walk order (lexical, per filepath.WalkDir).
func Load(root string) (*Registry, []Rejection, error) {
	reg := &Registry{skills: make(map[string]*Skill)}
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return reg, nil, nil
	}

	var rejections []Rejection
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != manifestFileName {
			return nil
		}
		rel, relErr := filepath.Rel(root, filepath.Dir(path))
		if relErr != nil {
			rel = filepath.Dir(path)
		}

		skill, err := loadFile(path)
		if err != nil {
			rejections = append(rejections, Rejection{Dir: rel, Reason: err.Error()})
			return nil
		}
		if err := validate(skill); err != nil {
			rejections = append(rejections, Rejection{Dir: rel, Reason: err.Error()})
			return nil
		}
		if _, exists := reg.skills[skill.Name]; exists {
			rejections = append(rejections, Rejection{Dir: rel, Reason: "duplicate skill name"})
			return nil
		}

		reg.skills[skill.Name] = skill
		reg.order = append(reg.order, skill.Name)
		return nil
	})
	if walkErr != nil {
		return nil, nil, gerrors.New(gerrors.CodeInternal, "read skills directory", walkErr).
			WithContext("dir", root)
	}

	return reg, rejections, nil
}

// Get returns the named skill, or false when not loaded.
func (r *Registry) Get(name string) (*Skill, bool) {
	skill, ok := r.skills[name]
	return skill, ok
}

// Len returns the number of loaded skills.
func (r *Registry) Len() int {
	return len(r.order)
}

// Names returns all skill names in insertion order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// List yields all loaded skills in insertion order. The sequence is lazy and
// restartable: ranging over it twice produces the same skills in the same
// order without re-reading disk.
func (r *Registry) List() iter.Seq[*Skill] {
	return func(yield func(*Skill) bool) {
		for _, name := range r.order {
			if !yield(r.skills[name]) {
				return
			}
		}
	}
}

// Headers returns the disclosable headers of all skills in insertion order.
func (r *Registry) Headers() []Header {
	out := make([]Header, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.skills[name].Header())
	}
	return out
}

// insertionIndex reports the scan position of a skill, used by the matcher
// as a deterministic tie-breaker.
func (r *Registry) insertionIndex(name string) int {
	for i, n := range r.order {
		if n == name {
			return i
		}
	}
	return len(r.order)
}

// Search ranks all loaded skills against the query terms and returns the
// scored matches, best first. Zero-score skills are omitted.
func (r *Registry) Search(query string) []Match {
	var out []Match
	for _, m := range Rank(query, r) {
		if m.Score > 0 {
			out = append(out, m)
		}
	}
	return out
}

// Holder owns the current registry snapshot and allows administrative
// reloads without disturbing in-flight requests, which keep reading the
// snapshot they started with.
type Holder struct {
	mu  sync.RWMutex
	reg *Registry
}

// NewHolder wraps an initial registry snapshot.
func NewHolder(reg *Registry) *Holder {
	return &Holder{reg: reg}
}

// Get returns the current snapshot.
func (h *Holder) Get() *Registry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.reg
}

// Swap replaces the snapshot. Readers that already hold the previous
// snapshot are unaffected.
func (h *Holder) Swap(reg *Registry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reg = reg
}

// Reload builds a fresh snapshot from root and swaps it in on success.
func (h *Holder) Reload(root string) ([]Rejection, error) {
	reg, rejections, err := Load(root)
	if err != nil {
		return nil, err
	}
	h.Swap(reg)
	return rejections, nil
}
