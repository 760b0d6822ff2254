// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"sort"
	"strings"
	"unicode"
)

// Match pairs a skill with its relevance score against a step text.
type Match struct {
	Skill *Skill
	Score float64
}

// DefaultTopK is the number of skills attached to a plan step.
const DefaultTopK = 3

// stopWords are excluded from term overlap. The list is intentionally small;
// scoring only needs to ignore glue words, not understand language.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {}, "if": {},
	"then": {}, "this": {}, "that": {}, "these": {}, "those": {}, "to": {},
	"of": {}, "in": {}, "on": {}, "at": {}, "for": {}, "with": {}, "by": {},
	"from": {}, "as": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {},
	"been": {}, "being": {}, "it": {}, "its": {}, "do": {}, "does": {},
	"did": {}, "not": {}, "no": {}, "we": {}, "you": {}, "i": {}, "he": {},
	"she": {}, "they": {}, "them": {}, "their": {}, "our": {}, "your": {},
	"my": {}, "me": {}, "us": {}, "will": {}, "would": {}, "can": {},
	"could": {}, "should": {}, "shall": {}, "may": {}, "might": {},
	"must": {}, "have": {}, "has": {}, "had": {}, "what": {}, "which": {},
	"who": {}, "how": {}, "when": {}, "where": {}, "why": {}, "all": {},
	"any": {}, "each": {}, "some": {}, "such": {}, "than": {}, "too": {},
	"very": {}, "just": {}, "about": {}, "into": {}, "over": {}, "under": {},
	"here": {}, "there": {}, "please": {}, "use": {}, "using": {},
}

// terms extracts the distinct meaningful terms of a text: lowercase,
// split on non-alphanumeric runes, stop words removed.
func terms(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, field := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if _, stop := stopWords[field]; stop {
			continue
		}
		out[field] = struct{}{}
	}
	return out
}

// Score computes the relevance of a skill to a step text: the number of
// distinct meaningful terms common to the step text and the skill's
// description plus name, normalized by the step's distinct term count and
// clamped to [0,1]. Pure and deterministic for identical inputs.
func Score(stepText string, skill *Skill) float64 {
	stepTerms := terms(stepText)
	if len(stepTerms) == 0 {
		return 0
	}
	skillTerms := terms(skill.Description + " " + skill.Name)

	overlap := 0
	for term := range stepTerms {
		if _, ok := skillTerms[term]; ok {
			overlap++
		}
	}

	score := float64(overlap) / float64(len(stepTerms))
	if score > 1 {
		score = 1
	}
	return score
}

// Rank scores every skill in the registry against the step text and returns
// matches sorted by descending score. Ties break by ascending registry
// insertion order, never by map iteration order, so the output is fully
// deterministic.
func Rank(stepText string, reg *Registry) []Match {
	matches := make([]Match, 0, reg.Len())
	for skill := range reg.List() {
		matches = append(matches, Match{Skill: skill, Score: Score(stepText, skill)})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return reg.insertionIndex(matches[i].Skill.Name) < reg.insertionIndex(matches[j].Skill.Name)
	})
	return matches
}

// TopK returns at most k ranked matches with score > 0. When pinned names a
// skill present in the registry, that skill is unconditionally placed first
// regardless of score and the remaining slots are filled by ranked matches,
// deduplicated against the pin.
func TopK(stepText string, reg *Registry, k int, pinned string) []Match {
	if k <= 0 {
		k = DefaultTopK
	}

	var out []Match
	if pinned != "" {
		if skill, ok := reg.Get(pinned); ok {
			out = append(out, Match{Skill: skill, Score: Score(stepText, skill)})
		}
	}

	for _, m := range Rank(stepText, reg) {
		if len(out) >= k {
			break
		}
		if m.Score <= 0 {
			break // ranked descending, nothing scored below this point
		}
		if len(out) > 0 && out[0].Skill.Name == m.Skill.Name {
			continue
		}
		out = append(out, m)
	}

	if len(out) > k {
		out = out[:k]
	}
	return out
}
