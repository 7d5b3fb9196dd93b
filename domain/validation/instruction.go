package validation

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"

	"github.com/example/collab-template-demo/domain/room"
)

// forbiddenPhrases are matched against lower-cased text whose whitespace runs were
// collapsed to one space. "system: you are" also has a colon-adjacent variant.
var forbiddenPhrases = []string{
	"ignore previous instructions",
	"ignore all previous",
	"disregard previous",
	"forget previous",
	"system: you are",
	"system:you are",
	"system prompt",
	"<|im_start|>",
	"<|im_end|>",
}

// InjectionGuard detects prompt-injection phrases with an Aho-Corasick automaton.
type InjectionGuard struct {
	matcher *goahocorasick.Machine
}

// NewInjectionGuard builds a guard for the given phrases.
func NewInjectionGuard(phrases []string) (*InjectionGuard, error) {
	// The double-array trie wants unique keys in lexical order.
	keys := lo.Uniq(lo.Map(phrases, func(p string, _ int) string {
		return string(normalizeInstruction(p))
	}))
	sort.Strings(keys)
	patterns := lo.Map(keys, func(k string, _ int) []rune { return []rune(k) })
	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &InjectionGuard{matcher: m}, nil
}

// Match reports the first forbidden phrase found in text.
func (g *InjectionGuard) Match(text string) (string, bool) {
	norm := normalizeInstruction(text)
	if len(norm) == 0 {
		return "", false
	}
	hits := g.matcher.MultiPatternSearch(norm, true)
	if len(hits) == 0 {
		return "", false
	}
	return string(hits[0].Word), true
}

var defaultGuard = mustGuard(forbiddenPhrases)

func mustGuard(phrases []string) *InjectionGuard {
	g, err := NewInjectionGuard(phrases)
	if err != nil {
		panic("validation: failed to build injection guard: " + err.Error())
	}
	return g
}

// normalizeInstruction lower-cases text and collapses whitespace runs to a single space.
func normalizeInstruction(text string) []rune {
	out := make([]rune, 0, len(text))
	space := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !space && len(out) > 0 {
				out = append(out, ' ')
			}
			space = true
			continue
		}
		space = false
		out = append(out, unicode.ToLower(r))
	}
	if n := len(out); n > 0 && out[n-1] == ' ' {
		out = out[:n-1]
	}
	return out
}

// SanitizeInstruction trims an AI instruction and rejects empty, over-long or
// prompt-injection input.
func SanitizeInstruction(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", room.Invalid(room.ErrInvalidInstruction, "instruction", "instruction is empty")
	}
	if utf8.RuneCountInString(trimmed) > MaxInstructionLength {
		return "", room.Invalid(room.ErrInvalidInstruction, "instruction", "instruction exceeds 500 characters")
	}
	if _, found := defaultGuard.Match(trimmed); found {
		return "", room.Invalid(room.ErrInvalidInstruction, "instruction", "instruction contains a forbidden pattern")
	}
	return trimmed, nil
}
