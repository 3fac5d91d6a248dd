// Package variant expands one proposed name into the deduplicated set of
// search candidates used against the registry: the explicit translation, the
// punctuation-stripped name, its stop-word-free core root, bounded phonetic
// and visual confusable permutations of the root, and a Latin
// transliteration. The expansion is pure and deterministic.
package variant

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/marklens/marklens/internal/core"
)

const (
	// Confusable expansion is skipped for roots at or above this length to
	// bound combinatorial growth.
	maxExpandableRootLen = 15

	// When the full permutation count reaches this many candidates, only the
	// first permutationSample are kept, in product iteration order.
	permutationCutoff = 32
	permutationSample = 15
)

// Engine generates search variants for proposed names.
type Engine struct {
	lex *Lexicon
}

// NewEngine returns an engine backed by the given lexicon, or the built-in
// one when lex is nil.
func NewEngine(lex *Lexicon) *Engine {
	if lex == nil {
		lex = DefaultLexicon()
	}
	return &Engine{lex: lex}
}

// Analyze expands a raw input line into its variant set and analysis report.
// Repeated calls with identical input yield identical output.
func (e *Engine) Analyze(rawInput string) (*Set, core.AnalysisReport) {
	query := core.ParseNameQuery(norm.NFC.String(rawInput))
	set := NewSet()
	report := core.AnalysisReport{Translation: query.Translation}

	if query.Translation != "" {
		set.Add(query.Translation)
	}

	cleanName := stripPunctuation(query.BaseText)
	set.Add(cleanName)

	coreRoot := e.extractCoreRoot(cleanName)
	report.CoreRoot = coreRoot
	if coreRoot != cleanName {
		set.Add(coreRoot)
	}

	if utf8.RuneCountInString(coreRoot) < maxExpandableRootLen {
		for _, p := range e.permutations(coreRoot) {
			set.Add(p)
		}
	}

	report.Fingilish = e.transliterate(coreRoot)
	set.Add(report.Fingilish)

	return set, report
}

// extractCoreRoot strips descriptive stop words from the name. When every
// token is a stop word the unmodified input is returned, so the root is
// never empty.
func (e *Engine) extractCoreRoot(text string) string {
	words := strings.Fields(text)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if !e.lex.IsStopWord(w) {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		return text
	}
	return strings.Join(kept, " ")
}

// permutations builds the confusable expansion of text: each character is
// replaced by the membership of its first substitution group (or itself),
// and the full Cartesian product is enumerated with the last position
// cycling fastest. Below the cutoff all candidates are returned; at or above
// it, exactly the first permutationSample.
func (e *Engine) permutations(text string) []string {
	chars := []rune(text)
	options := make([][]rune, len(chars))
	count := 1
	for i, r := range chars {
		options[i] = e.lex.Alternatives(r)
		if count < permutationCutoff {
			count *= len(options[i])
		}
	}

	limit := count
	if count >= permutationCutoff {
		limit = permutationSample
	}

	out := make([]string, 0, limit)
	idx := make([]int, len(options))
	var buf strings.Builder
	for len(out) < limit {
		buf.Reset()
		for i, alts := range options {
			buf.WriteRune(alts[idx[i]])
		}
		out = append(out, buf.String())

		pos := len(options) - 1
		for pos >= 0 {
			idx[pos]++
			if idx[pos] < len(options[pos]) {
				break
			}
			idx[pos] = 0
			pos--
		}
		if pos < 0 {
			break
		}
	}
	return out
}

func (e *Engine) transliterate(text string) string {
	var buf strings.Builder
	for _, r := range text {
		buf.WriteString(e.lex.TransliterateRune(r))
	}
	return buf.String()
}

// stripPunctuation removes every rune that is not a letter, digit,
// underscore, or whitespace, then trims the result.
func stripPunctuation(text string) string {
	var buf strings.Builder
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			buf.WriteRune(r)
		}
	}
	return strings.TrimSpace(buf.String())
}
