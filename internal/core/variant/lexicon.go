package variant

import (
	"fmt"
	"os"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Lexicon bundles the language knowledge the engine needs: substitution
// groups for the phonetic and visual confusable layers, the descriptive
// stop-word vocabulary, and the transliteration map. Character membership in
// a substitution group is looked up by linear scan, phonetic groups before
// visual groups; a character absent from every group substitutes only with
// itself.
type Lexicon struct {
	PhoneticGroups []string          `yaml:"phonetic_groups"`
	VisualGroups   []string          `yaml:"visual_groups"`
	StopWords      []string          `yaml:"stop_words"`
	Translit       map[string]string `yaml:"transliteration"`

	stopSet map[string]struct{}
}

// DefaultLexicon returns the built-in Persian lexicon.
func DefaultLexicon() *Lexicon {
	lex := &Lexicon{
		PhoneticGroups: []string{
			"سصث",
			"زذضظ",
			"تط",
			"هح",
			"غق",
		},
		VisualGroups: []string{
			"کگ",
			"بپ",
			"جچ",
			"یئ",
		},
		StopWords: []string{
			"شرکت", "گروه", "صنعت", "صنعتی", "گستر", "گسترش", "پرداز", "پردازش",
			"فرا", "ایمن", "سازان", "سازه", "سیستم", "پارس", "نوین", "مهر",
			"برتر", "طلایی", "سبز", "جنوب", "شمال", "شرق", "غرب", "مرکزی",
			"ایرانیان", "توسعه", "فناوری", "خدمات", "مهندسی", "بازرگانی", "بین الملل",
			"پخش", "تولیدی", "آریا", "کیان", "پویا",
		},
		Translit: map[string]string{
			"ا": "a", "آ": "a", "ب": "b", "پ": "p", "ت": "t", "ث": "s",
			"ج": "j", "چ": "ch", "ح": "h", "خ": "kh", "د": "d", "ذ": "z",
			"ر": "r", "ز": "z", "ژ": "zh", "س": "s", "ش": "sh", "ص": "s",
			"ض": "z", "ط": "t", "ظ": "z", "ع": "a", "غ": "gh", "ف": "f",
			"ق": "gh", "ک": "k", "گ": "g", "ل": "l", "م": "m", "ن": "n",
			"و": "v", "ه": "h", "ی": "y", " ": " ",
		},
	}
	lex.index()
	return lex
}

// LoadLexicon reads a lexicon override from a YAML file.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}
	lex := &Lexicon{}
	if err := yaml.Unmarshal(data, lex); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	if err := lex.Validate(); err != nil {
		return nil, fmt.Errorf("invalid lexicon %s: %w", path, err)
	}
	lex.index()
	return lex, nil
}

// Validate checks structural constraints on a loaded lexicon.
func (l *Lexicon) Validate() error {
	for i, g := range append(append([]string{}, l.PhoneticGroups...), l.VisualGroups...) {
		if utf8.RuneCountInString(g) < 2 {
			return fmt.Errorf("substitution group %d needs at least two characters", i)
		}
	}
	for key := range l.Translit {
		if utf8.RuneCountInString(key) != 1 {
			return fmt.Errorf("transliteration key %q must be a single character", key)
		}
	}
	if len(l.StopWords) == 0 {
		return fmt.Errorf("stop word list is empty")
	}
	return nil
}

func (l *Lexicon) index() {
	l.stopSet = make(map[string]struct{}, len(l.StopWords))
	for _, w := range l.StopWords {
		l.stopSet[w] = struct{}{}
	}
}

// IsStopWord reports whether a token belongs to the descriptive vocabulary.
func (l *Lexicon) IsStopWord(token string) bool {
	_, ok := l.stopSet[token]
	return ok
}

// Alternatives returns the full membership of the first substitution group
// containing r, phonetic groups checked before visual groups. A character in
// no group substitutes only with itself.
func (l *Lexicon) Alternatives(r rune) []rune {
	for _, g := range l.PhoneticGroups {
		if alts, ok := groupContaining(g, r); ok {
			return alts
		}
	}
	for _, g := range l.VisualGroups {
		if alts, ok := groupContaining(g, r); ok {
			return alts
		}
	}
	return []rune{r}
}

func groupContaining(group string, r rune) ([]rune, bool) {
	members := []rune(group)
	for _, m := range members {
		if m == r {
			return members, true
		}
	}
	return nil, false
}

// TransliterateRune maps a single character through the transliteration map,
// passing unmapped characters (including spaces) through unchanged.
func (l *Lexicon) TransliterateRune(r rune) string {
	if out, ok := l.Translit[string(r)]; ok {
		return out
	}
	return string(r)
}
