package match

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxQueryLen is the upper bound on query text accepted at the boundary.
const MaxQueryLen = 5000

// Query is the canonical form of a matching request: cleaned text plus the
// extracted keyword set. For role-based queries RequiredSkills carries the
// explicit skill list; keyword extraction is the fallback for free text.
type Query struct {
	Text           string
	Keywords       []string
	RequiredSkills []string
}

// skillTerms returns the terms the structured scorer matches against
// consultant skills: explicit required skills when present, extracted
// keywords otherwise.
func (q Query) skillTerms() []string {
	if len(q.RequiredSkills) > 0 {
		return q.RequiredSkills
	}
	return q.Keywords
}

// stopwords are dropped during keyword extraction. Kept small on purpose:
// over-aggressive filtering hurts short role descriptions.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "have": {},
	"i": {}, "in": {}, "is": {}, "it": {}, "looking": {}, "need": {},
	"needed": {}, "needs": {}, "of": {}, "on": {}, "or": {}, "our": {},
	"some": {}, "someone": {}, "that": {}, "the": {}, "to": {}, "want": {},
	"we": {}, "who": {}, "will": {}, "with": {}, "years": {}, "you": {},
}

// Normalize turns raw text into its canonical query form: lower-cased,
// whitespace-collapsed, with a deduplicated keyword set. It is idempotent
// and has no side effects. Returns ErrInvalidQuery for empty input or
// input longer than MaxQueryLen runes.
func Normalize(raw string) (Query, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Query{}, fmt.Errorf("%w: empty text", ErrInvalidQuery)
	}
	if utf8.RuneCountInString(text) > MaxQueryLen {
		return Query{}, fmt.Errorf("%w: text exceeds %d characters", ErrInvalidQuery, MaxQueryLen)
	}

	text = strings.ToLower(strings.Join(strings.Fields(text), " "))

	return Query{Text: text, Keywords: extractKeywords(text)}, nil
}

// NormalizeRole builds a Query from a role spec. The spec's skill list is
// preserved verbatim as the structured matching terms.
func NormalizeRole(spec RoleSpec) (Query, error) {
	q, err := Normalize(spec.QueryText())
	if err != nil {
		return Query{}, err
	}
	skills := make([]string, 0, len(spec.Skills))
	for _, s := range spec.Skills {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}
	q.RequiredSkills = skills
	return q, nil
}

// extractKeywords tokenizes normalized text, drops stopwords and returns
// the remaining tokens deduplicated in order of first appearance.
// '+', '#' and '.' count as token characters so "c++", "c#" and "node.js"
// survive tokenization; sentence punctuation is trimmed off.
func extractKeywords(text string) []string {
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#' && r != '.'
	})

	seen := make(map[string]struct{}, len(tokens))
	keywords := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.Trim(tok, ".")
		if tok == "" {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		keywords = append(keywords, tok)
	}
	return keywords
}

// NormalizeSkill folds a skill string for comparison: lower-case with all
// punctuation and spacing stripped, so "Node.js" and "nodejs" compare
// equal. '+' and '#' are kept to distinguish "c++" and "c#" from "c".
func NormalizeSkill(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
