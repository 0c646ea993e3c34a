// Package scoring implements the lexical relevance score shared by the FAQ and
// procedure collections. Scores are only comparable within a single query.
package scoring

import (
	"strings"
	"unicode"
)

// Field weights. Primary fields are FAQ questions and procedure titles.
const (
	WeightPrimary   = 5.0
	WeightSecondary = 3.0
	WeightBody      = 1.0

	// VerbatimBonus is added to any field that contains the whole query.
	VerbatimBonus = 10.0
	// PrimaryVerbatimBonus is added on top of VerbatimBonus for primary fields.
	PrimaryVerbatimBonus = 6.0

	// MinConfidenceScore is the threshold BestMatch must clear. A verbatim hit on
	// any field or two distinct primary-field term hits reach it.
	MinConfidenceScore = 10.0
)

// Field is one haystack field of a candidate item
type Field struct {
	Text    string
	Weight  float64
	Primary bool
}

// Primary builds a title/question field
func Primary(text string) Field {
	return Field{Text: text, Weight: WeightPrimary, Primary: true}
}

// Secondary builds a summary/tag/category field
func Secondary(text string) Field {
	return Field{Text: text, Weight: WeightSecondary}
}

// Body builds a content/answer field
func Body(text string) Field {
	return Field{Text: text, Weight: WeightBody}
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "is": {}, "are": {}, "was": {}, "be": {},
	"do": {}, "does": {}, "did": {}, "i": {}, "me": {}, "my": {}, "we": {},
	"our": {}, "you": {}, "your": {}, "it": {}, "its": {}, "to": {}, "of": {},
	"in": {}, "on": {}, "at": {}, "for": {}, "and": {}, "or": {}, "what": {},
	"how": {}, "who": {}, "can": {}, "with": {}, "this": {}, "that": {},
}

// Terms lowercases the text, splits it on non-alphanumeric runes and returns
// the distinct scoring terms in first-seen order.
func Terms(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(words))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		if len([]rune(w)) < 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		terms = append(terms, w)
	}
	return terms
}

// normalizePhrase lowercases and collapses whitespace so the verbatim test is not
// defeated by double spaces or line breaks.
func normalizePhrase(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Score returns the relevance of the haystack fields to the query. It is never
// negative and is zero for an empty query.
func Score(query string, fields []Field) float64 {
	phrase := normalizePhrase(query)
	if phrase == "" {
		return 0
	}
	return score(phrase, Terms(query), fields)
}

// Query pre-computes the normalized phrase and terms for scoring many items
type Query struct {
	phrase string
	terms  []string
}

// NewQuery prepares a query for repeated scoring
func NewQuery(query string) Query {
	return Query{phrase: normalizePhrase(query), terms: Terms(query)}
}

// Empty reports whether the query can never score
func (q Query) Empty() bool {
	return q.phrase == ""
}

// Score scores one item's fields against the prepared query
func (q Query) Score(fields []Field) float64 {
	if q.phrase == "" {
		return 0
	}
	return score(q.phrase, q.terms, fields)
}

func score(phrase string, terms []string, fields []Field) float64 {
	total := 0.0
	for _, f := range fields {
		hay := normalizePhrase(f.Text)
		if hay == "" {
			continue
		}

		if strings.Contains(hay, phrase) {
			total += VerbatimBonus
			if f.Primary {
				total += PrimaryVerbatimBonus
			}
		}

		for _, term := range terms {
			if strings.Contains(hay, term) {
				total += f.Weight
			}
		}
	}
	return total
}
