// Package phrase extracts discriminating search phrases from résumé query
// text. Phrases are contiguous spans (list items, sentences, organization and
// action mentions) believed unlikely to appear in unrelated documents.
package phrase

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// MaxPhrases caps how many phrases Extract returns.
const MaxPhrases = 15

const (
	minPhraseLen = 15
	maxPhraseLen = 250
)

// Candidate patterns run against the raw text: line breaks carry list
// structure that whitespace normalization would destroy.
var (
	listItemRe = regexp.MustCompile(`(?:\d+[.)]|[-*•—])\s*([^\n]{20,200})`)
	lineRe     = regexp.MustCompile(`\n\s*([^\n]{20,200})`)
	sentenceRe = regexp.MustCompile(`[.!?\n]`)
	companyRe  = regexp.MustCompile(`(?i)(?:компани[яию]|организаци[яию])\s+["«]?([^»"\n]{10,100})`)
	actionRe   = regexp.MustCompile(`(?i)(?:разработка|внедрение|сопровождение)\s+([^\n.,!?]{15,150})`)

	// \w is ASCII-only in RE2, so Cyrillic words need the Unicode classes.
	wordRe = regexp.MustCompile(`[\p{L}\p{N}_]{4,}`)
)

// boilerplate lists generic résumé section headers and filler that match
// nearly every document in the corpus.
var boilerplate = []string{
	"опыт работы", "функциональные обязанности", "должностные обязанности",
	"ключевые навыки", "профессиональные навыки", "личные качества",
	"образование", "навыки", "резюме", "ищу работу", "трудоустройство",
	"занятость", "график работы", "желательное время в пути",
}

// Normalize collapses whitespace runs to single spaces and trims.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Extract returns up to MaxPhrases candidate phrases from text, longest
// first. Longer phrases are assumed more discriminating. An empty result
// means the caller should fall back to keyword search.
func Extract(text string) []string {
	var candidates []string

	for _, re := range []*regexp.Regexp{listItemRe, lineRe} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			item := strings.TrimSpace(m[1])
			if n := utf8.RuneCountInString(item); n >= 20 && n <= 200 {
				candidates = append(candidates, item)
			}
		}
	}

	for _, s := range sentenceRe.Split(text, -1) {
		s = strings.TrimSpace(s)
		if n := utf8.RuneCountInString(s); n >= 30 && n <= 250 {
			candidates = append(candidates, s)
		}
	}

	for _, m := range companyRe.FindAllStringSubmatch(text, -1) {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	for _, m := range actionRe.FindAllStringSubmatch(text, -1) {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}

	seen := make(map[string]struct{}, len(candidates))
	phrases := make([]string, 0, len(candidates))
	for _, p := range candidates {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		n := utf8.RuneCountInString(p)
		if n < minPhraseLen || n > maxPhraseLen || TooGeneral(p) {
			continue
		}
		seen[p] = struct{}{}
		phrases = append(phrases, p)
	}

	sort.SliceStable(phrases, func(i, j int) bool {
		return utf8.RuneCountInString(phrases[i]) > utf8.RuneCountInString(phrases[j])
	})

	if len(phrases) > MaxPhrases {
		phrases = phrases[:MaxPhrases]
	}
	return phrases
}

// TooGeneral reports whether a phrase contains generic résumé boilerplate.
func TooGeneral(p string) bool {
	lower := strings.ToLower(p)
	for _, general := range boilerplate {
		if strings.Contains(lower, general) {
			return true
		}
	}
	return false
}

// Words tokenizes text into lowercase words of at least 4 characters,
// preserving first-seen order and dropping any word in stop.
func Words(text string, stop map[string]struct{}) []string {
	raw := wordRe.FindAllString(strings.ToLower(text), -1)
	seen := make(map[string]struct{}, len(raw))
	words := make([]string, 0, len(raw))
	for _, w := range raw {
		if _, ok := seen[w]; ok {
			continue
		}
		if _, ok := stop[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}
	return words
}
