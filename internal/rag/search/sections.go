package search

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/akolanti/DocAssist/internal/config"
)

type Section struct {
	Heading string  `json:"heading,omitempty"`
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
}

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// RelevantSections scores the paragraphs of text against query and returns
// the best limit of them. Paragraphs with no matching token are dropped.
func RelevantSections(query, text string, limit int) []Section {
	if limit <= 0 {
		limit = config.DefaultSectionCount
	}
	tokens := queryTokens(query)
	if len(tokens) == 0 || strings.TrimSpace(text) == "" {
		return nil
	}

	paragraphs := paragraphBreak.Split(text, -1)
	sections := make([]Section, 0, len(paragraphs))
	previous := ""
	for _, raw := range paragraphs {
		p := strings.TrimSpace(raw)
		if p == "" {
			continue
		}
		heading := previous
		previous = p

		if utf8.RuneCountInString(p) < config.MinParagraphLength {
			continue
		}
		score := scoreParagraph(tokens, p)
		if score == 0 {
			continue
		}
		s := Section{Text: p, Score: score}
		if isHeading(heading) {
			s.Heading = heading
			s.Score *= config.HeadingScoreBoost
		}
		sections = append(sections, s)
	}

	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].Score > sections[j].Score
	})
	if len(sections) > limit {
		sections = sections[:limit]
	}
	return sections
}

func queryTokens(query string) []string {
	var tokens []string
	for _, f := range strings.Fields(query) {
		if utf8.RuneCountInString(f) < config.MinQueryTokenLength {
			continue
		}
		tokens = append(tokens, strings.ToLower(f))
	}
	return tokens
}

func scoreParagraph(tokens []string, paragraph string) float64 {
	lower := strings.ToLower(paragraph)
	total := 0
	for _, t := range tokens {
		total += strings.Count(lower, t)
	}
	return float64(total)
}

func isHeading(p string) bool {
	if p == "" || utf8.RuneCountInString(p) >= config.MaxHeadingLength {
		return false
	}
	first, _ := utf8.DecodeRuneInString(p)
	return unicode.IsUpper(first) || unicode.IsDigit(first)
}
