package ai

import "strings"

// searchKeywords are the content markers that make a note worth an external
// web search. Matched case-insensitively as substrings.
var searchKeywords = []string{
	"preço", "custo", "valor", "mercado", "tendência",
	"notícia", "evento", "conferência", "curso",
	"empresa", "startup", "investimento", "ação",
	"tecnologia", "ferramenta", "app", "software",
}

// stopWords are common Portuguese words excluded from keyword extraction.
var stopWords = map[string]struct{}{
	"o": {}, "a": {}, "os": {}, "as": {}, "um": {}, "uma": {},
	"de": {}, "do": {}, "da": {}, "dos": {}, "das": {},
	"em": {}, "no": {}, "na": {}, "nos": {}, "nas": {},
	"para": {}, "por": {}, "com": {}, "sem": {},
	"e": {}, "ou": {}, "mas": {}, "que": {}, "se": {},
	"é": {}, "são": {}, "foi": {}, "foram": {},
}

const maxKeywords = 10

// shouldSearchExternalInfo reports whether the note content mentions any of
// the search trigger topics.
func shouldSearchExternalInfo(content string) bool {
	lower := strings.ToLower(content)
	for _, keyword := range searchKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// extractKeywords pulls the significant words out of note content: lowercase,
// longer than three characters, stop words removed, duplicates dropped,
// capped at ten in order of first appearance.
func extractKeywords(content string) []string {
	words := strings.Fields(strings.ToLower(content))
	seen := make(map[string]struct{}, len(words))
	keywords := make([]string, 0, maxKeywords)

	for _, word := range words {
		if len([]rune(word)) <= 3 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

// keywordSimilarity scores how much of the keyword set appears in the
// candidate content. Returns 0 for an empty keyword set.
func keywordSimilarity(keywords []string, content string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	lower := strings.ToLower(content)
	matched := 0
	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			matched++
		}
	}
	return float64(matched) / float64(len(keywords))
}
