package memory

import "strings"

// stopwords are common words excluded from topic extraction.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true,
	"had": true, "has": true, "have": true, "he": true, "her": true,
	"his": true, "i": true, "in": true, "is": true, "it": true, "its": true,
	"my": true, "not": true, "of": true, "on": true, "or": true,
	"she": true, "that": true, "the": true, "their": true, "they": true,
	"this": true, "to": true, "was": true, "we": true, "were": true,
	"what": true, "which": true, "will": true, "with": true, "you": true,
	"your": true,
}

// maxTopics caps the number of extracted keywords per item.
const maxTopics = 8

// ExtractTopics pulls a small set of keywords out of text for topic-based
// search. Words are lowercased, stripped of surrounding punctuation, and
// filtered against a stopword list; the first distinct survivors win.
func ExtractTopics(text string) []string {
	var topics []string
	seen := make(map[string]bool)

	for _, field := range strings.Fields(text) {
		word := strings.ToLower(strings.Trim(field, ".,;:!?\"'()[]{}"))
		if len(word) < 3 || stopwords[word] || seen[word] {
			continue
		}

		seen[word] = true
		topics = append(topics, word)
		if len(topics) >= maxTopics {
			break
		}
	}

	return topics
}
