package qa

import (
	"fmt"
	"regexp"
	"strings"

	"videoChat/core"
)

// Extractive fallback: deterministic, rule-based answer synthesis straight
// from the retrieved segment text. No external calls. Used whenever no
// generation capability is configured or a generation call fails.
//
// The heuristics are tuned to an English dialogue register. Clients depend on
// the exact templates and fixed messages; treat them as frozen.

const (
	msgNoUsableText    = "I found relevant information but couldn't generate an answer. Please try rephrasing your question."
	msgNoClearAnswer   = "I found relevant segments but couldn't extract a clear answer."
	msgUnnamedSpeakers = "The transcript contains dialogue between speakers."
)

var (
	// A capitalized token immediately before a speech-attribution verb is
	// treated as a speaker name.
	attributedNameRe = regexp.MustCompile(`\b([A-Z][a-z]+)\s+(?:says?|stated|mentioned|explained|told|asked|answered)\b`)
	capitalizedRe    = regexp.MustCompile(`\b([A-Z][a-z]+)\b`)
)

// commonNonNames excludes capitalized words that are not names: pronouns,
// articles, weekdays, months.
var commonNonNames = map[string]bool{
	"I": true, "Monday": true, "Tuesday": true, "Wednesday": true, "Thursday": true,
	"Friday": true, "Saturday": true, "Sunday": true,
	"January": true, "February": true, "March": true, "April": true, "May": true,
	"June": true, "July": true, "August": true, "September": true, "October": true,
	"November": true, "December": true,
	"The": true, "A": true, "An": true, "This": true, "That": true, "It": true,
	"He": true, "She": true, "We": true, "They": true, "You": true,
	"But": true, "And": true, "Or": true, "So": true,
}

// ExtractiveAnswer synthesizes an answer from the referenced segments, or
// from the raw context text when no segments are available.
func ExtractiveAnswer(question, contextText string, segments []core.ReferencedSegment) string {
	if len(segments) == 0 {
		if len(strings.TrimSpace(contextText)) > 20 {
			return answerFromContext(question, contextText)
		}
		return msgNoUsableText
	}

	texts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if len(seg.Text) > 5 {
			texts = append(texts, seg.Text)
		}
	}
	if len(texts) == 0 {
		return msgNoClearAnswer
	}

	switch fallbackCategory(question) {
	case CategoryOverview:
		return summaryAnswer(texts)
	case CategoryPerson:
		return personAnswer(texts)
	case CategoryCausal:
		return explanationAnswer(texts)
	case CategoryQuote:
		// Direct quotes keep the original wording, never a paraphrase.
		if len(texts) > 2 {
			texts = texts[:2]
		}
		return strings.Join(texts, ". ")
	default:
		return summaryAnswer(texts)
	}
}

// summaryAnswer dedupes sentences across the segment texts and phrases a
// templated factual statement around the first topic fragment. It never
// fabricates thematic interpretation beyond what the text contains.
func summaryAnswer(texts []string) string {
	combined := strings.Join(texts, " ")

	seen := make(map[string]bool)
	var unique []string
	for _, sentence := range strings.Split(combined, ".") {
		sentence = strings.TrimSpace(sentence)
		lower := strings.ToLower(sentence)
		if sentence != "" && len(sentence) > 20 && !seen[lower] {
			unique = append(unique, sentence)
			seen[lower] = true
		}
	}
	if len(unique) > 3 {
		unique = unique[:3]
	}

	if len(unique) > 0 {
		firstTopic := truncateRunes(unique[0], 100)
		return fmt.Sprintf("The video contains content related to: %s. The transcript covers various points on the subject.", firstTopic)
	}
	return "The video contains dialogue and content on the requested topic."
}

// personAnswer pulls explicit speaker names out of the texts. When no name
// survives the filters it states neutrally that speakers are unnamed; it
// never invents a name.
func personAnswer(texts []string) string {
	combined := strings.Join(texts, " ")

	var candidates []string
	for _, m := range attributedNameRe.FindAllStringSubmatch(combined, -1) {
		candidates = append(candidates, m[1])
	}
	if len(candidates) == 0 {
		for _, m := range capitalizedRe.FindAllStringSubmatch(combined, -1) {
			candidates = append(candidates, m[1])
		}
	}

	seen := make(map[string]bool)
	var names []string
	for _, name := range candidates {
		if commonNonNames[name] || seen[name] {
			continue
		}
		names = append(names, name)
		seen[name] = true
		if len(names) == 3 { // cap to avoid false positives
			break
		}
	}

	if len(names) > 0 {
		return fmt.Sprintf("The following names appear in the transcript: %s.", strings.Join(names, ", "))
	}
	return msgUnnamedSpeakers
}

// explanationAnswer wraps the first sentence of the combined text in a
// templated explanatory frame.
func explanationAnswer(texts []string) string {
	combined := strings.Join(texts, " ")
	first := combined
	if idx := strings.Index(combined, "."); idx >= 0 {
		first = combined[:idx]
	}
	first = truncateRunes(first, 100)
	if strings.TrimSpace(first) == "" {
		first = "the topic"
	}
	return fmt.Sprintf("The video covers: %s. This addresses the key points related to your question.", first)
}

// answerFromContext handles the segment-less path using the raw context
// string.
func answerFromContext(question, contextText string) string {
	var sentences []string
	for _, s := range core.SplitSentences(contextText) {
		if len(strings.TrimSpace(s)) > 20 {
			sentences = append(sentences, strings.TrimSpace(s))
		}
	}
	if len(sentences) == 0 {
		return "The video covers the topic in detail."
	}

	q := strings.ToLower(question)
	switch {
	case containsAny(q, "about", "summary", "what"):
		n := len(sentences)
		if n > 3 {
			n = 3
		}
		points := truncateRunes(strings.Join(sentences[:n], ". "), 150)
		return fmt.Sprintf("The video discusses: %s...", points)
	case strings.Contains(q, "who"):
		for _, s := range sentences {
			if containsAny(strings.ToLower(s), "he", "she", "they", "person", "speaker", "author", "presenter") {
				return "The video features discussions involving relevant individuals."
			}
		}
		return "The video covers content related to your question."
	default:
		return "The video addresses your question with relevant content covering the main points."
	}
}

// truncateRunes bounds s to max characters, never splitting a multi-byte
// rune. Transcripts are frequently non-ASCII; byte slicing would hand the
// model invalid UTF-8.
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
