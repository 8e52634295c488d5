package core

import "strings"

// syntheticWindowSec is the timestamp width assigned to sentence chunks when
// the transcript arrives as plain text with no native segmentation.
const syntheticWindowSec = 5.0

// NormalizeSegments assigns sequential IDs to segments that carry none and
// trims surrounding whitespace. Shape coercion happens once at this boundary;
// downstream code only ever sees Segment values.
func NormalizeSegments(segments []Segment) []Segment {
	out := make([]Segment, 0, len(segments))
	for i, seg := range segments {
		seg.Text = strings.TrimSpace(seg.Text)
		if seg.ID == 0 {
			seg.ID = i
		}
		out = append(out, seg)
	}
	return out
}

// SegmentsFromText splits plain transcript text into sentence-like chunks and
// assigns each a synthetic 5-second-wide timestamp window.
func SegmentsFromText(text string) []Segment {
	sentences := SplitSentences(text)
	segments := make([]Segment, 0, len(sentences))
	for i, sentence := range sentences {
		start := float64(i) * syntheticWindowSec
		segments = append(segments, Segment{
			ID:    i,
			Start: start,
			End:   start + syntheticWindowSec,
			Text:  sentence,
		})
	}
	return segments
}

// SplitSentences breaks text at sentence-ending punctuation followed by
// whitespace. Trailing punctuation stays with its sentence.
func SplitSentences(text string) []string {
	var sentences []string
	var b strings.Builder
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		b.WriteRune(runes[i])
		if isSentenceEnd(runes[i]) && (i+1 == len(runes) || isSpace(runes[i+1])) {
			if s := strings.TrimSpace(b.String()); s != "" {
				sentences = append(sentences, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
