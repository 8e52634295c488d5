package qa

import (
	"strings"
	"testing"
	"unicode/utf8"

	"videoChat/core"
)

func refSegments(texts ...string) []core.ReferencedSegment {
	segments := make([]core.ReferencedSegment, len(texts))
	for i, text := range texts {
		segments[i] = core.ReferencedSegment{Text: text, Start: float64(i) * 10, End: float64(i)*10 + 10}
	}
	return segments
}

func TestExtractiveAnswerQuoteJoinsFirstTwo(t *testing.T) {
	segments := refSegments(
		"we should ship on Friday no matter what",
		"the tests are green already",
		"a third segment that must not appear",
	)
	answer := ExtractiveAnswer("what did he say during the meeting", "", segments)
	want := "we should ship on Friday no matter what. the tests are green already"
	if answer != want {
		t.Errorf("quote answer = %q, want %q", answer, want)
	}
}

func TestExtractiveAnswerPersonNames(t *testing.T) {
	segments := refSegments(
		"Alice explained the architecture while Bob asked about latency.",
		"Later Alice mentioned the rollout plan.",
	)
	answer := ExtractiveAnswer("who is talking in this video", "", segments)
	if answer != "The following names appear in the transcript: Alice, Bob." {
		t.Errorf("person answer = %q", answer)
	}
}

func TestExtractiveAnswerPersonExcludesNonNames(t *testing.T) {
	segments := refSegments("He said it. They told us. The Monday deadline slipped.")
	answer := ExtractiveAnswer("who said that", "", segments)
	if answer != msgUnnamedSpeakers {
		t.Errorf("answer = %q, want the unnamed-speakers message", answer)
	}
}

func TestExtractiveAnswerSummaryDedupes(t *testing.T) {
	segments := refSegments(
		"The pipeline processes video transcripts end to end.",
		"The pipeline processes video transcripts end to end.",
	)
	answer := ExtractiveAnswer("what is this about", "", segments)
	if !strings.HasPrefix(answer, "The video contains content related to: The pipeline processes video transcripts end to end") {
		t.Errorf("summary answer = %q", answer)
	}
	if strings.Count(answer, "The pipeline processes") != 1 {
		t.Errorf("duplicate sentence not removed: %q", answer)
	}
}

func TestExtractiveAnswerExplanation(t *testing.T) {
	segments := refSegments("Caching was added to cut latency. Other details follow.")
	answer := ExtractiveAnswer("why was caching added", "", segments)
	want := "The video covers: Caching was added to cut latency. This addresses the key points related to your question."
	if answer != want {
		t.Errorf("explanation answer = %q, want %q", answer, want)
	}
}

func TestExtractiveAnswerNoSegmentsShortContext(t *testing.T) {
	answer := ExtractiveAnswer("anything", "too short", nil)
	if answer != msgNoUsableText {
		t.Errorf("answer = %q, want the no-usable-text message", answer)
	}
}

func TestExtractiveAnswerNoSegmentsUsesContext(t *testing.T) {
	contextText := "The talk walks through the deployment pipeline in detail. It then covers rollback procedures step by step."
	answer := ExtractiveAnswer("what is this about", contextText, nil)
	if !strings.HasPrefix(answer, "The video discusses: ") {
		t.Errorf("context-based answer = %q", answer)
	}

	whoAnswer := ExtractiveAnswer("who is presenting", "The speaker goes through the agenda before the presenter takes questions.", nil)
	if whoAnswer != "The video features discussions involving relevant individuals." {
		t.Errorf("who answer = %q", whoAnswer)
	}
}

func TestExtractiveAnswerAllTextsTooShort(t *testing.T) {
	answer := ExtractiveAnswer("anything", "", refSegments("ok", "no"))
	if answer != msgNoClearAnswer {
		t.Errorf("answer = %q, want the no-clear-answer message", answer)
	}
}

func TestTruncateRunesMultiByte(t *testing.T) {
	got := truncateRunes(strings.Repeat("数", 10), 4)
	if got != "数数数数" {
		t.Errorf("truncated = %q, want 4 whole characters", got)
	}
	if !utf8.ValidString(got) {
		t.Errorf("truncated string is not valid UTF-8: %q", got)
	}
	if s := "short"; truncateRunes(s, 10) != s {
		t.Error("string under the limit must come back unchanged")
	}
}

func TestExtractiveAnswerDeterministic(t *testing.T) {
	segments := refSegments(
		"Carol answered the question about scaling.",
		"Dave explained the sharding scheme.",
	)
	first := ExtractiveAnswer("who spoke", "", segments)
	for i := 0; i < 5; i++ {
		if got := ExtractiveAnswer("who spoke", "", segments); got != first {
			t.Fatalf("answer changed between runs: %q vs %q", first, got)
		}
	}
	if first != "The following names appear in the transcript: Carol, Dave." {
		t.Errorf("answer = %q", first)
	}
}
