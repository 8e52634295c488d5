package qa

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"videoChat/core"
	"videoChat/storage"
)

const (
	// maxSources caps how many cited segments an answer carries.
	maxSources = 3

	// maxSourceChars bounds each cited source snippet.
	maxSourceChars = 200

	noRelevantAnswer = "I couldn't find relevant information in the video transcript. Please try rephrasing your question."
	errNoSegments    = "No relevant segments found"
)

// Engine is the answer router for one video: context assembly, then
// generation with a grounded category prompt when a generator is configured,
// degrading silently to extractive synthesis on any generation failure.
type Engine struct {
	assembler *Assembler
	generator Generator // nil means extractive answers only
}

func NewEngine(index storage.SegmentIndex, generator Generator) *Engine {
	return &Engine{
		assembler: NewAssembler(index),
		generator: generator,
	}
}

// Answer runs one question through the two-tier pipeline and returns the
// normalized response. It never returns an error: every failure mode maps to
// a structured result.
func (e *Engine) Answer(ctx context.Context, question string) core.AnswerResult {
	window := e.assembler.Assemble(ctx, question, DefaultMaxChars)
	if window.Text == "" {
		// Nothing relevant in this video: an expected outcome, marked so the
		// caller can tell it apart from a degraded answer.
		return core.AnswerResult{
			Answer:  noRelevantAnswer,
			Sources: []core.AnswerSource{},
			Error:   errNoSegments,
		}
	}

	answer := ""
	if e.generator != nil {
		generated, err := e.generator.Generate(ctx, SystemPrompt(question), userContent(window.Text, question))
		if err != nil {
			// Silent degrade: generation failure is never user-visible.
			log.Printf("Generation failed, falling back to extractive answer: %v", err)
		} else if strings.TrimSpace(generated) != "" {
			// Successful generation passes through untouched.
			answer = generated
		}
	}
	if answer == "" {
		answer = ExtractiveAnswer(question, window.Text, window.Segments)
	}

	return core.AnswerResult{
		Answer:  answer,
		Sources: buildSources(window.Segments),
	}
}

func userContent(contextText, question string) string {
	return fmt.Sprintf("Transcript segments:\n%s\n\nQuestion: %s\n\nProvide your answer with analytical insights and source citations.\n\nYour Answer:", contextText, question)
}

func buildSources(segments []core.ReferencedSegment) []core.AnswerSource {
	sources := make([]core.AnswerSource, 0, maxSources)
	for _, seg := range segments {
		if len(sources) == maxSources {
			break
		}
		text := seg.Text
		if utf8.RuneCountInString(text) > maxSourceChars {
			text = truncateRunes(text, maxSourceChars) + "..."
		}
		sources = append(sources, core.AnswerSource{
			Text:      text,
			Timestamp: fmt.Sprintf("%.1fs - %.1fs", seg.Start, seg.End),
			Relevance: seg.Score,
		})
	}
	return sources
}

// SuggestedQuestions returns starter questions shown before the first ask.
func SuggestedQuestions() []string {
	return []string{
		"What is this video about?",
		"What are the main points discussed?",
		"Can you summarize the key takeaways?",
		"What was said about [specific topic]?",
		"Tell me more about the [person/concept] mentioned.",
	}
}
