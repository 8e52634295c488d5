package qa

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"videoChat/core"
	"videoChat/storage"
)

const (
	// DefaultMaxChars bounds the assembled context text.
	DefaultMaxChars = 3000

	// earlyWindowSec: segments starting inside the first two minutes count as
	// intro content for overview questions.
	earlyWindowSec = 120.0

	// overviewLimit caps the merged early+semantic list for overview questions.
	overviewLimit = 10

	truncationMarker = "..."
)

// Assembler retrieves candidate segments for a question and reorders and
// bounds them by question category. It holds only a transient view of the
// index and never mutates it.
type Assembler struct {
	index storage.SegmentIndex
}

func NewAssembler(index storage.SegmentIndex) *Assembler {
	return &Assembler{index: index}
}

// Assemble builds the context window for a question. An empty window (empty
// text, no segments) means "no answer possible" and is a normal outcome, not
// an error.
func (a *Assembler) Assemble(ctx context.Context, question string, maxChars int) core.ContextWindow {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	var results []core.RetrievedResult
	switch retrievalCategory(question) {
	case CategoryOverview:
		// Summary questions need intro content even when it is not the
		// closest semantic match: openings rarely restate the video's topic
		// in question-matching language.
		results = a.index.Query(ctx, question, 15)
		results = mergeEarlySegments(results)
	case CategoryCausal:
		// Chronological order makes cause -> effect reasoning checkable.
		results = a.index.Query(ctx, question, 15)
		sort.SliceStable(results, func(i, j int) bool { return results[i].Start < results[j].Start })
	default:
		results = a.index.Query(ctx, question, 10)
	}

	if len(results) == 0 {
		return core.ContextWindow{}
	}

	parts := make([]string, 0, len(results))
	segments := make([]core.ReferencedSegment, 0, len(results))
	for _, result := range results {
		parts = append(parts, fmt.Sprintf("[%.1fs - %.1fs] %s", result.Start, result.End, result.Text))
		segments = append(segments, core.ReferencedSegment{
			Text:  result.Text,
			Start: result.Start,
			End:   result.End,
			Score: result.Score,
		})
	}

	text := strings.Join(parts, " ")
	if utf8.RuneCountInString(text) > maxChars {
		text = truncateRunes(text, maxChars) + truncationMarker
	}
	return core.ContextWindow{Text: text, Segments: segments}
}

// mergeEarlySegments reorders overview retrievals: all early (<120s) results
// first in chronological order, deduplicated by exact text, then the
// remaining time-sorted results until the overview limit. When nothing early
// was retrieved the similarity order is kept as-is.
func mergeEarlySegments(results []core.RetrievedResult) []core.RetrievedResult {
	if len(results) == 0 {
		return results
	}

	timeSorted := make([]core.RetrievedResult, len(results))
	copy(timeSorted, results)
	sort.SliceStable(timeSorted, func(i, j int) bool { return timeSorted[i].Start < timeSorted[j].Start })

	var early []core.RetrievedResult
	for _, r := range timeSorted {
		if r.Start < earlyWindowSec {
			early = append(early, r)
		}
	}
	if len(early) == 0 {
		return results
	}

	seen := make(map[string]bool)
	combined := make([]core.RetrievedResult, 0, overviewLimit)
	for _, r := range early {
		if !seen[r.Text] {
			combined = append(combined, r)
			seen[r.Text] = true
		}
	}
	for _, r := range timeSorted {
		if len(combined) >= overviewLimit {
			break
		}
		if !seen[r.Text] {
			combined = append(combined, r)
			seen[r.Text] = true
		}
	}
	return combined
}
