package core

import (
	"encoding/json"
	"net/http"
)

// ========== 基础数据结构 ==========

// Segment is a timestamped span of transcript text, the atomic unit of
// indexing and citation. Produced by the transcription side; immutable here.
type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// SegmentMeta is the per-document metadata an index keeps aligned with its
// stored texts.
type SegmentMeta struct {
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	SegmentID int     `json:"segment_id"`
}

// RetrievedResult is one similarity hit for a query. Score is cosine
// similarity in [-1, 1], higher = more similar. Never persisted.
type RetrievedResult struct {
	Text  string      `json:"text"`
	Score float64     `json:"score"`
	Start float64     `json:"start"`
	End   float64     `json:"end"`
	Meta  SegmentMeta `json:"metadata"`
}

// ReferencedSegment is a segment cited by an assembled context, untruncated.
type ReferencedSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Score float64 `json:"score"`
}

// ContextWindow is the bounded context handed to answer generation plus the
// segments it was built from, in the same order. Rebuilt per question.
type ContextWindow struct {
	Text     string              `json:"text"`
	Segments []ReferencedSegment `json:"segments"`
}

type AnswerSource struct {
	Text      string  `json:"text"`
	Timestamp string  `json:"timestamp"`
	Relevance float64 `json:"relevance"`
}

// AnswerResult is the final response shape for one question. Error marks the
// expected "nothing relevant in this video" outcome, not a system fault.
type AnswerResult struct {
	Answer  string         `json:"answer"`
	Sources []AnswerSource `json:"sources"`
	Error   string         `json:"error,omitempty"`
}

// ========== 工具函数 ==========

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
