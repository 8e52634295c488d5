package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"videoChat/chat"
	"videoChat/config"
	"videoChat/core"
)

type fakeEmbedder struct{}

func (fakeEmbedder) ModelName() string { return "fake-embed" }

func (fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		sum := sha256.Sum256([]byte(text))
		vec := make([]float32, 8)
		for j := range vec {
			vec[j] = float32(sum[j]) - 127.5
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		IndexBackend: "file",
		IndexRoot:    filepath.Join(dir, "indices"),
	}
	chats, err := chat.Open(filepath.Join(dir, "chat.db"))
	if err != nil {
		t.Fatalf("open chat store: %v", err)
	}
	t.Cleanup(func() { chats.Close() })
	return New(cfg, chats, fakeEmbedder{}, nil, noopCache{})
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func indexTestVideo(t *testing.T, srv *Server, videoID string) {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/videos/"+videoID+"/index", indexRequest{
		Segments: []core.Segment{
			{ID: 0, Start: 0, End: 5, Text: "This video introduces the topic of container networking."},
			{ID: 1, Start: 5, End: 12, Text: "Alice explained how packets traverse the overlay."},
			{ID: 2, Start: 12, End: 20, Text: "The closing section lists further reading material."},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("index returned %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	rec := doJSON(t, newTestServer(t), http.MethodGet, "/public/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health returned %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q", body["status"])
	}
}

func TestIndexEndpoint(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/videos/vid1/index", indexRequest{
		Segments: []core.Segment{
			{ID: 0, Start: 0, End: 5, Text: "A reasonably long transcript segment."},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("index returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp indexResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.VideoID != "vid1" || resp.Count != 1 || resp.Status != "indexed" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestIndexEndpointFromPlainText(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/videos/vid1/index", indexRequest{
		Text: "The first sentence carries enough text to index. The second one also carries enough text.",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("index returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp indexResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Count != 2 {
		t.Errorf("count = %d, want 2", resp.Count)
	}
}

func TestIndexEndpointRejectsEmptyBody(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/videos/vid1/index", indexRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty index request returned %d, want 400", rec.Code)
	}
}

func TestIndexEndpointAllSegmentsTooShort(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/videos/vid1/index", indexRequest{
		Segments: []core.Segment{{ID: 0, Text: "short"}},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("unindexable request returned %d, want 422", rec.Code)
	}
}

func TestChatFlow(t *testing.T) {
	srv := newTestServer(t)
	indexTestVideo(t, srv, "vid1")

	rec := doJSON(t, srv, http.MethodPost, "/videos/vid1/chat", chatRequest{
		Question: "who is speaking in the video",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("chat returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.SessionID == "" {
		t.Error("expected a session id")
	}
	if resp.Answer == "" || resp.Error != "" {
		t.Errorf("unexpected answer/error: %+v", resp)
	}
	if !strings.Contains(resp.Answer, "Alice") {
		t.Errorf("extractive answer should name Alice: %q", resp.Answer)
	}
	if len(resp.Sources) == 0 || len(resp.Sources) > 3 {
		t.Errorf("got %d sources", len(resp.Sources))
	}

	// History shows the question and the answer in order.
	histRec := doJSON(t, srv, http.MethodGet, "/videos/vid1/chat/"+resp.SessionID+"/history", nil)
	if histRec.Code != http.StatusOK {
		t.Fatalf("history returned %d", histRec.Code)
	}
	var hist struct {
		SessionID string         `json:"session_id"`
		Messages  []chat.Message `json:"messages"`
	}
	if err := json.Unmarshal(histRec.Body.Bytes(), &hist); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(hist.Messages) != 2 {
		t.Fatalf("got %d history messages, want 2", len(hist.Messages))
	}
	if hist.Messages[0].Role != "user" || hist.Messages[0].Content != "who is speaking in the video" {
		t.Errorf("first message = %+v", hist.Messages[0])
	}
	if hist.Messages[1].Role != "assistant" || hist.Messages[1].Content != resp.Answer {
		t.Errorf("second message = %+v", hist.Messages[1])
	}
}

func TestChatUnindexedVideo(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/videos/ghost/chat", chatRequest{
		Question: "what is this about",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("chat returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp chatResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Error == "" {
		t.Error("expected error marker for unindexed video")
	}
	if !strings.Contains(resp.Answer, "couldn't find relevant information") {
		t.Errorf("answer = %q", resp.Answer)
	}
	if resp.Sources == nil || len(resp.Sources) != 0 {
		t.Errorf("sources = %v, want empty list", resp.Sources)
	}
}

func TestChatRejectsBlankQuestion(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/videos/vid1/chat", chatRequest{Question: "   "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank question returned %d, want 400", rec.Code)
	}
}

func TestSuggestionsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/videos/vid1/suggestions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("suggestions returned %d", rec.Code)
	}
	var body struct {
		Questions []string `json:"questions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Questions) != 5 {
		t.Errorf("got %d suggestions, want 5", len(body.Questions))
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	t.Setenv("SERVICE_API_KEY", "sekrit")
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/videos/vid1/suggestions", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing key returned %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/videos/vid1/suggestions", nil)
	req.Header.Set("X-API-Key", "sekrit")
	withKey := httptest.NewRecorder()
	srv.Router().ServeHTTP(withKey, req)
	if withKey.Code != http.StatusOK {
		t.Errorf("valid key returned %d, want 200", withKey.Code)
	}

	// Health stays open regardless of the configured key.
	health := doJSON(t, srv, http.MethodGet, "/public/health", nil)
	if health.Code != http.StatusOK {
		t.Errorf("health with key configured returned %d", health.Code)
	}
}
