package chat

import (
	"context"
	"path/filepath"
	"testing"

	"videoChat/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestEnsureSessionCreatesAndReuses(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	created, err := store.EnsureSession(ctx, "vid1", "")
	if err != nil {
		t.Fatalf("EnsureSession: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected a generated session id")
	}
	if created.VideoID != "vid1" {
		t.Errorf("video id = %q, want vid1", created.VideoID)
	}

	reused, err := store.EnsureSession(ctx, "vid1", created.ID)
	if err != nil {
		t.Fatalf("EnsureSession reuse: %v", err)
	}
	if reused.ID != created.ID {
		t.Errorf("reused id = %q, want %q", reused.ID, created.ID)
	}
	if !reused.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("created_at changed on reuse: %v vs %v", reused.CreatedAt, created.CreatedAt)
	}

	named, err := store.EnsureSession(ctx, "vid2", "client-chosen-id")
	if err != nil {
		t.Fatalf("EnsureSession named: %v", err)
	}
	if named.ID != "client-chosen-id" {
		t.Errorf("named session id = %q", named.ID)
	}
}

func TestMessagesRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	sess, err := store.EnsureSession(ctx, "vid1", "")
	if err != nil {
		t.Fatalf("EnsureSession: %v", err)
	}

	if err := store.AppendMessage(ctx, sess.ID, "user", "what is this about?", nil); err != nil {
		t.Fatalf("AppendMessage user: %v", err)
	}
	sources := []core.AnswerSource{
		{Text: "the opening segment", Timestamp: "0.0s - 5.0s", Relevance: 0.92},
	}
	if err := store.AppendMessage(ctx, sess.ID, "assistant", "It covers Go testing.", sources); err != nil {
		t.Fatalf("AppendMessage assistant: %v", err)
	}

	messages, err := store.History(ctx, sess.ID, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}
	if messages[0].Role != "user" || messages[1].Role != "assistant" {
		t.Errorf("messages out of order: %q then %q", messages[0].Role, messages[1].Role)
	}
	if messages[0].Sources != nil {
		t.Errorf("user message has sources: %v", messages[0].Sources)
	}
	got := messages[1].Sources
	if len(got) != 1 || got[0].Timestamp != "0.0s - 5.0s" || got[0].Relevance != 0.92 {
		t.Errorf("assistant sources round trip failed: %+v", got)
	}
	if messages[0].CreatedAt.IsZero() {
		t.Error("created_at not persisted")
	}
}

func TestHistoryScopedToSession(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	a, _ := store.EnsureSession(ctx, "vid1", "")
	b, _ := store.EnsureSession(ctx, "vid1", "")
	store.AppendMessage(ctx, a.ID, "user", "message for a", nil)
	store.AppendMessage(ctx, b.ID, "user", "message for b", nil)

	messages, err := store.History(ctx, a.ID, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(messages) != 1 || messages[0].Content != "message for a" {
		t.Errorf("history leaked across sessions: %+v", messages)
	}
}

func TestHistoryLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	sess, _ := store.EnsureSession(ctx, "vid1", "")
	for i := 0; i < 5; i++ {
		store.AppendMessage(ctx, sess.ID, "user", "m", nil)
	}
	messages, err := store.History(ctx, sess.ID, 3)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(messages) != 3 {
		t.Errorf("got %d messages, want limit 3", len(messages))
	}
}
