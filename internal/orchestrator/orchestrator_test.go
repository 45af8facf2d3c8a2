package orchestrator

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stupiduntilnot/omnichat/internal/chat"
	"github.com/stupiduntilnot/omnichat/internal/history"
	"github.com/stupiduntilnot/omnichat/internal/model"
)

type fakeProvider struct {
	replies []string
	err     error
	calls   [][]chat.Message
}

func (p *fakeProvider) ChatCompletion(messages []chat.Message) (model.CompletionResponse, error) {
	p.calls = append(p.calls, messages)
	if p.err != nil {
		return model.CompletionResponse{}, p.err
	}
	reply := p.replies[0]
	if len(p.replies) > 1 {
		p.replies = p.replies[1:]
	}
	return model.CompletionResponse{Content: reply, InputTokens: 1, OutputTokens: 1}, nil
}

func setupStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	return store
}

func TestHandleMessage_FirstExchange(t *testing.T) {
	store := setupStore(t)
	provider := &fakeProvider{replies: []string{"hello"}}
	orch := New(store, provider, history.DefaultSession, "be helpful", 3)

	reply, err := orch.HandleMessage("hi")
	if err != nil {
		t.Fatal(err)
	}
	if reply != "hello" {
		t.Errorf("expected 'hello', got %q", reply)
	}

	window, err := store.Recent(history.DefaultSession, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(window) != 2 {
		t.Fatalf("expected 2 stored turns, got %d", len(window))
	}
	if window[0].Role != chat.RoleUser || window[0].Content != "hi" {
		t.Errorf("unexpected first turn: %+v", window[0])
	}
	if window[1].Role != chat.RoleAssistant || window[1].Content != "hello" {
		t.Errorf("unexpected second turn: %+v", window[1])
	}
}

func TestHandleMessage_RequestIncludesWindowInOrder(t *testing.T) {
	store := setupStore(t)
	provider := &fakeProvider{replies: []string{"r1", "r2"}}
	orch := New(store, provider, history.DefaultSession, "sys", 10)

	if _, err := orch.HandleMessage("first"); err != nil {
		t.Fatal(err)
	}
	if _, err := orch.HandleMessage("second"); err != nil {
		t.Fatal(err)
	}

	if len(provider.calls) != 2 {
		t.Fatalf("expected 2 provider calls, got %d", len(provider.calls))
	}
	got := provider.calls[1]
	want := []chat.Message{
		{Role: chat.RoleSystem, Content: "sys"},
		{Role: chat.RoleUser, Content: "first"},
		{Role: chat.RoleAssistant, Content: "r1"},
		{Role: chat.RoleUser, Content: "second"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d messages, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestHandleMessage_WindowIsBounded(t *testing.T) {
	store := setupStore(t)
	provider := &fakeProvider{replies: []string{"reply"}}
	orch := New(store, provider, history.DefaultSession, "sys", 2)

	for i := 1; i <= 5; i++ {
		if _, err := store.Append(history.DefaultSession, chat.RoleUser, fmt.Sprintf("old%d", i)); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := orch.HandleMessage("new"); err != nil {
		t.Fatal(err)
	}

	// system + 2 window turns + new user message.
	got := provider.calls[0]
	if len(got) != 4 {
		t.Fatalf("expected 4 messages, got %d: %+v", len(got), got)
	}
	if got[1].Content != "old4" || got[2].Content != "old5" {
		t.Errorf("expected the last two turns as window, got %+v", got[1:3])
	}
}

func TestHandleMessage_ZeroMemory(t *testing.T) {
	store := setupStore(t)
	provider := &fakeProvider{replies: []string{"reply"}}
	orch := New(store, provider, history.DefaultSession, "sys", 0)

	if _, err := store.Append(history.DefaultSession, chat.RoleUser, "older"); err != nil {
		t.Fatal(err)
	}

	if _, err := orch.HandleMessage("now"); err != nil {
		t.Fatal(err)
	}

	got := provider.calls[0]
	if len(got) != 2 {
		t.Fatalf("expected system + user only, got %d: %+v", len(got), got)
	}
	if got[1].Content != "now" {
		t.Errorf("unexpected user message: %+v", got[1])
	}
}

func TestHandleMessage_ProviderFailureLeavesNoTrace(t *testing.T) {
	store := setupStore(t)
	provider := &fakeProvider{err: errors.New("timeout")}
	orch := New(store, provider, history.DefaultSession, "sys", 3)

	_, err := orch.HandleMessage("hi")
	if err == nil {
		t.Fatal("expected generation error")
	}
	var ge *GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("expected GenerationError, got %T: %v", err, err)
	}

	n, err := store.Count(history.DefaultSession)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected no stored turns after failed call, got %d", n)
	}
}

func TestHandleMessage_EmptyReplyIsGenerationError(t *testing.T) {
	store := setupStore(t)
	provider := &fakeProvider{replies: []string{"   "}}
	orch := New(store, provider, history.DefaultSession, "sys", 3)

	_, err := orch.HandleMessage("hi")
	var ge *GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("expected GenerationError for empty reply, got %v", err)
	}
	if n, _ := store.Count(history.DefaultSession); n != 0 {
		t.Errorf("expected no stored turns, got %d", n)
	}
}

func TestHandleMessage_DecodesReplyEnvelope(t *testing.T) {
	store := setupStore(t)
	provider := &fakeProvider{replies: []string{`{"type":"reply","text":"decoded answer"}`}}
	orch := New(store, provider, history.DefaultSession, "sys", 3)

	reply, err := orch.HandleMessage("hi")
	if err != nil {
		t.Fatal(err)
	}
	if reply != "decoded answer" {
		t.Errorf("expected decoded envelope text, got %q", reply)
	}

	window, err := store.Recent(history.DefaultSession, 2)
	if err != nil {
		t.Fatal(err)
	}
	if window[1].Content != "decoded answer" {
		t.Errorf("expected decoded text persisted, got %q", window[1].Content)
	}
}

func TestHandleMessage_SuccessAddsExactlyTwoTurns(t *testing.T) {
	store := setupStore(t)
	provider := &fakeProvider{replies: []string{"a", "b", "c"}}
	orch := New(store, provider, history.DefaultSession, "sys", 4)

	for i, text := range []string{"one", "two", "three"} {
		if _, err := orch.HandleMessage(text); err != nil {
			t.Fatal(err)
		}
		n, err := store.Count(history.DefaultSession)
		if err != nil {
			t.Fatal(err)
		}
		if n != (i+1)*2 {
			t.Fatalf("after exchange %d expected %d turns, got %d", i+1, (i+1)*2, n)
		}
	}
}

func TestHandleMessage_StorageFailurePropagates(t *testing.T) {
	store := setupStore(t)
	provider := &fakeProvider{replies: []string{"reply"}}
	orch := New(store, provider, history.DefaultSession, "sys", 3)
	store.Close()

	_, err := orch.HandleMessage("hi")
	if err == nil {
		t.Fatal("expected storage error")
	}
	var se *history.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %T: %v", err, err)
	}
}
