package main

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	overlay "github.com/kkkz76/askvox/core"
	"github.com/kkkz76/askvox/core/conversation"
)

func TestNextTagCycles(t *testing.T) {
	tag := ""
	for _, want := range []string{conversation.TagWebSearch, conversation.TagImage, conversation.TagVideo, ""} {
		tag = nextTag(tag)
		if tag != want {
			t.Fatalf("expected tag %q, got %q", want, tag)
		}
	}
	if got := nextTag("unknown"); got != "" {
		t.Fatalf("expected unknown tag to reset, got %q", got)
	}
}

func TestViewHidesConversationUntilVisible(t *testing.T) {
	m := newModel(context.Background(), overlay.New())

	if strings.Contains(m.View(), conversation.DefaultGreeting) {
		t.Fatalf("expected hidden overlay not to render messages")
	}

	updated, _ := m.Update(avatarMsg(overlay.Avatar{Awake: true, Visible: true}))
	if view := updated.View(); !strings.Contains(view, "How can I assist") {
		t.Fatalf("expected greeting in view, got %q", view)
	}
}

func TestViewShowsMediaHint(t *testing.T) {
	m := newModel(context.Background(), overlay.New())
	log := conversation.Log{Messages: []conversation.Message{
		{Role: conversation.RoleAssistant, Content: "https://example.com/cat.png"},
	}}

	updated, _ := m.Update(avatarMsg(overlay.Avatar{Visible: true}))
	updated, _ = updated.Update(conversationMsg{log: log, state: conversation.StateIdle})
	if view := updated.View(); !strings.Contains(view, "image: https://example.com/cat.png") {
		t.Fatalf("expected image hint in view, got %q", view)
	}
}

func TestEscQuits(t *testing.T) {
	m := newModel(context.Background(), overlay.New())
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit message")
	}
}

func TestWakeAndToggleRunAsCommands(t *testing.T) {
	m := newModel(context.Background(), overlay.New())
	for _, key := range []tea.KeyType{tea.KeyCtrlW, tea.KeyCtrlV} {
		_, cmd := m.Update(tea.KeyMsg{Type: key})
		if cmd == nil {
			t.Fatalf("expected %s to return a command", tea.KeyMsg{Type: key})
		}
		if msg := cmd(); msg != nil {
			t.Fatalf("expected no message from %s, got %v", tea.KeyMsg{Type: key}, msg)
		}
	}
}
