package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"google.golang.org/genai"

	"github.com/liao/wa-digest/internal/analyzer"
	"github.com/liao/wa-digest/internal/chat"
	"github.com/liao/wa-digest/internal/config"
	"github.com/liao/wa-digest/internal/source"
)

type fakeModel struct {
	reply    string
	failures int // GenerateChat 前几次调用失败
	systems  []string
	history  [][]*genai.Content
	prompts  []string
}

func (f *fakeModel) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, nil
}

func (f *fakeModel) GenerateChat(ctx context.Context, systemPrompt string, history []*genai.Content, userMsg string) (string, error) {
	f.systems = append(f.systems, systemPrompt)
	f.history = append(f.history, history)
	if f.failures > 0 {
		f.failures--
		return "", errors.New("503")
	}
	return f.reply, nil
}

func newTestBot(t *testing.T, llm *fakeModel, text string) *Bot {
	t.Helper()
	mgr, err := chat.NewManager(5, "", "chat.txt")
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{}
	opts := analyzer.Options{Location: time.UTC}
	return New(cfg, llm, analyzer.New(llm, nil, 0), mgr, source.Text{Body: text}, opts)
}

func recentExport() string {
	d := time.Now().AddDate(0, 0, -1)
	return fmt.Sprintf("%02d/%02d/%d, 10:00 - Ana: dentist on Friday\nold line", d.Day(), int(d.Month()), d.Year())
}

func TestHandleQuestionKeepsHistory(t *testing.T) {
	llm := &fakeModel{reply: " Friday "}
	b := newTestBot(t, llm, recentExport())

	if got := b.handleQuestion(context.Background(), "when is the dentist?"); got != "Friday" {
		t.Errorf("handleQuestion() = %q, want Friday", got)
	}
	if !strings.Contains(llm.systems[0], "Ana: dentist on Friday") {
		t.Errorf("system prompt missing chat content: %q", llm.systems[0])
	}

	b.handleQuestion(context.Background(), "which day again?")
	if len(llm.history[1]) != 2 {
		t.Errorf("second question sent %d history entries, want 2", len(llm.history[1]))
	}
}

func TestHandleQuestionFallback(t *testing.T) {
	llm := &fakeModel{reply: "ok", failures: 1}
	b := newTestBot(t, llm, recentExport())
	b.chat.AddQuestion("earlier")
	b.chat.AddAnswer("earlier answer")

	if got := b.handleQuestion(context.Background(), "q"); got != "ok" {
		t.Errorf("handleQuestion() = %q, want ok", got)
	}
	if len(llm.history) != 2 || llm.history[1] != nil {
		t.Errorf("fallback should retry without history, got %d calls", len(llm.history))
	}

	llm.failures = 2
	if got := b.handleQuestion(context.Background(), "q"); !strings.Contains(got, "could not reach") {
		t.Errorf("handleQuestion() = %q, want model error message", got)
	}
}

func TestHandleQuestionNoMessages(t *testing.T) {
	llm := &fakeModel{}
	b := newTestBot(t, llm, "no headers here")
	if got := b.handleQuestion(context.Background(), "q"); got != "No valid messages found in the chat file." {
		t.Errorf("handleQuestion() = %q", got)
	}
	if len(llm.systems) != 0 {
		t.Error("model called without messages")
	}
}

func TestHandleSummary(t *testing.T) {
	llm := &fakeModel{reply: "- dentist Friday"}
	b := newTestBot(t, llm, recentExport())

	if got := b.handleSummary(context.Background(), ""); got != "- dentist Friday" {
		t.Errorf("handleSummary() = %q", got)
	}
	if !strings.Contains(llm.prompts[0], "last 7 days") {
		t.Errorf("prompt = %q", llm.prompts[0])
	}

	if got := b.handleSummary(context.Background(), "abc"); got != "usage: /summary [days]" {
		t.Errorf("handleSummary(abc) = %q", got)
	}

	old := newTestBot(t, llm, "01/01/2001, 10:00 - Ana: ancient")
	if got := old.handleSummary(context.Background(), "3"); got != "No recent messages." {
		t.Errorf("handleSummary() = %q, want no recent messages", got)
	}
}
