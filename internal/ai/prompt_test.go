package ai

import (
	"strings"
	"testing"
)

const transcript = "30/06/2024, 14:05 - Bob: Meeting at 3\n30/06/2024, 14:06 - Alice: https://meet.example.com/x"

func TestPromptsEmbedTranscriptVerbatim(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		want   []string
	}{
		{"summary", SummaryPrompt(transcript), []string{"1. Summary", "4. Tasks"}},
		{"reminders", RemindersPrompt(transcript, 7), []string{"last 7 days", "Reminders"}},
		{"structured", StructuredPrompt(transcript), []string{"important_messages", "schedules"}},
		{"question", QuestionPrompt("  What meetings are planned? ", transcript), []string{"User's question:\nWhat meetings are planned?\n"}},
		{"qa system", QASystemPrompt(transcript), []string{"Answer only from the chat content"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(tt.prompt, transcript) {
				t.Errorf("prompt does not contain transcript verbatim:\n%s", tt.prompt)
			}
			for _, w := range tt.want {
				if !strings.Contains(tt.prompt, w) {
					t.Errorf("prompt missing %q", w)
				}
			}
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{}\n```", "{}"},
		{"  {\"links\":[]}  ", `{"links":[]}`},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := StripCodeFence(tt.input); got != tt.want {
				t.Errorf("StripCodeFence(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
