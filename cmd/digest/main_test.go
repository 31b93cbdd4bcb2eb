package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const export = "6/28/2024, 9:01 AM - Alice: See you at 5\n" +
	"30/06/2024, 14:05 - Bob: Meeting at 3\n" +
	"6/29/2024, 8:00 PM - Carol: <Media omitted>\n"

func runMessages(t *testing.T, args ...string) (string, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chat.txt")
	if err := os.WriteFile(path, []byte(export), 0644); err != nil {
		t.Fatal(err)
	}

	configPath := ""
	cmd := messagesCmd(&configPath)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{path, "--tz", "UTC"}, args...))
	if err := cmd.Execute(); err != nil {
		t.Fatalf("messages %v: %v", args, err)
	}
	return stdout.String(), stderr.String()
}

func TestMessagesNewestFirstByDefault(t *testing.T) {
	out, _ := runMessages(t)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "Bob") || !strings.Contains(lines[2], "Alice") {
		t.Errorf("unexpected order:\n%s", out)
	}
}

func TestMessagesFlags(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		first string
		count int
	}{
		{"oldest first", []string{"--oldest-first"}, "Alice", 3},
		{"drop media", []string{"--drop-media"}, "Bob", 2},
		{"date range", []string{"--from", "2024-06-29", "--to", "2024-06-29"}, "Carol", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := runMessages(t, tt.args...)
			lines := strings.Split(strings.TrimSpace(out), "\n")
			if len(lines) != tt.count {
				t.Fatalf("got %d lines, want %d:\n%s", len(lines), tt.count, out)
			}
			if !strings.Contains(lines[0], tt.first) {
				t.Errorf("first line = %q, want %s", lines[0], tt.first)
			}
		})
	}
}

func TestMessagesEmptyRangeWarns(t *testing.T) {
	out, errOut := runMessages(t, "--from", "2023-01-01", "--to", "2023-01-31")
	if out != "" {
		t.Errorf("stdout = %q, want empty", out)
	}
	if !strings.Contains(errOut, "warning: no valid messages found") {
		t.Errorf("stderr = %q, want a warning", errOut)
	}
}

func TestMessagesCount(t *testing.T) {
	out, _ := runMessages(t, "--count")
	if want := "3 messages, 2024-06-28 .. 2024-06-30\n"; out != want {
		t.Errorf("count output = %q, want %q", out, want)
	}
}
