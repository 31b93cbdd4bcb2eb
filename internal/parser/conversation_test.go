package parser

import (
	"testing"
	"time"
)

func TestSplitConversations(t *testing.T) {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	at := func(min int) Message {
		return Message{Timestamp: base.Add(time.Duration(min) * time.Minute), RawLine: "x"}
	}
	msgs := []Message{at(0), at(5), at(10), at(120), at(300), at(302)}

	got := SplitConversations(msgs, 30*time.Minute, 2)
	if len(got) != 2 {
		t.Fatalf("got %d conversations, want 2", len(got))
	}
	if len(got[0].Messages) != 3 || len(got[1].Messages) != 2 {
		t.Errorf("conversation sizes = %d, %d, want 3, 2", len(got[0].Messages), len(got[1].Messages))
	}
	if !got[0].StartAt.Equal(at(0).Timestamp) || !got[0].EndAt.Equal(at(10).Timestamp) {
		t.Errorf("first conversation span = %v..%v", got[0].StartAt, got[0].EndAt)
	}

	if got := SplitConversations(nil, time.Minute, 1); got != nil {
		t.Errorf("SplitConversations(nil) = %v, want nil", got)
	}
	if got := SplitConversations(msgs, 30*time.Minute, 1); len(got) != 3 {
		t.Errorf("minMessages=1 kept %d conversations, want 3", len(got))
	}
}

func TestDropMedia(t *testing.T) {
	text := "01/01/2024, 10:00 - A: <Media omitted>\n" +
		"01/01/2024, 10:01 - A: look at this\n" +
		"01/01/2024, 10:02 - B: image omitted"

	got := DropMedia(ParseInLocation(text, time.UTC))
	if len(got) != 1 || got[0].Body() != "look at this" {
		t.Errorf("DropMedia() = %v, want only the text message", got)
	}
}
