package parser

import (
	"strings"
	"time"
)

// SplitConversations 按时间间隔切分对话片段，输入需按时间升序。
// 少于 minMessages 条的片段丢弃。
func SplitConversations(messages []Message, gap time.Duration, minMessages int) []Conversation {
	if len(messages) == 0 {
		return nil
	}

	var conversations []Conversation
	current := Conversation{StartAt: messages[0].Timestamp}

	flush := func() {
		if len(current.Messages) >= minMessages {
			current.EndAt = current.Messages[len(current.Messages)-1].Timestamp
			conversations = append(conversations, current)
		}
	}

	for i, msg := range messages {
		if i > 0 && msg.Timestamp.Sub(messages[i-1].Timestamp) > gap {
			flush()
			current = Conversation{StartAt: msg.Timestamp}
		}
		current.Messages = append(current.Messages, msg)
	}
	flush()

	return conversations
}

// 各语言导出中附件被替换成的占位文本
var mediaPlaceholders = []string{
	"<Media omitted>", "<Médias omis>", "<Multimedia omitido>", "<Mídia oculta>",
	"<Medien ausgeschlossen>", "<media weggelaten>",
	"image omitted", "video omitted", "audio omitted", "sticker omitted",
	"document omitted", "GIF omitted",
}

// DropMedia 过滤附件占位消息
func DropMedia(messages []Message) []Message {
	var filtered []Message
	for _, m := range messages {
		body := m.Body()
		skip := false
		for _, p := range mediaPlaceholders {
			if strings.Contains(body, p) {
				skip = true
				break
			}
		}
		if !skip {
			filtered = append(filtered, m)
		}
	}
	return filtered
}
