package parser

import (
	"strings"
	"time"
)

// Message 一条带时间头的导出行
type Message struct {
	Timestamp time.Time
	RawLine   string // 原始行，不做任何修改
	Line      int    // 在导出文本中的行号（从 0 开始）
}

// Sender 返回 "-" 之后、第一个 ":" 之前的发送者；系统消息返回空串
func (m Message) Sender() string {
	rest := m.remainder()
	i := strings.Index(rest, ": ")
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:i])
}

// Body 返回去掉时间头和发送者之后的正文
func (m Message) Body() string {
	rest := m.remainder()
	if i := strings.Index(rest, ": "); i >= 0 {
		return strings.TrimSpace(rest[i+2:])
	}
	return strings.TrimSpace(rest)
}

func (m Message) remainder() string {
	loc := headerRe.FindStringIndex(m.RawLine)
	if loc == nil {
		return m.RawLine
	}
	return m.RawLine[loc[1]:]
}

// Conversation 一段连续对话（按空闲间隔切分）
type Conversation struct {
	Messages []Message
	StartAt  time.Time
	EndAt    time.Time
}

// Transcript 将对话还原为原始行文本
func (c *Conversation) Transcript() string {
	return Transcript(c.Messages)
}

// Transcript 按给定顺序用换行拼接 RawLine，作为发给模型的聊天内容
func Transcript(msgs []Message) string {
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.RawLine)
	}
	return b.String()
}
