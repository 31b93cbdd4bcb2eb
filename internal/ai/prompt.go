package ai

import (
	"fmt"
	"strings"
)

// SummaryPrompt 提取要点、日程、链接和待办，输出 markdown
func SummaryPrompt(transcript string) string {
	var b strings.Builder
	b.WriteString("From the following WhatsApp chat log, extract:\n")
	b.WriteString("- Key messages or announcements\n")
	b.WriteString("- Dates, schedules, meetings\n")
	b.WriteString("- Links shared\n")
	b.WriteString("- Action items or tasks\n\n")
	b.WriteString("Return in markdown with sections:\n")
	b.WriteString("1. Summary\n2. Links\n3. Schedules\n4. Tasks\n\n")
	writeChat(&b, transcript)
	return b.String()
}

// RemindersPrompt 只关注需要跟进的事，days <= 0 表示消息按日期范围选取
func RemindersPrompt(transcript string, days int) string {
	var b strings.Builder
	if days > 0 {
		fmt.Fprintf(&b, "The following WhatsApp messages were sent in the last %d days.\n", days)
	} else {
		b.WriteString("The following WhatsApp messages were selected from a chat export.\n")
	}
	b.WriteString("List everything the reader should not forget:\n")
	b.WriteString("- Reminders and deadlines, with their dates\n")
	b.WriteString("- Upcoming meetings or events, with date, time and meeting links\n")
	b.WriteString("- Requests addressed to someone that are still open\n\n")
	b.WriteString("Return markdown bullet lists grouped under Reminders, Schedule and Open requests. ")
	b.WriteString("Write \"Nothing to remember\" if there is nothing.\n\n")
	writeChat(&b, transcript)
	return b.String()
}

// StructuredPrompt 要求模型输出 JSON，对应 report.Report
func StructuredPrompt(transcript string) string {
	var b strings.Builder
	b.WriteString("You are a message summarizer. Extract:\n")
	b.WriteString("1. Important messages\n")
	b.WriteString("2. Meeting links or any URLs\n")
	b.WriteString("3. Schedules or date/time-related events\n")
	b.WriteString("4. Action items or tasks\n\n")
	b.WriteString("Output strict JSON (no markdown code block) with keys: ")
	b.WriteString("important_messages, links, schedules, tasks. Every value is an array of strings.\n\n")
	b.WriteString("Messages:\n")
	b.WriteString(transcript)
	b.WriteString("\n")
	return b.String()
}

// QuestionPrompt 单轮问答
func QuestionPrompt(question, transcript string) string {
	var b strings.Builder
	b.WriteString("You are an AI assistant. Use the WhatsApp chat log below to answer the user's question.\n\n")
	b.WriteString("User's question:\n")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\n")
	writeChat(&b, transcript)
	return b.String()
}

// QASystemPrompt 多轮问答的系统提示，聊天内容放在系统提示里，历史只保留问答
func QASystemPrompt(transcript string) string {
	var b strings.Builder
	b.WriteString("You are an AI assistant answering questions about a WhatsApp chat log.\n")
	b.WriteString("Answer only from the chat content. Quote dates and senders when they matter. ")
	b.WriteString("If the chat does not contain the answer, say so.\n\n")
	writeChat(&b, transcript)
	return b.String()
}

func writeChat(b *strings.Builder, transcript string) {
	b.WriteString("Chat content:\n")
	b.WriteString(transcript)
	b.WriteString("\n")
}

// StripCodeFence 去掉模型回复外层的 ```json 代码块
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
