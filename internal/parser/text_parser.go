package parser

import (
	"regexp"
	"strings"
	"time"
)

// 匹配 WhatsApp 导出行头: "30/06/2024, 14:05 - " 或 "6/30/24, 9:01 AM - "
// 新版导出在 AM/PM 前用 U+202F，所以空白额外接受 \p{Zs}
var headerRe = regexp.MustCompile(`^(\d{1,2}[/-]\d{1,2}[/-]\d{2,4}),[\s\p{Zs}]+(\d{1,2}:\d{2})[\s\p{Zs}]*(AM|PM)?[\s\p{Zs}]+-`)

// 候选解释按固定优先级尝试，第一个成功的胜出：
// 日在前 12 小时制、月在前 12 小时制、日在前 24 小时制、月在前 24 小时制
var layouts = []string{
	"2/1/2006 3:04 PM",
	"2/1/06 3:04 PM",
	"1/2/2006 3:04 PM",
	"1/2/06 3:04 PM",
	"2/1/2006 15:04",
	"2/1/06 15:04",
	"1/2/2006 15:04",
	"1/2/06 15:04",
}

// Parse 按本地时区解析导出文本，见 ParseInLocation
func Parse(text string) []Message {
	return ParseInLocation(text, time.Local)
}

// ParseInLocation 逐行解析导出文本，保持原文件顺序。
// 没有行头或时间无法解析的行（多行消息的续行、系统通知）直接丢弃，不并入上一条。
func ParseInLocation(text string, loc *time.Location) []Message {
	if loc == nil {
		loc = time.Local
	}

	var messages []Message
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if m, ok := parseLine(line, loc); ok {
			m.Line = i
			messages = append(messages, m)
		}
	}
	return messages
}

func parseLine(line string, loc *time.Location) (Message, bool) {
	matches := headerRe.FindStringSubmatch(line)
	if matches == nil {
		return Message{}, false
	}

	ts, err := parseTimestamp(matches[1], matches[2], matches[3], loc)
	if err != nil {
		return Message{}, false
	}
	return Message{Timestamp: ts, RawLine: line}, true
}

func parseTimestamp(date, clock, meridiem string, loc *time.Location) (time.Time, error) {
	s := strings.ReplaceAll(date, "-", "/") + " " + clock
	if meridiem != "" {
		s += " " + meridiem
	}

	var lastErr error
	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
