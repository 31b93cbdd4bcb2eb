package report

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Report 结构化分析结果，字段与 StructuredPrompt 要求的 JSON 键一致
type Report struct {
	ImportantMessages []string `json:"important_messages"`
	Links             []string `json:"links"`
	Schedules         []string `json:"schedules"`
	Tasks             []string `json:"tasks"`
}

// Decode 解析模型返回的 JSON
func Decode(text string) (*Report, error) {
	var r Report
	if err := json.Unmarshal([]byte(text), &r); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &r, nil
}

func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report file: %w", err)
	}
	return Decode(string(data))
}

func (r *Report) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Empty 所有字段都为空
func (r *Report) Empty() bool {
	return len(r.ImportantMessages) == 0 && len(r.Links) == 0 && len(r.Schedules) == 0 && len(r.Tasks) == 0
}

// Markdown 渲染成和摘要模式相同的分节格式
func (r *Report) Markdown() string {
	var b strings.Builder
	writeSection(&b, "Important messages", r.ImportantMessages)
	writeSection(&b, "Links", r.Links)
	writeSection(&b, "Schedules", r.Schedules)
	writeSection(&b, "Tasks", r.Tasks)
	return strings.TrimSpace(b.String())
}

func writeSection(b *strings.Builder, title string, items []string) {
	fmt.Fprintf(b, "## %s\n", title)
	if len(items) == 0 {
		b.WriteString("- (none)\n\n")
		return
	}
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

var urlRe = regexp.MustCompile(`https?://[^\s<>"']+`)

// ExtractLinks 本地提取 URL，按首次出现去重；模型输出不是合法 JSON 时兜底用
func ExtractLinks(text string) []string {
	var links []string
	seen := make(map[string]bool)
	for _, u := range urlRe.FindAllString(text, -1) {
		u = strings.TrimRight(u, ".,;:!?)")
		if !seen[u] {
			seen[u] = true
			links = append(links, u)
		}
	}
	return links
}
