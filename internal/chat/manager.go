package chat

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"google.golang.org/genai"
)

type Message struct {
	Role      string    `json:"role"` // "user" / "model"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session 针对一份聊天记录的问答历史
type Session struct {
	ChatFile   string    `json:"chat_file"`
	Messages   []Message `json:"messages"`
	LastActive time.Time `json:"last_active"`
}

type Manager struct {
	mu          sync.Mutex
	session     *Session
	maxTurns    int
	sessionFile string
}

// NewManager sessionDir 为空时不落盘
func NewManager(maxTurns int, sessionDir string, chatFile string) (*Manager, error) {
	m := &Manager{maxTurns: maxTurns}

	if sessionDir != "" {
		if err := os.MkdirAll(sessionDir, 0755); err != nil {
			return nil, fmt.Errorf("create session dir: %w", err)
		}
		m.sessionFile = filepath.Join(sessionDir, "session.json")

		// 尝试从文件恢复，换了聊天文件就不沿用旧历史
		if data, err := os.ReadFile(m.sessionFile); err == nil {
			var s Session
			if json.Unmarshal(data, &s) == nil && s.ChatFile == chatFile {
				m.session = &s
			}
		}
	}
	if m.session == nil {
		m.session = &Session{ChatFile: chatFile, LastActive: time.Now()}
	}
	return m, nil
}

// AddQuestion 记录用户的问题
func (m *Manager) AddQuestion(content string) {
	m.add("user", content)
}

// AddAnswer 记录模型的回答
func (m *Manager) AddAnswer(content string) {
	m.add("model", content)
}

func (m *Manager) add(role, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.session.Messages = append(m.session.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
	m.session.LastActive = time.Now()
	m.trim()
}

// History 获取问答历史，转换为 genai.Content 格式
func (m *Manager) History() []*genai.Content {
	m.mu.Lock()
	defer m.mu.Unlock()

	contents := make([]*genai.Content, 0, len(m.session.Messages))
	for _, msg := range m.session.Messages {
		var role genai.Role = genai.RoleUser
		if msg.Role == "model" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}
	return contents
}

// Len 当前保留的消息数
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.session.Messages)
}

// Reset 清空历史
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session.Messages = nil
	m.session.LastActive = time.Now()
}

// Save 持久化到文件
func (m *Manager) Save() error {
	if m.sessionFile == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(m.session, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return os.WriteFile(m.sessionFile, data, 0644)
}

func (m *Manager) trim() {
	// 保留最近 maxTurns*2 条消息（每轮 = 1 user + 1 model）
	max := m.maxTurns * 2
	if max > 0 && len(m.session.Messages) > max {
		m.session.Messages = m.session.Messages[len(m.session.Messages)-max:]
	}
}
