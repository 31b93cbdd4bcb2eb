package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/liao/wa-digest/internal/analyzer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeLLM struct {
	reply   string
	prompts []string
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, nil
}

const export = "28/06/2024, 09:01 - Alice: Standup moved to 10\n" +
	"continuation\n" +
	"30/06/2024, 14:05 - Bob: Meeting at 3\n" +
	"29/06/2024, 20:00 - Carol: pizza?"

func newTestServer(llm *fakeLLM) *Server {
	defaults := analyzer.Options{NewestFirst: true, Location: time.UTC}
	return New(analyzer.New(llm, nil, 0), defaults, 1)
}

func upload(t *testing.T, path string, file string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if file != "" {
		fw, err := w.CreateFormFile("file", "chat.txt")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(file))
	}
	for k, v := range fields {
		w.WriteField(k, v)
	}
	w.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	var out map[string]any
	json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestHealth(t *testing.T) {
	rec, out := serve(newTestServer(&fakeLLM{}), httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || out["status"] != "ok" {
		t.Errorf("GET /health = %d %v", rec.Code, out)
	}
}

func TestMessages(t *testing.T) {
	s := newTestServer(&fakeLLM{})

	tests := []struct {
		name      string
		fields    map[string]string
		wantCode  int
		wantFirst string
		wantCount float64
	}{
		{"default newest first", nil, http.StatusOK, "Bob", 3},
		{"oldest first", map[string]string{"newest_first": "false"}, http.StatusOK, "Alice", 3},
		{"date range", map[string]string{"start": "2024-06-29", "end": "2024-06-29"}, http.StatusOK, "Carol", 1},
		{"inverted range", map[string]string{"start": "2024-06-30", "end": "2024-06-01"}, http.StatusUnprocessableEntity, "", 0},
		{"bad date", map[string]string{"start": "30/06/2024"}, http.StatusBadRequest, "", 0},
		{"bad recency", map[string]string{"recency_days": "-1"}, http.StatusBadRequest, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := serve(s, upload(t, "/api/messages", export, tt.fields))
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			if out["count"] != tt.wantCount {
				t.Errorf("count = %v, want %v", out["count"], tt.wantCount)
			}
			first := out["messages"].([]any)[0].(map[string]any)
			if first["sender"] != tt.wantFirst {
				t.Errorf("first sender = %v, want %s", first["sender"], tt.wantFirst)
			}
		})
	}
}

func TestMessagesRequiresFile(t *testing.T) {
	rec, _ := serve(newTestServer(&fakeLLM{}), upload(t, "/api/messages", "", map[string]string{"mode": "summary"}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestMessagesNoValidLines(t *testing.T) {
	rec, out := serve(newTestServer(&fakeLLM{}), upload(t, "/api/messages", "hello\nworld", nil))
	if rec.Code != http.StatusUnprocessableEntity || out["warning"] != analyzer.ErrNoMessages.Error() {
		t.Errorf("POST /api/messages = %d %v", rec.Code, out)
	}
}

func TestAnalyze(t *testing.T) {
	llm := &fakeLLM{reply: "## Summary\n- standup moved"}
	s := newTestServer(llm)

	rec, out := serve(s, upload(t, "/api/analyze", export, map[string]string{"mode": "summary"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if out["markdown"] != "## Summary\n- standup moved" || out["messages"] != float64(3) {
		t.Errorf("POST /api/analyze = %v", out)
	}
	if len(llm.prompts) != 1 || !strings.Contains(llm.prompts[0], "Bob: Meeting at 3") {
		t.Errorf("prompts = %q", llm.prompts)
	}

	rec, _ = serve(s, upload(t, "/api/analyze", export, map[string]string{"mode": "haiku"}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown mode status = %d, want 400", rec.Code)
	}
}

func TestAnalyzeStructured(t *testing.T) {
	llm := &fakeLLM{reply: `{"important_messages":["standup moved"],"links":[],"schedules":[],"tasks":["bring slides"]}`}
	rec, out := serve(newTestServer(llm), upload(t, "/api/analyze", export, map[string]string{"mode": "structured"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	report, ok := out["report"].(map[string]any)
	if !ok || report["tasks"].([]any)[0] != "bring slides" {
		t.Errorf("report = %v", out["report"])
	}
}

func TestAsk(t *testing.T) {
	llm := &fakeLLM{reply: "At 3."}
	s := newTestServer(llm)

	rec, out := serve(s, upload(t, "/api/ask", export, map[string]string{"question": "When is the meeting?"}))
	if rec.Code != http.StatusOK || out["answer"] != "At 3." {
		t.Errorf("POST /api/ask = %d %v", rec.Code, out)
	}

	rec, _ = serve(s, upload(t, "/api/ask", export, nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing question status = %d, want 400", rec.Code)
	}
}

func TestUploadTooLarge(t *testing.T) {
	big := strings.Repeat("28/06/2024, 09:01 - Alice: hi\n", 80000)
	rec, _ := serve(newTestServer(&fakeLLM{}), upload(t, "/api/messages", big, nil))
	if rec.Code == http.StatusOK {
		t.Errorf("status = %d for a %d byte upload, want rejection", rec.Code, len(big))
	}
}
