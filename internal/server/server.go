package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/liao/wa-digest/internal/analyzer"
	"github.com/liao/wa-digest/internal/source"
)

// Server 上传聊天导出、摘要和问答的 HTTP 接口
type Server struct {
	analyzer   *analyzer.Analyzer
	defaults   analyzer.Options
	maxUpload  int64
	httpServer *http.Server
}

func New(a *analyzer.Analyzer, defaults analyzer.Options, maxUploadMB int64) *Server {
	return &Server{
		analyzer:  a,
		defaults:  defaults,
		maxUpload: maxUploadMB << 20,
	}
}

// Router 注册路由
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.MaxMultipartMemory = s.maxUpload

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api", s.limitBody())
	api.POST("/messages", s.handleMessages)
	api.POST("/analyze", s.handleAnalyze)
	api.POST("/ask", s.handleAsk)
	return r
}

// Run 阻塞直到 ctx 结束，然后优雅关闭
func (s *Server) Run(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.Router()}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	slog.Info("shutting down http server")
	return s.httpServer.Shutdown(shutdownCtx)
}

type messageJSON struct {
	Timestamp time.Time `json:"timestamp"`
	Line      int       `json:"line"`
	Sender    string    `json:"sender,omitempty"`
	RawLine   string    `json:"raw_line"`
}

func (s *Server) handleMessages(c *gin.Context) {
	src, opts, ok := s.bindRequest(c)
	if !ok {
		return
	}

	p, err := analyzer.Prepare(c.Request.Context(), src, opts)
	if err != nil {
		s.fail(c, err)
		return
	}

	out := make([]messageJSON, 0, len(p.Messages))
	for _, m := range p.Messages {
		out = append(out, messageJSON{
			Timestamp: m.Timestamp,
			Line:      m.Line,
			Sender:    m.Sender(),
			RawLine:   m.RawLine,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(out),
		"messages": out,
	})
}

func (s *Server) handleAnalyze(c *gin.Context) {
	mode, err := analyzer.ParseMode(c.PostForm("mode"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	src, opts, ok := s.bindRequest(c)
	if !ok {
		return
	}

	res, err := s.analyzer.Summarize(c.Request.Context(), src, mode, opts)
	if err != nil {
		s.fail(c, err)
		return
	}

	resp := gin.H{
		"mode":     res.Mode,
		"messages": res.Messages,
		"markdown": res.Markdown,
	}
	if res.Report != nil {
		resp["report"] = res.Report
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleAsk(c *gin.Context) {
	question := c.PostForm("question")
	src, opts, ok := s.bindRequest(c)
	if !ok {
		return
	}

	ans, err := s.analyzer.Ask(c.Request.Context(), src, question, opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"answer":    ans.Text,
		"messages":  ans.Messages,
		"retrieved": ans.Retrieved,
	})
}

// bindRequest 读取上传文件和过滤参数，失败时已写好响应
func (s *Server) bindRequest(c *gin.Context) (source.ChatSource, analyzer.Options, bool) {
	opts := s.defaults

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required (multipart field \"file\")"})
		return nil, opts, false
	}
	if fh.Size > s.maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("file larger than %d MB", s.maxUpload>>20)})
		return nil, opts, false
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read upload"})
		return nil, opts, false
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read upload"})
		return nil, opts, false
	}

	if opts, err = applyForm(c, opts); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, opts, false
	}

	slog.Debug("upload received", "name", fh.Filename, "bytes", len(data))
	return source.Text{Name: fh.Filename, Body: string(data)}, opts, true
}

// applyForm 表单字段 start/end (YYYY-MM-DD)、recency_days、newest_first、drop_media 覆盖默认设置
func applyForm(c *gin.Context, opts analyzer.Options) (analyzer.Options, error) {
	r, err := analyzer.ParseDateRange(c.PostForm("start"), c.PostForm("end"))
	if err != nil {
		return opts, err
	}
	if r != nil {
		opts.Range = r
		// 显式日期范围取代默认的最近 N 天
		opts.RecencyDays = 0
	}

	if v := c.PostForm("recency_days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 0 {
			return opts, fmt.Errorf("recency_days must be a non-negative integer")
		}
		opts.RecencyDays = days
	}
	if v := c.PostForm("newest_first"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("newest_first must be a boolean")
		}
		opts.NewestFirst = b
	}
	if v := c.PostForm("drop_media"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("drop_media must be a boolean")
		}
		opts.DropMedia = b
	}
	return opts, nil
}

// fail 空结果是给用户的提示 (422)，不是服务错误
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, analyzer.ErrNoMessages), errors.Is(err, analyzer.ErrNoRecentMessages):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"warning": err.Error()})
	case errors.Is(err, analyzer.ErrEmptyQuestion):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		slog.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "analysis failed"})
	}
}

// limitBody 上传大小上限，额外留 1MB 给表单字段
func (s *Server) limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload+1<<20)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
