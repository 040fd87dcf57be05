package logging

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestTextFormatter(t *testing.T) {
	f := NewTextFormatter()
	f.ColorOutput = false
	entry := &LogEntry{
		Time:     time.Now(),
		Level:    LogLevelInfo,
		Category: "Test",
		Message:  "Hello",
		Fields:   []Field{{Key: "key", Value: "val"}},
	}

	out, err := f.Format(entry)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	str := string(out)
	if !strings.Contains(str, "INFO") {
		t.Error("Expected level INFO")
	}
	if !strings.Contains(str, "[Test]") {
		t.Error("Expected category [Test]")
	}
	if !strings.Contains(str, "Hello") {
		t.Error("Expected message Hello")
	}
	if !strings.Contains(str, "key=val") {
		t.Error("Expected field key=val")
	}
}

func TestJsonFormatter(t *testing.T) {
	f := NewJsonFormatter()
	entry := &LogEntry{
		Time:     time.Now(),
		Level:    LogLevelInfo,
		Category: "Test",
		Message:  "Hello",
		Fields:   []Field{{Key: "key", Value: "val"}},
	}

	out, err := f.Format(entry)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	var data map[string]interface{}
	if err := json.Unmarshal(out, &data); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if data["level"] != "INFO" {
		t.Error("Expected level INFO")
	}
	if data["category"] != "Test" {
		t.Error("Expected category Test")
	}
	fields, ok := data["fields"].(map[string]interface{})
	if !ok {
		t.Error("Expected fields map")
	} else if fields["key"] != "val" {
		t.Error("Expected key=val")
	}
}

func TestAsyncWriter(t *testing.T) {
	var buf bytes.Buffer
	var mu sync.Mutex

	// 简单的线程安全 Writer wrapper
	writer := &syncWriter{buf: &buf, mu: &mu}

	formatter := NewTextFormatter()
	asyncWriter := NewAsyncWriter(writer, formatter, 10)

	entry := &LogEntry{
		Time:    time.Now(),
		Level:   LogLevelInfo,
		Message: "Async",
	}

	// 写入多条日志
	for i := 0; i < 5; i++ {
		asyncWriter.WriteLog(entry)
	}

	// 关闭以刷新
	asyncWriter.Close()

	// 检查输出行数
	output := writer.String()
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 5 {
		t.Errorf("Expected 5 lines, got %d", len(lines))
	}
}

type syncWriter struct {
	buf *bytes.Buffer
	mu  *sync.Mutex
}

func (w *syncWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *syncWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func TestConsoleProviderOutput(t *testing.T) {
	var buf bytes.Buffer
	factory := NewBuilder().
		SetMinimumLevel(LogLevelDebug).
		AddConsole(ConsoleLoggerOptions{Output: &buf}).
		Build()

	logger := factory.CreateLogger("App")
	logger.Info("started", Field{Key: "port", Value: 8080})

	out := buf.String()
	if !strings.Contains(out, "INFO") {
		t.Error("Expected level INFO")
	}
	if !strings.Contains(out, "[App]") {
		t.Error("Expected category [App]")
	}
	if !strings.Contains(out, "port=8080") {
		t.Error("Expected field port=8080")
	}
}

func TestMinimumLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	factory := NewBuilder().
		SetMinimumLevel(LogLevelWarn).
		AddConsole(ConsoleLoggerOptions{Output: &buf}).
		Build()

	logger := factory.CreateLogger("App")
	logger.Debug("suppressed")
	logger.Info("suppressed too")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "suppressed") {
		t.Error("Messages below minimum level should be filtered")
	}
	if !strings.Contains(out, "kept") {
		t.Error("Expected WARN message in output")
	}
}

func TestWithCategoryAndFields(t *testing.T) {
	var buf bytes.Buffer
	factory := NewBuilder().
		SetMinimumLevel(LogLevelDebug).
		AddConsole(ConsoleLoggerOptions{Output: &buf}).
		Build()

	base := factory.CreateLogger("Root").WithFields(Field{Key: "env", Value: "test"})
	child := base.WithCategory("Child")
	child.Info("hello", Field{Key: "n", Value: 1})

	out := buf.String()
	if !strings.Contains(out, "[Child]") {
		t.Errorf("Expected re-categorized output, got %q", out)
	}
	if !strings.Contains(out, "env=test") {
		t.Error("Expected inherited field env=test")
	}
	if !strings.Contains(out, "n=1") {
		t.Error("Expected call-site field n=1")
	}

	// 分支出的子 logger 不得污染父 logger 的字段
	buf.Reset()
	base.Info("plain")
	if strings.Contains(buf.String(), "n=1") {
		t.Error("Child fields must not leak back to the parent logger")
	}
}

func TestFileProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	factory := NewBuilder().
		SetMinimumLevel(LogLevelDebug).
		AddFile(path).
		Build()

	logger := factory.CreateLogger("File")
	logger.Info("first")
	logger.Warn("second")

	if err := factory.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "first") || !strings.Contains(content, "second") {
		t.Errorf("Expected both entries in file, got %q", content)
	}
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) != 2 {
		t.Errorf("Expected 2 lines, got %d", len(lines))
	}
}

func TestHttpProviderBatch(t *testing.T) {
	var mu sync.Mutex
	var received []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
			if line != "" {
				received = append(received, line)
			}
		}
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	provider := NewHttpLoggerProvider(HttpLoggerOptions{
		Endpoint:      server.URL,
		BatchSize:     2,
		FlushInterval: 50 * time.Millisecond,
	})
	provider.SetMinimumLevel(LogLevelDebug)

	logger := provider.CreateLogger("Remote")
	logger.Info("one")
	logger.Info("two")
	logger.Info("three")

	// Close 会刷新尾批并等待发送完毕
	if err := provider.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(received))
	}
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(received[0]), &data); err != nil {
		t.Fatalf("Entry is not valid JSON: %v", err)
	}
	if data["msg"] != "one" {
		t.Errorf("Expected msg=one, got %v", data["msg"])
	}
	if data["category"] != "Remote" {
		t.Errorf("Expected category=Remote, got %v", data["category"])
	}
}

func BenchmarkAsyncLogging(b *testing.B) {
	formatter := NewTextFormatter()
	// 使用 io.Discard 避免 I/O 瓶颈，测试 AsyncWriter 自身的开销
	asyncWriter := NewAsyncWriter(io.Discard, formatter, 10000)
	defer asyncWriter.Close()

	entry := &LogEntry{
		Time:    time.Now(),
		Level:   LogLevelInfo,
		Message: "Benchmark",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		asyncWriter.WriteLog(entry)
	}
}
