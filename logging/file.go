package logging

import (
	"fmt"
	"os"
	"sync"
)

// FileLoggerOptions 文件日志选项
type FileLoggerOptions struct {
	Path       string
	BufferSize int // 异步队列长度，默认 1024
}

// FileLoggerProvider 文件日志提供者。
// 条目经 AsyncWriter 异步落盘，Close 时刷新剩余条目。
type FileLoggerProvider struct {
	options      FileLoggerOptions
	minimumLevel LogLevel
	file         *os.File
	writer       *AsyncWriter
	mu           sync.Mutex
}

func NewFileLoggerProvider(options FileLoggerOptions) *FileLoggerProvider {
	if options.BufferSize <= 0 {
		options.BufferSize = 1024
	}
	return &FileLoggerProvider{
		options:      options,
		minimumLevel: LogLevelInfo,
	}
}

func (p *FileLoggerProvider) CreateLogger(category string) Logger {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.writer == nil {
		file, err := os.OpenFile(p.options.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			// 打不开文件时退回 stderr，保证日志不静默消失
			fallback := NewConsoleLoggerProvider(ConsoleLoggerOptions{Output: os.Stderr})
			fallback.SetMinimumLevel(p.minimumLevel)
			return fallback.CreateLogger(category)
		}
		p.file = file
		p.writer = NewAsyncWriter(file, NewTextFormatter(), p.options.BufferSize)
	}

	return &entryLogger{
		category: category,
		minLevel: p.minimumLevel,
		emit:     p.writer.WriteLog,
	}
}

func (p *FileLoggerProvider) SetMinimumLevel(level LogLevel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.minimumLevel = level
}

// Close 刷新异步队列并关闭文件
func (p *FileLoggerProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.writer != nil {
		p.writer.Close()
		p.writer = nil
	}
	if p.file != nil {
		err := p.file.Close()
		p.file = nil
		return err
	}
	return nil
}
