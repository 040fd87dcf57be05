package logging

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"
)

// HttpLoggerOptions HTTP 日志选项
type HttpLoggerOptions struct {
	Endpoint      string
	Headers       map[string]string
	BatchSize     int           // 单次发送的最大条数，默认 32
	FlushInterval time.Duration // 批次未满时的发送间隔，默认 2s
	Timeout       time.Duration // 请求超时，默认 5s
	QueueSize     int           // 待发队列长度，默认 1024
}

// HttpLoggerProvider HTTP 日志提供者。
// 条目以 NDJSON 批量 POST 到远端；队列满时丢弃新条目，
// 远端故障不允许反压主循环。
type HttpLoggerProvider struct {
	options      HttpLoggerOptions
	formatter    *JsonFormatter
	client       *http.Client
	entryCh      chan *LogEntry
	minimumLevel LogLevel
	mu           sync.Mutex
	wg           sync.WaitGroup
	closeOnce    sync.Once
}

func NewHttpLoggerProvider(options HttpLoggerOptions) *HttpLoggerProvider {
	if options.BatchSize <= 0 {
		options.BatchSize = 32
	}
	if options.FlushInterval <= 0 {
		options.FlushInterval = 2 * time.Second
	}
	if options.Timeout <= 0 {
		options.Timeout = 5 * time.Second
	}
	if options.QueueSize <= 0 {
		options.QueueSize = 1024
	}

	p := &HttpLoggerProvider{
		options:      options,
		formatter:    NewJsonFormatter(),
		client:       &http.Client{Timeout: options.Timeout},
		entryCh:      make(chan *LogEntry, options.QueueSize),
		minimumLevel: LogLevelInfo,
	}

	p.wg.Add(1)
	go p.ship()

	return p
}

func (p *HttpLoggerProvider) CreateLogger(category string) Logger {
	p.mu.Lock()
	level := p.minimumLevel
	p.mu.Unlock()

	return &entryLogger{
		category: category,
		minLevel: level,
		emit:     p.enqueue,
	}
}

func (p *HttpLoggerProvider) SetMinimumLevel(level LogLevel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.minimumLevel = level
}

func (p *HttpLoggerProvider) enqueue(entry *LogEntry) {
	select {
	case p.entryCh <- entry:
	default:
		// 队列满，丢弃
	}
}

func (p *HttpLoggerProvider) ship() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.options.FlushInterval)
	defer ticker.Stop()

	batch := make([]*LogEntry, 0, p.options.BatchSize)

	for {
		select {
		case entry, ok := <-p.entryCh:
			if !ok {
				p.flush(batch)
				return
			}
			batch = append(batch, entry)
			if len(batch) >= p.options.BatchSize {
				p.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				p.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

func (p *HttpLoggerProvider) flush(batch []*LogEntry) {
	if len(batch) == 0 {
		return
	}

	body := GlobalBufferPool.Get()
	defer GlobalBufferPool.Put(body)

	for _, entry := range batch {
		data, err := p.formatter.Format(entry)
		if err != nil {
			continue
		}
		body.Write(data)
		body.WriteByte('\n')
	}

	req, err := http.NewRequest(http.MethodPost, p.options.Endpoint, bytes.NewReader(body.Bytes()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "http logger: build request failed: %v\n", err)
		return
	}
	req.Header.Set("Content-Type", "application/x-ndjson")
	for k, v := range p.options.Headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "http logger: send failed: %v\n", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		fmt.Fprintf(os.Stderr, "http logger: endpoint returned %d\n", resp.StatusCode)
	}
}

// Close 发送剩余批次并停止后台协程
func (p *HttpLoggerProvider) Close() error {
	p.closeOnce.Do(func() {
		close(p.entryCh)
	})
	p.wg.Wait()
	return nil
}
