package logging

import "os"

// Builder 日志构建器
type Builder struct {
	providers    []LoggerProvider
	minimumLevel LogLevel
}

// NewBuilder 创建日志构建器
func NewBuilder() *Builder {
	return &Builder{
		providers:    make([]LoggerProvider, 0),
		minimumLevel: LogLevelInfo,
	}
}

// SetMinimumLevel 设置最小日志级别
func (b *Builder) SetMinimumLevel(level LogLevel) *Builder {
	b.minimumLevel = level
	return b
}

// AddProvider 添加日志提供者
func (b *Builder) AddProvider(provider LoggerProvider) *Builder {
	b.providers = append(b.providers, provider)
	return b
}

// AddConsole 添加控制台日志
func (b *Builder) AddConsole(options ...ConsoleLoggerOptions) *Builder {
	opts := ConsoleLoggerOptions{
		IncludeTimestamp: true,
		TimestampFormat:  "2006-01-02 15:04:05",
		ColorOutput:      true,
		Output:           os.Stdout,
	}
	if len(options) > 0 {
		opts = options[0]
	}
	return b.AddProvider(NewConsoleLoggerProvider(opts))
}

// AddFile 添加文件日志
func (b *Builder) AddFile(path string, options ...FileLoggerOptions) *Builder {
	opts := FileLoggerOptions{Path: path}
	if len(options) > 0 {
		opts = options[0]
		opts.Path = path
	}
	return b.AddProvider(NewFileLoggerProvider(opts))
}

// AddHttp 添加 HTTP 日志（批量投递到远端收集器）
func (b *Builder) AddHttp(endpoint string, options ...HttpLoggerOptions) *Builder {
	opts := HttpLoggerOptions{Endpoint: endpoint}
	if len(options) > 0 {
		opts = options[0]
		opts.Endpoint = endpoint
	}
	return b.AddProvider(NewHttpLoggerProvider(opts))
}

// Build 构建日志工厂
func (b *Builder) Build() LoggerFactory {
	factory := &loggerFactory{
		providers:    make([]LoggerProvider, 0, len(b.providers)),
		minimumLevel: b.minimumLevel,
	}

	for _, provider := range b.providers {
		factory.AddProvider(provider)
	}

	return factory
}
