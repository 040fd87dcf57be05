package logging

// NewLogger 创建默认的控制台日志记录器
func NewLogger(category string) Logger {
	factory := NewBuilder().
		SetMinimumLevel(LogLevelDebug).
		AddConsole().
		Build()
	return factory.CreateLogger(category)
}
