package config

import (
	"fmt"
	"sync"
)

// Reloadable 可重载配置。读取走 ValueStore 的原子快照，无需加锁；
// Reload 按源顺序全量重建后整体替换快照，任一源失败则保留旧数据
type Reloadable struct {
	sources  []ConfigurationSource
	store    *ValueStore
	mu       sync.Mutex // 串行化 Reload，同时保护回调列表
	onReload []func()
}

// BuildReloadable 构建可重载配置并完成首次加载
func (b *ConfigurationBuilder) BuildReloadable() (*Reloadable, error) {
	b.mu.RLock()
	sources := make([]ConfigurationSource, len(b.sources))
	copy(sources, b.sources)
	b.mu.RUnlock()

	r := &Reloadable{
		sources: sources,
		store:   NewValueStore(),
	}

	if err := r.Reload(); err != nil {
		return nil, err
	}

	return r, nil
}

// Reload 重新加载所有配置源并原子替换当前快照。
// 任何一个源加载失败都会中止替换，当前配置保持不变
func (r *Reloadable) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make(map[string]any)
	for _, source := range r.sources {
		loaded, err := source.Load()
		if err != nil {
			return fmt.Errorf("failed to load config source %s: %w", source.Name(), err)
		}
		mergeMaps(data, loaded)
	}

	r.store.Store(data)

	// 替换完成后通知订阅者（OptionsCache 等）
	for _, fn := range r.onReload {
		fn()
	}

	return nil
}

// OnReload 注册配置重载完成后的回调
func (r *Reloadable) OnReload(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onReload = append(r.onReload, fn)
}

// WatchPaths 返回所有文件型配置源的路径，供文件监视器订阅
func (r *Reloadable) WatchPaths() []string {
	var paths []string
	for _, source := range r.sources {
		if fs, ok := source.(interface{ FilePath() string }); ok {
			paths = append(paths, fs.FilePath())
		}
	}
	return paths
}

// current 取当前快照的只读视图
func (r *Reloadable) current() *configuration {
	return &configuration{data: r.store.Load()}
}

// Get 获取配置值
func (r *Reloadable) Get(key string) string {
	return r.current().Get(key)
}

// GetWithDefault 获取配置值，如果不存在则返回默认值
func (r *Reloadable) GetWithDefault(key, defaultValue string) string {
	return r.current().GetWithDefault(key, defaultValue)
}

// GetInt 获取整数配置值
func (r *Reloadable) GetInt(key string) (int, error) {
	return r.current().GetInt(key)
}

// GetBool 获取布尔配置值
func (r *Reloadable) GetBool(key string) (bool, error) {
	return r.current().GetBool(key)
}

// GetSection 获取配置节。返回的是当前快照下的节，
// 重载之后需要重新获取才能看到新值
func (r *Reloadable) GetSection(key string) Configuration {
	return r.current().GetSection(key)
}

// Bind 绑定配置到结构体
func (r *Reloadable) Bind(key string, target any) error {
	return r.current().Bind(key, target)
}

// GetAll 获取所有配置
func (r *Reloadable) GetAll() map[string]any {
	return r.current().GetAll()
}
