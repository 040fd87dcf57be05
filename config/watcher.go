package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher 监视配置文件变更，去抖后触发回调。
// 监听的是文件所在目录，以兼容编辑器的原子替换写入（rename + create）
type Watcher struct {
	fsw       *fsnotify.Watcher
	files     map[string]struct{}
	debounce  time.Duration
	onChange  func()
	onError   func(error)
	done      chan struct{}
	closeOnce sync.Once
}

// NewWatcher 创建配置文件监视器，paths 为要关注的文件路径
func NewWatcher(paths []string, debounce time.Duration, onChange func()) (*Watcher, error) {
	if debounce <= 0 {
		debounce = time.Second
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		fsw:      fsw,
		files:    make(map[string]struct{}),
		debounce: debounce,
		onChange: onChange,
		done:     make(chan struct{}),
	}

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to resolve path %s: %w", p, err)
		}
		w.files[abs] = struct{}{}
	}

	return w, nil
}

// SetErrorHandler 设置底层监视错误的处理函数，必须在 Start 之前调用
func (w *Watcher) SetErrorHandler(fn func(error)) {
	w.onError = fn
}

// Start 订阅所有目标文件所在的目录并开始处理事件
func (w *Watcher) Start() error {
	dirs := make(map[string]struct{})
	for f := range w.files {
		dirs[filepath.Dir(f)] = struct{}{}
	}

	for dir := range dirs {
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}

	go w.loop()
	return nil
}

// Close 停止监视并释放资源
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
	})
	return err
}

// loop 处理文件系统事件，连续变更在去抖窗口内合并为一次回调
func (w *Watcher) loop() {
	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.isRelevant(event) {
				continue
			}

			// 重置去抖计时器
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-timerC:
			w.onChange()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// isRelevant 过滤事件：只关心目标文件本身的写入或替换
func (w *Watcher) isRelevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}

	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}

	_, ok := w.files[abs]
	return ok
}
