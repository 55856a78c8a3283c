package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher 监听配置文件变化并在每次有效变更后回调最新配置。
// 解析或验证失败的变更被跳过，上一份有效配置继续生效。
type Watcher struct {
	path       string
	cooldown   time.Duration // 冷却时间，避免编辑器连续写入触发多次重载
	watcher    *fsnotify.Watcher
	lastReload time.Time
	mu         sync.Mutex
}

// NewWatcher 创建配置监听器；cooldown <= 0 时默认 2 秒。
func NewWatcher(path string, cooldown time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch config file: %w", err)
	}
	if cooldown <= 0 {
		cooldown = 2 * time.Second
	}
	return &Watcher{path: path, cooldown: cooldown, watcher: fw}, nil
}

// Run 阻塞监听直到 ctx 取消；onUpdate 收到重载后的配置。
// onError 可为 nil。
func (w *Watcher) Run(ctx context.Context, onUpdate func(AppConfig), onError func(error)) error {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.handleChange(onUpdate, onError)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if onError != nil {
				onError(err)
			}
		}
	}
}

func (w *Watcher) handleChange(onUpdate func(AppConfig), onError func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if time.Since(w.lastReload) < w.cooldown {
		return
	}

	cfg, err := LoadWithEnvOverrides(w.path)
	if err != nil {
		if onError != nil {
			onError(fmt.Errorf("reload config: %w", err))
		}
		return
	}
	w.lastReload = time.Now()
	if onUpdate != nil {
		onUpdate(cfg)
	}
}

// LastReloadTime 返回最近一次成功重载的时间。
func (w *Watcher) LastReloadTime() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastReload
}
