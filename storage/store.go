// Package storage 提供游戏存档的持久化抽象。
// 后端由配置节 storage 选择，可选 sqlite（本地文件）或 mongo（远端集合），
// 并可叠加 Redis 读穿缓存。
package storage

import (
	"context"
	"fmt"
)

// Store 存档仓库抽象。值为不透明字节串，序列化由调用方决定。
//
// Get 在键不存在时返回 NotFoundError；Delete 对不存在的键静默成功；
// Keys 返回按字典序排序的全部键。
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// NotFoundError 键不存在
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("storage: key '%s' not found", e.Key)
}
