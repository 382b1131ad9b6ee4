// Package storage 保存模板文件的二进制存储
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrNotFound 键不存在
var ErrNotFound = errors.New("对象不存在")

// Storage 二进制对象存储接口
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// CleanKey 规范化键，拒绝空键和跳出根目录的键
func CleanKey(key string) (string, error) {
	key = strings.ReplaceAll(strings.TrimSpace(key), "\\", "/")
	if key == "" {
		return "", fmt.Errorf("键不能为空")
	}

	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(key, "/") {
		return "", fmt.Errorf("无效的键: %s", key)
	}
	return cleaned, nil
}
