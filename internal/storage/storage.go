// Package storage 提供图片对象存储
// 对象按内容寻址，同样的字节总是写到同一个 Key
package storage

import (
	"context"
	"fmt"
	"strings"

	"chuan-dai/internal/config"
)

// Storage 对象存储接口
type Storage interface {
	// Put 写入对象，Key 已存在时覆盖
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Exists 检查对象是否存在
	Exists(ctx context.Context, key string) (bool, error)
	// URL 返回对象的公开访问地址
	URL(key string) string
}

// New 根据配置创建存储驱动
func New(cfg config.StorageConfig) (Storage, error) {
	switch cfg.Driver {
	case "cos":
		return NewCOSStorage(cfg.COSBucketURL, cfg.COSSecretID, cfg.COSSecretKey, cfg.CDNDomain)
	case "local", "":
		return NewLocalStorage(cfg.LocalDir, cfg.CDNDomain)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}

// joinURL 拼接访问域名和 Key
func joinURL(domain, key string) string {
	return strings.TrimRight(domain, "/") + "/" + strings.TrimLeft(key, "/")
}
