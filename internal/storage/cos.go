package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	cos "github.com/tencentyun/cos-go-sdk-v5"
)

// COSStorage 腾讯云对象存储
type COSStorage struct {
	client    *cos.Client
	cdnDomain string
}

// NewCOSStorage 创建 COS 存储
// 参数:
//   - bucketURL: 存储桶地址，如 https://bucket-1250000000.cos.ap-shanghai.myqcloud.com
//   - secretID / secretKey: 访问密钥
//   - cdnDomain: 对外访问域名，为空时使用存储桶地址
func NewCOSStorage(bucketURL, secretID, secretKey, cdnDomain string) (*COSStorage, error) {
	u, err := url.Parse(bucketURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid cos bucket url: %q", bucketURL)
	}
	if cdnDomain == "" {
		cdnDomain = bucketURL
	}

	client := cos.NewClient(&cos.BaseURL{BucketURL: u}, &http.Client{
		Timeout: 60 * time.Second,
		Transport: &cos.AuthorizationTransport{
			SecretID:  secretID,
			SecretKey: secretKey,
		},
	})

	return &COSStorage{client: client, cdnDomain: cdnDomain}, nil
}

func (s *COSStorage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	opt := &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{
			ContentType:   contentType,
			ContentLength: int64(len(data)),
			// Key 由内容哈希决定，内容不会变化
			CacheControl: "public, max-age=31536000, immutable",
		},
	}
	if _, err := s.client.Object.Put(ctx, key, bytes.NewReader(data), opt); err != nil {
		return fmt.Errorf("cos put %s: %w", key, err)
	}
	return nil
}

func (s *COSStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.Object.Head(ctx, key, nil)
	if err == nil {
		return true, nil
	}
	if cos.IsNotFoundError(err) {
		return false, nil
	}
	return false, err
}

func (s *COSStorage) URL(key string) string {
	return joinURL(s.cdnDomain, key)
}
