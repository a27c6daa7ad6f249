package util

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ErrInvalidDataURI 不是合法的 base64 图片 Data URI
var ErrInvalidDataURI = errors.New("无效的图片数据")

// imageExtensions 声明的 MIME 类型到文件扩展名
var imageExtensions = map[string]string{
	"image/jpeg":    ".jpg",
	"image/jpg":     ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/heic":    ".heic",
	"image/heif":    ".heif",
	"image/avif":    ".avif",
	"image/bmp":     ".bmp",
	"image/svg+xml": ".svg",
}

// ImageExtension 根据 MIME 类型推断扩展名，未知类型按 .jpg 处理
func ImageExtension(mimeType string) string {
	if ext, ok := imageExtensions[strings.ToLower(mimeType)]; ok {
		return ext
	}
	return ".jpg"
}

// DataURI 解析后的图片数据
type DataURI struct {
	MIMEType string
	Data     []byte
}

// ParseImageDataURI 解析 data:image/<type>;base64,<payload> 格式的字符串
// 参数:
//   - s: Data URI
//   - maxBytes: 解码后的最大字节数，<= 0 表示不限制
//
// 返回:
//   - *DataURI: 解码后的数据
//   - error: 格式不合法、为空或超出大小限制时返回 ErrInvalidDataURI
func ParseImageDataURI(s string, maxBytes int64) (*DataURI, error) {
	if !strings.HasPrefix(s, "data:image/") {
		return nil, ErrInvalidDataURI
	}
	header, payload, found := strings.Cut(s[len("data:"):], ",")
	if !found {
		return nil, ErrInvalidDataURI
	}

	// header 形如 image/png;base64，可能带有其他参数
	params := strings.Split(header, ";")
	mimeType := params[0]
	isBase64 := false
	for _, p := range params[1:] {
		if p == "base64" {
			isBase64 = true
		}
	}
	if !isBase64 || mimeType == "image/" {
		return nil, ErrInvalidDataURI
	}

	// 预估解码长度，避免为超大输入分配内存
	if maxBytes > 0 && int64(base64.StdEncoding.DecodedLen(len(payload))) > maxBytes+2 {
		return nil, ErrInvalidDataURI
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, ErrInvalidDataURI
	}
	if len(data) == 0 || (maxBytes > 0 && int64(len(data)) > maxBytes) {
		return nil, ErrInvalidDataURI
	}

	return &DataURI{MIMEType: mimeType, Data: data}, nil
}

// EncodeImageDataURI 将图片字节编码为 Data URI
func EncodeImageDataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
