// Package util 提供通用工具函数
package util

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword 使用 bcrypt 哈希密码
// 参数:
//   - password: 明文密码
//
// 返回:
//   - string: 密码哈希值
//   - error: 哈希错误
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword 验证密码是否匹配
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// GenerateUUID 生成不含连字符的 UUID v4
func GenerateUUID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// GenerateSessionID 生成登录会话 ID
// 40 个十六进制字符，不可预测
func GenerateSessionID() string {
	bytes := make([]byte, 20)
	if _, err := rand.Read(bytes); err != nil {
		// 系统随机源不可用时退回 UUID
		return GenerateUUID()
	}
	return hex.EncodeToString(bytes)
}

// 易于区分的大写字母和数字，避免 0/O、1/I/L 等容易混淆的字符
const readableChars = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// GenerateReadableCode 生成便于人工输入的随机码
// 用于聚会邀请码、订单号后缀
func GenerateReadableCode(length int) string {
	return randomFrom(readableChars, length)
}

// GenerateNumericCode 生成纯数字随机码，用于短信验证码
func GenerateNumericCode(length int) string {
	return randomFrom("0123456789", length)
}

// GenerateRandomString 生成指定长度的随机字符串
func GenerateRandomString(length int) string {
	return randomFrom("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789", length)
}

func randomFrom(chars string, length int) string {
	result := make([]byte, length)
	max := big.NewInt(int64(len(chars)))
	for i := range result {
		n, _ := rand.Int(rand.Reader, max)
		result[i] = chars[n.Int64()]
	}
	return string(result)
}

// TruncateString 按字符截断字符串到指定长度
// 超过长度时截断并添加 "..."
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// StringPtr 返回字符串的指针
// 用于可选字段的赋值
func StringPtr(s string) *string {
	return &s
}

// NonEmptyPtr 去掉首尾空白，空字符串返回 nil
func NonEmptyPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Int64Ptr 返回 int64 的指针
func Int64Ptr(i int64) *int64 {
	return &i
}
