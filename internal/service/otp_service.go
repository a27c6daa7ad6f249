package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"chuan-dai/internal/cache"
	"chuan-dai/pkg/util"
)

// 验证码相关错误
var (
	ErrOTPTooFrequent = errors.New("验证码发送过于频繁，请稍后再试")
	ErrOTPInvalid     = errors.New("验证码错误或已过期")
)

const otpCodeLength = 6

// SMSSender 短信发送接口
type SMSSender interface {
	Send(ctx context.Context, phone, code string) error
}

// LogSMSSender 开发环境使用，只把验证码写入日志
type LogSMSSender struct{}

func (LogSMSSender) Send(_ context.Context, phone, code string) error {
	zap.L().Info("otp code", zap.String("phone", phone), zap.String("code", code))
	return nil
}

// otpEntry 存储在键值存储中的验证码
type otpEntry struct {
	Code      string `json:"code"`
	ExpiresAt int64  `json:"expires_at"` // 毫秒时间戳
}

// OTPService 短信验证码服务
// 验证码一次有效，过期自动失效，重发有最小间隔
type OTPService struct {
	store  cache.Store
	sender SMSSender
	ttl    time.Duration // 验证码有效期
	resend time.Duration // 重发最小间隔
	now    func() time.Time
}

// NewOTPService 创建 OTPService 实例
// 参数:
//   - store: 键值存储（内存或 Redis）
//   - sender: 短信发送器
//   - ttl: 有效期，默认 5 分钟
//   - resend: 重发间隔，默认 1 分钟
func NewOTPService(store cache.Store, sender SMSSender, ttl, resend time.Duration) *OTPService {
	return &OTPService{
		store:  store,
		sender: sender,
		ttl:    ttl,
		resend: resend,
		now:    time.Now,
	}
}

func otpKey(phone string) string {
	return "otp:" + phone
}

// otpLockKey 重发间隔内存在，用 SetNX 抢占，同一手机号并发发送只有一个成功
func otpLockKey(phone string) string {
	return "otp:lock:" + phone
}

// Send 生成并发送验证码
// 距上次发送不足 resend 时拒绝重发
// 返回:
//   - error: ErrOTPTooFrequent 或存储、发送错误
func (s *OTPService) Send(ctx context.Context, phone string) error {
	key := otpKey(phone)
	lockKey := otpLockKey(phone)
	now := s.now()

	if s.resend > 0 {
		acquired, err := s.store.SetNX(ctx, lockKey, "1", s.resend)
		if err != nil {
			return err
		}
		if !acquired {
			return ErrOTPTooFrequent
		}
	}

	entry := otpEntry{
		Code:      util.GenerateNumericCode(otpCodeLength),
		ExpiresAt: now.Add(s.ttl).UnixMilli(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		_ = s.store.Delete(ctx, lockKey)
		return err
	}
	if err := s.store.Set(ctx, key, string(data), s.ttl); err != nil {
		_ = s.store.Delete(ctx, lockKey)
		return err
	}

	if err := s.sender.Send(ctx, phone, entry.Code); err != nil {
		// 发送失败时撤回，允许用户立即重试
		_ = s.store.Delete(ctx, key)
		_ = s.store.Delete(ctx, lockKey)
		return err
	}
	return nil
}

// Verify 校验验证码
// 校验成功后验证码立即作废；过期的验证码会被删除；输错不会删除
// 返回:
//   - bool: 是否校验通过
//   - error: 存储错误
func (s *OTPService) Verify(ctx context.Context, phone, code string) (bool, error) {
	key := otpKey(phone)

	raw, ok, err := s.store.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}

	var entry otpEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		_ = s.store.Delete(ctx, key)
		return false, nil
	}

	if !s.now().Before(time.UnixMilli(entry.ExpiresAt)) {
		_ = s.store.Delete(ctx, key)
		return false, nil
	}

	if entry.Code != code {
		return false, nil
	}

	// 原子消费，并发的两次校验只有一次能成功
	return s.store.CompareAndDelete(ctx, key, raw)
}
