package service

import (
	"context"
	"time"

	"chuan-dai/internal/model"
	"chuan-dai/internal/repository"
	"chuan-dai/pkg/util"
)

// SessionService 浏览器登录会话服务
// 会话 ID 保存在 Cookie 中，剩余有效期不足一半时自动顺延
type SessionService struct {
	sessionRepo *repository.SessionRepository
	ttl         time.Duration
	now         func() time.Time
}

// NewSessionService 创建 SessionService 实例
// 参数:
//   - sessionRepo: 会话数据访问层
//   - ttl: 会话有效期（默认 7 天）
func NewSessionService(sessionRepo *repository.SessionRepository, ttl time.Duration) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		ttl:         ttl,
		now:         time.Now,
	}
}

// TTL 会话有效期
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Create 为用户创建新会话
func (s *SessionService) Create(ctx context.Context, userID int64, meta ClientMeta) (*model.Session, error) {
	session := &model.Session{
		ID:        util.GenerateSessionID(),
		UserID:    userID,
		ExpiresAt: s.now().Add(s.ttl),
		UserAgent: util.TruncateString(meta.UserAgent, 255),
		IP:        meta.IP,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Validate 校验会话
// 返回:
//   - *model.Session: 有效会话（User 已加载），无效时返回 nil
//   - bool: 本次是否顺延了有效期，顺延后需要重新下发 Cookie
//   - error: 数据库错误
func (s *SessionService) Validate(ctx context.Context, id string) (*model.Session, bool, error) {
	if id == "" {
		return nil, false, nil
	}

	session, err := s.sessionRepo.GetWithUser(ctx, id)
	if err != nil || session == nil {
		return nil, false, err
	}

	now := s.now()
	if session.Expired(now) || session.User == nil || session.User.Status != 1 {
		_ = s.sessionRepo.Delete(ctx, id)
		return nil, false, nil
	}

	if session.ExpiresAt.Sub(now) < s.ttl/2 {
		session.ExpiresAt = now.Add(s.ttl)
		if err := s.sessionRepo.UpdateExpiry(ctx, id, session.ExpiresAt); err != nil {
			return nil, false, err
		}
		return session, true, nil
	}

	return session, false, nil
}

// Invalidate 使会话失效
func (s *SessionService) Invalidate(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.sessionRepo.Delete(ctx, id)
}

// InvalidateUser 使用户的全部会话失效
func (s *SessionService) InvalidateUser(ctx context.Context, userID int64) error {
	return s.sessionRepo.DeleteByUser(ctx, userID)
}

// InvalidateOthers 使用户除当前会话外的其他会话失效
func (s *SessionService) InvalidateOthers(ctx context.Context, userID int64, keepID string) error {
	if keepID == "" {
		return s.sessionRepo.DeleteByUser(ctx, userID)
	}
	return s.sessionRepo.DeleteOthers(ctx, userID, keepID)
}

// PurgeExpired 清理过期会话
func (s *SessionService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.sessionRepo.DeleteExpired(ctx, s.now())
}
