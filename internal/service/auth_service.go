package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"chuan-dai/internal/cache"
	"chuan-dai/internal/model"
	"chuan-dai/internal/repository"
	"chuan-dai/pkg/jwt"
	"chuan-dai/pkg/util"
)

// 定义业务错误
var (
	ErrUserExists          = errors.New("账号已存在")
	ErrUserNotFound        = errors.New("用户不存在")
	ErrUserDisabled        = errors.New("账号已被禁用")
	ErrInvalidCredentials  = errors.New("账号或密码错误")
	ErrPhoneExists         = errors.New("该手机号已注册")
	ErrPhoneNotRegistered  = errors.New("该手机号未注册")
	ErrOTPRequired         = errors.New("请输入短信验证码")
	ErrInvalidRefreshToken = errors.New("Refresh Token 无效或已过期")
)

// OTP 用途
const (
	OTPPurposeRegister = "register"
	OTPPurposeLogin    = "login"
	OTPPurposeReset    = "reset"
)

// AuthService 认证服务
// 处理注册、密码登录、验证码登录、重置密码和登出
type AuthService struct {
	userRepo       *repository.UserRepository
	sessionService *SessionService
	otpService     *OTPService
	store          cache.Store
	jwtService     *jwt.JWTService
	now            func() time.Time
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	userRepo *repository.UserRepository,
	sessionService *SessionService,
	otpService *OTPService,
	store cache.Store,
	jwtService *jwt.JWTService,
) *AuthService {
	return &AuthService{
		userRepo:       userRepo,
		sessionService: sessionService,
		otpService:     otpService,
		store:          store,
		jwtService:     jwtService,
		now:            time.Now,
	}
}

// SignUpRequest 注册请求
type SignUpRequest struct {
	Account         string `json:"account" binding:"required,min=3,max=20"`
	Password        string `json:"password" binding:"required,min=6,max=20"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=Password"`
	Nickname        string `json:"nickname" binding:"omitempty,max=20"`
	Phone           string `json:"phone" binding:"omitempty,cnphone"`
	Code            string `json:"code" binding:"omitempty,len=6,numeric"`
}

// SignInRequest 密码登录请求
type SignInRequest struct {
	Account  string `json:"account" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SendOTPRequest 发送验证码请求
type SendOTPRequest struct {
	Phone string `json:"phone" binding:"required,cnphone"`
	Type  string `json:"type" binding:"required,oneof=register login reset"`
}

// OTPSignInRequest 验证码登录请求
type OTPSignInRequest struct {
	Phone string `json:"phone" binding:"required,cnphone"`
	Code  string `json:"code" binding:"required,len=6,numeric"`
}

// ResetPasswordRequest 通过验证码重置密码
type ResetPasswordRequest struct {
	Phone           string `json:"phone" binding:"required,cnphone"`
	Code            string `json:"code" binding:"required,len=6,numeric"`
	NewPassword     string `json:"new_password" binding:"required,min=6,max=20"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=NewPassword"`
}

// AuthResult 登录或注册成功的结果
// Session 用于写 Cookie，Token 供 API 客户端使用
type AuthResult struct {
	Session      *model.Session `json:"-"`
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresIn    int64          `json:"expires_in"`
	User         *model.User    `json:"user"`
}

// SignUp 注册
// 昵称默认为账号；同时提供手机号时必须先通过 register 验证码校验
func (s *AuthService) SignUp(ctx context.Context, req *SignUpRequest, meta ClientMeta) (*AuthResult, error) {
	exists, err := s.userRepo.ExistsByAccount(ctx, req.Account)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserExists
	}

	if req.Phone != "" {
		if req.Code == "" {
			return nil, ErrOTPRequired
		}
		exists, err := s.userRepo.ExistsByPhone(ctx, req.Phone)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrPhoneExists
		}
		ok, err := s.otpService.Verify(ctx, req.Phone, req.Code)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrOTPInvalid
		}
	}

	passwordHash, err := util.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	nickname := req.Nickname
	if nickname == "" {
		nickname = req.Account
	}

	user := &model.User{
		Account:      req.Account,
		PasswordHash: passwordHash,
		Nickname:     &nickname,
		Status:       1,
	}
	if req.Phone != "" {
		user.Phone = &req.Phone
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// 并发注册同一账号时由唯一索引兜底
		if isDuplicateKey(err) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	return s.issue(ctx, user, meta)
}

// SignIn 账号密码登录
// 账号不存在和密码错误返回同一个错误
func (s *AuthService) SignIn(ctx context.Context, req *SignInRequest, meta ClientMeta) (*AuthResult, error) {
	user, err := s.userRepo.GetByAccount(ctx, req.Account)
	if err != nil {
		return nil, err
	}
	if user == nil || !util.CheckPassword(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if user.Status != 1 {
		return nil, ErrUserDisabled
	}
	return s.issue(ctx, user, meta)
}

// SendOTP 发送短信验证码
// register 要求手机号未注册，login 和 reset 要求已注册
func (s *AuthService) SendOTP(ctx context.Context, req *SendOTPRequest) error {
	exists, err := s.userRepo.ExistsByPhone(ctx, req.Phone)
	if err != nil {
		return err
	}

	switch req.Type {
	case OTPPurposeRegister:
		if exists {
			return ErrPhoneExists
		}
	case OTPPurposeLogin, OTPPurposeReset:
		if !exists {
			return ErrPhoneNotRegistered
		}
	}

	return s.otpService.Send(ctx, req.Phone)
}

// SignInWithOTP 手机验证码登录
func (s *AuthService) SignInWithOTP(ctx context.Context, req *OTPSignInRequest, meta ClientMeta) (*AuthResult, error) {
	user, err := s.userRepo.GetByPhone(ctx, req.Phone)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrPhoneNotRegistered
	}

	ok, err := s.otpService.Verify(ctx, req.Phone, req.Code)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOTPInvalid
	}
	if user.Status != 1 {
		return nil, ErrUserDisabled
	}

	return s.issue(ctx, user, meta)
}

// ResetPassword 通过短信验证码重置密码
// 重置后该用户的所有会话失效
func (s *AuthService) ResetPassword(ctx context.Context, req *ResetPasswordRequest) error {
	user, err := s.userRepo.GetByPhone(ctx, req.Phone)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrPhoneNotRegistered
	}

	ok, err := s.otpService.Verify(ctx, req.Phone, req.Code)
	if err != nil {
		return err
	}
	if !ok {
		return ErrOTPInvalid
	}

	hash, err := util.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdateFields(ctx, user.ID, map[string]interface{}{"password_hash": hash}); err != nil {
		return err
	}
	return s.sessionService.InvalidateUser(ctx, user.ID)
}

// SignOut 登出
// 参数:
//   - sessionID: Cookie 中的会话 ID，可为空
//   - token: Bearer Token，可为空；非空时加入黑名单直到其自然过期
//   - tokenExp: Token 的过期时间
//   - refreshToken: 客户端持有的 Refresh Token，可为空；有效时同样加入黑名单
func (s *AuthService) SignOut(ctx context.Context, sessionID, token string, tokenExp time.Time, refreshToken string) error {
	if err := s.sessionService.Invalidate(ctx, sessionID); err != nil {
		return err
	}
	if token != "" {
		if err := s.revoke(ctx, token, tokenExp); err != nil {
			return err
		}
	}
	if refreshToken == "" {
		return nil
	}
	// 无效或已过期的 Refresh Token 本身已不能使用
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil
	}
	return s.revoke(ctx, refreshToken, claims.ExpiresAt.Time)
}

// revoke 把 Token 加入黑名单，TTL 为 Token 的剩余有效期
func (s *AuthService) revoke(ctx context.Context, token string, exp time.Time) error {
	ttl := exp.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.store.Set(ctx, blacklistKey(token), "1", ttl)
}

// IsTokenRevoked 检查 Token 是否已登出
func (s *AuthService) IsTokenRevoked(ctx context.Context, token string) bool {
	exists, err := s.store.Exists(ctx, blacklistKey(token))
	if err != nil {
		zap.L().Warn("check token blacklist failed", zap.Error(err))
		return false
	}
	return exists
}

func blacklistKey(token string) string {
	return "jwt:blacklist:" + jwt.HashToken(token)
}

// RefreshTokenResponse 刷新 Token 响应
type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// RefreshToken 使用 Refresh Token 换取新的 Access Token 和 Refresh Token
// 旧的 Refresh Token 立即作废，每个 Refresh Token 只能使用一次
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*RefreshTokenResponse, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil || s.IsTokenRevoked(ctx, refreshToken) {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.Status != 1 {
		return nil, ErrUserDisabled
	}

	accessToken, err := s.jwtService.GenerateAccessToken(user.ID, user.Account)
	if err != nil {
		return nil, err
	}
	nextRefresh, err := s.jwtService.GenerateRefreshToken(user.ID, user.Account)
	if err != nil {
		return nil, err
	}
	if err := s.revoke(ctx, refreshToken, claims.ExpiresAt.Time); err != nil {
		return nil, err
	}

	return &RefreshTokenResponse{
		AccessToken:  accessToken,
		RefreshToken: nextRefresh,
		ExpiresIn:    int64(s.jwtService.GetAccessExpire().Seconds()),
	}, nil
}

// issue 记录登录信息，创建会话并签发 Token
func (s *AuthService) issue(ctx context.Context, user *model.User, meta ClientMeta) (*AuthResult, error) {
	now := s.now()
	fields := map[string]interface{}{"last_login_at": now}
	if meta.IP != "" {
		fields["last_login_ip"] = meta.IP
	}
	if err := s.userRepo.UpdateFields(ctx, user.ID, fields); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now

	session, err := s.sessionService.Create(ctx, user.ID, meta)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.jwtService.GenerateAccessToken(user.ID, user.Account)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.jwtService.GenerateRefreshToken(user.ID, user.Account)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		Session:      session,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtService.GetAccessExpire().Seconds()),
		User:         user,
	}, nil
}
