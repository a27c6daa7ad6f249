package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"chuan-dai/internal/model"
	"chuan-dai/internal/repository"
	"chuan-dai/pkg/util"
)

// 用户服务相关错误
var (
	ErrPasswordWrong   = errors.New("当前密码错误")
	ErrInvalidGender   = errors.New("性别取值无效")
	ErrInvalidBirthday = errors.New("生日格式应为 YYYY-MM-DD")
	ErrNicknameEmpty   = errors.New("昵称不能为空")
)

const birthdayLayout = "2006-01-02"

// UserService 用户服务
// 处理用户资料的查询和更新
type UserService struct {
	userRepo       *repository.UserRepository
	sessionService *SessionService
}

// NewUserService 创建 UserService 实例
func NewUserService(userRepo *repository.UserRepository, sessionService *SessionService) *UserService {
	return &UserService{
		userRepo:       userRepo,
		sessionService: sessionService,
	}
}

// GetProfile 获取用户资料
// 参数:
//   - ctx: 上下文
//   - userID: 用户ID
//
// 返回:
//   - *model.User: 用户信息
//   - error: 用户不存在返回 ErrUserNotFound
func (s *UserService) GetProfile(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UpdateProfileRequest 更新用户资料请求
// 字段为 nil 表示不修改；Gender、Birthday、Bio、Avatar 传空字符串表示清空
type UpdateProfileRequest struct {
	Nickname *string `json:"nickname" binding:"omitempty,max=20"`
	Gender   *string `json:"gender"`
	Birthday *string `json:"birthday"`
	Bio      *string `json:"bio" binding:"omitempty,max=200"`
	Avatar   *string `json:"avatar" binding:"omitempty,max=500"`
}

// UpdateProfile 更新用户资料
// 返回:
//   - *model.User: 更新后的用户信息
//   - error: 校验失败或数据库错误
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req *UpdateProfileRequest) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	fields := make(map[string]interface{})

	if req.Nickname != nil {
		nickname := strings.TrimSpace(*req.Nickname)
		if nickname == "" {
			return nil, ErrNicknameEmpty
		}
		fields["nickname"] = nickname
	}

	if req.Gender != nil {
		switch *req.Gender {
		case "":
			fields["gender"] = nil
		case model.GenderMale, model.GenderFemale, model.GenderOther:
			fields["gender"] = *req.Gender
		default:
			return nil, ErrInvalidGender
		}
	}

	if req.Birthday != nil {
		if *req.Birthday == "" {
			fields["birthday"] = nil
		} else {
			birthday, err := time.Parse(birthdayLayout, *req.Birthday)
			if err != nil {
				return nil, ErrInvalidBirthday
			}
			fields["birthday"] = birthday
		}
	}

	if req.Bio != nil {
		fields["bio"] = util.NonEmptyPtr(*req.Bio)
	}

	if req.Avatar != nil {
		fields["avatar"] = util.NonEmptyPtr(*req.Avatar)
	}

	if len(fields) == 0 {
		return user, nil
	}

	if err := s.userRepo.UpdateFields(ctx, userID, fields); err != nil {
		return nil, err
	}

	return s.userRepo.GetByID(ctx, userID)
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=3,max=16"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=NewPassword"`
}

// ChangePassword 修改密码
// 修改成功后除当前会话外的其他会话全部失效
// 参数:
//   - keepSessionID: 当前请求的会话 ID，可为空
func (s *UserService) ChangePassword(ctx context.Context, userID int64, keepSessionID string, req *ChangePasswordRequest) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	if !util.CheckPassword(req.CurrentPassword, user.PasswordHash) {
		return ErrPasswordWrong
	}

	newHash, err := util.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}

	if err := s.userRepo.UpdateFields(ctx, userID, map[string]interface{}{
		"password_hash": newHash,
	}); err != nil {
		return err
	}

	return s.sessionService.InvalidateOthers(ctx, userID, keepSessionID)
}
