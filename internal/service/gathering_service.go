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

// 聚会相关错误
var (
	ErrInvalidGatheringDate = errors.New("聚会日期格式应为 YYYY-MM-DD 或 RFC3339")
	ErrInviteCodeExhausted  = errors.New("邀请码生成失败，请重试")
)

const (
	inviteCodeLength   = 6
	inviteCodeAttempts = 3
)

// GatheringService 聚会服务
type GatheringService struct {
	gatheringRepo *repository.GatheringRepository
}

// NewGatheringService 创建 GatheringService 实例
func NewGatheringService(gatheringRepo *repository.GatheringRepository) *GatheringService {
	return &GatheringService{gatheringRepo: gatheringRepo}
}

// CreateGatheringRequest 创建聚会请求
type CreateGatheringRequest struct {
	Title       string `json:"title" binding:"required,max=100"`
	Description string `json:"description" binding:"omitempty,max=1000"`
	Date        string `json:"date" binding:"required"`
	Location    string `json:"location" binding:"omitempty,max=200"`
}

// Create 创建聚会并生成 6 位邀请码
func (s *GatheringService) Create(ctx context.Context, hostID int64, req *CreateGatheringRequest) (*model.Gathering, error) {
	date, err := parseGatheringDate(req.Date)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, &FieldError{Field: "title", Message: "标题不能为空"}
	}

	for attempt := 0; attempt < inviteCodeAttempts; attempt++ {
		gathering := &model.Gathering{
			Title:       title,
			Description: util.NonEmptyPtr(req.Description),
			Date:        date,
			Location:    util.NonEmptyPtr(req.Location),
			InviteCode:  util.GenerateReadableCode(inviteCodeLength),
			HostID:      hostID,
		}
		err := s.gatheringRepo.Create(ctx, gathering)
		if err == nil {
			return gathering, nil
		}
		if !isDuplicateKey(err) {
			return nil, err
		}
	}
	return nil, ErrInviteCodeExhausted
}

// List 获取全部聚会，日期最近的在前
func (s *GatheringService) List(ctx context.Context) ([]model.Gathering, error) {
	return s.gatheringRepo.List(ctx)
}

// GetByInviteCode 通过邀请码查找聚会，不区分大小写
func (s *GatheringService) GetByInviteCode(ctx context.Context, code string) (*model.Gathering, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != inviteCodeLength {
		return nil, ErrGatheringNotFound
	}
	gathering, err := s.gatheringRepo.GetByInviteCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if gathering == nil {
		return nil, ErrGatheringNotFound
	}
	return gathering, nil
}

func parseGatheringDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, ErrInvalidGatheringDate
}
