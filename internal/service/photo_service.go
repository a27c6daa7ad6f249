package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"chuan-dai/internal/config"
	"chuan-dai/internal/model"
	"chuan-dai/internal/repository"
	"chuan-dai/internal/storage"
	"chuan-dai/pkg/util"
)

// 照片相关错误
var (
	ErrPhotoNotFound = errors.New("照片不存在")
	ErrInvalidImage  = errors.New("无效的图片数据")
	ErrUploadFailed  = errors.New("图片上传失败")
)

const (
	defaultPhotoPageSize = 20
	maxPhotoPageSize     = 50
	maxCommentLength     = 500
	maxPhotoTitleLength  = 100
)

var subfolderPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

// FieldError 单个字段的校验错误
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// PhotoService 照片墙服务
// 上传分两步：先逐张上传图片拿到 URL，全部成功后再保存照片
type PhotoService struct {
	photoRepo     *repository.PhotoRepository
	userRepo      *repository.UserRepository
	gatheringRepo *repository.GatheringRepository
	storage       storage.Storage
	notifier      Notifier
	basePath      string
	maxBytes      int64
}

// NewPhotoService 创建 PhotoService 实例
// 参数:
//   - store: 对象存储驱动
//   - cfg: 存储配置（基础路径和图片大小上限）
func NewPhotoService(
	photoRepo *repository.PhotoRepository,
	userRepo *repository.UserRepository,
	gatheringRepo *repository.GatheringRepository,
	store storage.Storage,
	notifier Notifier,
	cfg config.StorageConfig,
) *PhotoService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &PhotoService{
		photoRepo:     photoRepo,
		userRepo:      userRepo,
		gatheringRepo: gatheringRepo,
		storage:       store,
		notifier:      notifier,
		basePath:      strings.Trim(cfg.BasePath, "/"),
		maxBytes:      cfg.MaxImageBytes,
	}
}

// UploadImageRequest 图片上传请求
type UploadImageRequest struct {
	Base64Data string `json:"base64Data"`
	Subfolder  string `json:"subfolder"`
}

// UploadResult 图片上传结果
type UploadResult struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// uploadBodyOverhead 上传请求体中除 Base64 数据以外的部分：Data URI 前缀、子目录和 JSON 结构
const uploadBodyOverhead = 4 << 10

// MaxUploadBody 上传请求体的大小上限，0 表示不限制
// Base64 编码后体积约为原始数据的 4/3
func (s *PhotoService) MaxUploadBody() int64 {
	if s.maxBytes <= 0 {
		return 0
	}
	return (s.maxBytes+2)/3*4 + uploadBodyOverhead
}

// UploadImage 上传一张图片
// Key 为 {basePath}/{subfolder}/{md5}{ext}，同样的字节得到同样的 Key，对象已存在时不重复写入
// 返回:
//   - error: 数据不合法返回 ErrInvalidImage，存储失败返回 ErrUploadFailed
func (s *PhotoService) UploadImage(ctx context.Context, req *UploadImageRequest) (*UploadResult, error) {
	uri, err := util.ParseImageDataURI(req.Base64Data, s.maxBytes)
	if err != nil {
		return nil, ErrInvalidImage
	}

	subfolder := strings.Trim(req.Subfolder, "/")
	if subfolder != "" && !subfolderPattern.MatchString(subfolder) {
		return nil, ErrInvalidImage
	}

	key := s.objectKey(subfolder, uri.Data, uri.MIMEType)

	exists, err := s.storage.Exists(ctx, key)
	if err != nil {
		zap.L().Warn("check object failed", zap.String("key", key), zap.Error(err))
	}
	if !exists {
		if err := s.storage.Put(ctx, key, uri.Data, uri.MIMEType); err != nil {
			zap.L().Error("upload image failed", zap.String("key", key), zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
		}
	}

	return &UploadResult{URL: s.storage.URL(key), Key: key}, nil
}

// objectKey 按内容生成对象 Key
func (s *PhotoService) objectKey(subfolder string, data []byte, mimeType string) string {
	sum := md5.Sum(data)
	name := hex.EncodeToString(sum[:]) + util.ImageExtension(mimeType)
	return path.Join(s.basePath, subfolder, name)
}

// SavePhotoRequest 保存照片请求
type SavePhotoRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url"`
	MediumURL    string `json:"medium_url"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	EmotionTag   string `json:"emotion_tag"`
	GatheringID  *int64 `json:"gathering_id"`
}

// SavePhoto 保存照片
// 返回:
//   - *model.Photo: 新建的照片
//   - error: 字段校验失败返回 *FieldError
func (s *PhotoService) SavePhoto(ctx context.Context, uploaderID int64, req *SavePhotoRequest) (*model.Photo, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, &FieldError{Field: "title", Message: "标题不能为空"}
	}
	if utf8.RuneCountInString(title) > maxPhotoTitleLength {
		return nil, &FieldError{Field: "title", Message: "标题不能超过100个字符"}
	}

	url := strings.TrimSpace(req.URL)
	if url == "" {
		return nil, &FieldError{Field: "url", Message: "请先上传图片"}
	}

	if req.Width < 0 || req.Height < 0 {
		return nil, &FieldError{Field: "width", Message: "图片尺寸无效"}
	}

	var emotion *string
	if req.EmotionTag != "" {
		tag := strings.ToUpper(req.EmotionTag)
		if !model.ValidEmotionTag(tag) {
			return nil, &FieldError{Field: "emotion_tag", Message: "情绪标签无效"}
		}
		emotion = &tag
	}

	if req.GatheringID != nil {
		gathering, err := s.gatheringRepo.GetByID(ctx, *req.GatheringID)
		if err != nil {
			return nil, err
		}
		if gathering == nil {
			return nil, ErrGatheringNotFound
		}
	}

	photo := &model.Photo{
		Title:        title,
		Description:  util.NonEmptyPtr(req.Description),
		URL:          url,
		ThumbnailURL: util.NonEmptyPtr(req.ThumbnailURL),
		MediumURL:    util.NonEmptyPtr(req.MediumURL),
		Width:        req.Width,
		Height:       req.Height,
		EmotionTag:   emotion,
		UploaderID:   uploaderID,
		GatheringID:  req.GatheringID,
	}
	if err := s.photoRepo.Create(ctx, photo); err != nil {
		return nil, err
	}
	return photo, nil
}

// PhotoView 照片展示信息
type PhotoView struct {
	model.Photo
	Uploader      *model.UserBrief `json:"uploader,omitempty"`
	FavoriteCount int64            `json:"favorite_count"`
	CommentCount  int64            `json:"comment_count"`
	IsFavorited   bool             `json:"is_favorited"`
}

// PhotoPage 照片分页结果
type PhotoPage struct {
	Items    []PhotoView `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	HasMore  bool        `json:"has_more"`
}

// ListPhotos 分页获取照片墙
// 参数:
//   - userID: 当前用户，0 表示未登录
//   - page: 页码，从 1 开始
//   - pageSize: 每页数量，默认 20，最大 50
func (s *PhotoService) ListPhotos(ctx context.Context, userID int64, page, pageSize int) (*PhotoPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPhotoPageSize
	}
	if pageSize > maxPhotoPageSize {
		pageSize = maxPhotoPageSize
	}

	photos, total, err := s.photoRepo.List(ctx, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}

	items, err := s.decorate(ctx, userID, photos)
	if err != nil {
		return nil, err
	}

	return &PhotoPage{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		HasMore:  int64(page*pageSize) < total,
	}, nil
}

// GetPhoto 获取照片详情
func (s *PhotoService) GetPhoto(ctx context.Context, userID, photoID int64) (*PhotoView, error) {
	photo, err := s.photoRepo.GetByID(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if photo == nil {
		return nil, ErrPhotoNotFound
	}

	items, err := s.decorate(ctx, userID, []model.Photo{*photo})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

// decorate 补充上传者、收藏数、评论数和收藏标记
func (s *PhotoService) decorate(ctx context.Context, userID int64, photos []model.Photo) ([]PhotoView, error) {
	ids := make([]int64, 0, len(photos))
	for _, p := range photos {
		ids = append(ids, p.ID)
	}

	favorited, err := s.photoRepo.FavoritedPhotoIDs(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	favoriteCounts, err := s.photoRepo.CountFavorites(ctx, ids)
	if err != nil {
		return nil, err
	}
	commentCounts, err := s.photoRepo.CountComments(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]PhotoView, 0, len(photos))
	for _, p := range photos {
		views = append(views, PhotoView{
			Photo:         p,
			Uploader:      p.Uploader.Brief(),
			FavoriteCount: favoriteCounts[p.ID],
			CommentCount:  commentCounts[p.ID],
			IsFavorited:   favorited[p.ID],
		})
	}
	return views, nil
}

// TogglePhotoFavorite 切换照片收藏
func (s *PhotoService) TogglePhotoFavorite(ctx context.Context, userID, photoID int64) (*ToggleResult, error) {
	exists, err := s.photoRepo.Exists(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrPhotoNotFound
	}

	removed, err := s.photoRepo.RemoveFavorite(ctx, userID, photoID)
	if err != nil {
		return nil, err
	}
	if removed > 0 {
		return &ToggleResult{IsFavorite: false}, nil
	}

	if err := s.photoRepo.AddFavorite(ctx, userID, photoID); err != nil {
		return nil, err
	}
	return &ToggleResult{IsFavorite: true}, nil
}

// AddCommentRequest 发表评论请求
type AddCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

// CommentView 评论展示信息
type CommentView struct {
	ID        int64            `json:"id"`
	PhotoID   int64            `json:"photo_id"`
	Content   string           `json:"content"`
	CreatedAt time.Time        `json:"created_at"`
	Author    *model.UserBrief `json:"author"`
}

func newCommentView(c *model.PhotoComment) CommentView {
	return CommentView{
		ID:        c.ID,
		PhotoID:   c.PhotoID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
		Author:    c.Author.Brief(),
	}
}

// PhotoCommentNotice 新评论通知
type PhotoCommentNotice struct {
	PhotoID    int64       `json:"photo_id"`
	PhotoTitle string      `json:"photo_title"`
	Comment    CommentView `json:"comment"`
}

// AddComment 发表评论
// 内容去除首尾空白后长度为 1..500；评论他人照片时通知上传者
func (s *PhotoService) AddComment(ctx context.Context, authorID, photoID int64, content string) (*CommentView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, &FieldError{Field: "content", Message: "评论内容不能为空"}
	}
	if utf8.RuneCountInString(content) > maxCommentLength {
		return nil, &FieldError{Field: "content", Message: "评论不能超过500个字符"}
	}

	photo, err := s.photoRepo.GetByID(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if photo == nil {
		return nil, ErrPhotoNotFound
	}

	author, err := s.userRepo.GetByID(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if author == nil {
		return nil, ErrUserNotFound
	}

	comment := &model.PhotoComment{
		Content:  content,
		PhotoID:  photoID,
		AuthorID: authorID,
	}
	if err := s.photoRepo.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	comment.Author = author

	view := newCommentView(comment)
	if photo.UploaderID != authorID {
		s.notifier.NotifyUser(photo.UploaderID, NotifyPhotoComment, PhotoCommentNotice{
			PhotoID:    photo.ID,
			PhotoTitle: photo.Title,
			Comment:    view,
		})
	}
	return &view, nil
}

// ListComments 获取照片评论，最早的在前
func (s *PhotoService) ListComments(ctx context.Context, photoID int64) ([]CommentView, error) {
	exists, err := s.photoRepo.Exists(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrPhotoNotFound
	}

	comments, err := s.photoRepo.ListComments(ctx, photoID)
	if err != nil {
		return nil, err
	}

	views := make([]CommentView, 0, len(comments))
	for i := range comments {
		views = append(views, newCommentView(&comments[i]))
	}
	return views, nil
}
