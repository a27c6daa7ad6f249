// Package upload 管理多张图片的上传进度
// 每张图片独立上传，失败的可以单独重试，全部成功后才保存照片
package upload

import (
	"errors"
	"fmt"
	"sync"

	"chuan-dai/internal/client/api"
	"chuan-dai/internal/model"
)

// Status 单张图片的上传状态
type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
)

var (
	// ErrIncomplete 还有图片没有上传成功
	ErrIncomplete = errors.New("还有图片未上传成功")
	// ErrNoImages 没有可保存的图片
	ErrNoImages = errors.New("没有图片")
)

// Uploader 上传一张图片，由 api.Client 实现
type Uploader interface {
	UploadImage(base64Data, subfolder string) (*api.UploadResult, error)
}

// PhotoSaver 保存照片记录，由 api.Client 实现
type PhotoSaver interface {
	SavePhoto(req *api.SavePhotoRequest) (*model.Photo, error)
}

// Image 一张待上传的图片
type Image struct {
	Name    string // 本地文件名，仅用于展示
	DataURI string // data:image/...;base64,...
	Width   int
	Height  int

	Status Status
	URL    string
	Key    string
	Err    error
}

// Tracker 上传进度
type Tracker struct {
	uploader  Uploader
	subfolder string

	mu       sync.Mutex
	images   []Image
	onChange func(index int, img Image)
}

// NewTracker 创建上传进度
// 参数:
//   - subfolder: 上传到的子目录，为空时使用服务端默认目录
func NewTracker(uploader Uploader, subfolder string) *Tracker {
	return &Tracker{uploader: uploader, subfolder: subfolder}
}

// OnChange 设置状态变化回调
func (t *Tracker) OnChange(fn func(index int, img Image)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = fn
}

// Add 加入一张图片，返回序号
func (t *Tracker) Add(name, dataURI string, width, height int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.images = append(t.images, Image{
		Name:    name,
		DataURI: dataURI,
		Width:   width,
		Height:  height,
		Status:  StatusPending,
	})
	return len(t.images) - 1
}

// Images 当前所有图片的快照
func (t *Tracker) Images() []Image {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Image, len(t.images))
	copy(out, t.images)
	return out
}

// Run 上传所有待上传和失败的图片
// 返回失败的数量
func (t *Tracker) Run() int {
	failed := 0
	for i, img := range t.Images() {
		if img.Status == StatusSuccess || img.Status == StatusUploading {
			continue
		}
		if err := t.upload(i); err != nil {
			failed++
		}
	}
	return failed
}

// Retry 重新上传指定的图片
func (t *Tracker) Retry(index int) error {
	t.mu.Lock()
	if index < 0 || index >= len(t.images) {
		t.mu.Unlock()
		return fmt.Errorf("图片序号 %d 不存在", index)
	}
	if t.images[index].Status == StatusSuccess {
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()
	return t.upload(index)
}

func (t *Tracker) upload(index int) error {
	t.set(index, func(img *Image) {
		img.Status = StatusUploading
		img.Err = nil
	})

	t.mu.Lock()
	dataURI := t.images[index].DataURI
	t.mu.Unlock()

	result, err := t.uploader.UploadImage(dataURI, t.subfolder)
	if err != nil {
		t.set(index, func(img *Image) {
			img.Status = StatusError
			img.Err = err
		})
		return err
	}

	t.set(index, func(img *Image) {
		img.Status = StatusSuccess
		img.URL = result.URL
		img.Key = result.Key
	})
	return nil
}

func (t *Tracker) set(index int, fn func(img *Image)) {
	t.mu.Lock()
	fn(&t.images[index])
	img := t.images[index]
	onChange := t.onChange
	t.mu.Unlock()

	if onChange != nil {
		onChange(index, img)
	}
}

// AllSucceeded 是否全部上传成功
func (t *Tracker) AllSucceeded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.images) == 0 {
		return false
	}
	for _, img := range t.images {
		if img.Status != StatusSuccess {
			return false
		}
	}
	return true
}

// Save 为每张上传成功的图片保存一条照片记录
// 只要有一张没有成功就不保存任何记录
// 参数:
//   - template: 标题、描述、情绪标签和聚会，URL 和尺寸按图片填写
func (t *Tracker) Save(saver PhotoSaver, template api.SavePhotoRequest) ([]*model.Photo, error) {
	images := t.Images()
	if len(images) == 0 {
		return nil, ErrNoImages
	}
	if !t.AllSucceeded() {
		return nil, ErrIncomplete
	}

	photos := make([]*model.Photo, 0, len(images))
	for _, img := range images {
		req := template
		req.URL = img.URL
		req.Width = img.Width
		req.Height = img.Height
		photo, err := saver.SavePhoto(&req)
		if err != nil {
			return photos, fmt.Errorf("保存 %s 失败: %w", img.Name, err)
		}
		photos = append(photos, photo)
	}
	return photos, nil
}
