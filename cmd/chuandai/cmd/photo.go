package cmd

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"chuan-dai/internal/client/api"
	"chuan-dai/internal/client/upload"
	"chuan-dai/pkg/util"
)

// maxRetries 每张图片上传失败后的自动重试次数
const maxRetries = 2

var photoCmd = &cobra.Command{
	Use:   "photo",
	Short: "照片墙",
}

var photoUploadCmd = &cobra.Command{
	Use:   "upload <图片...>",
	Short: "上传照片",
	Long: `上传一张或多张照片到照片墙。

每张图片先单独上传，失败的会自动重试；只有全部上传成功才会保存到照片墙。`,
	Args: cobra.MinimumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return requireLogin()
	},
	RunE: runPhotoUpload,
}

var photoListCmd = &cobra.Command{
	Use:   "list",
	Short: "浏览照片墙",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")
		pageSize, _ := cmd.Flags().GetInt("page-size")
		result, err := newClient().ListPhotos(page, pageSize)
		if err != nil {
			return err
		}
		if len(result.Items) == 0 {
			fmt.Println("照片墙还是空的")
			return nil
		}

		for _, p := range result.Items {
			uploader := "Guest"
			if p.Uploader != nil {
				uploader = p.Uploader.Nickname
			}
			fav := "♡"
			if p.IsFavorited {
				fav = "♥"
			}
			fmt.Printf("#%d %s  by %s  %s %d  💬 %d\n    %s\n", p.ID, p.Title, uploader, fav, p.FavoriteCount, p.CommentCount, p.URL)
		}
		fmt.Printf("第 %d 页，共 %d 张", result.Page, result.Total)
		if result.HasMore {
			fmt.Printf("，下一页: chuandai photo list --page %d", result.Page+1)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	photoUploadCmd.Flags().StringP("title", "t", "", "标题（必填）")
	photoUploadCmd.Flags().StringP("description", "d", "", "描述")
	photoUploadCmd.Flags().StringP("emotion", "e", "", "情绪标签 HAPPY / EXCITED / WARM / NOSTALGIC / FUNNY")
	photoUploadCmd.Flags().Int64P("gathering", "g", 0, "关联的聚会 ID")
	photoUploadCmd.Flags().String("subfolder", "", "上传目录")
	photoUploadCmd.MarkFlagRequired("title")

	photoListCmd.Flags().IntP("page", "p", 1, "页码")
	photoListCmd.Flags().Int("page-size", 0, "每页数量，默认 20")

	photoCmd.AddCommand(photoUploadCmd, photoListCmd)
	rootCmd.AddCommand(photoCmd)
}

func runPhotoUpload(cmd *cobra.Command, args []string) error {
	subfolder, _ := cmd.Flags().GetString("subfolder")
	client := newClient()
	tracker := upload.NewTracker(client, subfolder)

	for _, path := range args {
		dataURI, width, height, err := readImage(path)
		if err != nil {
			return err
		}
		tracker.Add(filepath.Base(path), dataURI, width, height)
	}

	tracker.OnChange(func(index int, img upload.Image) {
		switch img.Status {
		case upload.StatusUploading:
			fmt.Printf("⏫ [%d/%d] %s 上传中...\n", index+1, len(args), img.Name)
		case upload.StatusSuccess:
			fmt.Printf("✓ [%d/%d] %s\n", index+1, len(args), img.Name)
		case upload.StatusError:
			fmt.Printf("✗ [%d/%d] %s: %s\n", index+1, len(args), img.Name, describeError(img.Err))
		}
	})

	failed := tracker.Run()
	for attempt := 0; failed > 0 && attempt < maxRetries; attempt++ {
		fmt.Printf("🔁 重试 %d 张失败的图片\n", failed)
		failed = tracker.Run()
	}
	if failed > 0 {
		return fmt.Errorf("%d 张图片上传失败，照片未保存", failed)
	}

	template := api.SavePhotoRequest{}
	template.Title, _ = cmd.Flags().GetString("title")
	template.Description, _ = cmd.Flags().GetString("description")
	template.EmotionTag, _ = cmd.Flags().GetString("emotion")
	if gathering, _ := cmd.Flags().GetInt64("gathering"); gathering > 0 {
		template.GatheringID = &gathering
	}

	photos, err := tracker.Save(client, template)
	for _, p := range photos {
		fmt.Printf("📷 已保存 #%d %s\n", p.ID, p.URL)
	}
	return err
}

// readImage 读取本地图片并编码为 Data URI
// 尺寸解析失败时返回 0，由服务端保存为未知尺寸
func readImage(path string) (dataURI string, width, height int, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", 0, 0, fmt.Errorf("读取 %s 失败: %w", path, err)
	}

	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return "", 0, 0, fmt.Errorf("%s 不是图片 (%s)", path, mimeType)
	}

	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		width, height = cfg.Width, cfg.Height
	}
	return util.EncodeImageDataURI(mimeType, data), width, height, nil
}
