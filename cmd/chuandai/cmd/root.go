// Package cmd 实现 CLI 命令
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"chuan-dai/internal/client/api"
	"chuan-dai/internal/client/cart"
	"chuan-dai/internal/client/config"
)

var rootCmd = &cobra.Command{
	Use:   "chuandai",
	Short: "川味小馆 - 点菜、下单、照片墙",
	Long: `川味小馆 CLI 客户端

浏览菜单、管理购物车并下单，实时查看订单状态，上传聚会照片。

首次使用请运行 'chuandai login' 或 'chuandai otp send <手机号>'。`,
	SilenceUsage: true,
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗", describeError(err))
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// 全局参数
	rootCmd.PersistentFlags().StringP("server", "s", "", "服务器地址 (默认: http://localhost:8080)")
	rootCmd.PersistentFlags().StringP("locale", "l", "", "显示语言 zh / en")
}

func initConfig() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "初始化配置失败: %v\n", err)
		os.Exit(1)
	}

	if server, _ := rootCmd.PersistentFlags().GetString("server"); server != "" {
		config.SetServerURL(server)
	}
	if locale, _ := rootCmd.PersistentFlags().GetString("locale"); locale != "" {
		config.SetLocale(locale)
	}
}

// newClient 创建带登录凭证的 API 客户端
// Token 刷新后自动写回配置文件
func newClient() *api.Client {
	client := api.NewClient(config.GetServerURL())
	client.SetTokens(config.GetAccessToken(), config.GetRefreshToken())
	client.OnRefresh(func(accessToken, refreshToken string) {
		if err := config.SaveTokens(accessToken, refreshToken); err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  保存新 Token 失败: %v\n", err)
		}
	})
	return client
}

// requireLogin 未登录时直接返回错误
func requireLogin() error {
	if !config.IsLoggedIn() {
		return api.ErrNotLoggedIn
	}
	return nil
}

// openCart 打开本地购物车
func openCart() (*cart.Store, error) {
	return cart.NewStore(cart.FilePersister{Path: filepath.Join(config.Dir(), "cart.json")})
}

// displayName 按显示语言选择菜名
func displayName(name, nameEn string) string {
	if config.GetLocale() == "en" && nameEn != "" {
		return nameEn
	}
	return name
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("无效的 ID: %s", s)
	}
	return id, nil
}

// describeError 把 API 错误转成便于阅读的提示
func describeError(err error) string {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == 401 {
			return apiErr.Error() + "，请重新运行 'chuandai login'"
		}
		return apiErr.Error()
	}
	return err.Error()
}
