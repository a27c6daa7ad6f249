// Package config 管理 CLI 客户端配置
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config CLI 配置结构
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Locale string       `mapstructure:"locale"` // zh / en，决定菜名显示语言
}

// ServerConfig 服务器配置
type ServerConfig struct {
	URL string `mapstructure:"url"` // HTTP API 地址
}

// AuthConfig 登录凭证
type AuthConfig struct {
	Account      string `mapstructure:"account"`       // 当前登录账号
	AccessToken  string `mapstructure:"access_token"`  // 访问 Token
	RefreshToken string `mapstructure:"refresh_token"` // 刷新 Token
}

var (
	cfg       *Config
	configDir string
)

// Init 初始化配置
// 配置文件位于 ~/.chuan-dai/config.yaml，不存在时写入默认值
func Init() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("获取用户目录失败: %w", err)
	}
	return InitDir(filepath.Join(home, ".chuan-dai"))
}

// InitDir 使用指定目录初始化配置
func InitDir(dir string) error {
	configDir = dir
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	viper.SetConfigFile(filepath.Join(configDir, "config.yaml"))
	viper.SetConfigType("yaml")

	viper.SetDefault("server.url", "http://localhost:8080")
	viper.SetDefault("auth.account", "")
	viper.SetDefault("auth.access_token", "")
	viper.SetDefault("auth.refresh_token", "")
	viper.SetDefault("locale", "zh")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return fmt.Errorf("读取配置失败: %w", err)
		}
		if err := viper.WriteConfig(); err != nil {
			return fmt.Errorf("写入默认配置失败: %w", err)
		}
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("解析配置失败: %w", err)
	}
	return nil
}

// Get 获取配置
func Get() *Config {
	return cfg
}

// Dir 配置目录，购物车等本地数据也保存在这里
func Dir() string {
	return configDir
}

// SaveAuth 保存登录凭证
func SaveAuth(account, accessToken, refreshToken string) error {
	viper.Set("auth.account", account)
	viper.Set("auth.access_token", accessToken)
	viper.Set("auth.refresh_token", refreshToken)
	if cfg != nil {
		cfg.Auth = AuthConfig{Account: account, AccessToken: accessToken, RefreshToken: refreshToken}
	}
	return viper.WriteConfig()
}

// SaveTokens 刷新 Token 后更新凭证，账号不变
func SaveTokens(accessToken, refreshToken string) error {
	return SaveAuth(GetAccount(), accessToken, refreshToken)
}

// ClearAuth 清除本地凭证
func ClearAuth() error {
	return SaveAuth("", "", "")
}

// GetAccount 获取当前登录账号
func GetAccount() string {
	if cfg == nil {
		return ""
	}
	return cfg.Auth.Account
}

// GetAccessToken 获取访问 Token
func GetAccessToken() string {
	if cfg == nil {
		return ""
	}
	return cfg.Auth.AccessToken
}

// GetRefreshToken 获取刷新 Token
func GetRefreshToken() string {
	if cfg == nil {
		return ""
	}
	return cfg.Auth.RefreshToken
}

// GetServerURL 获取服务器地址
func GetServerURL() string {
	if cfg == nil || cfg.Server.URL == "" {
		return "http://localhost:8080"
	}
	return strings.TrimRight(cfg.Server.URL, "/")
}

// SetServerURL 设置服务器地址，下次保存凭证时一并写入配置文件
func SetServerURL(url string) {
	viper.Set("server.url", url)
	if cfg != nil {
		cfg.Server.URL = url
	}
}

// GetLocale 获取显示语言
func GetLocale() string {
	if cfg == nil || cfg.Locale == "" {
		return "zh"
	}
	return cfg.Locale
}

// SetLocale 设置显示语言
func SetLocale(locale string) {
	viper.Set("locale", locale)
	if cfg != nil {
		cfg.Locale = locale
	}
}

// IsLoggedIn 检查是否已登录
func IsLoggedIn() bool {
	return GetAccessToken() != ""
}
