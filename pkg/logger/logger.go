// Package logger 初始化全局 zap 日志
// 业务代码统一通过 zap.L() 获取日志实例
package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Init 按配置创建日志实例并替换 zap 全局实例
// 参数:
//   - level: debug/info/warn/error
//   - format: json 输出结构化日志，其余输出便于阅读的控制台格式
//
// 返回:
//   - *zap.Logger: 日志实例，退出前调用 Sync
//   - error: 初始化错误
func Init(level, format string) (*zap.Logger, error) {
	var cfg zap.Config
	if strings.EqualFold(format, "json") {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(l)
	return l, nil
}
