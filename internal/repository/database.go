package repository

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chuan-dai/internal/config"
	"chuan-dai/internal/model"
)

// OpenDatabase 根据配置连接 MySQL 或 SQLite
// 参数:
//   - cfg: 完整配置，使用其中的 database、mysql 和 server.mode
//
// 返回:
//   - *gorm.DB: 数据库连接
//   - error: 连接失败返回错误
func OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	// 配置 GORM logger
	gormLogger := logger.Default.LogMode(logger.Info)
	if cfg.Server.IsRelease() {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}
	gormConfig := &gorm.Config{Logger: gormLogger}

	switch cfg.Database.Driver {
	case "sqlite":
		return openSQLite(cfg.Database.SQLitePath, gormConfig)
	case "mysql", "":
		return openMySQL(cfg.MySQL, gormConfig)
	default:
		return nil, fmt.Errorf("unknown database driver: %s", cfg.Database.Driver)
	}
}

func openMySQL(cfg config.MySQLConfig, gormConfig *gorm.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		cfg.Username,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
		cfg.Charset,
	)

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// 配置连接池
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	zap.L().Info("database connected", zap.String("driver", "mysql"), zap.String("host", cfg.Host))
	return db, nil
}

// openSQLite 打开 SQLite 数据库
// SQLite 同一时间只允许一个写入者，连接池限制为 1
func openSQLite(path string, gormConfig *gorm.Config) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	zap.L().Info("database connected", zap.String("driver", "sqlite"), zap.String("path", path))
	return db, nil
}

// AutoMigrate 自动迁移数据库表
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Session{},
		&model.Dish{},
		&model.Favorite{},
		&model.Gathering{},
		&model.Order{},
		&model.OrderItem{},
		&model.Photo{},
		&model.PhotoFavorite{},
		&model.PhotoComment{},
	); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}
