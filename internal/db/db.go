package db

import (
	"fmt"
	"time"

	"reelnotes/internal/logging"
	"reelnotes/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open 建立 PostgreSQL 连接并执行迁移
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取连接池失败: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	logging.Info().Msg("Database connection established")

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate 自动迁移全部模型
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Article{},
		&models.ArticleBlock{},
		&models.Post{},
		&models.PostImage{},
		&models.TopPick{},
		&models.Comment{},
		&models.Like{},
		&models.RankedItem{},
		&models.RefreshLog{},
	)
	if err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}
	logging.Info().Msg("Database migration completed")
	return nil
}
