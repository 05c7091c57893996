package database

import (
	"fmt"
	"time"

	"f1-rag-go/internal/model"
	"f1-rag-go/pkg/log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// InitMySQL 初始化 MySQL 数据库连接，并迁移分块记录表。
func InitMySQL(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&model.ChunkRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate chunk records: %w", err)
	}

	log.Info("MySQL database connected successfully")
	return db, nil
}
