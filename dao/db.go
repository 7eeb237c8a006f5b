package dao

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"knowledge-agent-backend/config"
	"knowledge-agent-backend/model"
)

// DB 全局数据库连接
var DB *gorm.DB

func Init() error {
	db, err := gorm.Open(mysql.Open(config.Cfg.MySQL.DSN), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect mysql: %v", err)
	}

	if err := db.AutoMigrate(
		&model.User{},
		&model.Brain{},
		&model.Knowledge{},
		&model.Sync{},
		&model.Session{},
		&model.Message{},
	); err != nil {
		return fmt.Errorf("failed to migrate tables: %v", err)
	}

	DB = db
	return nil
}
