package database

import (
	"fmt"
	"time"

	"github.com/Thanaruk598-0/CPmail/internal/model"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"k8s.io/klog/v2"
)

// Models 需要自动迁移的全部模型
var Models = []any{
	&model.User{},
	&model.Course{},
	&model.CourseMember{},
	&model.Section{},
	&model.SectionMember{},
	&model.FormTemplate{},
	&model.Form{},
	&model.ReviewComment{},
	&model.Notification{},
}

func InitDB(dbType, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch dbType {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	case "sqlite", "":
		// 使用 github.com/glebarez/sqlite 驱动
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}

	// 时间统一以 UTC 存储，日期筛选的边界也换算成 UTC 再比较
	db, err := gorm.Open(dialector, &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	if dbType == "sqlite" || dbType == "" {
		// 内存库每个连接都是独立的数据库
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	if err := db.AutoMigrate(Models...); err != nil {
		return nil, err
	}
	if err := Backfill(db); err != nil {
		return nil, err
	}
	klog.V(6).Infof("数据库初始化完成: type=%s", dbType)
	return db, nil
}
