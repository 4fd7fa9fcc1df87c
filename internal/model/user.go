package model

import (
	"time"

	"gorm.io/gorm"
)

// 角色定义
const (
	RoleStudent  = "student"
	RoleLecturer = "lecturer"
	RoleAdmin    = "admin"
)

// User 系统用户（学生、教师、管理员）
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"size:255;not null;index"`
	Email        string    `json:"email" gorm:"size:255;uniqueIndex;not null"`
	Role         string    `json:"role" gorm:"size:20;not null;index"` // student, lecturer, admin
	UniversityID string    `json:"university_id" gorm:"size:50"`
	SearchName   string    `json:"-" gorm:"size:255;index"`
	IsActive     *bool     `json:"is_active" gorm:"default:true"` // 为空时按启用处理
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// Active 用户是否启用
func (u *User) Active() bool {
	return u.IsActive == nil || *u.IsActive
}

// BeforeSave GORM 钩子：同步搜索列
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.SearchName = FoldText(u.Name)
	return nil
}

// SearchColumns 当前搜索列取值
func (u *User) SearchColumns() map[string]any {
	return map[string]any{"search_name": u.SearchName}
}
