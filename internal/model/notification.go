package model

import "time"

// 通知类型
const (
	NotificationForm         = "form"
	NotificationAnnouncement = "announcement"
	NotificationSystem       = "system"
)

// Notification 站内通知
type Notification struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index;not null"`
	Type      string    `json:"type" gorm:"size:20;default:form"`
	Message   string    `json:"message" gorm:"size:1000"`
	Link      string    `json:"link" gorm:"size:500"`
	Read      bool      `json:"read" gorm:"column:is_read;default:false;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Notification) TableName() string {
	return "notifications"
}
