package model

import (
	"time"

	"gorm.io/gorm"
)

// 成员类型
const (
	MemberStaff   = "staff"
	MemberStudent = "student"
)

// Course 课程
type Course struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Code        string         `json:"code" gorm:"size:50;uniqueIndex;not null"` // 课程代码，如 CS101
	Name        string         `json:"name" gorm:"size:255;not null;index"`
	SearchName  string         `json:"-" gorm:"size:255;index"`
	Description string         `json:"description" gorm:"size:1000"`
	Credits     int            `json:"credits" gorm:"default:0"`
	Semester    string         `json:"semester" gorm:"size:20"`
	Sections    []Section      `json:"sections,omitempty" gorm:"foreignKey:CourseID"`
	Members     []CourseMember `json:"-" gorm:"foreignKey:CourseID"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TableName 指定表名
func (Course) TableName() string {
	return "courses"
}

// BeforeSave GORM 钩子：同步搜索列
func (c *Course) BeforeSave(tx *gorm.DB) error {
	c.SearchName = FoldText(c.Name)
	return nil
}

// SearchColumns 当前搜索列取值
func (c *Course) SearchColumns() map[string]any {
	return map[string]any{"search_name": c.SearchName}
}

// CourseMember 课程成员（授课教师或选课学生），Position 决定教师的先后顺序
type CourseMember struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	CourseID uint   `json:"course_id" gorm:"uniqueIndex:idx_course_member;not null"`
	UserID   uint   `json:"user_id" gorm:"uniqueIndex:idx_course_member;not null"`
	Kind     string `json:"kind" gorm:"size:20;uniqueIndex:idx_course_member;not null"` // staff, student
	Position int    `json:"position" gorm:"default:0"`
}

// TableName 指定表名
func (CourseMember) TableName() string {
	return "course_members"
}

// Section 课程下的教学班
type Section struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	CourseID    uint            `json:"course_id" gorm:"index;not null"`
	Name        string          `json:"name" gorm:"size:100;not null;index"`
	SearchName  string          `json:"-" gorm:"size:100;index"`
	Semester    string          `json:"semester" gorm:"size:20"`
	Year        int             `json:"year"`
	MaxStudents int             `json:"max_students" gorm:"default:50"`
	Schedule    string          `json:"schedule" gorm:"size:255"`
	Room        string          `json:"room" gorm:"size:50"`
	Members     []SectionMember `json:"-" gorm:"foreignKey:SectionID"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName 指定表名
func (Section) TableName() string {
	return "sections"
}

// BeforeSave GORM 钩子：同步搜索列
func (s *Section) BeforeSave(tx *gorm.DB) error {
	s.SearchName = FoldText(s.Name)
	return nil
}

// SearchColumns 当前搜索列取值
func (s *Section) SearchColumns() map[string]any {
	return map[string]any{"search_name": s.SearchName}
}

// SectionMember 教学班成员
type SectionMember struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	SectionID uint   `json:"section_id" gorm:"uniqueIndex:idx_section_member;not null"`
	UserID    uint   `json:"user_id" gorm:"uniqueIndex:idx_section_member;not null"`
	Kind      string `json:"kind" gorm:"size:20;uniqueIndex:idx_section_member;not null"` // staff, student
	Position  int    `json:"position" gorm:"default:0"`
}

// TableName 指定表名
func (SectionMember) TableName() string {
	return "section_members"
}
