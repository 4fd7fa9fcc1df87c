package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 表单记录状态
const (
	FormStatusPending   = "pending"
	FormStatusApproved  = "approved"
	FormStatusRejected  = "rejected"
	FormStatusCancelled = "cancelled"
)

// FormStatuses 所有表单状态
var FormStatuses = []string{FormStatusPending, FormStatusApproved, FormStatusRejected, FormStatusCancelled}

// FieldValue 单个字段的取值，按字段类型使用 Value 或 Values
type FieldValue struct {
	Kind   FieldKind `json:"kind"`
	Value  string    `json:"value,omitempty"`
	Values []string  `json:"values,omitempty"` // checkbox 多选
}

// IsEmpty 判断取值是否为空
func (v FieldValue) IsEmpty() bool {
	if v.Kind == FieldCheckbox {
		return len(v.Values) == 0
	}
	return v.Value == ""
}

// FormData 表单数据载荷，键为模板字段键
type FormData map[string]FieldValue

// Keys 返回载荷中的所有键
func (d FormData) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	return keys
}

// Form 一次表单提交记录
type Form struct {
	ID          uint          `json:"id" gorm:"primaryKey"`
	SubmitterID uint          `json:"submitter_id" gorm:"index;not null"`
	Submitter   *User         `json:"submitter,omitempty" gorm:"foreignKey:SubmitterID"`
	TemplateID  uint          `json:"template_id" gorm:"index;not null"`
	Template    *FormTemplate `json:"template,omitempty" gorm:"foreignKey:TemplateID"`
	CourseID    *uint         `json:"course_id" gorm:"index"`
	Course      *Course       `json:"course,omitempty" gorm:"foreignKey:CourseID"`
	SectionID   *uint         `json:"section_id" gorm:"index"`
	Section     *Section      `json:"section,omitempty" gorm:"foreignKey:SectionID"`

	Data   datatypes.JSONType[FormData] `json:"data"`
	Status string                       `json:"status" gorm:"size:20;not null;default:pending;index"` // pending, approved, rejected, cancelled

	ReviewerID *uint `json:"reviewer_id" gorm:"index"`
	Reviewer   *User `json:"reviewer,omitempty" gorm:"foreignKey:ReviewerID"`
	// 旧数据以列表形式保存审核人，仅用于兼容读取
	LegacyReviewers datatypes.JSONType[[]uint] `json:"-" gorm:"column:reviewers"`

	ReviewComment      string          `json:"review_comment" gorm:"size:2000"`
	Comments           []ReviewComment `json:"comments,omitempty" gorm:"foreignKey:FormID"`
	Reason             string          `json:"reason" gorm:"size:2000"`
	CancellationReason string          `json:"cancellation_reason" gorm:"size:1000"`

	SubmittedAt time.Time  `json:"submitted_at"`
	ReviewedAt  *time.Time `json:"reviewed_at"`
	CreatedAt   time.Time  `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"index"`
}

// TableName 指定表名
func (Form) TableName() string {
	return "forms"
}

// BeforeSave GORM 钩子：旧数据只有审核人列表时补齐 reviewer_id，
// 审核范围和审核人搜索都只看 reviewer_id
func (f *Form) BeforeSave(tx *gorm.DB) error {
	f.ReviewerID = f.AssignedReviewerID()
	return nil
}

// AssignedReviewerID 当前指派的审核人；新字段为空时取旧列表的第一个
func (f *Form) AssignedReviewerID() *uint {
	if f.ReviewerID != nil {
		return f.ReviewerID
	}
	if legacy := f.LegacyReviewers.Data(); len(legacy) > 0 {
		id := legacy[0]
		return &id
	}
	return nil
}

// 审核评论动作
const (
	CommentApprove  = "approve"
	CommentReject   = "reject"
	CommentFeedback = "feedback"
)

// ReviewComment 审核评论（只追加）
type ReviewComment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	FormID    uint      `json:"form_id" gorm:"index;not null"`
	UserID    uint      `json:"user_id" gorm:"index;not null"`
	User      *User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Action    string    `json:"action" gorm:"size:20"` // approve, reject, feedback
	Message   string    `json:"message" gorm:"size:2000"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (ReviewComment) TableName() string {
	return "review_comments"
}
