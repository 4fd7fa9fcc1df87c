package model

import (
	"slices"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Category 模板分类（封闭集合）
type Category string

const (
	CategoryAcademic       Category = "Academic"
	CategoryAdministrative Category = "Administrative"
	CategoryEvaluation     Category = "Evaluation"
	CategoryRequest        Category = "Request"
	CategorySurvey         Category = "Survey"
)

// Categories 所有合法分类，按展示顺序排列
var Categories = []Category{
	CategoryAcademic,
	CategoryAdministrative,
	CategoryEvaluation,
	CategoryRequest,
	CategorySurvey,
}

// IsValidCategory 判断分类是否合法
func IsValidCategory(c string) bool {
	return slices.Contains(Categories, Category(c))
}

// 模板自身的生命周期状态
const (
	TemplateStatusDraft    = "Draft"
	TemplateStatusActive   = "Active"
	TemplateStatusInactive = "Inactive"
)

// FieldKind 字段输入类型
type FieldKind string

const (
	FieldText     FieldKind = "text"
	FieldTextarea FieldKind = "textarea"
	FieldDate     FieldKind = "date"
	FieldFile     FieldKind = "file"
	FieldSelect   FieldKind = "select"
	FieldRadio    FieldKind = "radio"
	FieldCheckbox FieldKind = "checkbox"
	FieldNumber   FieldKind = "number"
	FieldTime     FieldKind = "time"
)

// IsValidFieldKind 判断字段类型是否受支持
func IsValidFieldKind(k FieldKind) bool {
	switch k {
	case FieldText, FieldTextarea, FieldDate, FieldFile, FieldSelect, FieldRadio, FieldCheckbox, FieldNumber, FieldTime:
		return true
	}
	return false
}

// FieldDefinition 模板中的单个字段定义
type FieldDefinition struct {
	Key         string    `json:"key,omitempty"`
	Label       string    `json:"label"`
	Type        FieldKind `json:"type"`
	Required    bool      `json:"required,omitempty"`
	Locked      bool      `json:"locked,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`
	Options     []string  `json:"options,omitempty"`
	MaxLength   int       `json:"max_length,omitempty"`
}

// FieldKey 字段在数据载荷中的键，未显式设置 key 时使用 label
func (f FieldDefinition) FieldKey() string {
	if k := strings.TrimSpace(f.Key); k != "" {
		return k
	}
	return strings.TrimSpace(f.Label)
}

// FormTemplate 可提交的表单模板
type FormTemplate struct {
	ID           uint                                  `json:"id" gorm:"primaryKey"`
	Title        string                                `json:"title" gorm:"size:255;index"`
	Name         string                                `json:"name,omitempty" gorm:"size:255"` // 旧数据使用 name 作为标题
	Description  string                                `json:"description" gorm:"size:1000"`
	SearchTitle  string                                `json:"-" gorm:"size:512"`  // 折叠后的 title + name
	SearchText   string                                `json:"-" gorm:"size:1600"` // 折叠后的 title + name + description
	Category     string                                `json:"category" gorm:"size:50;not null;index"`
	Status       string                                `json:"status" gorm:"size:20;not null;default:Draft;index"` // Draft, Active, Inactive
	AllowedRoles datatypes.JSONType[[]string]          `json:"allowed_roles"`
	TargetRoles  datatypes.JSONType[[]string]          `json:"target_roles"`
	Fields       datatypes.JSONType[[]FieldDefinition] `json:"fields"`
	CreatedAt    time.Time                             `json:"created_at"`
	UpdatedAt    time.Time                             `json:"updated_at"`
}

// TableName 指定表名
func (FormTemplate) TableName() string {
	return "form_templates"
}

// BeforeSave GORM 钩子：同步搜索列
func (t *FormTemplate) BeforeSave(tx *gorm.DB) error {
	t.SearchTitle = foldJoin(t.Title, t.Name)
	t.SearchText = foldJoin(t.Title, t.Name, t.Description)
	return nil
}

// SearchColumns 当前搜索列取值
func (t *FormTemplate) SearchColumns() map[string]any {
	return map[string]any{"search_title": t.SearchTitle, "search_text": t.SearchText}
}

// CanSubmit 模板必须处于 Active，且 allowedRoles 为空或包含该角色
func (t *FormTemplate) CanSubmit(role string) bool {
	if t == nil || t.Status != TemplateStatusActive {
		return false
	}
	allowed := t.AllowedRoles.Data()
	if len(allowed) == 0 {
		return true
	}
	return slices.Contains(allowed, role)
}

// DisplayName 模板展示名称：title 优先，其次旧字段 name，最后 "-"
func (t *FormTemplate) DisplayName() string {
	if t == nil {
		return "-"
	}
	if s := strings.TrimSpace(t.Title); s != "" {
		return s
	}
	if s := strings.TrimSpace(t.Name); s != "" {
		return s
	}
	return "-"
}

// Targets 返回模板的目标审核角色
func (t *FormTemplate) Targets() []string {
	return t.TargetRoles.Data()
}

// FieldList 返回字段定义列表
func (t *FormTemplate) FieldList() []FieldDefinition {
	return t.Fields.Data()
}

// UnlockedFields 返回提交者可填写的字段（跳过锁定字段和无键字段）
func (t *FormTemplate) UnlockedFields() []FieldDefinition {
	var out []FieldDefinition
	for _, f := range t.Fields.Data() {
		if f.Locked || f.FieldKey() == "" {
			continue
		}
		out = append(out, f)
	}
	return out
}

// UnlockedKeys 返回可填写字段键集合
func (t *FormTemplate) UnlockedKeys() map[string]FieldDefinition {
	keys := make(map[string]FieldDefinition)
	for _, f := range t.UnlockedFields() {
		keys[f.FieldKey()] = f
	}
	return keys
}
