package repository

import (
	"context"

	"github.com/Thanaruk598-0/CPmail/internal/model"
	"gorm.io/gorm"
)

// TemplateFilter 模板管理列表筛选条件
type TemplateFilter struct {
	Tokens   []string
	Category string
	Status   string
}

// TemplateRepository 表单模板 Repository 接口
type TemplateRepository interface {
	// ListActive 列出 Active 模板，category 为空时不过滤分类
	ListActive(ctx context.Context, category string) ([]model.FormTemplate, error)
	// ActiveCategories 返回存在 Active 模板的分类
	ActiveCategories(ctx context.Context) ([]string, error)
	// IDsByCategory 返回某分类下所有模板的 ID（不区分模板状态）
	IDsByCategory(ctx context.Context, category string) ([]uint, error)
	// SearchIDsByTitle 标题（或旧字段 name）命中任一分词的模板 ID
	SearchIDsByTitle(ctx context.Context, tokens []string) ([]uint, error)
	List(ctx context.Context, filter TemplateFilter) ([]model.FormTemplate, error)
	GetByID(ctx context.Context, id uint) (*model.FormTemplate, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, template *model.FormTemplate) error
	Update(ctx context.Context, template *model.FormTemplate) error
	Delete(ctx context.Context, id uint) error
}

// templateRepository 实现
type templateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository 创建 Repository 实例
func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{db: db}
}

func (r *templateRepository) ListActive(ctx context.Context, category string) ([]model.FormTemplate, error) {
	var templates []model.FormTemplate
	q := r.db.WithContext(ctx).Where("status = ?", model.TemplateStatusActive)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	result := q.Order("category ASC, title ASC, id ASC").Find(&templates)
	return templates, result.Error
}

func (r *templateRepository) ActiveCategories(ctx context.Context) ([]string, error) {
	var categories []string
	result := r.db.WithContext(ctx).Model(&model.FormTemplate{}).
		Where("status = ?", model.TemplateStatusActive).
		Distinct().
		Order("category ASC").
		Pluck("category", &categories)
	return categories, result.Error
}

func (r *templateRepository) IDsByCategory(ctx context.Context, category string) ([]uint, error) {
	var ids []uint
	result := r.db.WithContext(ctx).Model(&model.FormTemplate{}).
		Where("category = ?", category).
		Pluck("id", &ids)
	return ids, result.Error
}

func (r *templateRepository) SearchIDsByTitle(ctx context.Context, tokens []string) ([]uint, error) {
	var ids []uint
	q := r.db.WithContext(ctx).Model(&model.FormTemplate{})
	result := anyTokenLike(q, tokens, "search_title").Pluck("id", &ids)
	return ids, result.Error
}

// List 模板管理列表，按更新时间倒序
func (r *templateRepository) List(ctx context.Context, filter TemplateFilter) ([]model.FormTemplate, error) {
	var templates []model.FormTemplate
	q := r.db.WithContext(ctx)
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if len(filter.Tokens) > 0 {
		q = anyTokenLike(q, filter.Tokens, "search_text")
	}
	result := q.Order("updated_at DESC, id DESC").Find(&templates)
	return templates, result.Error
}

// GetByID 根据ID获取模板详情
func (r *templateRepository) GetByID(ctx context.Context, id uint) (*model.FormTemplate, error) {
	var template model.FormTemplate
	if err := r.db.WithContext(ctx).First(&template, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &template, nil
}

func (r *templateRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.FormTemplate{}).Count(&count).Error
	return count, err
}

// Create 创建模板
func (r *templateRepository) Create(ctx context.Context, template *model.FormTemplate) error {
	return r.db.WithContext(ctx).Create(template).Error
}

// Update 更新模板
func (r *templateRepository) Update(ctx context.Context, template *model.FormTemplate) error {
	return r.db.WithContext(ctx).Save(template).Error
}

// Delete 删除模板
func (r *templateRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&model.FormTemplate{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
