package repository

import (
	"context"
	"time"

	"github.com/Thanaruk598-0/CPmail/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FormScope 表单可见范围。SubmitterID 非空时只看本人提交；
// ReviewerID 非空时看指派给该审核人的表单或 SectionIDs 中的表单；
// 只设置 SectionIDs（非 nil）时限定在这些教学班内；都为空表示全部。
type FormScope struct {
	SubmitterID *uint
	ReviewerID  *uint
	SectionIDs  []uint
}

// TextMatch 自由文本命中的关联记录，任一命中即可
type TextMatch struct {
	TemplateIDs  []uint
	ReviewerIDs  []uint
	SubmitterIDs []uint
	CourseIDs    []uint
	SectionIDs   []uint
}

// Empty 没有任何关联记录命中
func (m *TextMatch) Empty() bool {
	return len(m.TemplateIDs) == 0 && len(m.ReviewerIDs) == 0 && len(m.SubmitterIDs) == 0 &&
		len(m.CourseIDs) == 0 && len(m.SectionIDs) == 0
}

// FormCriteria 表单查询条件，各条件之间为 AND
type FormCriteria struct {
	Scope  FormScope
	Status string
	// TemplateIDs 非 nil 时限定模板（分类筛选）
	TemplateIDs []uint
	SectionID   *uint
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	UpdatedTo   *time.Time
	Text        *TextMatch
	Offset      int
	Limit       int
}

// TemplateStatusCount 按模板和状态聚合的数量
type TemplateStatusCount struct {
	TemplateID uint
	Status     string
	Count      int64
}

// FormMutation 在事务内修改已读取的表单，可返回一条需要追加的审核评论
type FormMutation func(form *model.Form) (*model.ReviewComment, error)

// FormRepository 表单记录 Repository 接口
type FormRepository interface {
	Create(ctx context.Context, form *model.Form) error
	// Get 获取表单详情（含模板、提交人、审核人、课程、教学班和评论）
	Get(ctx context.Context, id uint) (*model.Form, error)
	// Update 在单个事务中读取表单、执行 fn 并写回
	Update(ctx context.Context, id uint, fn FormMutation) (*model.Form, error)
	CountByStatus(ctx context.Context, scope FormScope) (map[string]int64, error)
	// Search 返回分页结果和筛选后的总数，按创建时间倒序
	Search(ctx context.Context, criteria FormCriteria) ([]model.Form, int64, error)
	CountByTemplateAndStatus(ctx context.Context, criteria FormCriteria) ([]TemplateStatusCount, error)
	CountSubmitters(ctx context.Context, criteria FormCriteria) (int64, error)
}

type formRepository struct {
	db *gorm.DB
}

// NewFormRepository 创建表单 Repository
func NewFormRepository(db *gorm.DB) FormRepository {
	return &formRepository{db: db}
}

func (r *formRepository) Create(ctx context.Context, form *model.Form) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(form).Error
}

func (r *formRepository) Get(ctx context.Context, id uint) (*model.Form, error) {
	var form model.Form
	err := r.db.WithContext(ctx).
		Preload("Template").
		Preload("Submitter").
		Preload("Reviewer").
		Preload("Course").
		Preload("Section").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Preload("Comments.User").
		First(&form, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &form, nil
}

func (r *formRepository) Update(ctx context.Context, id uint, fn FormMutation) (*model.Form, error) {
	var updated model.Form
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var form model.Form
		if err := tx.Preload("Template").First(&form, id).Error; err != nil {
			return notFound(err)
		}
		comment, err := fn(&form)
		if err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(&form).Error; err != nil {
			return err
		}
		if comment != nil {
			comment.FormID = form.ID
			if err := tx.Create(comment).Error; err != nil {
				return err
			}
		}
		updated = form
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *formRepository) CountByStatus(ctx context.Context, scope FormScope) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	q := applyScope(r.db.WithContext(ctx).Model(&model.Form{}), scope)
	if err := q.Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *formRepository) Search(ctx context.Context, criteria FormCriteria) ([]model.Form, int64, error) {
	var total int64
	if err := r.filtered(ctx, criteria).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var forms []model.Form
	q := r.filtered(ctx, criteria).
		Preload("Template").
		Preload("Submitter").
		Preload("Reviewer").
		Preload("Course").
		Preload("Section").
		Order("created_at DESC, id DESC")
	if criteria.Limit > 0 {
		q = q.Offset(criteria.Offset).Limit(criteria.Limit)
	}
	if err := q.Find(&forms).Error; err != nil {
		return nil, 0, err
	}
	return forms, total, nil
}

func (r *formRepository) CountByTemplateAndStatus(ctx context.Context, criteria FormCriteria) ([]TemplateStatusCount, error) {
	var rows []TemplateStatusCount
	err := r.filtered(ctx, criteria).
		Select("template_id, status, COUNT(*) AS count").
		Group("template_id, status").
		Order("template_id ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *formRepository) CountSubmitters(ctx context.Context, criteria FormCriteria) (int64, error) {
	var count int64
	err := r.filtered(ctx, criteria).Distinct("submitter_id").Count(&count).Error
	return count, err
}

// filtered 每次调用都返回新的查询链
func (r *formRepository) filtered(ctx context.Context, c FormCriteria) *gorm.DB {
	q := applyScope(r.db.WithContext(ctx).Model(&model.Form{}), c.Scope)
	if c.Status != "" {
		q = q.Where("status = ?", c.Status)
	}
	if c.TemplateIDs != nil {
		if len(c.TemplateIDs) == 0 {
			q = q.Where("1 = 0")
		} else {
			q = q.Where("template_id IN ?", c.TemplateIDs)
		}
	}
	if c.SectionID != nil {
		q = q.Where("section_id = ?", *c.SectionID)
	}
	if c.CreatedFrom != nil {
		q = q.Where("created_at >= ?", c.CreatedFrom.UTC())
	}
	if c.CreatedTo != nil {
		q = q.Where("created_at <= ?", c.CreatedTo.UTC())
	}
	if c.UpdatedTo != nil {
		q = q.Where("updated_at <= ?", c.UpdatedTo.UTC())
	}
	if c.Text != nil {
		q = applyTextMatch(q, c.Text)
	}
	return q
}

func applyScope(q *gorm.DB, scope FormScope) *gorm.DB {
	if scope.SubmitterID != nil {
		q = q.Where("submitter_id = ?", *scope.SubmitterID)
	}
	switch {
	case scope.ReviewerID != nil && len(scope.SectionIDs) > 0:
		q = q.Where("(reviewer_id = ? OR section_id IN ?)", *scope.ReviewerID, scope.SectionIDs)
	case scope.ReviewerID != nil:
		q = q.Where("reviewer_id = ?", *scope.ReviewerID)
	case scope.SectionIDs != nil && len(scope.SectionIDs) == 0:
		q = q.Where("1 = 0")
	case scope.SectionIDs != nil:
		q = q.Where("section_id IN ?", scope.SectionIDs)
	}
	return q
}

func applyTextMatch(q *gorm.DB, m *TextMatch) *gorm.DB {
	if m.Empty() {
		return q.Where("1 = 0")
	}
	var parts []string
	var args []any
	add := func(col string, ids []uint) {
		if len(ids) > 0 {
			parts = append(parts, col+" IN ?")
			args = append(args, ids)
		}
	}
	add("template_id", m.TemplateIDs)
	add("reviewer_id", m.ReviewerIDs)
	add("submitter_id", m.SubmitterIDs)
	add("course_id", m.CourseIDs)
	add("section_id", m.SectionIDs)

	cond := "(" + parts[0]
	for _, p := range parts[1:] {
		cond += " OR " + p
	}
	cond += ")"
	return q.Where(cond, args...)
}
