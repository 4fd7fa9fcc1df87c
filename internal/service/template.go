package service

import (
	"context"
	"fmt"

	"github.com/Thanaruk598-0/CPmail/internal/domain"
	"github.com/Thanaruk598-0/CPmail/internal/model"
	"github.com/Thanaruk598-0/CPmail/internal/repository"
	"golang.org/x/text/language"
)

// CategoryOption 分类及其本地化名称
type CategoryOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// RequiredDocument 模板要求上传的附件
type RequiredDocument struct {
	Label    string `json:"label"`
	Required bool   `json:"required"`
}

// TemplateDTO 模板数据传输对象
type TemplateDTO struct {
	ID           uint                    `json:"id"`
	Title        string                  `json:"title"`
	Description  string                  `json:"description"`
	Category     string                  `json:"category"`
	Status       string                  `json:"status"`
	AllowedRoles []string                `json:"allowed_roles"`
	TargetRoles  []string                `json:"target_roles"`
	Fields       []model.FieldDefinition `json:"fields"`
	CanSubmit    bool                    `json:"can_submit"`
	CreatedAt    string                  `json:"created_at"`
	UpdatedAt    string                  `json:"updated_at"`
}

// SelectTemplateResult 第一步：选择模板
type SelectTemplateResult struct {
	Categories        []CategoryOption   `json:"categories"`
	Category          string             `json:"category"`
	Templates         []*TemplateDTO     `json:"templates"`
	Selected          *TemplateDTO       `json:"selected,omitempty"`
	RequiredDocuments []RequiredDocument `json:"required_documents"`
}

// TemplateService 模板目录与模板管理服务接口
type TemplateService interface {
	ListActiveCategories(ctx context.Context) ([]string, error)
	ListActiveTemplates(ctx context.Context, category string) ([]model.FormTemplate, error)
	GetTemplate(ctx context.Context, id uint) (*model.FormTemplate, error)
	SelectTemplate(ctx context.Context, rc domain.RequestContext, category string, templateID uint) (*SelectTemplateResult, error)

	List(ctx context.Context, rc domain.RequestContext, filter TemplateListFilter) ([]*TemplateDTO, error)
	Create(ctx context.Context, rc domain.RequestContext, req TemplateRequest) (*TemplateDTO, error)
	Update(ctx context.Context, rc domain.RequestContext, id uint, req TemplateRequest) (*TemplateDTO, error)
	Delete(ctx context.Context, rc domain.RequestContext, id uint) error
	Clone(ctx context.Context, rc domain.RequestContext, id uint) (*TemplateDTO, error)
}

// templateService 实现
type templateService struct {
	templateRepo repository.TemplateRepository
}

// NewTemplateService 创建服务实例
func NewTemplateService(templateRepo repository.TemplateRepository) TemplateService {
	return &templateService{templateRepo: templateRepo}
}

// ListActiveCategories 返回存在 Active 模板的分类
func (s *templateService) ListActiveCategories(ctx context.Context) ([]string, error) {
	categories, err := s.templateRepo.ActiveCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// ListActiveTemplates category 为空时返回全部 Active 模板
func (s *templateService) ListActiveTemplates(ctx context.Context, category string) ([]model.FormTemplate, error) {
	if category != "" && !model.IsValidCategory(category) {
		return nil, validationf("unknown category %q", category)
	}
	templates, err := s.templateRepo.ListActive(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

func (s *templateService) GetTemplate(ctx context.Context, id uint) (*model.FormTemplate, error) {
	if id == 0 {
		return nil, validationf("templateId is required")
	}
	tpl, err := s.templateRepo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr("template", err)
	}
	return tpl, nil
}

// SelectTemplate 模板列表只在选定分类后返回；选定模板时附带需要上传的附件
func (s *templateService) SelectTemplate(ctx context.Context, rc domain.RequestContext, category string, templateID uint) (*SelectTemplateResult, error) {
	categories, err := s.ListActiveCategories(ctx)
	if err != nil {
		return nil, err
	}
	result := &SelectTemplateResult{
		Categories:        make([]CategoryOption, 0, len(categories)),
		Category:          category,
		Templates:         []*TemplateDTO{},
		RequiredDocuments: []RequiredDocument{},
	}
	for _, c := range categories {
		result.Categories = append(result.Categories, CategoryOption{Value: c, Label: CategoryLabel(c, rc.Locale)})
	}

	if category != "" {
		templates, err := s.ListActiveTemplates(ctx, category)
		if err != nil {
			return nil, err
		}
		for i := range templates {
			result.Templates = append(result.Templates, toTemplateDTO(&templates[i], rc.Caller.Role))
		}
	}

	if templateID != 0 {
		tpl, err := s.GetTemplate(ctx, templateID)
		if err != nil {
			return nil, err
		}
		result.Selected = toTemplateDTO(tpl, rc.Caller.Role)
		for _, f := range tpl.FieldList() {
			if f.Type != model.FieldFile {
				continue
			}
			label := f.Label
			if label == "" {
				label = attachmentLabel(rc.Locale)
			}
			result.RequiredDocuments = append(result.RequiredDocuments, RequiredDocument{Label: label, Required: f.Required})
		}
	}
	return result, nil
}

var categoryLabels = map[language.Base]map[string]string{
	mustBase("th"): {
		string(model.CategoryAcademic):       "ด้านวิชาการ",
		string(model.CategoryAdministrative): "ด้านธุรการ",
		string(model.CategoryEvaluation):     "แบบประเมิน",
		string(model.CategoryRequest):        "แบบคำร้อง",
		string(model.CategorySurvey):         "แบบสำรวจ",
	},
}

func mustBase(tag string) language.Base {
	base, _ := language.MustParse(tag).Base()
	return base
}

// CategoryLabel 分类的本地化名称，未翻译的语言直接使用分类值
func CategoryLabel(category, locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return category
	}
	base, _ := tag.Base()
	if label, ok := categoryLabels[base][category]; ok {
		return label
	}
	return category
}

func attachmentLabel(locale string) string {
	if tag, err := language.Parse(locale); err == nil {
		if base, _ := tag.Base(); base == mustBase("th") {
			return "ไฟล์แนบ"
		}
	}
	return "Attachment"
}

func toTemplateDTO(t *model.FormTemplate, role string) *TemplateDTO {
	return &TemplateDTO{
		ID:           t.ID,
		Title:        t.DisplayName(),
		Description:  t.Description,
		Category:     t.Category,
		Status:       t.Status,
		AllowedRoles: nonNil(t.AllowedRoles.Data()),
		TargetRoles:  nonNil(t.TargetRoles.Data()),
		Fields:       nonNil(t.FieldList()),
		CanSubmit:    t.CanSubmit(role),
		CreatedAt:    t.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt:    t.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
