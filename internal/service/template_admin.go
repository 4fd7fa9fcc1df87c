package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Thanaruk598-0/CPmail/internal/domain"
	"github.com/Thanaruk598-0/CPmail/internal/model"
	"github.com/Thanaruk598-0/CPmail/internal/repository"
	"github.com/Thanaruk598-0/CPmail/internal/service/authz"
	"gorm.io/datatypes"
	"k8s.io/klog/v2"
)

// TemplateRequest 创建/更新模板请求
type TemplateRequest struct {
	Title        string                  `json:"title" binding:"required,min=1,max=255"`
	Description  string                  `json:"description" binding:"max=1000"`
	Category     string                  `json:"category" binding:"required"`
	Status       string                  `json:"status"`
	AllowedRoles []string                `json:"allowed_roles"`
	TargetRoles  []string                `json:"target_roles"`
	Fields       []model.FieldDefinition `json:"fields"`
}

// TemplateListFilter 模板管理列表筛选
type TemplateListFilter struct {
	Q        string
	Category string
	Status   string
}

var (
	templateStatuses = []string{model.TemplateStatusDraft, model.TemplateStatusActive, model.TemplateStatusInactive}
	submitterRoles   = []string{model.RoleStudent, model.RoleLecturer, model.RoleAdmin}
	reviewerRoles    = []string{model.RoleLecturer, model.RoleAdmin}
)

// List 模板管理列表
func (s *templateService) List(ctx context.Context, rc domain.RequestContext, filter TemplateListFilter) ([]*TemplateDTO, error) {
	if err := authorize(authz.Authorize(rc.Caller, authz.ActionManageTemplates, authz.Resource{})); err != nil {
		return nil, err
	}
	templates, err := s.templateRepo.List(ctx, repository.TemplateFilter{
		Tokens:   Tokenize(filter.Q),
		Category: filter.Category,
		Status:   filter.Status,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	result := make([]*TemplateDTO, len(templates))
	for i := range templates {
		result[i] = toTemplateDTO(&templates[i], rc.Caller.Role)
	}
	return result, nil
}

// Create 创建模板，未指定状态时为 Draft
func (s *templateService) Create(ctx context.Context, rc domain.RequestContext, req TemplateRequest) (*TemplateDTO, error) {
	if err := authorize(authz.Authorize(rc.Caller, authz.ActionManageTemplates, authz.Resource{})); err != nil {
		return nil, err
	}
	if req.Status == "" {
		req.Status = model.TemplateStatusDraft
	}
	if err := validateTemplateRequest(req); err != nil {
		return nil, err
	}
	tpl := &model.FormTemplate{}
	applyTemplateRequest(tpl, req)
	if err := s.templateRepo.Create(ctx, tpl); err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}
	klog.V(6).Infof("模板已创建: id=%d, title=%s, by=%d", tpl.ID, tpl.Title, rc.Caller.ID)
	return toTemplateDTO(tpl, rc.Caller.Role), nil
}

// Update 更新模板；已提交的表单按引用读取模板，修改会反映到旧记录的展示上
func (s *templateService) Update(ctx context.Context, rc domain.RequestContext, id uint, req TemplateRequest) (*TemplateDTO, error) {
	if err := authorize(authz.Authorize(rc.Caller, authz.ActionManageTemplates, authz.Resource{})); err != nil {
		return nil, err
	}
	tpl, err := s.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status == "" {
		req.Status = tpl.Status
	}
	if err := validateTemplateRequest(req); err != nil {
		return nil, err
	}
	applyTemplateRequest(tpl, req)
	if err := s.templateRepo.Update(ctx, tpl); err != nil {
		return nil, fmt.Errorf("failed to update template: %w", err)
	}
	return toTemplateDTO(tpl, rc.Caller.Role), nil
}

// Delete 删除模板
func (s *templateService) Delete(ctx context.Context, rc domain.RequestContext, id uint) error {
	if err := authorize(authz.Authorize(rc.Caller, authz.ActionManageTemplates, authz.Resource{})); err != nil {
		return err
	}
	if err := s.templateRepo.Delete(ctx, id); err != nil {
		return lookupErr("template", err)
	}
	klog.V(6).Infof("模板已删除: id=%d, by=%d", id, rc.Caller.ID)
	return nil
}

// Clone 复制模板，副本标题追加 "(Copy)" 且状态为 Draft
func (s *templateService) Clone(ctx context.Context, rc domain.RequestContext, id uint) (*TemplateDTO, error) {
	if err := authorize(authz.Authorize(rc.Caller, authz.ActionManageTemplates, authz.Resource{})); err != nil {
		return nil, err
	}
	source, err := s.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	clone := &model.FormTemplate{
		Title:        source.DisplayName() + " (Copy)",
		Description:  source.Description,
		Category:     source.Category,
		Status:       model.TemplateStatusDraft,
		AllowedRoles: datatypes.NewJSONType(slices.Clone(source.AllowedRoles.Data())),
		TargetRoles:  datatypes.NewJSONType(slices.Clone(source.TargetRoles.Data())),
		Fields:       datatypes.NewJSONType(slices.Clone(source.FieldList())),
	}
	if err := s.templateRepo.Create(ctx, clone); err != nil {
		return nil, fmt.Errorf("failed to clone template: %w", err)
	}
	return toTemplateDTO(clone, rc.Caller.Role), nil
}

func validateTemplateRequest(req TemplateRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return validationf("title is required")
	}
	if !model.IsValidCategory(req.Category) {
		return validationf("unknown category %q", req.Category)
	}
	if !slices.Contains(templateStatuses, req.Status) {
		return validationf("unknown template status %q", req.Status)
	}
	for _, r := range req.AllowedRoles {
		if !slices.Contains(submitterRoles, r) {
			return validationf("unknown role %q in allowed_roles", r)
		}
	}
	for _, r := range req.TargetRoles {
		if !slices.Contains(reviewerRoles, r) {
			return validationf("target role must be lecturer or admin, got %q", r)
		}
	}
	seen := make(map[string]bool)
	for i, f := range req.Fields {
		if !model.IsValidFieldKind(f.Type) {
			return validationf("field %d: unknown type %q", i+1, f.Type)
		}
		key := f.FieldKey()
		if key == "" {
			return validationf("field %d: key or label is required", i+1)
		}
		if seen[key] {
			return validationf("duplicate field key %q", key)
		}
		seen[key] = true
		if (f.Type == model.FieldSelect || f.Type == model.FieldRadio || f.Type == model.FieldCheckbox) && len(f.Options) == 0 {
			return validationf("field %q needs options", key)
		}
	}
	return nil
}

func applyTemplateRequest(tpl *model.FormTemplate, req TemplateRequest) {
	tpl.Title = strings.TrimSpace(req.Title)
	tpl.Description = req.Description
	tpl.Category = req.Category
	tpl.Status = req.Status
	tpl.AllowedRoles = datatypes.NewJSONType(req.AllowedRoles)
	tpl.TargetRoles = datatypes.NewJSONType(req.TargetRoles)
	tpl.Fields = datatypes.NewJSONType(req.Fields)
}
