package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Thanaruk598-0/CPmail/internal/domain"
	"github.com/Thanaruk598-0/CPmail/internal/model"
	"github.com/Thanaruk598-0/CPmail/internal/repository"
	"github.com/Thanaruk598-0/CPmail/internal/service/authz"
	"gorm.io/datatypes"
	"k8s.io/klog/v2"
)

// SubmissionRequest 第三步预览与最终提交共用的请求参数，每一步都由调用方完整回传
type SubmissionRequest struct {
	TemplateID uint
	CourseID   uint
	Values     RawValues
	Reason     string
}

// CourseOption 课程选项
type CourseOption struct {
	ID   uint   `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// SectionDTO 教学班
type SectionDTO struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// PersonDTO 用户简要信息
type PersonDTO struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// FillDetailsResult 第二步：填写详情
type FillDetailsResult struct {
	Template    *TemplateDTO            `json:"template"`
	Submitter   PersonDTO               `json:"submitter"`
	Courses     []CourseOption          `json:"courses"`
	CourseID    uint                    `json:"course_id"`
	Course      *CourseOption           `json:"course,omitempty"`
	Section     *SectionDTO             `json:"section,omitempty"`
	Staff       []PersonDTO             `json:"staff"`
	InputFields []model.FieldDefinition `json:"input_fields"`
}

// PreviewResult 第三步：预览，不产生任何持久化数据
type PreviewResult struct {
	Template   *TemplateDTO            `json:"template"`
	Course     CourseOption            `json:"course"`
	Section    *SectionDTO             `json:"section,omitempty"`
	Fields     []model.FieldDefinition `json:"fields"`
	Data       model.FormData          `json:"data"`
	Reason     string                  `json:"reason"`
	TemplateID uint                    `json:"template_id"`
	CourseID   uint                    `json:"course_id"`
}

// SubmissionService 三步提交流程服务接口
type SubmissionService interface {
	FillDetails(ctx context.Context, rc domain.RequestContext, templateID, courseID uint) (*FillDetailsResult, error)
	Preview(ctx context.Context, rc domain.RequestContext, req SubmissionRequest) (*PreviewResult, error)
	Create(ctx context.Context, rc domain.RequestContext, req SubmissionRequest) (uint, error)
}

type reviewerRouter interface {
	SelectReviewer(ctx context.Context, template *model.FormTemplate, courseID, sectionID *uint) (*uint, error)
}

type submissionService struct {
	templates  TemplateService
	courseRepo repository.CourseRepository
	formRepo   repository.FormRepository
	router     reviewerRouter
}

// NewSubmissionService 创建提交流程服务
func NewSubmissionService(templates TemplateService, courseRepo repository.CourseRepository, formRepo repository.FormRepository, router reviewerRouter) SubmissionService {
	return &submissionService{
		templates:  templates,
		courseRepo: courseRepo,
		formRepo:   formRepo,
		router:     router,
	}
}

// eligibleTemplate 每一步都重新读取模板并校验提交资格
func (s *submissionService) eligibleTemplate(ctx context.Context, rc domain.RequestContext, templateID uint) (*model.FormTemplate, error) {
	tpl, err := s.templates.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if err := authorize(authz.Authorize(rc.Caller, authz.ActionSubmit, authz.Resource{Template: tpl})); err != nil {
		return nil, err
	}
	return tpl, nil
}

// ownedSection 调用者在该课程下加入的教学班，不存在时返回 nil
func (s *submissionService) ownedSection(ctx context.Context, rc domain.RequestContext, courseID uint) (*model.Section, error) {
	sections, err := s.courseRepo.SectionsByIDs(ctx, rc.Caller.EnrolledSections)
	if err != nil {
		return nil, fmt.Errorf("failed to load sections: %w", err)
	}
	for i := range sections {
		if sections[i].CourseID == courseID {
			return &sections[i], nil
		}
	}
	return nil, nil
}

// FillDetails 选定课程时解析调用者所在的教学班和任课教师（教学班教师优先）
func (s *submissionService) FillDetails(ctx context.Context, rc domain.RequestContext, templateID, courseID uint) (*FillDetailsResult, error) {
	tpl, err := s.eligibleTemplate(ctx, rc, templateID)
	if err != nil {
		return nil, err
	}

	courses, err := s.courseRepo.CoursesByIDs(ctx, rc.Caller.EnrolledCourses)
	if err != nil {
		return nil, fmt.Errorf("failed to load courses: %w", err)
	}
	result := &FillDetailsResult{
		Template:    toTemplateDTO(tpl, rc.Caller.Role),
		Submitter:   PersonDTO{ID: rc.Caller.ID, Name: rc.Caller.Name},
		Courses:     make([]CourseOption, 0, len(courses)),
		CourseID:    courseID,
		Staff:       []PersonDTO{},
		InputFields: nonNil(tpl.UnlockedFields()),
	}
	for _, c := range courses {
		result.Courses = append(result.Courses, toCourseOption(&c))
	}
	if courseID == 0 {
		return result, nil
	}

	course, err := s.courseRepo.GetCourse(ctx, courseID)
	if err != nil {
		return nil, lookupErr("course", err)
	}
	if !rc.Caller.IsEnrolledIn(course.ID) {
		return nil, validationf("not enrolled in course %s", course.Code)
	}
	opt := toCourseOption(course)
	result.Course = &opt

	section, err := s.ownedSection(ctx, rc, course.ID)
	if err != nil {
		return nil, err
	}
	var staff []model.User
	if section != nil {
		result.Section = &SectionDTO{ID: section.ID, Name: section.Name}
		if staff, err = s.courseRepo.SectionStaff(ctx, section.ID); err != nil {
			return nil, fmt.Errorf("failed to load section staff: %w", err)
		}
	}
	if len(staff) == 0 {
		if staff, err = s.courseRepo.CourseStaff(ctx, course.ID); err != nil {
			return nil, fmt.Errorf("failed to load course staff: %w", err)
		}
	}
	for _, u := range staff {
		result.Staff = append(result.Staff, PersonDTO{ID: u.ID, Name: u.Name, Email: u.Email})
	}
	return result, nil
}

// Preview 重新校验资格并生成规范化的数据载荷，只用于确认展示
func (s *submissionService) Preview(ctx context.Context, rc domain.RequestContext, req SubmissionRequest) (*PreviewResult, error) {
	if req.TemplateID == 0 || req.CourseID == 0 {
		return nil, validationf("templateId and courseId are required")
	}
	tpl, err := s.eligibleTemplate(ctx, rc, req.TemplateID)
	if err != nil {
		return nil, err
	}
	course, err := s.courseRepo.GetCourse(ctx, req.CourseID)
	if err != nil {
		return nil, lookupErr("course", err)
	}
	section, err := s.ownedSection(ctx, rc, course.ID)
	if err != nil {
		return nil, err
	}
	data, err := buildPayload(tpl, req.Values)
	if err != nil {
		return nil, err
	}

	result := &PreviewResult{
		Template:   toTemplateDTO(tpl, rc.Caller.Role),
		Course:     toCourseOption(course),
		Fields:     nonNil(tpl.UnlockedFields()),
		Data:       data,
		Reason:     strings.TrimSpace(req.Reason),
		TemplateID: tpl.ID,
		CourseID:   course.ID,
	}
	if section != nil {
		result.Section = &SectionDTO{ID: section.ID, Name: section.Name}
	}
	return result, nil
}

// Create 最终提交：重新校验资格和选课关系，重新生成载荷，分配审核人后写入 pending 记录。
// 不做重复提交去重。
func (s *submissionService) Create(ctx context.Context, rc domain.RequestContext, req SubmissionRequest) (uint, error) {
	if req.TemplateID == 0 || req.CourseID == 0 {
		return 0, validationf("templateId and courseId are required")
	}
	tpl, err := s.eligibleTemplate(ctx, rc, req.TemplateID)
	if err != nil {
		return 0, err
	}
	course, err := s.courseRepo.GetCourse(ctx, req.CourseID)
	if err != nil {
		return 0, lookupErr("course", err)
	}
	section, err := s.ownedSection(ctx, rc, course.ID)
	if err != nil {
		return 0, err
	}
	if !rc.Caller.IsEnrolledIn(course.ID) || section == nil {
		return 0, validationf("not enrolled in course %s", course.Code)
	}
	data, err := buildPayload(tpl, req.Values)
	if err != nil {
		return 0, err
	}

	reviewerID, err := s.router.SelectReviewer(ctx, tpl, &course.ID, &section.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to select reviewer: %w", err)
	}

	form := &model.Form{
		SubmitterID: rc.Caller.ID,
		TemplateID:  tpl.ID,
		CourseID:    &course.ID,
		SectionID:   &section.ID,
		Data:        datatypes.NewJSONType(data),
		Status:      model.FormStatusPending,
		ReviewerID:  reviewerID,
		Reason:      strings.TrimSpace(req.Reason),
		SubmittedAt: rc.Now.UTC(),
	}
	if err := s.formRepo.Create(ctx, form); err != nil {
		return 0, fmt.Errorf("failed to create form: %w", err)
	}
	klog.V(6).Infof("表单已提交: formID=%d, templateID=%d, submitterID=%d, reviewerID=%d", form.ID, tpl.ID, rc.Caller.ID, derefID(reviewerID))
	return form.ID, nil
}

func toCourseOption(c *model.Course) CourseOption {
	return CourseOption{ID: c.ID, Code: c.Code, Name: c.Name}
}

func derefID(id *uint) uint {
	if id == nil {
		return 0
	}
	return *id
}
