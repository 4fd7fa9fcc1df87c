package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Thanaruk598-0/CPmail/internal/domain"
	"github.com/Thanaruk598-0/CPmail/internal/eventbus"
	"github.com/Thanaruk598-0/CPmail/internal/model"
	"github.com/Thanaruk598-0/CPmail/internal/repository"
	"github.com/Thanaruk598-0/CPmail/internal/service/authz"
	"github.com/Thanaruk598-0/CPmail/internal/service/statemachine"
	"gorm.io/datatypes"
	"k8s.io/klog/v2"
)

// DefaultCancellationReason 提交人撤回时未填写原因使用的默认值
const DefaultCancellationReason = "cancelled by submitter"

// CommentDTO 审核评论
type CommentDTO struct {
	ID        uint      `json:"id"`
	Action    string    `json:"action"`
	Message   string    `json:"message"`
	User      PersonDTO `json:"user"`
	CreatedAt time.Time `json:"created_at"`
}

// FormDetailDTO 表单详情
type FormDetailDTO struct {
	ID                 uint           `json:"id"`
	Status             string         `json:"status"`
	TemplateName       string         `json:"template_name"`
	Template           *TemplateDTO   `json:"template,omitempty"`
	Submitter          PersonDTO      `json:"submitter"`
	Course             *CourseOption  `json:"course,omitempty"`
	Section            *SectionDTO    `json:"section,omitempty"`
	Reviewer           *PersonDTO     `json:"reviewer,omitempty"`
	Data               model.FormData `json:"data"`
	Reason             string         `json:"reason"`
	CancellationReason string         `json:"cancellation_reason,omitempty"`
	ReviewComment      string         `json:"review_comment,omitempty"`
	Comments           []CommentDTO   `json:"comments"`
	SubmittedAt        time.Time      `json:"submitted_at"`
	ReviewedAt         *time.Time     `json:"reviewed_at,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	CanEdit            bool           `json:"can_edit"`
	CanReview          bool           `json:"can_review"`
}

// FormService 表单记录状态机操作服务接口
type FormService interface {
	Get(ctx context.Context, rc domain.RequestContext, id uint) (*FormDetailDTO, error)
	Approve(ctx context.Context, rc domain.RequestContext, id uint, comment string) (*model.Form, error)
	Reject(ctx context.Context, rc domain.RequestContext, id uint, comment string) (*model.Form, error)
	Cancel(ctx context.Context, rc domain.RequestContext, id uint, reason string) (*model.Form, error)
	UpdateData(ctx context.Context, rc domain.RequestContext, id uint, values RawValues, reason string) (*model.Form, error)
	AddFeedback(ctx context.Context, rc domain.RequestContext, id uint, message string) (*model.ReviewComment, error)
}

type formEventPublisher interface {
	Publish(ctx context.Context, event eventbus.FormEvent) error
}

type formService struct {
	formRepo   repository.FormRepository
	courseRepo repository.CourseRepository
	userRepo   repository.UserRepository
	sm         *statemachine.FormStateMachine
	events     formEventPublisher
}

// NewFormService 创建表单服务，events 可以为空
func NewFormService(formRepo repository.FormRepository, courseRepo repository.CourseRepository, userRepo repository.UserRepository, events formEventPublisher) FormService {
	return &formService{
		formRepo:   formRepo,
		courseRepo: courseRepo,
		userRepo:   userRepo,
		sm:         statemachine.NewFormStateMachine(),
		events:     events,
	}
}

func (s *formService) load(ctx context.Context, id uint) (*model.Form, error) {
	form, err := s.formRepo.Get(ctx, id)
	if err != nil {
		return nil, lookupErr("form", err)
	}
	return form, nil
}

// resource 审核资格需要表单所在教学班和课程的教师
func (s *formService) resource(ctx context.Context, form *model.Form) (authz.Resource, error) {
	res := authz.Resource{
		Template:    form.Template,
		SubmitterID: form.SubmitterID,
		ReviewerID:  form.AssignedReviewerID(),
	}
	if form.SectionID != nil {
		staff, err := s.courseRepo.SectionStaff(ctx, *form.SectionID)
		if err != nil {
			return res, fmt.Errorf("failed to load section staff: %w", err)
		}
		res.SectionStaff = userIDs(staff)
	}
	if form.CourseID != nil {
		staff, err := s.courseRepo.CourseStaff(ctx, *form.CourseID)
		if err != nil {
			return res, fmt.Errorf("failed to load course staff: %w", err)
		}
		res.CourseStaff = userIDs(staff)
	}
	return res, nil
}

func (s *formService) authorizeFor(ctx context.Context, rc domain.RequestContext, action authz.Action, id uint) (*model.Form, authz.Resource, error) {
	form, err := s.load(ctx, id)
	if err != nil {
		return nil, authz.Resource{}, err
	}
	res, err := s.resource(ctx, form)
	if err != nil {
		return nil, res, err
	}
	if err := authorize(authz.Authorize(rc.Caller, action, res)); err != nil {
		return nil, res, err
	}
	return form, res, nil
}

// Get 提交人或有审核资格的用户可以查看
func (s *formService) Get(ctx context.Context, rc domain.RequestContext, id uint) (*FormDetailDTO, error) {
	form, res, err := s.authorizeFor(ctx, rc, authz.ActionView, id)
	if err != nil {
		return nil, err
	}
	dto := &FormDetailDTO{
		ID:                 form.ID,
		Status:             form.Status,
		TemplateName:       form.Template.DisplayName(),
		Data:               form.Data.Data(),
		Reason:             form.Reason,
		CancellationReason: form.CancellationReason,
		ReviewComment:      form.ReviewComment,
		Comments:           make([]CommentDTO, 0, len(form.Comments)),
		SubmittedAt:        form.SubmittedAt,
		ReviewedAt:         form.ReviewedAt,
		CreatedAt:          form.CreatedAt,
		UpdatedAt:          form.UpdatedAt,
		CanEdit:            form.SubmitterID == rc.Caller.ID,
		CanReview:          authz.Authorize(rc.Caller, authz.ActionReview, res) == nil,
	}
	if dto.Data == nil {
		dto.Data = model.FormData{}
	}
	if form.Template != nil {
		dto.Template = toTemplateDTO(form.Template, rc.Caller.Role)
	}
	if form.Submitter != nil {
		dto.Submitter = toPerson(form.Submitter)
	} else {
		dto.Submitter = PersonDTO{ID: form.SubmitterID}
	}
	if form.Course != nil {
		opt := toCourseOption(form.Course)
		dto.Course = &opt
	}
	if form.Section != nil {
		dto.Section = &SectionDTO{ID: form.Section.ID, Name: form.Section.Name}
	}

	// 旧数据只有审核人列表时，取第一个作为当前审核人
	reviewer := form.Reviewer
	if reviewer == nil {
		if rid := form.AssignedReviewerID(); rid != nil {
			if u, err := s.userRepo.Get(ctx, *rid); err == nil {
				reviewer = u
			}
		}
	}
	if reviewer != nil {
		p := toPerson(reviewer)
		dto.Reviewer = &p
	}

	for _, c := range form.Comments {
		cd := CommentDTO{ID: c.ID, Action: c.Action, Message: c.Message, CreatedAt: c.CreatedAt, User: PersonDTO{ID: c.UserID}}
		if c.User != nil {
			cd.User = toPerson(c.User)
		}
		dto.Comments = append(dto.Comments, cd)
	}
	return dto, nil
}

func (s *formService) Approve(ctx context.Context, rc domain.RequestContext, id uint, comment string) (*model.Form, error) {
	return s.review(ctx, rc, id, statemachine.FormStatusApproved, model.CommentApprove, eventbus.FormEventApproved, comment)
}

func (s *formService) Reject(ctx context.Context, rc domain.RequestContext, id uint, comment string) (*model.Form, error) {
	return s.review(ctx, rc, id, statemachine.FormStatusRejected, model.CommentReject, eventbus.FormEventRejected, comment)
}

// review 读取状态、校验迁移和写入在同一事务内完成；通过与驳回互相覆盖，后写者生效
func (s *formService) review(ctx context.Context, rc domain.RequestContext, id uint, to statemachine.FormStatus, action string, eventType eventbus.FormEventType, comment string) (*model.Form, error) {
	if _, _, err := s.authorizeFor(ctx, rc, authz.ActionReview, id); err != nil {
		return nil, err
	}
	comment = strings.TrimSpace(comment)
	reviewedAt := rc.Now.UTC()

	updated, err := s.formRepo.Update(ctx, id, func(form *model.Form) (*model.ReviewComment, error) {
		if err := s.sm.Transition(statemachine.FormStatus(form.Status), to, form.ID); err != nil {
			return nil, transitionErr(err)
		}
		reviewerID := rc.Caller.ID
		form.Status = string(to)
		form.ReviewerID = &reviewerID
		form.ReviewComment = comment
		form.ReviewedAt = &reviewedAt
		return &model.ReviewComment{UserID: rc.Caller.ID, Action: action, Message: comment, CreatedAt: reviewedAt}, nil
	})
	if err != nil {
		return nil, s.updateErr(err)
	}
	klog.V(6).Infof("表单审核完成: formID=%d, status=%s, reviewerID=%d", updated.ID, updated.Status, rc.Caller.ID)
	s.publish(ctx, eventType, updated, rc.Caller.ID, comment)
	return updated, nil
}

// Cancel 只有提交人可以撤回；已结束审核的表单也允许再次撤回
func (s *formService) Cancel(ctx context.Context, rc domain.RequestContext, id uint, reason string) (*model.Form, error) {
	if _, _, err := s.authorizeFor(ctx, rc, authz.ActionCancelOwn, id); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultCancellationReason
	}

	updated, err := s.formRepo.Update(ctx, id, func(form *model.Form) (*model.ReviewComment, error) {
		if err := s.sm.Transition(statemachine.FormStatus(form.Status), statemachine.FormStatusCancelled, form.ID); err != nil {
			return nil, transitionErr(err)
		}
		form.Status = model.FormStatusCancelled
		form.CancellationReason = reason
		return nil, nil
	})
	if err != nil {
		return nil, s.updateErr(err)
	}
	s.publish(ctx, eventbus.FormEventCancelled, updated, rc.Caller.ID, reason)
	return updated, nil
}

// UpdateData 只合并可填写字段，锁定字段和未知键静默丢弃；原因文本整体替换
func (s *formService) UpdateData(ctx context.Context, rc domain.RequestContext, id uint, values RawValues, reason string) (*model.Form, error) {
	if _, _, err := s.authorizeFor(ctx, rc, authz.ActionEditOwn, id); err != nil {
		return nil, err
	}
	updated, err := s.formRepo.Update(ctx, id, func(form *model.Form) (*model.ReviewComment, error) {
		if form.Template == nil {
			return nil, fmt.Errorf("%w: template", ErrNotFound)
		}
		merged, err := mergePayload(form.Template, form.Data.Data(), values)
		if err != nil {
			return nil, err
		}
		form.Data = datatypes.NewJSONType(merged)
		form.Reason = strings.TrimSpace(reason)
		return nil, nil
	})
	if err != nil {
		return nil, s.updateErr(err)
	}
	klog.V(6).Infof("表单数据已更新: formID=%d, submitterID=%d", updated.ID, rc.Caller.ID)
	return updated, nil
}

// AddFeedback 追加审核意见，不改变状态
func (s *formService) AddFeedback(ctx context.Context, rc domain.RequestContext, id uint, message string) (*model.ReviewComment, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, validationf("feedback message is required")
	}
	if _, _, err := s.authorizeFor(ctx, rc, authz.ActionReview, id); err != nil {
		return nil, err
	}
	var added *model.ReviewComment
	updated, err := s.formRepo.Update(ctx, id, func(form *model.Form) (*model.ReviewComment, error) {
		form.ReviewComment = message
		added = &model.ReviewComment{UserID: rc.Caller.ID, Action: model.CommentFeedback, Message: message, CreatedAt: rc.Now.UTC()}
		return added, nil
	})
	if err != nil {
		return nil, s.updateErr(err)
	}
	s.publish(ctx, eventbus.FormEventFeedback, updated, rc.Caller.ID, message)
	return added, nil
}

func (s *formService) updateErr(err error) error {
	if err == nil {
		return nil
	}
	if isTaxonomy(err) {
		return err
	}
	return lookupErr("form", err)
}

// publish 状态已提交，订阅者失败只记录日志
func (s *formService) publish(ctx context.Context, eventType eventbus.FormEventType, form *model.Form, actorID uint, comment string) {
	if s.events == nil {
		return
	}
	event := eventbus.FormEvent{
		Type:          eventType,
		FormID:        form.ID,
		SubmitterID:   form.SubmitterID,
		ActorID:       actorID,
		TemplateTitle: form.Template.DisplayName(),
		Comment:       comment,
	}
	if rid := form.AssignedReviewerID(); rid != nil {
		event.ReviewerID = *rid
	}
	if err := s.events.Publish(ctx, event); err != nil {
		klog.Errorf("表单事件处理失败: type=%s, formID=%d, error=%v", eventType, form.ID, err)
	}
}

func toPerson(u *model.User) PersonDTO {
	return PersonDTO{ID: u.ID, Name: u.Name, Email: u.Email}
}

func userIDs(users []model.User) []uint {
	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}
