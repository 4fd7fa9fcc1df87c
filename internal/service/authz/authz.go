package authz

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Thanaruk598-0/CPmail/internal/domain"
	"github.com/Thanaruk598-0/CPmail/internal/model"
	"k8s.io/klog/v2"
)

// ErrDenied 权限校验未通过
var ErrDenied = errors.New("permission denied")

// Action 需要校验的操作
type Action string

const (
	ActionSubmit          Action = "submit"           // 使用模板提交表单
	ActionView            Action = "view"             // 查看表单详情
	ActionReview          Action = "review"           // 通过、驳回、反馈
	ActionEditOwn         Action = "edit-own"         // 修改本人表单
	ActionCancelOwn       Action = "cancel-own"       // 撤回本人表单
	ActionReviewQueue     Action = "review-queue"     // 审核历史与报表
	ActionManageTemplates Action = "manage-templates" // 模板管理
)

// Resource 操作对象的上下文，只需填写对应操作用到的字段
type Resource struct {
	Template     *model.FormTemplate
	SubmitterID  uint
	ReviewerID   *uint
	SectionStaff []uint
	CourseStaff  []uint
}

// Authorize 统一的权限校验入口，通过返回 nil
func Authorize(caller domain.Caller, action Action, res Resource) error {
	err := check(caller, action, res)
	if err != nil {
		klog.Warningf("权限校验失败: userID=%d, role=%s, action=%s, error=%v", caller.ID, caller.Role, action, err)
	}
	return err
}

func check(caller domain.Caller, action Action, res Resource) error {
	if caller.ID == 0 {
		return fmt.Errorf("%w: anonymous caller", ErrDenied)
	}
	switch action {
	case ActionSubmit:
		if res.Template == nil || !res.Template.CanSubmit(caller.Role) {
			return fmt.Errorf("%w: role %q cannot submit this template", ErrDenied, caller.Role)
		}
		return nil
	case ActionEditOwn, ActionCancelOwn:
		if res.SubmitterID != caller.ID {
			return fmt.Errorf("%w: only the submitter may %s", ErrDenied, action)
		}
		return nil
	case ActionReview:
		if !canReview(caller, res) {
			return fmt.Errorf("%w: not a reviewer for this form", ErrDenied)
		}
		return nil
	case ActionView:
		if res.SubmitterID == caller.ID || canReview(caller, res) {
			return nil
		}
		return fmt.Errorf("%w: form belongs to another user", ErrDenied)
	case ActionReviewQueue:
		if caller.Role == model.RoleLecturer || caller.Role == model.RoleAdmin {
			return nil
		}
		return fmt.Errorf("%w: reviewer role required", ErrDenied)
	case ActionManageTemplates:
		if caller.Role == model.RoleAdmin {
			return nil
		}
		return fmt.Errorf("%w: admin role required", ErrDenied)
	}
	return fmt.Errorf("%w: unknown action %q", ErrDenied, action)
}

// canReview 管理员、教学班或课程教师、以及被指派的审核人都可以审核
func canReview(caller domain.Caller, res Resource) bool {
	switch caller.Role {
	case model.RoleAdmin:
		return true
	case model.RoleLecturer:
		if res.ReviewerID != nil && *res.ReviewerID == caller.ID {
			return true
		}
		return slices.Contains(res.SectionStaff, caller.ID) || slices.Contains(res.CourseStaff, caller.ID)
	}
	return false
}
