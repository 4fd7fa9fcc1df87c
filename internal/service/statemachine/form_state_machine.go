package statemachine

import (
	"fmt"

	"k8s.io/klog/v2"
)

// FormStatus 表单记录的所有可能状态
type FormStatus string

const (
	FormStatusPending   FormStatus = "pending"   // 待审核（初始态）
	FormStatusApproved  FormStatus = "approved"  // 已通过
	FormStatusRejected  FormStatus = "rejected"  // 已驳回
	FormStatusCancelled FormStatus = "cancelled" // 提交人已撤回
)

// FormTransition 表单状态迁移
type FormTransition struct {
	From FormStatus
	To   FormStatus
}

// FormStateMachine 表单状态机
type FormStateMachine struct {
	allowedTransitions map[FormTransition]bool
}

// NewFormStateMachine 创建表单状态机
func NewFormStateMachine() *FormStateMachine {
	sm := &FormStateMachine{
		allowedTransitions: make(map[FormTransition]bool),
	}

	// pending -> approved/rejected/cancelled
	// approved <-> rejected（后写覆盖）
	// approved/rejected -> cancelled（提交人仍可撤回）
	// cancelled 之后不再接受审核
	transitions := []FormTransition{
		{FormStatusPending, FormStatusApproved},
		{FormStatusPending, FormStatusRejected},
		{FormStatusPending, FormStatusCancelled},

		{FormStatusApproved, FormStatusApproved},
		{FormStatusApproved, FormStatusRejected},
		{FormStatusRejected, FormStatusRejected},
		{FormStatusRejected, FormStatusApproved},

		{FormStatusApproved, FormStatusCancelled},
		{FormStatusRejected, FormStatusCancelled},
		{FormStatusCancelled, FormStatusCancelled},
	}

	for _, t := range transitions {
		sm.allowedTransitions[t] = true
	}

	return sm
}

// CanTransition 检查状态迁移是否合法
func (sm *FormStateMachine) CanTransition(from, to FormStatus) bool {
	return sm.allowedTransitions[FormTransition{From: from, To: to}]
}

// ValidateTransition 验证状态迁移并返回错误
func (sm *FormStateMachine) ValidateTransition(from, to FormStatus) error {
	if !sm.CanTransition(from, to) {
		return &InvalidStateTransitionError{
			From: string(from),
			To:   string(to),
		}
	}
	return nil
}

// Transition 执行状态迁移（带日志）
func (sm *FormStateMachine) Transition(from, to FormStatus, formID uint) error {
	if err := sm.ValidateTransition(from, to); err != nil {
		klog.V(6).Infof("表单状态迁移被拒绝: formID=%d, %s -> %s, error=%v",
			formID, from, to, err)
		return err
	}

	klog.V(6).Infof("表单状态迁移成功: formID=%d, %s -> %s", formID, from, to)
	return nil
}

// InvalidStateTransitionError 无效的状态迁移错误
type InvalidStateTransitionError struct {
	From string
	To   string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid form state transition: %s -> %s", e.From, e.To)
}

// IsTerminal 判断状态是否已结束审核
func IsTerminal(status FormStatus) bool {
	return status == FormStatusApproved || status == FormStatusRejected || status == FormStatusCancelled
}

// IsValid 判断状态值是否合法
func IsValid(status string) bool {
	switch FormStatus(status) {
	case FormStatusPending, FormStatusApproved, FormStatusRejected, FormStatusCancelled:
		return true
	}
	return false
}
