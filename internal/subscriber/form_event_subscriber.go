package subscriber

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Thanaruk598-0/CPmail/internal/eventbus"
	"github.com/Thanaruk598-0/CPmail/internal/model"
	"github.com/Thanaruk598-0/CPmail/internal/service"
	"k8s.io/klog/v2"
)

// DefaultLinkPrefix 通知中表单详情链接的默认前缀
const DefaultLinkPrefix = "/student/forms/"

type notifier interface {
	Notify(ctx context.Context, in service.NotificationInput) (*model.Notification, error)
}

// FormEventSubscriber 将表单审核事件转换为站内通知
type FormEventSubscriber struct {
	notifier   notifier
	linkPrefix string
}

func NewFormEventSubscriber(notifier notifier, linkPrefix string) *FormEventSubscriber {
	if linkPrefix == "" {
		linkPrefix = DefaultLinkPrefix
	}
	return &FormEventSubscriber{notifier: notifier, linkPrefix: linkPrefix}
}

func (s *FormEventSubscriber) Register(bus *eventbus.FormEventBus) {
	if bus == nil {
		return
	}
	bus.Subscribe(eventbus.FormEventApproved, s.handleReviewed)
	bus.Subscribe(eventbus.FormEventRejected, s.handleReviewed)
	bus.Subscribe(eventbus.FormEventFeedback, s.handleFeedback)
	bus.Subscribe(eventbus.FormEventCancelled, s.handleCancelled)
}

func (s *FormEventSubscriber) link(formID uint) string {
	if strings.HasSuffix(s.linkPrefix, "/") {
		return s.linkPrefix + strconv.FormatUint(uint64(formID), 10)
	}
	return s.linkPrefix + "/" + strconv.FormatUint(uint64(formID), 10)
}

// handleReviewed 通过或驳回后通知提交人
func (s *FormEventSubscriber) handleReviewed(ctx context.Context, event eventbus.FormEvent) error {
	verb := "ถูกอนุมัติแล้ว"
	if event.Type == eventbus.FormEventRejected {
		verb = "ถูกปฏิเสธแล้ว"
	}
	return s.notify(ctx, event, event.SubmitterID, fmt.Sprintf("ฟอร์มของคุณ \"%s\" %s", event.TemplateTitle, verb))
}

func (s *FormEventSubscriber) handleFeedback(ctx context.Context, event eventbus.FormEvent) error {
	return s.notify(ctx, event, event.SubmitterID, fmt.Sprintf("ฟอร์มของคุณ \"%s\" มีความคิดเห็นใหม่จากผู้ตรวจ", event.TemplateTitle))
}

// handleCancelled 提交人撤回后通知已指派的审核人
func (s *FormEventSubscriber) handleCancelled(ctx context.Context, event eventbus.FormEvent) error {
	if event.ReviewerID == 0 || event.ReviewerID == event.ActorID {
		klog.V(6).Infof("表单撤回事件无需通知: formID=%d", event.FormID)
		return nil
	}
	return s.notify(ctx, event, event.ReviewerID, fmt.Sprintf("ฟอร์ม \"%s\" ถูกยกเลิกโดยผู้ส่ง", event.TemplateTitle))
}

func (s *FormEventSubscriber) notify(ctx context.Context, event eventbus.FormEvent, recipient uint, message string) error {
	n, err := s.notifier.Notify(ctx, service.NotificationInput{
		RecipientID: recipient,
		Message:     message,
		Link:        s.link(event.FormID),
	})
	if err != nil {
		klog.Errorf("表单事件通知失败: type=%s, formID=%d, recipient=%d, error=%v", event.Type, event.FormID, recipient, err)
		return err
	}
	klog.V(6).Infof("表单事件处理成功: type=%s, formID=%d, notificationID=%d", event.Type, event.FormID, n.ID)
	return nil
}
