package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Thanaruk598-0/CPmail/internal/domain"
	"github.com/Thanaruk598-0/CPmail/internal/model"
	"github.com/Thanaruk598-0/CPmail/internal/repository"
	"k8s.io/klog/v2"
)

// DefaultNotificationPageSize 通知列表默认每页条数
const DefaultNotificationPageSize = 20

// NotificationInput 新通知
type NotificationInput struct {
	RecipientID uint
	Message     string
	Link        string
}

// NotificationPage 通知分页列表
type NotificationPage struct {
	Items       []model.Notification `json:"items"`
	Total       int64                `json:"total"`
	UnreadCount int64                `json:"unread_count"`
	Pagination  Pagination           `json:"pagination"`
}

// NotificationService 站内通知服务接口
type NotificationService interface {
	Notify(ctx context.Context, in NotificationInput) (*model.Notification, error)
	List(ctx context.Context, rc domain.RequestContext, page int) (*NotificationPage, error)
	UnreadCount(ctx context.Context, rc domain.RequestContext) (int64, error)
	MarkRead(ctx context.Context, rc domain.RequestContext, id uint) error
	MarkAllRead(ctx context.Context, rc domain.RequestContext) (int64, error)
}

type notificationService struct {
	repo     repository.NotificationRepository
	pageSize int
}

// NewNotificationService 创建通知服务
func NewNotificationService(repo repository.NotificationRepository, pageSize int) NotificationService {
	if pageSize <= 0 {
		pageSize = DefaultNotificationPageSize
	}
	return &notificationService{repo: repo, pageSize: pageSize}
}

func (s *notificationService) Notify(ctx context.Context, in NotificationInput) (*model.Notification, error) {
	if in.RecipientID == 0 {
		return nil, validationf("notification recipient is required")
	}
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, validationf("notification message is required")
	}
	n := &model.Notification{
		UserID:  in.RecipientID,
		Type:    model.NotificationForm,
		Message: message,
		Link:    in.Link,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	klog.V(6).Infof("通知已创建: id=%d, userID=%d", n.ID, n.UserID)
	return n, nil
}

func (s *notificationService) List(ctx context.Context, rc domain.RequestContext, page int) (*NotificationPage, error) {
	if page < 1 {
		page = 1
	}
	items, total, err := s.repo.ListByUser(ctx, rc.Caller.ID, (page-1)*s.pageSize, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	unread, err := s.repo.UnreadCount(ctx, rc.Caller.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}
	if items == nil {
		items = []model.Notification{}
	}
	return &NotificationPage{
		Items:       items,
		Total:       total,
		UnreadCount: unread,
		Pagination:  Pagination{Page: page, PageSize: s.pageSize, TotalPages: totalPages(total, s.pageSize)},
	}, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, rc domain.RequestContext) (int64, error) {
	n, err := s.repo.UnreadCount(ctx, rc.Caller.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return n, nil
}

// MarkRead 他人的通知按不存在处理
func (s *notificationService) MarkRead(ctx context.Context, rc domain.RequestContext, id uint) error {
	if err := s.repo.MarkRead(ctx, id, rc.Caller.ID); err != nil {
		return lookupErr("notification", err)
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, rc domain.RequestContext) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, rc.Caller.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return n, nil
}
