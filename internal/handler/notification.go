package handler

import (
	"net/http"

	"github.com/Thanaruk598-0/CPmail/internal/service"
	"github.com/gin-gonic/gin"
)

// NotificationHandler 站内通知处理器
type NotificationHandler struct {
	service service.NotificationService
}

// NewNotificationHandler 创建通知处理器
func NewNotificationHandler(service service.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// RegisterRoutes 注册路由
func (h *NotificationHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/notifications", h.List)
	router.GET("/notifications/unread-count", h.UnreadCount)
	router.POST("/notifications/read-all", h.MarkAllRead)
	router.POST("/notifications/:id/read", h.MarkRead)
}

func (h *NotificationHandler) List(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	page, err := h.service.List(c.Request.Context(), rc, queryPage(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	n, err := h.service.UnreadCount(c.Request.Context(), rc)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.MarkRead(c.Request.Context(), rc, id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	n, err := h.service.MarkAllRead(c.Request.Context(), rc)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}
