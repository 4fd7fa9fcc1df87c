package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/Thanaruk598-0/CPmail/internal/domain"
	"github.com/Thanaruk598-0/CPmail/internal/model"
	"github.com/Thanaruk598-0/CPmail/internal/service"
	"github.com/gin-gonic/gin"
)

// FormHandler 表单记录处理器
type FormHandler struct {
	service    service.FormService
	detailPath string
}

// NewFormHandler detailPath 为表单详情页地址前缀，用于表单提交后的重定向
func NewFormHandler(service service.FormService, detailPath string) *FormHandler {
	if detailPath == "" {
		detailPath = "/student/forms"
	}
	return &FormHandler{service: service, detailPath: strings.TrimSuffix(detailPath, "/")}
}

// RegisterRoutes 注册路由
func (h *FormHandler) RegisterRoutes(router *gin.RouterGroup) {
	forms := router.Group("/forms")
	{
		forms.GET("/:id", h.Get)
		forms.POST("/:id/update", h.UpdateData)
		forms.POST("/:id/cancel", h.Cancel)
		forms.POST("/:id/approve", h.Approve)
		forms.POST("/:id/reject", h.Reject)
		forms.POST("/:id/feedback", h.Feedback)
	}
}

// reviewRequest 审核意见，兼容旧表单字段名 reviewComment
type reviewRequest struct {
	Comment       string `json:"comment" form:"comment"`
	ReviewComment string `json:"review_comment" form:"reviewComment"`
}

func (r reviewRequest) text() string {
	if r.Comment != "" {
		return r.Comment
	}
	return r.ReviewComment
}

// updateRequest 提交人修改数据
type updateRequest struct {
	Values fieldValues `json:"values"`
	Reason string      `json:"reason"`
}

type cancelRequest struct {
	Reason string `json:"reason" form:"reason"`
}

func (h *FormHandler) detailURL(id uint) string {
	return h.detailPath + "/" + strconv.FormatUint(uint64(id), 10)
}

func (h *FormHandler) Get(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	detail, err := h.service.Get(c.Request.Context(), rc, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// UpdateData 提交人修改可填写字段和原因
func (h *FormHandler) UpdateData(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var values service.RawValues
	var reason string
	if isFormPost(c) {
		values = formValues(c)
		reason = c.PostForm("reason")
	} else {
		var req updateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var err error
		if values, err = req.Values.raw(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		reason = req.Reason
	}

	form, err := h.service.UpdateData(c.Request.Context(), rc, id, values, reason)
	if err != nil {
		writeError(c, err)
		return
	}
	if isFormPost(c) {
		redirectWithFlag(c, h.detailURL(id), "updated")
		return
	}
	c.JSON(http.StatusOK, form)
}

// Cancel 提交人撤回
func (h *FormHandler) Cancel(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req cancelRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	form, err := h.service.Cancel(c.Request.Context(), rc, id, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	if isFormPost(c) {
		redirectWithFlag(c, h.detailURL(id), "cancelled")
		return
	}
	c.JSON(http.StatusOK, form)
}

func (h *FormHandler) Approve(c *gin.Context) {
	h.review(c, h.service.Approve)
}

func (h *FormHandler) Reject(c *gin.Context) {
	h.review(c, h.service.Reject)
}

type reviewAction func(ctx context.Context, rc domain.RequestContext, id uint, comment string) (*model.Form, error)

// review 通过或驳回，通知由事件订阅者发送给提交人
func (h *FormHandler) review(c *gin.Context, action reviewAction) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req reviewRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	form, err := action(c.Request.Context(), rc, id, req.text())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, form)
}

// Feedback 追加审核意见，不改变状态
func (h *FormHandler) Feedback(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req reviewRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	comment, err := h.service.AddFeedback(c.Request.Context(), rc, id, req.text())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}
