package handler

import (
	"net/http"
	"strconv"

	"github.com/Thanaruk598-0/CPmail/internal/service"
	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"
)

// SubmissionHandler 三步提交流程处理器
type SubmissionHandler struct {
	service   service.SubmissionService
	dashboard string
}

// NewSubmissionHandler dashboard 为表单提交成功后的跳转地址
func NewSubmissionHandler(service service.SubmissionService, dashboard string) *SubmissionHandler {
	if dashboard == "" {
		dashboard = "/student"
	}
	return &SubmissionHandler{service: service, dashboard: dashboard}
}

// RegisterRoutes 注册路由
func (h *SubmissionHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/submission/step2", h.FillDetails)
	router.POST("/submission/preview", h.Preview)
	router.POST("/submission/create", h.Create)
}

// submissionRequest JSON 提交请求
type submissionRequest struct {
	TemplateID uint        `json:"template_id"`
	CourseID   uint        `json:"course_id"`
	Values     fieldValues `json:"values"`
	Reason     string      `json:"reason"`
}

// bindSubmission 同时支持 JSON 和 data_<key> 形式的表单提交
func bindSubmission(c *gin.Context) (service.SubmissionRequest, bool) {
	if isFormPost(c) {
		values := formValues(c)
		return service.SubmissionRequest{
			TemplateID: formUint(c, "templateId", "template_id"),
			CourseID:   formUint(c, "courseId", "course_id"),
			Values:     values,
			Reason:     c.PostForm("reason"),
		}, true
	}

	var req submissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return service.SubmissionRequest{}, false
	}
	values, err := req.Values.raw()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return service.SubmissionRequest{}, false
	}
	return service.SubmissionRequest{
		TemplateID: req.TemplateID,
		CourseID:   req.CourseID,
		Values:     values,
		Reason:     req.Reason,
	}, true
}

func formUint(c *gin.Context, names ...string) uint {
	for _, name := range names {
		if v := c.PostForm(name); v != "" {
			if n, err := strconv.ParseUint(v, 10, 32); err == nil {
				return uint(n)
			}
		}
	}
	return 0
}

// FillDetails 第二步：校验提交资格并返回课程、教学班和教师
func (h *SubmissionHandler) FillDetails(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	res, err := h.service.FillDetails(c.Request.Context(), rc,
		queryUint(c, "templateId", "template_id"), queryUint(c, "courseId", "course_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Preview 第三步：预览规范化后的数据，不写入
func (h *SubmissionHandler) Preview(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	req, ok := bindSubmission(c)
	if !ok {
		return
	}
	res, err := h.service.Preview(c.Request.Context(), rc, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Create 最终提交，表单提交时重定向到提交人首页
func (h *SubmissionHandler) Create(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	req, ok := bindSubmission(c)
	if !ok {
		return
	}
	id, err := h.service.Create(c.Request.Context(), rc, req)
	if err != nil {
		writeError(c, err)
		return
	}
	klog.V(6).Infof("表单提交成功: formID=%d, userID=%d", id, rc.Caller.ID)
	if isFormPost(c) {
		redirectWithFlag(c, h.dashboard, "submitted")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}
