package handler

import (
	"net/http"

	"github.com/Thanaruk598-0/CPmail/internal/service"
	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"
)

// AdminTemplateHandler 模板管理处理器，仅管理员可用
type AdminTemplateHandler struct {
	service service.TemplateService
}

// NewAdminTemplateHandler 创建模板管理处理器
func NewAdminTemplateHandler(service service.TemplateService) *AdminTemplateHandler {
	return &AdminTemplateHandler{service: service}
}

// RegisterRoutes 注册路由
func (h *AdminTemplateHandler) RegisterRoutes(router *gin.RouterGroup) {
	admin := router.Group("/admin/templates")
	{
		admin.GET("", h.List)
		admin.POST("", h.Create)
		admin.PUT("/:id", h.Update)
		admin.DELETE("/:id", h.Delete)
		admin.POST("/:id/clone", h.Clone)
	}
}

func (h *AdminTemplateHandler) List(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	templates, err := h.service.List(c.Request.Context(), rc, service.TemplateListFilter{
		Q:        c.Query("q"),
		Category: c.Query("category"),
		Status:   c.Query("status"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, templates)
}

func (h *AdminTemplateHandler) Create(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	var req service.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tpl, err := h.service.Create(c.Request.Context(), rc, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tpl)
}

func (h *AdminTemplateHandler) Update(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tpl, err := h.service.Update(c.Request.Context(), rc, id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	klog.V(6).Infof("模板已更新: id=%d, by=%d", id, rc.Caller.ID)
	c.JSON(http.StatusOK, tpl)
}

func (h *AdminTemplateHandler) Delete(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), rc, id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *AdminTemplateHandler) Clone(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	tpl, err := h.service.Clone(c.Request.Context(), rc, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tpl)
}
