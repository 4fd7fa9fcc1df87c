package handler

import (
	"net/http"

	"github.com/Thanaruk598-0/CPmail/internal/service"
	"github.com/gin-gonic/gin"
)

// TemplateHandler 模板目录处理器
type TemplateHandler struct {
	service service.TemplateService
}

// NewTemplateHandler 创建模板目录处理器
func NewTemplateHandler(service service.TemplateService) *TemplateHandler {
	return &TemplateHandler{service: service}
}

// RegisterRoutes 注册路由
func (h *TemplateHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/templates", h.List)
	router.GET("/templates/:id", h.Get)
}

// List 第一步：分类列表，选定分类后附带模板列表
func (h *TemplateHandler) List(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	res, err := h.service.SelectTemplate(c.Request.Context(), rc, c.Query("category"), queryUint(c, "templateId", "template_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *TemplateHandler) Get(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	res, err := h.service.SelectTemplate(c.Request.Context(), rc, "", id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"template":           res.Selected,
		"required_documents": res.RequiredDocuments,
	})
}
