package handler

import (
	"net/http"

	"github.com/Thanaruk598-0/CPmail/internal/model"
	"github.com/Thanaruk598-0/CPmail/internal/service"
	"github.com/gin-gonic/gin"
)

// HistoryHandler 提交人和审核人的历史查询处理器
type HistoryHandler struct {
	service service.HistoryService
}

// NewHistoryHandler 创建历史查询处理器
func NewHistoryHandler(service service.HistoryService) *HistoryHandler {
	return &HistoryHandler{service: service}
}

// RegisterRoutes 注册路由
func (h *HistoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/history", h.page(service.ScopeSubmitter))
	router.GET("/history/data", h.data(service.ScopeSubmitter))
	router.GET("/review/history", h.page(service.ScopeReviewer))
	router.GET("/review/history/data", h.data(service.ScopeReviewer))
}

func historyFilter(c *gin.Context) service.HistoryFilter {
	return service.HistoryFilter{
		Q:        c.Query("q"),
		Status:   c.Query("status"),
		Category: c.Query("category"),
		From:     c.Query("from"),
		To:       c.Query("to"),
		Page:     queryPage(c),
	}
}

func (h *HistoryHandler) query(c *gin.Context, scope service.HistoryScope) (*service.HistoryResult, bool) {
	rc, ok := requestContext(c)
	if !ok {
		return nil, false
	}
	res, err := h.service.Query(c.Request.Context(), rc, scope, historyFilter(c))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return res, true
}

// data 供页面局部刷新使用的查询结果
func (h *HistoryHandler) data(scope service.HistoryScope) gin.HandlerFunc {
	return func(c *gin.Context) {
		if res, ok := h.query(c, scope); ok {
			c.JSON(http.StatusOK, res)
		}
	}
}

// page 查询结果附带筛选项，用于渲染完整页面
func (h *HistoryHandler) page(scope service.HistoryScope) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, ok := h.query(c, scope)
		if !ok {
			return
		}
		rc, _ := requestContext(c)
		categories := []service.CategoryOption{{Value: service.FilterAll, Label: service.FilterAll}}
		for _, cat := range model.Categories {
			categories = append(categories, service.CategoryOption{Value: string(cat), Label: service.CategoryLabel(string(cat), rc.Locale)})
		}
		c.JSON(http.StatusOK, gin.H{
			"result":     res,
			"categories": categories,
			"statuses":   append([]string{service.FilterAll}, model.FormStatuses...),
		})
	}
}
