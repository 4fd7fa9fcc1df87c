package handler

import (
	"net/http"

	"github.com/Thanaruk598-0/CPmail/internal/service"
	"github.com/gin-gonic/gin"
)

// ReportHandler 审核报表处理器
type ReportHandler struct {
	service service.ReportService
}

func NewReportHandler(service service.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// RegisterRoutes 注册路由
func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/reports/reviewer", h.Reviewer)
}

func (h *ReportHandler) Reviewer(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	filter := service.ReportFilter{
		From:      c.Query("from"),
		To:        c.Query("to"),
		SectionID: queryUint(c, "section"),
	}
	report, err := h.service.Reviewer(c.Request.Context(), rc, filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
