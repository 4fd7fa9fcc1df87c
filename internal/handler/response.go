package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/Thanaruk598-0/CPmail/internal/domain"
	"github.com/Thanaruk598-0/CPmail/internal/middleware"
	"github.com/Thanaruk598-0/CPmail/internal/service"
	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"
)

// writeError 按业务错误分类映射状态码；调试模式下附带详细信息
func writeError(c *gin.Context, err error) {
	status, message := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, service.ErrValidation):
		status, message = http.StatusBadRequest, service.ErrValidation.Error()
	case errors.Is(err, service.ErrForbidden):
		status, message = http.StatusForbidden, service.ErrForbidden.Error()
	case errors.Is(err, service.ErrNotFound):
		status, message = http.StatusNotFound, service.ErrNotFound.Error()
	case errors.Is(err, service.ErrConflict):
		status, message = http.StatusConflict, service.ErrConflict.Error()
	default:
		klog.Errorf("请求处理失败: method=%s, path=%s, requestID=%s, error=%v",
			c.Request.Method, c.Request.URL.Path, middleware.GetRequestID(c), err)
	}
	body := gin.H{"error": message}
	if gin.IsDebugging() {
		body["detail"] = err.Error()
	}
	c.AbortWithStatusJSON(status, body)
}

// requestContext 认证中间件之后一定存在
func requestContext(c *gin.Context) (domain.RequestContext, bool) {
	rc, ok := middleware.GetRequestContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
	}
	return rc, ok
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// queryUint 缺失或非法时返回 0
func queryUint(c *gin.Context, names ...string) uint {
	for _, name := range names {
		if v := c.Query(name); v != "" {
			if n, err := strconv.ParseUint(v, 10, 32); err == nil {
				return uint(n)
			}
		}
	}
	return 0
}

func queryPage(c *gin.Context) int {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// isFormPost 浏览器表单提交（非 JSON）时采用重定向响应
func isFormPost(c *gin.Context) bool {
	mediaType, _, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data"
}

func redirectWithFlag(c *gin.Context, target, flag string) {
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	c.Redirect(http.StatusSeeOther, target+sep+flag+"=1")
}

// formValues 从表单提交中提取 data_<key> 字段
func formValues(c *gin.Context) service.RawValues {
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		klog.V(6).Infof("解析表单失败: %v", err)
	}
	values := make(service.RawValues)
	for key, vs := range c.Request.PostForm {
		if field, ok := strings.CutPrefix(key, service.FormValuePrefix); ok && field != "" {
			values[field] = vs
		}
	}
	return values
}

// fieldValues JSON 中的字段值可以是字符串、数字、布尔或字符串数组
type fieldValues map[string]json.RawMessage

func (v fieldValues) raw() (service.RawValues, error) {
	out := make(service.RawValues, len(v))
	for key, msg := range v {
		var decoded any
		if err := json.Unmarshal(msg, &decoded); err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		switch t := decoded.(type) {
		case nil:
			out[key] = []string{}
		case []any:
			out[key] = make([]string, 0, len(t))
			for _, item := range t {
				out[key] = append(out[key], scalar(item))
			}
		default:
			out[key] = []string{scalar(t)}
		}
	}
	return out, nil
}

func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	}
	b, _ := json.Marshal(v)
	return string(b)
}
