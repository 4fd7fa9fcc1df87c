package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Thanaruk598-0/CPmail/internal/domain"
	"github.com/Thanaruk598-0/CPmail/internal/pkg/auth"
	"github.com/Thanaruk598-0/CPmail/internal/service"
	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
	"k8s.io/klog/v2"
)

// TokenCookie 表单页面提交时携带令牌的 cookie 名
const TokenCookie = "token"

const contextKeyRequest = "request_context"

var supportedLocales = []language.Tag{language.English, language.Thai}

var localeMatcher = language.NewMatcher(supportedLocales)

type identityResolver interface {
	Resolve(ctx context.Context, userID uint) (domain.Caller, error)
}

// AuthOptions 认证中间件配置
type AuthOptions struct {
	Secret        string
	Location      *time.Location
	DefaultLocale string
	Now           func() time.Time
}

// Auth 校验 Bearer 令牌，解析调用者身份后把请求上下文放入 gin.Context
func Auth(identity identityResolver, opts AuthOptions) gin.HandlerFunc {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		claims, err := auth.ValidateToken(opts.Secret, token)
		if err != nil {
			klog.V(6).Infof("令牌校验失败: path=%s, error=%v", c.Request.URL.Path, err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		caller, err := identity.Resolve(c.Request.Context(), claims.UserID)
		switch {
		case errors.Is(err, service.ErrNotFound):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
			return
		case errors.Is(err, service.ErrForbidden):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user disabled"})
			return
		case err != nil:
			klog.Errorf("解析用户身份失败: userID=%d, error=%v", claims.UserID, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		locale := negotiateLocale(c.GetHeader("Accept-Language"), opts.DefaultLocale)
		c.Set(contextKeyRequest, domain.NewRequestContext(caller, opts.Now(), locale, opts.Location))
		c.Next()
	}
}

// GetRequestContext 读取认证中间件写入的请求上下文
func GetRequestContext(c *gin.Context) (domain.RequestContext, bool) {
	v, ok := c.Get(contextKeyRequest)
	if !ok {
		return domain.RequestContext{}, false
	}
	rc, ok := v.(domain.RequestContext)
	return rc, ok
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	if token, err := c.Cookie(TokenCookie); err == nil {
		return token
	}
	return ""
}

// negotiateLocale 按 Accept-Language 匹配支持的语言，无法匹配时使用默认值
func negotiateLocale(header, fallback string) string {
	if fallback == "" {
		fallback = "en"
	}
	if header == "" {
		return fallback
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	_, index, confidence := localeMatcher.Match(tags...)
	if confidence == language.No {
		return fallback
	}
	base, _ := supportedLocales[index].Base()
	return base.String()
}
