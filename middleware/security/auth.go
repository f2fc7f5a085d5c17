package security

import (
	"net/http"
	"strings"

	"CBProject/global"
	"CBProject/tools/errs"
	"CBProject/tools/security"

	"github.com/gin-gonic/gin"
)

// Context key for the authenticated caller's user id.
const CtxUserIDKey = "auth_user_id"

type Options struct {
	HeaderToken               string // default "Authorization"
	EnableAuthorizationBearer bool   // default true
}

func DefaultOptions() *Options {
	return &Options{
		HeaderToken:               "Authorization",
		EnableAuthorizationBearer: true,
	}
}

// Middleware verifies the session token and binds the caller's user id
// into the gin context. Requests without a valid token are rejected.
func Middleware(opts *Options) gin.HandlerFunc {
	if opts == nil {
		opts = DefaultOptions()
	}
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(opts.HeaderToken))
		if opts.EnableAuthorizationBearer && strings.HasPrefix(strings.ToLower(token), "bearer ") {
			token = strings.TrimSpace(token[len("bearer "):])
		}

		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrUnauthorized)
			return
		}

		uid, err := security.Verify(security.DefaultOptions([]byte(global.Conf().JWTSecret)), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrUnauthorized.WithDetail(err.Error()))
			return
		}

		c.Set(CtxUserIDKey, uid)
		c.Next()
	}
}

// UserID reads the authenticated user id bound by Middleware.
func UserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxUserIDKey)
	if !ok {
		return "", false
	}
	uid, ok := v.(string)
	return uid, ok && uid != ""
}
