package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/portalgpt/auth"
	"github.com/kbukum/portalgpt/auth/authctx"
	"github.com/kbukum/portalgpt/auth/jwt"
	apperrors "github.com/kbukum/portalgpt/errors"
	"github.com/kbukum/portalgpt/logger"
)

// AuthConfig configures bearer authentication.
type AuthConfig struct {
	Validator auth.TokenValidator
	// SkipPaths are URL path prefixes that bypass authentication.
	SkipPaths []string
}

// Auth validates "Authorization: Bearer <token>" and stores the claims in
// the request context via authctx.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, skip := range cfg.SkipPaths {
			if strings.HasPrefix(c.Request.URL.Path, skip) {
				c.Next()
				return
			}
		}

		scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			abort(c, apperrors.Unauthorized("missing bearer token"))
			return
		}

		claims, err := cfg.Validator.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			appErr, ok := apperrors.AsAppError(err)
			if !ok {
				appErr = apperrors.InvalidToken().WithCause(err)
			}
			abort(c, appErr)
			return
		}

		ctx := authctx.Set(c.Request.Context(), claims)
		if jc, ok := claims.(*jwt.Claims); ok {
			ctx = logger.ContextWithSubject(ctx, jc.Subject)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func abort(c *gin.Context, appErr *apperrors.AppError) {
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
}
