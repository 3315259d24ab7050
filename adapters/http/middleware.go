package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khoahotran/detasker/pkg/address"
	"github.com/khoahotran/detasker/pkg/apperror"
	"github.com/khoahotran/detasker/pkg/auth"
	"github.com/khoahotran/detasker/pkg/logger"
)

const (
	GinContextKeyCaller = "caller"
)

func AuthMiddleware(jwtSvc *auth.JWTService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format"})
			return
		}

		claims, err := jwtSvc.ValidateToken(tokenString)
		if err != nil {
			log.Debug("Rejected bearer token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(GinContextKeyCaller, claims.Address)

		c.Next()
	}
}

func GetCallerFromContext(ctx context.Context) (address.Address, bool) {
	caller, ok := ctx.Value(GinContextKeyCaller).(address.Address)
	return caller, ok
}

func GetCallerFromGinContext(c *gin.Context) (address.Address, bool) {
	caller, ok := c.Get(GinContextKeyCaller)
	if !ok {
		return "", false
	}
	addr, ok := caller.(address.Address)
	if !ok || addr.IsZero() {
		return "", false
	}
	return addr, true
}

// ErrorMiddleware renders the last error a handler attached with c.Error.
func ErrorMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		var appErr *apperror.AppError
		if !errors.As(err, &appErr) {
			appErr = apperror.NewInternal("unexpected error", err)
		}
		status := apperror.ToHTTPStatus(appErr)
		if status >= http.StatusInternalServerError {
			log.Error("Request failed", err, zap.String("path", c.FullPath()), zap.String("method", c.Request.Method))
		} else {
			log.Debug("Request rejected", zap.String("path", c.FullPath()), zap.String("error", err.Error()))
		}
		c.AbortWithStatusJSON(status, appErr.ToJSON())
	}
}
