package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/autou/mailtriage/pkg/errors"
	"github.com/autou/mailtriage/pkg/logger"
	"github.com/autou/mailtriage/pkg/response"
)

// Recovery converts panics into a 500 response and logs the error. Clients
// only ever see the generic message.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.WithModule("http").Error("panic",
					zap.String("path", c.Request.URL.Path),
					zap.Any("error", r),
				)
				c.Abort()
				response.Error(c, errors.ErrInternalServer)
			}
		}()
		c.Next()
	}
}

// NotFoundHandler returns a JSON 404 response for unknown routes.
func NotFoundHandler(c *gin.Context) {
	response.Error(c, errors.ErrNotFound.WithMessage(
		fmt.Sprintf("route %s not found", c.Request.URL.Path)))
}
