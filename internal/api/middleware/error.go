package middleware

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/systemiqofficial/steel-iq-sub000/internal/api/models"
)

// ErrorHandler middleware turns panics into an INTERNAL_ERROR response
func ErrorHandler(log *slog.Logger) gin.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Error("ErrorHandler: recovered panic", slog.String("path", c.Request.URL.Path), slog.String("panic", fmt.Sprint(recovered)))
		msg := "An unexpected error occurred"
		switch v := recovered.(type) {
		case string:
			msg = v
		case error:
			msg = v.Error()
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.NewError("INTERNAL_ERROR", msg))
	})
}
