package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/stockdaily/internal/domain/dto"
)

// ErrorHandler turns errors attached with c.Error into a dto.ErrorResponse
// when the handler did not write a response itself.
//
// The status already set on the writer is kept when it is an error status,
// otherwise 500 is used.
func ErrorHandler(c *gin.Context) {
	c.Next()

	if len(c.Errors) == 0 || c.Writer.Written() {
		return
	}

	status := c.Writer.Status()
	if status < http.StatusBadRequest {
		status = http.StatusInternalServerError
	}
	last := c.Errors.Last()
	c.JSON(status, dto.NewErrorResponse(http.StatusText(status), last.Err))
}

// AbortWithError records err on the context (so RequestLogger reports it) and
// aborts with a dto.ErrorResponse body.
//
// Parameters:
//   - c: the Gin context.
//   - status: HTTP status code to respond with.
//   - message: short human readable description.
//   - err: underlying error; may be nil.
func AbortWithError(c *gin.Context, status int, message string, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(message, err))
}
