package response

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/ideaforge-backend/internal/platform/apierr"
)

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

func OK(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Success: true, Data: data})
}

// Fail renders err through the status-coded error taxonomy and aborts the
// handler chain.
func Fail(c *gin.Context, err error) {
	ae := apierr.From(err)
	c.AbortWithStatusJSON(ae.Status, envelope{
		Success: false,
		Error:   &errorBody{Message: ae.Error(), Code: ae.Code},
	})
}
