// Package respond writes the JSON envelope every endpoint uses:
//
//	{"status": "Success", "data": ...}
//	{"status": "Error", "message": "..."}
package respond

import (
	"github.com/gin-gonic/gin"
)

const (
	StatusSuccess = "Success"
	StatusError   = "Error"
)

type successBody struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func OK(c *gin.Context, code int, data any) {
	c.JSON(code, successBody{Status: StatusSuccess, Data: data})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, errorBody{Status: StatusError, Message: message})
}

// Abort writes an error envelope and stops the handler chain.
func Abort(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, errorBody{Status: StatusError, Message: message})
}
