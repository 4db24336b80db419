package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"phonebook/internal/apperr"
	"phonebook/internal/directory"
	"phonebook/internal/respond"
	"phonebook/pkg/logger"
)

const internalError = "internal error"

// fail maps err onto the error envelope. Storage and other unexpected errors
// are logged and reported as "internal error" so raw database text never
// reaches the client.
func fail(c *gin.Context, err error) {
	var (
		notFound *apperr.NotFoundError
		invalid  *apperr.ValidationError
		conflict *apperr.ConflictError
		fields   validator.ValidationErrors
		syntax   *json.SyntaxError
		typ      *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &notFound):
		respond.Error(c, http.StatusNotFound, notFound.Error())
	case errors.As(err, &invalid):
		respond.Error(c, http.StatusBadRequest, invalid.Error())
	case errors.As(err, &fields):
		respond.Error(c, http.StatusBadRequest, fieldMessage(fields[0]))
	case errors.As(err, &syntax), errors.As(err, &typ), errors.Is(err, io.EOF):
		respond.Error(c, http.StatusBadRequest, "Invalid JSON")
	case errors.As(err, &conflict):
		respond.Error(c, http.StatusConflict, conflict.Error())
	case errors.Is(err, directory.ErrDisabled):
		respond.Error(c, http.StatusServiceUnavailable, "Directory sync is disabled")
	default:
		_ = c.Error(err)
		logger.FromGin(c).Error("request failed", "err", err)
		respond.Error(c, http.StatusInternalServerError, internalError)
	}
}

// fieldMessage renders a binding failure the way hand-written field checks do.
func fieldMessage(fe validator.FieldError) string {
	name := humanize(fe.Field())
	switch fe.Tag() {
	case "required":
		return name + " cannot be empty"
	default:
		return "Invalid " + strings.ToLower(name)
	}
}

// humanize turns a Go field name like PhoneNumber into "Phone number".
func humanize(field string) string {
	var b strings.Builder
	for i, r := range field {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
