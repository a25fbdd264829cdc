package api

import (
	"errors"
	"net/http"

	"warehouse-service/internal/apperr"
	"warehouse-service/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type errorBody struct {
	Code      apperr.Code `json:"code"`
	Message   string      `json:"message"`
	Retryable bool        `json:"retryable"`
	Details   any         `json:"details,omitempty"`
}

// respondError writes err as {"error": {...}} with the status of its code.
// Untyped errors are reported as internal errors without their text.
func respondError(c *gin.Context, err error) {
	code := apperr.CodeOf(err)
	meta := apperr.MetadataFor(code)

	body := errorBody{
		Code:      code,
		Message:   meta.PublicMessage,
		Retryable: meta.Retryable,
	}
	if typed := apperr.As(err); typed != nil {
		body.Message = typed.Message()
		body.Details = typed.Details()
	}

	if meta.HTTPStatus >= http.StatusInternalServerError {
		util.Named("http").Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		if code == apperr.CodeInternal {
			body.Message = meta.PublicMessage
			body.Details = nil
		}
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(meta.HTTPStatus, gin.H{"error": body})
}

func badRequest(message string, err error) error {
	if err == nil {
		return apperr.New(apperr.CodeValidation, message)
	}
	var typed *apperr.Error
	if errors.As(err, &typed) {
		return err
	}
	return apperr.Wrap(apperr.CodeValidation, err, message).
		WithDetails(map[string]string{"error": err.Error()})
}
