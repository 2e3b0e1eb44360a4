package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/muxi-Infra/certportal/api/middleware"
	"github.com/muxi-Infra/certportal/dao"
)

var ErrBadInput = errors.New("bad input")

// AppError HTTP 边界上的错误, Message 直接展示给用户
type AppError struct {
	Status  int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func badInput(message string) *AppError {
	return &AppError{Status: http.StatusBadRequest, Message: message, Err: ErrBadInput}
}

// classify 把领域错误映射成状态码和页面提示
func classify(err error) *AppError {
	var appErr *AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, dao.ErrNotFound):
		return &AppError{Status: http.StatusNotFound, Message: "Certificate not found", Err: err}
	case errors.Is(err, dao.ErrDuplicateCertID):
		return &AppError{Status: http.StatusConflict, Message: "A certificate with this ID already exists", Err: err}
	default:
		return &AppError{Status: http.StatusInternalServerError, Message: "Internal server error", Err: err}
	}
}

func renderError(c *gin.Context, logger *zap.Logger, err error) {
	appErr := classify(err)
	if appErr.Status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("request_id", middleware.RequestID(c)),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	} else {
		logger.Debug("Request rejected",
			zap.String("request_id", middleware.RequestID(c)),
			zap.Int("status", appErr.Status),
			zap.Error(err))
	}

	c.HTML(appErr.Status, "error.html", gin.H{
		"Title":   "Error",
		"Status":  appErr.Status,
		"Message": appErr.Message,
	})
	c.Abort()
}
