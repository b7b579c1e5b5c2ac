package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yanqian/cyclegpt/pkg/errors"
)

// HTTPError is serialized by errorHandlingMiddleware as {"error":{"code","message"}}.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return domainError(err)
}

// domainError maps an AppError code onto the HTTP status and public code.
// Causes stay in Err for logging and never reach the response body.
func domainError(err error) *HTTPError {
	message := apperrors.PublicMessage(err)
	switch apperrors.Code(err) {
	case apperrors.CodeInvalidInput:
		return NewHTTPError(http.StatusBadRequest, "invalid_request", message, err)
	case apperrors.CodeUserNotFound:
		return NewHTTPError(http.StatusNotFound, apperrors.CodeUserNotFound, message, err)
	case apperrors.CodeLLMError:
		return NewHTTPError(http.StatusBadGateway, apperrors.CodeLLMError, message, err)
	case apperrors.CodeLLMRejected:
		// Not a gateway status, so withRetry does not replay it.
		return NewHTTPError(http.StatusInternalServerError, apperrors.CodeLLMError, message, err)
	case apperrors.CodeDatasetError, apperrors.CodePredictionError:
		return NewHTTPError(http.StatusInternalServerError, apperrors.Code(err), message, err)
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal_error", "something went wrong", err)
	}
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}
