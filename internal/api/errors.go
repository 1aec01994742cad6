package api

import (
	"fmt"
	"net/http"
	"strings"
)

type ApiError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	Err        error  `json:"-"`
}

func (e *ApiError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}

	return e.Message
}

func (e *ApiError) Unwrap() error {
	return e.Err
}

func lower(s string) string {
	return strings.ToLower(s)
}

func newApiError(statusCode int, detail string) *ApiError {
	return &ApiError{
		StatusCode: statusCode,
		Message:    lower(http.StatusText(statusCode)),
		Detail:     detail,
	}
}

func NewBadRequestError(detail string) *ApiError {
	return newApiError(http.StatusBadRequest, detail)
}

func NewNotFoundError(detail string) *ApiError {
	return newApiError(http.StatusNotFound, detail)
}

func NewForbiddenError(detail string) *ApiError {
	return newApiError(http.StatusForbidden, detail)
}

func NewInternalServerError(err error) *ApiError {
	e := newApiError(http.StatusInternalServerError, "")
	e.Err = err
	return e
}
