package report

import (
	"fmt"
	"net/http"
)

// StatusError is a pipeline failure that maps onto an HTTP status.
type StatusError struct {
	Code    int
	Message string
	Details string
	Err     error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *StatusError) Unwrap() error { return e.Err }

func badRequest(msg string) *StatusError {
	return &StatusError{Code: http.StatusBadRequest, Message: msg}
}

func notFound(msg, details string) *StatusError {
	return &StatusError{Code: http.StatusNotFound, Message: msg, Details: details}
}

func internal(msg string, err error) *StatusError {
	se := &StatusError{Code: http.StatusInternalServerError, Message: msg, Err: err}
	if err != nil {
		se.Details = err.Error()
	}
	return se
}
