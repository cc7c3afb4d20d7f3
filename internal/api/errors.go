package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error is a non-2xx API response mapped to a human-readable message.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.StatusCode)
}

// NewError builds an Error from a response, preferring the
// server-supplied message over the fallback.
func NewError(resp *Response, fallback string) *Error {
	return &Error{
		StatusCode: resp.StatusCode,
		Message:    ErrorMessage(resp.Body, fallback),
	}
}

// IsAuthError reports whether err is an API error with an
// authentication-related status.
func IsAuthError(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
	}
	return false
}

// IsNotFound reports whether err is an API error with a 404 status.
func IsNotFound(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// errorBody covers the message shapes the API uses for failures.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Msg     string `json:"msg"`
}

// ErrorMessage extracts a human-readable message from an error response
// body, falling back to the provided default when none is present.
func ErrorMessage(body []byte, fallback string) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		switch {
		case eb.Message != "":
			return eb.Message
		case eb.Error != "":
			return eb.Error
		case eb.Msg != "":
			return eb.Msg
		}
	}
	return fallback
}
