package app

import "fmt"

// DomainError is an operation failure with an HTTP-facing status and a
// stable machine code (INVALID_WEEK, FORBIDDEN, EMAIL_UNAVAILABLE, ...).
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}
