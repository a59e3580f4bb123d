package model

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
}

// hostRegex accepts bare hostnames like api.example.com, with an
// optional port.
var hostRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?)*(:\d{1,5})?$`)

// emailRegex is intentionally loose; real validation happens at the
// mail provider.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateProjectName checks project name constraints.
func ValidateProjectName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if len(name) > 50 {
		return &ValidationError{Field: "name", Message: "name must be at most 50 characters"}
	}
	return nil
}

// ValidateHost checks an optional project host value.
func ValidateHost(host string) error {
	if host == "" {
		return nil
	}
	if len(host) > 100 {
		return &ValidationError{Field: "host", Message: "host must be at most 100 characters"}
	}
	if !hostRegex.MatchString(host) {
		return &ValidationError{Field: "host", Message: "host must be a hostname like api.example.com"}
	}
	return nil
}

// NormalizePath trims the path and guarantees a single leading slash,
// the stored convention endpoints are matched against.
func NormalizePath(path string) string {
	path = strings.TrimSpace(path)
	return "/" + strings.TrimLeft(path, "/")
}

// ValidateEndpointPath checks a declared endpoint path.
func ValidateEndpointPath(path string) error {
	if strings.TrimLeft(strings.TrimSpace(path), "/") == "" {
		return &ValidationError{Field: "path", Message: "path is required"}
	}
	if len(path) > 255 {
		return &ValidationError{Field: "path", Message: "path must be at most 255 characters"}
	}
	return nil
}

// ValidateVariantName checks a variant display name.
func ValidateVariantName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if len(name) > 100 {
		return &ValidationError{Field: "name", Message: "name must be at most 100 characters"}
	}
	return nil
}

// ValidateRegistration checks the register form fields.
func ValidateRegistration(username, email, password string) error {
	if len(username) < 3 || len(username) > 50 {
		return &ValidationError{Field: "username", Message: "username must be 3-50 characters"}
	}
	if !emailRegex.MatchString(email) {
		return &ValidationError{Field: "email", Message: "email is not valid"}
	}
	if len(password) < 6 || len(password) > 100 {
		return &ValidationError{Field: "password", Message: "password must be 6-100 characters"}
	}
	return nil
}
