package custom_errors

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError aggregates independent validation failures so that the
// caller sees every problem at once instead of the first one.
type ValidationError struct {
	Errors []error `json:"errors"`
}

func (c *ValidationError) Add(err error) {
	if err == nil {
		return
	}
	c.Errors = append(c.Errors, err)
}

// Addf adds a formatted validation failure.
func (c *ValidationError) Addf(format string, args ...any) {
	c.Errors = append(c.Errors, fmt.Errorf(format, args...))
}

func (c *ValidationError) HasError() bool {
	return len(c.Errors) > 0
}

// Err returns c when it holds at least one error and nil otherwise, so it can
// be returned directly from a validating function.
func (c *ValidationError) Err() error {
	if !c.HasError() {
		return nil
	}
	return c
}

func (c *ValidationError) Error() string {
	if len(c.Errors) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(c.Errors))
	for _, err := range c.Errors {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (c *ValidationError) Unwrap() []error {
	return c.Errors
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
