package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrRuleNotFound         = errors.New("rule not found")
	ErrAlertNotFound        = errors.New("alert not found")
	ErrCrawlerNotFound      = errors.New("crawler profile not found")
	ErrScheduleNotFound     = errors.New("schedule not found")
	ErrJobNotFound          = errors.New("job not found")
	ErrJobNotCancelable     = errors.New("job is not running")
	ErrProviderNotFound     = errors.New("notification provider not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvalidAlertStatus   = errors.New("invalid alert status")
	ErrInvalidSchedule      = errors.New("invalid schedule")
	ErrInvalidNotifyAddress = errors.New("invalid notification url")
)

// ValidationError reports every rejected field of a submission at once.
// Fields maps a field name to a human readable message.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

// NewValidationError returns an empty error ready for Add.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

// Add records a message for field, keeping the first one.
func (e *ValidationError) Add(field, msg string) {
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// Has reports whether field failed validation.
func (e *ValidationError) Has(field string) bool {
	_, ok := e.Fields[field]
	return ok
}

// OrNil returns nil when nothing was added, so callers can return it directly.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
