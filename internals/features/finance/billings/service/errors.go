package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrConfigurationNotFound = errors.New("billing configuration not found")
	ErrCycleNotFound         = errors.New("school cycle not found")
)

/* =========================================================
   ConfigError: konfigurasi tidak valid, generate tidak jalan
========================================================= */

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ConfigError struct {
	ConfigurationID uuid.UUID
	Fields          []FieldError
}

func (e *ConfigError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	if e.ConfigurationID == uuid.Nil {
		return "invalid billing configuration: " + strings.Join(parts, "; ")
	}
	return fmt.Sprintf("invalid billing configuration %s: %s", e.ConfigurationID, strings.Join(parts, "; "))
}

func (e *ConfigError) add(field, format string, args ...any) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// FieldMap bentuk yang dipakai JsonValidationError.
func (e *ConfigError) FieldMap() map[string][]string {
	out := make(map[string][]string, len(e.Fields))
	for _, f := range e.Fields {
		out[f.Field] = append(out[f.Field], f.Message)
	}
	return out
}

func (e *ConfigError) orNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// AsConfigError unwrap helper untuk layer HTTP.
func AsConfigError(err error) (*ConfigError, bool) {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
