// Package storage provides the SQLite persistence layer for learned message patterns.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hsh7097/MoneyTalk-sub002/internal/model"
)

// Validation errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrNilParameter    = errors.New("parameter cannot be nil")
	ErrInvalidPattern  = errors.New("invalid pattern")
	ErrPatternNotFound = errors.New("pattern not found")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validatePattern checks the fields the store requires before insertion.
func validatePattern(p *model.Pattern) error {
	if p == nil {
		return fmt.Errorf("%w: pattern", ErrNilParameter)
	}
	if strings.TrimSpace(p.Template) == "" {
		return fmt.Errorf("%w: template is required", ErrInvalidPattern)
	}
	if len(p.Embedding) == 0 {
		return fmt.Errorf("%w: embedding is required", ErrInvalidPattern)
	}
	if p.ParseSource == "" {
		return fmt.Errorf("%w: parse source is required", ErrInvalidPattern)
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("%w: confidence %.2f outside [0,1]", ErrInvalidPattern, p.Confidence)
	}
	if p.ParsedAmount < 0 {
		return fmt.Errorf("%w: negative amount", ErrInvalidPattern)
	}
	return nil
}
