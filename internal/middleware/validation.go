package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidateInputContent validates routed user input. Empty content is allowed:
// an empty answer to a required interview question triggers a re-prompt.
func ValidateInputContent(content string) error {
	if len(content) > 100000 { // ~100KB limit
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateSessionID validates a session ID.
func ValidateSessionID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid session ID format")
	}
	return nil
}

// ValidateTitle validates a session title.
func ValidateTitle(title string) error {
	if len(title) > 256 {
		return errors.New("title exceeds maximum length")
	}
	if !utf8.ValidString(title) {
		return errors.New("title must be valid UTF-8")
	}
	return nil
}

// ValidateTemplateName validates a template name on creation.
func ValidateTemplateName(name string) error {
	if len(name) == 0 {
		return errors.New("template name cannot be empty")
	}
	if len(name) > 128 {
		return errors.New("template name exceeds maximum length")
	}
	if !utf8.ValidString(name) {
		return errors.New("template name must be valid UTF-8")
	}
	return nil
}
