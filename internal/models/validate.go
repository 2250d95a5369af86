package models

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Field limits, in runes.
const (
	MaxTitleLength   = 80
	MaxBodyLength    = 500
	MaxCommentLength = 200
)

// ErrInvalidInput is returned when user-supplied text breaks a field rule.
var ErrInvalidInput = errors.New("invalid input")

// ValidateText checks that a field is non-blank and within max runes.
func ValidateText(field, value string, max int) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s must not be blank", ErrInvalidInput, field)
	}
	if n := utf8.RuneCountInString(value); n > max {
		return fmt.Errorf("%w: %s is %d characters, the limit is %d", ErrInvalidInput, field, n, max)
	}
	return nil
}

// ValidatePostText checks a post's title and body.
func ValidatePostText(title, body string) error {
	if err := ValidateText("title", title, MaxTitleLength); err != nil {
		return err
	}
	return ValidateText("body", body, MaxBodyLength)
}
