// Package validate holds the inline validation rules of the profile form.
// Every rule returns the message to display, or "" when the value is valid.
package validate

import (
	"fmt"
	"strings"
)

// Required reports "<label> is required." when required is set and text is
// empty after trimming.
func Required(label, text string, required bool) string {
	if required && strings.TrimSpace(text) == "" {
		return label + " is required."
	}
	return ""
}

// WordLimit reports an error when text holds more than maxWords
// whitespace-separated words. A non-positive maxWords disables the limit.
func WordLimit(text string, maxWords int) string {
	if maxWords <= 0 {
		return ""
	}
	if len(strings.Fields(text)) > maxWords {
		return fmt.Sprintf("Maximum %d words allowed", maxWords)
	}
	return ""
}
