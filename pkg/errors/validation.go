package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// moduleIDRegex matches module ids: dotted or dashed identifiers such as
// "Acme.Catalog" or "acme-catalog".
var moduleIDRegex = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9._-]*[A-Za-z0-9])?$`)

// ValidateModuleID validates a module id for safety and correctness.
// Ids are used as directory names and cache keys, so the rules reject
// anything that could traverse paths:
//   - No empty ids
//   - No control characters
//   - No path separators or ".." sequences
//   - Maximum length of 256 characters
func ValidateModuleID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidModuleID, "module id cannot be empty")
	}

	if len(id) > 256 {
		return New(ErrCodeInvalidModuleID, "module id too long (max 256 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidModuleID, "module id contains invalid control characters")
		}
	}

	if strings.Contains(id, "..") {
		return New(ErrCodeInvalidModuleID, "module id contains invalid characters: %q", "..")
	}

	if !moduleIDRegex.MatchString(id) {
		return New(ErrCodeInvalidModuleID, "invalid module id: %q", id)
	}

	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
