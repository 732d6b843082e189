package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// identifierRegex matches tool ids and other registry keys: lowercase words
// joined by dashes or underscores.
var identifierRegex = regexp.MustCompile(`^[a-z0-9]+([_-][a-z0-9]+)*$`)

// ValidateIdentifier validates a registry identifier such as a tool id.
//
// The validation rules are intentionally conservative:
//   - No empty identifiers
//   - Maximum length of 64 characters
//   - Lowercase ASCII letters, digits, '-' and '_' only
func ValidateIdentifier(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "identifier cannot be empty")
	}
	if len(id) > 64 {
		return New(ErrCodeInvalidInput, "identifier too long (max 64 characters)")
	}
	if !identifierRegex.MatchString(id) {
		return New(ErrCodeInvalidInput, "invalid identifier: %q", id)
	}
	return nil
}

// ValidateFilename validates an export filename for safety.
// It ensures the filename is a simple basename without path components.
func ValidateFilename(filename string) error {
	if filename == "" {
		return New(ErrCodeInvalidPath, "filename cannot be empty")
	}

	if strings.ContainsAny(filename, "/\\") {
		return New(ErrCodeInvalidPath, "filename cannot contain path separators")
	}

	if strings.HasPrefix(filename, ".") {
		return New(ErrCodeInvalidPath, "filename cannot be a hidden file")
	}

	for _, r := range filename {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "filename contains invalid characters")
		}
	}

	return nil
}

// ValidatePath validates a relative file path for safety.
// It prevents path traversal attacks and ensures reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
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
