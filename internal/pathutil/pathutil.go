// Package pathutil provides shared path and name validation helpers.
package pathutil

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateFilePath validates a file path for path traversal and invalid
// characters. Uses segment-based detection so that "sets/../etc/passwd" is
// rejected before cleaning (cleaned path would be "etc/passwd" and could
// bypass a simple ".." check). Returns an error if the path is empty,
// contains null bytes, or has ".." in any segment.
func ValidateFilePath(filePath string) error {
	if filePath == "" {
		return fmt.Errorf("file path cannot be empty")
	}
	if strings.Contains(filePath, "\x00") {
		return fmt.Errorf("file path contains invalid characters")
	}

	normalized := filepath.ToSlash(filePath)
	segments := strings.Split(normalized, "/")
	for _, segment := range segments {
		if segment == ".." {
			return fmt.Errorf("file path contains path traversal: %q", filePath)
		}
	}
	if strings.HasPrefix(normalized, "../") || normalized == ".." {
		return fmt.Errorf("file path contains path traversal: %q", filePath)
	}
	return nil
}

// SanitizeName reduces a set identifier to a safe file name: path
// separators are stripped via Base and a leading dot is rejected so names
// cannot escape the storage directory or hide as dotfiles. Returns an
// error for names that sanitize to nothing.
func SanitizeName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("name cannot be empty")
	}
	if strings.Contains(name, "\x00") {
		return "", fmt.Errorf("name contains invalid characters")
	}

	safe := filepath.Base(filepath.ToSlash(name))
	if safe == "" || safe == "." || safe == ".." || safe == "/" {
		return "", fmt.Errorf("invalid name: %q", name)
	}
	if strings.HasPrefix(safe, ".") {
		return "", fmt.Errorf("name cannot start with a dot: %q", name)
	}
	return safe, nil
}
