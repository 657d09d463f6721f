package utils

import (
	"fmt"
	"path"
	"strings"
)

// ValidateObjectKey checks that key is usable as an object path: non-empty,
// relative and free of "." or ".." segments.
func ValidateObjectKey(key string) error {
	if key == "" {
		return fmt.Errorf("object key cannot be empty")
	}
	if strings.HasPrefix(key, "/") {
		return fmt.Errorf("object key must be relative: %s", key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "." || seg == ".." {
			return fmt.Errorf("object key contains directory traversal: %s", key)
		}
	}
	return nil
}

// JoinKey joins prefix and key with a single slash. An empty prefix returns
// key unchanged.
//
// Example usage:
//
//	JoinKey("data/", "/2024/file.bin") // "data/2024/file.bin"
func JoinKey(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	key = strings.TrimLeft(key, "/")
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}
