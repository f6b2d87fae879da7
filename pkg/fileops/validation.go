package fileops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidateRelativePath performs security validation on a caller-supplied
// relative file path.
//
// The function validates:
//   - Empty or whitespace-only paths
//   - Absolute paths (including Windows volume paths)
//   - Path traversal attempts using ".." segments, before and after cleaning
//   - Null bytes and other control characters
//
// Security considerations:
//   - This function performs static analysis and does not access the filesystem
//   - Symlink resolution is the caller's responsibility (use os.Root)
func ValidateRelativePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path cannot be empty")
	}

	if strings.ContainsRune(path, 0) {
		return fmt.Errorf("path contains null byte")
	}
	for _, r := range path {
		if r < 0x20 && r != '\t' {
			return fmt.Errorf("path contains control character")
		}
	}

	if filepath.IsAbs(path) || filepath.VolumeName(path) != "" {
		return fmt.Errorf("path must be relative")
	}

	// Check for traversal segments in the raw input and in the cleaned path.
	// Checking both catches encodings like "a/../../b" that clean to "../b".
	if hasDotDotSegment(path) {
		return fmt.Errorf("path traversal not allowed")
	}
	if hasDotDotSegment(filepath.Clean(path)) {
		return fmt.Errorf("path traversal not allowed")
	}

	return nil
}

// SecureJoin joins a relative path onto a root directory and asserts that the
// cleaned result still has the root as a prefix. It returns the absolute
// joined path on success.
//
// Any escape is reported as an error, never silently corrected.
func SecureJoin(root, rel string) (string, error) {
	if err := ValidateRelativePath(rel); err != nil {
		return "", err
	}

	cleanRoot := filepath.Clean(root)
	joined := filepath.Clean(filepath.Join(cleanRoot, rel))

	relBack, err := filepath.Rel(cleanRoot, joined)
	if err != nil {
		return "", fmt.Errorf("cannot resolve path against root: %w", err)
	}
	if relBack == ".." || strings.HasPrefix(relBack, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes root directory")
	}

	return joined, nil
}

// ExpandPath expands a path that starts with "~/" to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// ValidateDirectoryWritable ensures the directory exists (creating it if
// needed) and verifies write permission by creating and removing a probe file.
func ValidateDirectoryWritable(dirPath string) error {
	if strings.TrimSpace(dirPath) == "" {
		return fmt.Errorf("directory path cannot be empty")
	}

	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}

	probe := filepath.Join(dirPath, ".docbase-write-test")
	if err := os.WriteFile(probe, []byte("test"), 0644); err != nil {
		return fmt.Errorf("no write permission in directory: %w", err)
	}
	if err := os.Remove(probe); err != nil {
		// The directory is usable even if the probe lingers
		return nil
	}

	return nil
}

// hasDotDotSegment reports whether any slash-separated segment of the path is
// exactly "..". Substring checks would wrongly reject names like "notes..md".
func hasDotDotSegment(path string) bool {
	normalized := strings.ReplaceAll(path, "\\", "/")
	for _, seg := range strings.Split(normalized, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}
