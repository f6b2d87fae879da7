// Package fileops provides reusable path validation helpers for code that
// stores files under a confined root directory.
//
// The helpers here perform static, filesystem-free checks. Callers are
// expected to pair them with an os.Root handle so that kernel-level path
// confinement backs the static validation:
//
//	if err := fileops.ValidateRelativePath(userPath); err != nil {
//	    return err // reject before touching the filesystem
//	}
//	f, err := root.Open(userPath)
//
// ValidateRelativePath rejects traversal attempts, absolute paths, and
// control characters. SecureJoin additionally resolves a relative path
// against a root and asserts the result stays inside it, which is useful
// when a caller needs the absolute path rather than an os.Root handle.
package fileops
