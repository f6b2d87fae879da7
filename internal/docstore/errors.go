package docstore

import (
	"errors"
	"fmt"
)

// NotFoundError reports that no document exists at (category, path), or that
// a whole category bucket is missing. Expected and recoverable by the caller;
// never logged above debug level.
type NotFoundError struct {
	Category Category
	Path     string
}

func (e *NotFoundError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("category not found: %s", e.Category)
	}
	return fmt.Sprintf("document not found: %s/%s", e.Category, e.Path)
}

// AlreadyExistsError reports a create collision on (category, path).
type AlreadyExistsError struct {
	Category Category
	Path     string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("document already exists: %s/%s", e.Category, e.Path)
}

// PathSecurityError reports a path that resolves outside its category root.
// Surfaced to callers as invalid params, logged at warn severity server-side.
type PathSecurityError struct {
	Path   string
	Reason string
}

func (e *PathSecurityError) Error() string {
	return fmt.Sprintf("invalid path %q: %s", e.Path, e.Reason)
}

// MalformedDocumentError reports a document file whose frontmatter block is
// present but not valid YAML, or whose required metadata fields are missing.
type MalformedDocumentError struct {
	Path   string
	Reason string
}

func (e *MalformedDocumentError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("malformed document: %s", e.Reason)
	}
	return fmt.Sprintf("malformed document %s: %s", e.Path, e.Reason)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// IsAlreadyExists reports whether err is an AlreadyExistsError.
func IsAlreadyExists(err error) bool {
	var e *AlreadyExistsError
	return errors.As(err, &e)
}

// IsPathSecurity reports whether err is a PathSecurityError.
func IsPathSecurity(err error) bool {
	var e *PathSecurityError
	return errors.As(err, &e)
}

// IsMalformed reports whether err is a MalformedDocumentError.
func IsMalformed(err error) bool {
	var e *MalformedDocumentError
	return errors.As(err, &e)
}
