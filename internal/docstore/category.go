package docstore

import (
	"fmt"
	"strings"
)

// Kind discriminates the two document partitions: per-language standard
// library notes and per-project specifications.
type Kind string

const (
	KindStdlib Kind = "stdlib"
	KindSpec   Kind = "spec"
)

// ParseKind converts a wire-level type string into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindStdlib:
		return KindStdlib, nil
	case KindSpec:
		return KindSpec, nil
	default:
		return "", fmt.Errorf("unknown document type %q (expected %q or %q)", s, KindStdlib, KindSpec)
	}
}

// Category identifies the bucket a document belongs to: a language's stdlib
// directory or a project's spec directory. The zero value is invalid; use the
// constructors so a stdlib category always carries a language and a spec
// category always carries a project.
type Category struct {
	kind Kind
	name string
}

// NewStdlib returns the category for a programming language's stdlib bucket.
func NewStdlib(language string) (Category, error) {
	return newCategory(KindStdlib, language, "language")
}

// NewSpec returns the category for a named project's spec bucket.
func NewSpec(project string) (Category, error) {
	return newCategory(KindSpec, project, "project")
}

// NewCategory builds a category from a parsed kind and its bucket name.
func NewCategory(kind Kind, name string) (Category, error) {
	switch kind {
	case KindStdlib:
		return NewStdlib(name)
	case KindSpec:
		return NewSpec(name)
	default:
		return Category{}, fmt.Errorf("unknown document type %q", kind)
	}
}

func newCategory(kind Kind, name, field string) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, fmt.Errorf("%s is required for %s documents", field, kind)
	}
	if strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return Category{}, fmt.Errorf("invalid %s name %q: must be a single path segment", field, name)
	}
	if strings.ContainsRune(name, 0) {
		return Category{}, fmt.Errorf("invalid %s name: contains null byte", field)
	}
	return Category{kind: kind, name: name}, nil
}

// Kind returns whether this is a stdlib or spec category.
func (c Category) Kind() Kind { return c.kind }

// Name returns the language (stdlib) or project (spec) the category names.
func (c Category) Name() string { return c.name }

// IsZero reports whether the category was never constructed.
func (c Category) IsZero() bool { return c.kind == "" }

// Dir returns the storage-root-relative directory for this category,
// e.g. "stdlib/go" or "spec/payments".
func (c Category) Dir() string {
	return string(c.kind) + "/" + c.name
}

// String implements fmt.Stringer for log output.
func (c Category) String() string { return c.Dir() }
