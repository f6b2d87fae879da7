// Package docstore owns the on-disk document hierarchy: path resolution and
// safety, the frontmatter codec, and the create/read/update/list operations.
//
// The store performs no locking. Callers that mix writes with concurrent
// reads must serialize access themselves (the mcp service holds a single
// store-wide writer lock).
package docstore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"docbase/internal/logging"
	"docbase/pkg/fileops"
)

// Document is the durable entity: a (category, path) identity, structured
// metadata, and a markdown body. The file on disk is the source of truth.
type Document struct {
	Category Category
	Path     string
	Metadata Metadata
	Content  string
}

// MetadataPatch carries partial metadata for updates. Nil fields keep the
// existing value.
type MetadataPatch struct {
	Title       *string
	Description *string
	Author      *string
	Tags        []string
}

// Store manages documents under a single storage root. All file access goes
// through an os.Root handle so the kernel enforces the same containment the
// static path validation promises.
type Store struct {
	root   *os.Root
	dir    string
	logger *logging.AppLogger
}

// NewStore validates the storage directory, ensures the stdlib/ and spec/
// buckets exist, and opens a confined root over it.
func NewStore(storageDir string, logger *logging.AppLogger) (*Store, error) {
	expanded := fileops.ExpandPath(strings.TrimSpace(storageDir))
	if expanded == "" {
		return nil, fmt.Errorf("storage directory cannot be empty")
	}

	if err := fileops.ValidateDirectoryWritable(expanded); err != nil {
		return nil, fmt.Errorf("storage directory is not usable: %w", err)
	}

	for _, kind := range []Kind{KindStdlib, KindSpec} {
		if err := os.MkdirAll(path.Join(expanded, string(kind)), 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s bucket: %w", kind, err)
		}
	}

	root, err := os.OpenRoot(expanded)
	if err != nil {
		return nil, fmt.Errorf("cannot open storage root: %w", err)
	}

	logger.Debug("Document store opened", "dir", expanded)
	return &Store{root: root, dir: expanded, logger: logger}, nil
}

// Close releases the storage root handle.
func (s *Store) Close() error {
	return s.root.Close()
}

// Dir returns the absolute storage root directory.
func (s *Store) Dir() string {
	return s.dir
}

// resolve maps (category, path) to a root-relative file path, rejecting any
// path that would escape the category's directory. A violation is a security
// failure, not a silent correction.
func (s *Store) resolve(cat Category, docPath string) (string, error) {
	if cat.IsZero() {
		return "", fmt.Errorf("category is required")
	}

	rel, err := fileops.SecureJoin(cat.Dir(), docPath)
	if err != nil {
		s.logger.Warn("Rejected unsafe document path", "category", cat.String(), "path", docPath, "error", err)
		return "", &PathSecurityError{Path: docPath, Reason: err.Error()}
	}
	return rel, nil
}

// Create writes a new document file. Fails with AlreadyExistsError when
// (category, path) is taken and PathSecurityError when the path escapes the
// category root. Zero timestamps are filled with the current time.
func (s *Store) Create(cat Category, docPath string, meta Metadata, content string) (*Document, error) {
	rel, err := s.resolve(cat, docPath)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = now
	}
	if meta.UpdatedAt.IsZero() {
		meta.UpdatedAt = meta.CreatedAt
	}

	raw, err := RenderDocument(meta, content)
	if err != nil {
		return nil, err
	}

	if _, err := s.root.Stat(rel); err == nil {
		return nil, &AlreadyExistsError{Category: cat, Path: docPath}
	}

	if err := s.mkdirAll(path.Dir(rel)); err != nil {
		return nil, fmt.Errorf("failed to create document directory: %w", err)
	}

	// O_EXCL closes the stat/create race: a concurrent create of the same
	// path still surfaces as AlreadyExists rather than a silent overwrite.
	f, err := s.root.OpenFile(rel, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, &AlreadyExistsError{Category: cat, Path: docPath}
		}
		return nil, fmt.Errorf("failed to create document file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(raw); err != nil {
		return nil, fmt.Errorf("failed to write document: %w", err)
	}

	doc := &Document{Category: cat, Path: cleanDocPath(docPath), Metadata: meta, Content: normalizeLineEndings(content)}
	s.logger.Debug("Document created", "category", cat.String(), "path", doc.Path)
	return doc, nil
}

// Read loads and parses the document at (category, path).
func (s *Store) Read(cat Category, docPath string) (*Document, error) {
	rel, err := s.resolve(cat, docPath)
	if err != nil {
		return nil, err
	}

	f, err := s.root.Open(rel)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Category: cat, Path: docPath}
		}
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	meta, body, err := ParseDocument(raw)
	if err != nil {
		var malformed *MalformedDocumentError
		if errors.As(err, &malformed) {
			malformed.Path = cat.Dir() + "/" + cleanDocPath(docPath)
			return nil, malformed
		}
		return nil, err
	}

	return &Document{Category: cat, Path: cleanDocPath(docPath), Metadata: meta, Content: body}, nil
}

// Update merges the supplied metadata fields and/or content into an existing
// document, bumps updatedAt, and rewrites the whole file. Unspecified fields
// retain their prior values.
func (s *Store) Update(cat Category, docPath string, patch MetadataPatch, content *string) (*Document, error) {
	doc, err := s.Read(cat, docPath)
	if err != nil {
		return nil, err
	}

	meta := doc.Metadata
	if patch.Title != nil {
		meta.Title = *patch.Title
	}
	if patch.Description != nil {
		meta.Description = *patch.Description
	}
	if patch.Author != nil {
		meta.Author = *patch.Author
	}
	if patch.Tags != nil {
		meta.Tags = patch.Tags
	}

	body := doc.Content
	if content != nil {
		body = *content
	}

	// updatedAt must strictly increase even when the clock has not advanced
	// past the previous write's timestamp.
	now := time.Now().UTC()
	if !now.After(meta.UpdatedAt) {
		now = meta.UpdatedAt.Add(time.Millisecond)
	}
	meta.UpdatedAt = now

	raw, err := RenderDocument(meta, body)
	if err != nil {
		return nil, err
	}

	rel, err := s.resolve(cat, docPath)
	if err != nil {
		return nil, err
	}

	f, err := s.root.OpenFile(rel, os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open document for update: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(raw); err != nil {
		return nil, fmt.Errorf("failed to write document: %w", err)
	}

	updated := &Document{Category: cat, Path: doc.Path, Metadata: meta, Content: normalizeLineEndings(body)}
	s.logger.Debug("Document updated", "category", cat.String(), "path", updated.Path)
	return updated, nil
}

// List returns the category-relative paths of every document file in the
// bucket, sorted so repeated calls return the same order. A missing bucket is
// NotFoundError.
func (s *Store) List(cat Category) ([]string, error) {
	if cat.IsZero() {
		return nil, fmt.Errorf("category is required")
	}

	dir := cat.Dir()
	if _, err := s.root.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Category: cat}
		}
		return nil, fmt.Errorf("failed to stat category directory: %w", err)
	}

	var paths []string
	err := fs.WalkDir(s.root.FS(), dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		paths = append(paths, strings.TrimPrefix(p, dir+"/"))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan category %s: %w", cat, err)
	}

	sort.Strings(paths)
	return paths, nil
}

// ListCategories returns the bucket names under a kind: languages for stdlib,
// projects for spec. Sorted by name.
func (s *Store) ListCategories(kind Kind) ([]string, error) {
	entries, err := fs.ReadDir(s.root.FS(), string(kind))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s bucket: %w", kind, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// AllDocuments reads every parseable document in the store. Malformed files
// are skipped with a warning so one bad file cannot block an index build.
func (s *Store) AllDocuments() ([]Document, error) {
	var docs []Document

	for _, kind := range []Kind{KindStdlib, KindSpec} {
		names, err := s.ListCategories(kind)
		if err != nil {
			return nil, err
		}

		for _, name := range names {
			cat, err := NewCategory(kind, name)
			if err != nil {
				s.logger.Warn("Skipping invalid category directory", "kind", kind, "name", name, "error", err)
				continue
			}

			paths, err := s.List(cat)
			if err != nil {
				if IsNotFound(err) {
					continue
				}
				return nil, err
			}

			for _, p := range paths {
				doc, err := s.Read(cat, p)
				if err != nil {
					s.logger.Warn("Skipping unreadable document", "category", cat.String(), "path", p, "error", err)
					continue
				}
				docs = append(docs, *doc)
			}
		}
	}

	return docs, nil
}

// mkdirAll creates every missing directory level of a root-relative path.
// os.Root has no MkdirAll in go1.24, so build it from single Mkdir calls.
func (s *Store) mkdirAll(rel string) error {
	if rel == "." || rel == "" {
		return nil
	}

	var built string
	for _, part := range strings.Split(rel, "/") {
		if built == "" {
			built = part
		} else {
			built = built + "/" + part
		}
		if err := s.root.Mkdir(built, 0755); err != nil && !os.IsExist(err) {
			return err
		}
	}
	return nil
}

func cleanDocPath(p string) string {
	return path.Clean(strings.ReplaceAll(p, "\\", "/"))
}
