package docstore

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"docbase/internal/logging"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger, _ := logging.NewTestLogger()
	store, err := NewStore(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func mustCategory(t *testing.T, kind Kind, name string) Category {
	t.Helper()
	cat, err := NewCategory(kind, name)
	if err != nil {
		t.Fatalf("NewCategory(%s, %s) failed: %v", kind, name, err)
	}
	return cat
}

func TestNewStore_CreatesBuckets(t *testing.T) {
	logger, _ := logging.NewTestLogger()
	dir := t.TempDir()

	store, err := NewStore(dir, logger)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer store.Close()

	for _, bucket := range []string{"stdlib", "spec"} {
		info, err := os.Stat(filepath.Join(dir, bucket))
		if err != nil || !info.IsDir() {
			t.Errorf("expected %s bucket directory to exist, err: %v", bucket, err)
		}
	}
}

func TestCreateThenRead(t *testing.T) {
	store := newTestStore(t)
	cat := mustCategory(t, KindStdlib, "javascript")

	created, err := store.Create(cat, "array-methods.md",
		Metadata{Title: "JS Array Methods", Tags: []string{"arrays"}},
		"# Title\n")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.Metadata.CreatedAt.IsZero() || created.Metadata.UpdatedAt.IsZero() {
		t.Error("Create should fill zero timestamps")
	}

	read, err := store.Read(cat, "array-methods.md")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if read.Metadata.Title != "JS Array Methods" {
		t.Errorf("expected title to round-trip, got %q", read.Metadata.Title)
	}
	if read.Content != "# Title\n" {
		t.Errorf("expected content to round-trip, got %q", read.Content)
	}
	if !reflect.DeepEqual(read.Metadata.Tags, []string{"arrays"}) {
		t.Errorf("expected tags to round-trip, got %v", read.Metadata.Tags)
	}
}

func TestCreate_NestedPath(t *testing.T) {
	store := newTestStore(t)
	cat := mustCategory(t, KindSpec, "payments")

	if _, err := store.Create(cat, "api/v2/refunds.md", Metadata{Title: "Refunds"}, "body"); err != nil {
		t.Fatalf("Create with nested path failed: %v", err)
	}

	if _, err := store.Read(cat, "api/v2/refunds.md"); err != nil {
		t.Errorf("Read of nested document failed: %v", err)
	}
}

func TestCreate_AlreadyExists(t *testing.T) {
	store := newTestStore(t)
	cat := mustCategory(t, KindStdlib, "go")

	if _, err := store.Create(cat, "slices.md", Metadata{Title: "Slices"}, "a"); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	_, err := store.Create(cat, "slices.md", Metadata{Title: "Slices again"}, "b")
	if !IsAlreadyExists(err) {
		t.Errorf("expected AlreadyExistsError, got %T: %v", err, err)
	}
}

func TestCreate_PathTraversalRejected(t *testing.T) {
	store := newTestStore(t)

	unsafePaths := []string{
		"../../etc/passwd",
		"../other-language/doc.md",
		"a/../../../../escape.md",
		"/etc/passwd",
	}

	for _, kind := range []Kind{KindStdlib, KindSpec} {
		cat := mustCategory(t, kind, "target")
		for _, p := range unsafePaths {
			_, err := store.Create(cat, p, Metadata{Title: "evil"}, "x")
			if !IsPathSecurity(err) {
				t.Errorf("Create(%s, %q): expected PathSecurityError, got %T: %v", kind, p, err, err)
			}

			_, err = store.Read(cat, p)
			if !IsPathSecurity(err) {
				t.Errorf("Read(%s, %q): expected PathSecurityError, got %T: %v", kind, p, err, err)
			}
		}
	}
}

func TestRead_NotFound(t *testing.T) {
	store := newTestStore(t)
	cat := mustCategory(t, KindStdlib, "rust")

	_, err := store.Read(cat, "missing.md")
	if !IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %T: %v", err, err)
	}
}

func TestRead_MalformedDocument(t *testing.T) {
	logger, _ := logging.NewTestLogger()
	dir := t.TempDir()
	store, err := NewStore(dir, logger)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer store.Close()

	// Write a file with broken frontmatter behind the store's back
	docDir := filepath.Join(dir, "stdlib", "go")
	if err := os.MkdirAll(docDir, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(docDir, "bad.md"), []byte("---\ntitle: [broken\n---\nbody"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cat := mustCategory(t, KindStdlib, "go")
	_, err = store.Read(cat, "bad.md")
	if !IsMalformed(err) {
		t.Errorf("expected MalformedDocumentError, got %T: %v", err, err)
	}
}

func TestUpdate_PreservesUnspecifiedFields(t *testing.T) {
	store := newTestStore(t)
	cat := mustCategory(t, KindStdlib, "python")

	created, err := store.Create(cat, "generators.md",
		Metadata{Title: "Generators", Description: "yield", Tags: []string{"a", "b"}},
		"old body")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	newContent := "new body"
	updated, err := store.Update(cat, "generators.md", MetadataPatch{}, &newContent)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if updated.Content != "new body" {
		t.Errorf("expected updated content, got %q", updated.Content)
	}
	if updated.Metadata.Title != "Generators" || updated.Metadata.Description != "yield" {
		t.Error("unspecified metadata fields should be preserved")
	}
	if !reflect.DeepEqual(updated.Metadata.Tags, []string{"a", "b"}) {
		t.Errorf("tags should be preserved, got %v", updated.Metadata.Tags)
	}
	if !updated.Metadata.UpdatedAt.After(created.Metadata.UpdatedAt) {
		t.Error("updatedAt should strictly increase on update")
	}
	if !updated.Metadata.CreatedAt.Equal(created.Metadata.CreatedAt) {
		t.Error("createdAt should never change on update")
	}

	// Changes must be durable, not just in the returned value
	read, err := store.Read(cat, "generators.md")
	if err != nil {
		t.Fatalf("Read after update failed: %v", err)
	}
	if read.Content != "new body" {
		t.Errorf("persisted content mismatch: %q", read.Content)
	}
	if !reflect.DeepEqual(read.Metadata.Tags, []string{"a", "b"}) {
		t.Errorf("persisted tags mismatch: %v", read.Metadata.Tags)
	}
}

func TestUpdate_MetadataPatch(t *testing.T) {
	store := newTestStore(t)
	cat := mustCategory(t, KindSpec, "billing")

	if _, err := store.Create(cat, "invoices.md", Metadata{Title: "Invoices"}, "body"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	title := "Invoices v2"
	desc := "Invoice lifecycle"
	updated, err := store.Update(cat, "invoices.md",
		MetadataPatch{Title: &title, Description: &desc, Tags: []string{"billing"}}, nil)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if updated.Metadata.Title != title || updated.Metadata.Description != desc {
		t.Error("patched metadata fields should be applied")
	}
	if updated.Content != "body" {
		t.Errorf("content should be preserved when not supplied, got %q", updated.Content)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	store := newTestStore(t)
	cat := mustCategory(t, KindStdlib, "go")

	_, err := store.Update(cat, "missing.md", MetadataPatch{}, nil)
	if !IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %T: %v", err, err)
	}
}

func TestList_SortedAndIdempotent(t *testing.T) {
	store := newTestStore(t)
	cat := mustCategory(t, KindStdlib, "go")

	for _, p := range []string{"zz.md", "aa.md", "sub/mm.md"} {
		if _, err := store.Create(cat, p, Metadata{Title: p}, "x"); err != nil {
			t.Fatalf("Create(%s) failed: %v", p, err)
		}
	}

	first, err := store.List(cat)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	second, err := store.List(cat)
	if err != nil {
		t.Fatalf("second List failed: %v", err)
	}

	want := []string{"aa.md", "sub/mm.md", "zz.md"}
	if !reflect.DeepEqual(first, want) {
		t.Errorf("expected sorted paths %v, got %v", want, first)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("List should be idempotent: %v vs %v", first, second)
	}
}

func TestList_UnknownCategory(t *testing.T) {
	store := newTestStore(t)
	cat := mustCategory(t, KindStdlib, "cobol")

	_, err := store.List(cat)
	if !IsNotFound(err) {
		t.Errorf("expected NotFoundError for unknown category, got %T: %v", err, err)
	}
}

func TestListCategories(t *testing.T) {
	store := newTestStore(t)

	for _, name := range []string{"go", "javascript"} {
		cat := mustCategory(t, KindStdlib, name)
		if _, err := store.Create(cat, "intro.md", Metadata{Title: "Intro"}, "x"); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	specCat := mustCategory(t, KindSpec, "payments")
	if _, err := store.Create(specCat, "api.md", Metadata{Title: "API"}, "x"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	languages, err := store.ListCategories(KindStdlib)
	if err != nil {
		t.Fatalf("ListCategories(stdlib) failed: %v", err)
	}
	if !reflect.DeepEqual(languages, []string{"go", "javascript"}) {
		t.Errorf("expected [go javascript], got %v", languages)
	}

	projects, err := store.ListCategories(KindSpec)
	if err != nil {
		t.Fatalf("ListCategories(spec) failed: %v", err)
	}
	if !reflect.DeepEqual(projects, []string{"payments"}) {
		t.Errorf("expected [payments], got %v", projects)
	}
}

func TestAllDocuments_SkipsMalformed(t *testing.T) {
	logger, _ := logging.NewTestLogger()
	dir := t.TempDir()
	store, err := NewStore(dir, logger)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer store.Close()

	cat := mustCategory(t, KindStdlib, "go")
	if _, err := store.Create(cat, "good.md", Metadata{Title: "Good"}, "x"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "stdlib", "go", "bad.md"), []byte("no frontmatter here"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	docs, err := store.AllDocuments()
	if err != nil {
		t.Fatalf("AllDocuments failed: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 parseable document, got %d", len(docs))
	}
	if docs[0].Metadata.Title != "Good" {
		t.Errorf("expected the good document, got %q", docs[0].Metadata.Title)
	}
}
