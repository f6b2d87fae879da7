package mcp

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"docbase/internal/docstore"
	"docbase/internal/logging"
	"docbase/internal/search"
)

func newTestService(t *testing.T, eager bool) (*Service, string) {
	t.Helper()
	logger, _ := logging.NewTestLogger()
	dir := t.TempDir()

	store, err := docstore.NewStore(dir, logger)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	svc, err := NewService(store, logger, eager)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc, dir
}

func stdlibCat(t *testing.T, language string) docstore.Category {
	t.Helper()
	cat, err := docstore.NewStdlib(language)
	if err != nil {
		t.Fatalf("NewStdlib failed: %v", err)
	}
	return cat
}

func TestService_CreateThenSearch(t *testing.T) {
	svc, _ := newTestService(t, true)
	cat := stdlibCat(t, "go")

	_, err := svc.Create(cat, "channels.md",
		docstore.Metadata{Title: "Channels", Tags: []string{"concurrency"}},
		"unbuffered channels synchronize goroutines")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// The index must reflect the write immediately, without a restart
	results, err := svc.Search(search.Query{Text: "unbuffered"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 || results[0].Path != "channels.md" {
		t.Errorf("expected the new document to be searchable, got %v", results)
	}
}

func TestService_UpdateRefreshesIndex(t *testing.T) {
	svc, _ := newTestService(t, true)
	cat := stdlibCat(t, "go")

	if _, err := svc.Create(cat, "maps.md", docstore.Metadata{Title: "Maps"}, "old token alpha"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	newContent := "new token omega"
	if _, err := svc.Update(cat, "maps.md", docstore.MetadataPatch{}, &newContent); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if results, _ := svc.Search(search.Query{Text: "omega"}); len(results) != 1 {
		t.Errorf("updated content should be searchable, got %d results", len(results))
	}
	if results, _ := svc.Search(search.Query{Text: "alpha"}); len(results) != 0 {
		t.Errorf("stale content should be gone from the index, got %d results", len(results))
	}
}

func TestService_LazyIndexBuildsOnFirstSearch(t *testing.T) {
	logger, _ := logging.NewTestLogger()
	dir := t.TempDir()

	seed, err := docstore.NewStore(dir, logger)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	cat := stdlibCat(t, "go")
	if _, err := seed.Create(cat, "pre.md", docstore.Metadata{Title: "Preexisting"}, "seeded before startup"); err != nil {
		t.Fatalf("seed Create failed: %v", err)
	}
	seed.Close()

	store, err := docstore.NewStore(dir, logger)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer store.Close()

	svc, err := NewService(store, logger, false)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	if svc.indexReady {
		t.Error("lazy service should not build the index at construction")
	}

	results, err := svc.Search(search.Query{Text: "seeded"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("first search should build the index and find the document, got %d", len(results))
	}
	if !svc.indexReady {
		t.Error("index should be ready after the first search")
	}
}

func TestService_StaleIndexRebuiltOnMiss(t *testing.T) {
	svc, dir := newTestService(t, true)
	cat := stdlibCat(t, "go")

	if _, err := svc.Create(cat, "doomed.md", docstore.Metadata{Title: "Doomed"}, "x"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Delete the file behind the store's back: index and store now disagree
	if err := os.Remove(filepath.Join(dir, "stdlib", "go", "doomed.md")); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	_, err := svc.Get(cat, "doomed.md")
	if !docstore.IsNotFound(err) {
		t.Fatalf("expected NotFoundError after external delete, got %v", err)
	}

	// The miss must have triggered a rebuild that evicted the stale entry
	if results, _ := svc.Search(search.Query{Text: "doomed"}); len(results) != 0 {
		t.Errorf("stale entry should be evicted by the rebuild, got %d results", len(results))
	}
}

func TestService_ConcurrentReadsAndWrites(t *testing.T) {
	svc, _ := newTestService(t, true)
	cat := stdlibCat(t, "go")

	if _, err := svc.Create(cat, "seed.md", docstore.Metadata{Title: "Seed"}, "token"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			path := fmt.Sprintf("doc-%d.md", n)
			if _, err := svc.Create(cat, path, docstore.Metadata{Title: "Doc"}, "token"); err != nil {
				t.Errorf("concurrent Create failed: %v", err)
			}
		}(i)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Search(search.Query{Text: "token"}); err != nil {
				t.Errorf("concurrent Search failed: %v", err)
			}
			if _, err := svc.Get(cat, "seed.md"); err != nil {
				t.Errorf("concurrent Get failed: %v", err)
			}
		}()
	}
	wg.Wait()

	// Every write must be visible afterwards
	results, err := svc.Search(search.Query{Text: "token", Limit: search.MaxLimit})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 9 {
		t.Errorf("expected 9 indexed documents after concurrent writes, got %d", len(results))
	}
}

func TestService_ListCategories(t *testing.T) {
	svc, _ := newTestService(t, true)

	if _, err := svc.Create(stdlibCat(t, "go"), "a.md", docstore.Metadata{Title: "A"}, "x"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	languages, err := svc.ListCategories(docstore.KindStdlib)
	if err != nil {
		t.Fatalf("ListCategories failed: %v", err)
	}
	if len(languages) != 1 || languages[0] != "go" {
		t.Errorf("expected [go], got %v", languages)
	}

	projects, err := svc.ListCategories(docstore.KindSpec)
	if err != nil {
		t.Fatalf("ListCategories failed: %v", err)
	}
	if len(projects) != 0 {
		t.Errorf("expected no projects, got %v", projects)
	}
}
