package mcp

import (
	"sync"

	"docbase/internal/docstore"
	"docbase/internal/logging"
	"docbase/internal/search"
)

// Service coordinates the document store and the search index behind a
// single store-wide lock: writes (create/update) are mutually exclusive
// across both transports, reads run concurrently with each other but never
// with an in-flight write. Readers therefore always observe either the
// pre-write or post-write state, never a partial one.
type Service struct {
	mu     sync.RWMutex
	store  *docstore.Store
	index  *search.Index
	logger *logging.AppLogger

	// indexReady is false until the first successful index build. With lazy
	// initialization the build is deferred to the first search.
	indexReady bool
}

// NewService wires a store and a fresh index. When eager is true the index
// is built immediately by scanning every document; otherwise the build is
// deferred until the first search.
func NewService(store *docstore.Store, logger *logging.AppLogger, eager bool) (*Service, error) {
	s := &Service{
		store:  store,
		index:  search.NewIndex(logger),
		logger: logger,
	}

	if eager {
		s.mu.Lock()
		err := s.rebuildIndexLocked()
		s.mu.Unlock()
		if err != nil {
			return nil, err
		}
	} else {
		logger.Debug("Search index build deferred until first search")
	}

	return s, nil
}

// rebuildIndexLocked scans the whole store and replaces the index. Caller
// must hold the write lock.
func (s *Service) rebuildIndexLocked() error {
	docs, err := s.store.AllDocuments()
	if err != nil {
		return err
	}
	s.index.Initialize(docs)
	s.indexReady = true
	s.logger.Info("Search index built", "documents", s.index.Len())
	return nil
}

// Get reads a document from disk. When the read misses but the index still
// holds an entry for it, the index is out of sync with the store (the store
// was modified externally); the whole index is rebuilt and the read retried
// once before the miss is surfaced.
func (s *Service) Get(cat docstore.Category, path string) (*docstore.Document, error) {
	s.mu.RLock()
	doc, err := s.store.Read(cat, path)
	stale := err != nil && docstore.IsNotFound(err) && s.indexReady && s.index.Has(cat, path)
	s.mu.RUnlock()

	if !stale {
		return doc, err
	}

	s.logger.Warn("Index out of sync with store, rebuilding", "category", cat.String(), "path", path)

	s.mu.Lock()
	rebuildErr := s.rebuildIndexLocked()
	s.mu.Unlock()
	if rebuildErr != nil {
		s.logger.Error("Index rebuild failed", "error", rebuildErr)
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Read(cat, path)
}

// Create writes a new document and inserts it into the index atomically with
// respect to concurrent readers.
func (s *Service) Create(cat docstore.Category, path string, meta docstore.Metadata, content string) (*docstore.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.Create(cat, path, meta, content)
	if err != nil {
		return nil, err
	}
	if s.indexReady {
		s.index.Upsert(*doc)
	}
	return doc, nil
}

// Update merges the supplied fields into an existing document and refreshes
// its index entry.
func (s *Service) Update(cat docstore.Category, path string, patch docstore.MetadataPatch, content *string) (*docstore.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.Update(cat, path, patch, content)
	if err != nil {
		return nil, err
	}
	if s.indexReady {
		s.index.Upsert(*doc)
	}
	return doc, nil
}

// Search runs a query against the index, building it first if it was
// initialized lazily.
func (s *Service) Search(q search.Query) ([]search.Result, error) {
	s.mu.RLock()
	ready := s.indexReady
	s.mu.RUnlock()

	if !ready {
		s.mu.Lock()
		var err error
		if !s.indexReady {
			err = s.rebuildIndexLocked()
		}
		s.mu.Unlock()
		if err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Search(q), nil
}

// List returns the document paths under one category bucket.
func (s *Service) List(cat docstore.Category) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.List(cat)
}

// ListCategories returns the known languages (stdlib) or projects (spec).
func (s *Service) ListCategories(kind docstore.Kind) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.ListCategories(kind)
}
