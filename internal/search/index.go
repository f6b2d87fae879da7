// Package search holds the in-memory, queryable projection of the document
// store. The index is derived state: it is rebuilt from the store at startup
// (or on first use) and refreshed on every write, never persisted.
//
// The index itself is not safe for concurrent use; the mcp service serializes
// access with its store-wide lock.
package search

import (
	"sort"
	"strings"
	"time"

	"docbase/internal/docstore"
	"docbase/internal/logging"
)

// Scoring weights. Title matches dominate, descriptions and tags count
// double a plain content hit.
const (
	titleWeight       = 3
	descriptionWeight = 2
	tagWeight         = 2
	contentWeight     = 1
)

const (
	// DefaultLimit caps result sets when the caller does not ask for a limit.
	DefaultLimit = 20
	// MaxLimit is the hard ceiling on requested result sets.
	MaxLimit = 100
)

// Entry is the denormalized, searchable projection of a stored document.
type Entry struct {
	Kind        docstore.Kind
	Category    string // language or project name
	Path        string
	Title       string
	Description string
	Tags        []string
	Content     string
	UpdatedAt   time.Time
}

// Query describes one search invocation. Kind and Category are hard filters
// applied before scoring; empty values match everything.
type Query struct {
	Text           string
	Kind           docstore.Kind
	Category       string
	Limit          int
	IncludeContent bool
}

// Result is one ranked match.
type Result struct {
	Entry
	Score int
}

// Index maps (kind, category, path) to searchable entries.
type Index struct {
	entries map[string]Entry
	logger  *logging.AppLogger
}

// NewIndex returns an empty index. Initialize or Upsert populates it.
func NewIndex(logger *logging.AppLogger) *Index {
	return &Index{
		entries: make(map[string]Entry),
		logger:  logger,
	}
}

// Initialize replaces the whole index with projections of the given
// documents. Called once at startup and again whenever the index is
// suspected stale.
func (ix *Index) Initialize(docs []docstore.Document) {
	start := time.Now()

	ix.entries = make(map[string]Entry, len(docs))
	for i := range docs {
		ix.Upsert(docs[i])
	}

	ix.logger.Debug("Search index initialized", "documents", len(ix.entries))
	ix.logger.LogPerformance("index_build", start)
}

// Upsert inserts or replaces the entry for the document's (category, path).
func (ix *Index) Upsert(doc docstore.Document) {
	entry := Entry{
		Kind:        doc.Category.Kind(),
		Category:    doc.Category.Name(),
		Path:        doc.Path,
		Title:       doc.Metadata.Title,
		Description: doc.Metadata.Description,
		Tags:        doc.Metadata.Tags,
		Content:     doc.Content,
		UpdatedAt:   doc.Metadata.UpdatedAt,
	}
	ix.entries[entryKey(entry.Kind, entry.Category, entry.Path)] = entry
}

// Has reports whether the index currently holds an entry for the document.
func (ix *Index) Has(cat docstore.Category, path string) bool {
	_, ok := ix.entries[entryKey(cat.Kind(), cat.Name(), path)]
	return ok
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Search tokenizes the query on whitespace, case-folds, and returns every
// entry where each token appears as a substring of at least one field
// (AND across tokens, OR across fields). Results are ordered by score
// descending, then updatedAt descending, then path ascending.
func (ix *Index) Search(q Query) []Result {
	tokens := strings.Fields(strings.ToLower(q.Text))
	if len(tokens) == 0 {
		return nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	var results []Result
	for _, entry := range ix.entries {
		if q.Kind != "" && entry.Kind != q.Kind {
			continue
		}
		if q.Category != "" && entry.Category != q.Category {
			continue
		}

		score, matched := scoreEntry(entry, tokens)
		if !matched {
			continue
		}

		r := Result{Entry: entry, Score: score}
		if !q.IncludeContent {
			r.Content = ""
		}
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		// Distinct documents can share a path across categories
		return entryKey(a.Kind, a.Category, a.Path) < entryKey(b.Kind, b.Category, b.Path)
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// scoreEntry computes the deterministic token score for one entry. A token
// with zero hits in every field disqualifies the entry entirely.
func scoreEntry(entry Entry, tokens []string) (int, bool) {
	title := strings.ToLower(entry.Title)
	description := strings.ToLower(entry.Description)
	tags := strings.ToLower(strings.Join(entry.Tags, " "))
	content := strings.ToLower(entry.Content)

	total := 0
	for _, token := range tokens {
		titleHits := strings.Count(title, token)
		descriptionHits := strings.Count(description, token)
		tagHits := strings.Count(tags, token)
		contentHits := strings.Count(content, token)

		if titleHits+descriptionHits+tagHits+contentHits == 0 {
			return 0, false
		}

		total += titleWeight*titleHits +
			descriptionWeight*descriptionHits +
			tagWeight*tagHits +
			contentWeight*contentHits
	}
	return total, true
}

func entryKey(kind docstore.Kind, category, path string) string {
	return string(kind) + "/" + category + "/" + path
}
