package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"docbase/internal/docstore"
	"docbase/internal/search"

	"github.com/mark3labs/mcp-go/mcp"
)

// documentResult is the payload for get_stdlib/get_spec. A missing document
// is reported as found:false rather than a protocol error.
type documentResult struct {
	Found       bool     `json:"found"`
	Type        string   `json:"type,omitempty"`
	Language    string   `json:"language,omitempty"`
	Project     string   `json:"project,omitempty"`
	Path        string   `json:"path,omitempty"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Author      string   `json:"author,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	CreatedAt   string   `json:"createdAt,omitempty"`
	UpdatedAt   string   `json:"updatedAt,omitempty"`
	Content     string   `json:"content,omitempty"`
}

// documentSummary is the payload for create_document/update_document.
type documentSummary struct {
	Type        string   `json:"type"`
	Language    string   `json:"language,omitempty"`
	Project     string   `json:"project,omitempty"`
	Path        string   `json:"path"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Author      string   `json:"author,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

type languagesResult struct {
	Languages []string `json:"languages"`
}

type projectsResult struct {
	Projects []string `json:"projects"`
}

type documentListResult struct {
	Language  string   `json:"language,omitempty"`
	Project   string   `json:"project,omitempty"`
	Documents []string `json:"documents"`
}

type searchResultItem struct {
	Type        string   `json:"type"`
	Language    string   `json:"language,omitempty"`
	Project     string   `json:"project,omitempty"`
	Path        string   `json:"path"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	UpdatedAt   string   `json:"updatedAt"`
	Score       int      `json:"score"`
	Content     string   `json:"content,omitempty"`
}

type searchResponse struct {
	Results []searchResultItem `json:"results"`
	Total   int                `json:"total"`
}

// registerTools populates the tool registry. Registration happens once at
// startup; the registry is immutable afterwards.
func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_stdlib",
		mcp.WithDescription("Read a standard-library document for a programming language."),
		mcp.WithString("language", mcp.Required(),
			mcp.Description("Programming language bucket, e.g. \"javascript\"")),
		mcp.WithString("path", mcp.Required(),
			mcp.Description("Document path within the language bucket, e.g. \"array-methods.md\"")),
	), s.handleGetStdlib)

	s.mcpServer.AddTool(mcp.NewTool("get_spec",
		mcp.WithDescription("Read a specification document for a project."),
		mcp.WithString("project", mcp.Required(),
			mcp.Description("Project bucket, e.g. \"payments\"")),
		mcp.WithString("path", mcp.Required(),
			mcp.Description("Document path within the project bucket, e.g. \"api/refunds.md\"")),
	), s.handleGetSpec)

	s.mcpServer.AddTool(mcp.NewTool("list_stdlibs",
		mcp.WithDescription("List known languages, or the documents within one language's bucket."),
		mcp.WithString("language",
			mcp.Description("Optional language; when set, the documents of that bucket are listed")),
	), s.handleListStdlibs)

	s.mcpServer.AddTool(mcp.NewTool("list_specs",
		mcp.WithDescription("List known projects, or the documents within one project's bucket."),
		mcp.WithString("project",
			mcp.Description("Optional project; when set, the documents of that bucket are listed")),
	), s.handleListSpecs)

	s.mcpServer.AddTool(mcp.NewTool("search",
		mcp.WithDescription("Search documents by tokenized query across title, description, tags and content."),
		mcp.WithString("query", mcp.Required(),
			mcp.Description("Whitespace-separated search tokens; every token must match")),
		mcp.WithString("type",
			mcp.Description("Restrict to one bucket type"),
			mcp.Enum(string(docstore.KindStdlib), string(docstore.KindSpec))),
		mcp.WithString("language",
			mcp.Description("Restrict to one language (implies type=stdlib)")),
		mcp.WithString("project",
			mcp.Description("Restrict to one project (implies type=spec)")),
		mcp.WithBoolean("includeContent",
			mcp.Description("Include full document content in results")),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum results, default %d, max %d", search.DefaultLimit, search.MaxLimit))),
	), s.handleSearch)

	s.mcpServer.AddTool(mcp.NewTool("create_document",
		mcp.WithDescription("Create a new document. Fails if the path already exists."),
		mcp.WithString("type", mcp.Required(),
			mcp.Description("Bucket type"),
			mcp.Enum(string(docstore.KindStdlib), string(docstore.KindSpec))),
		mcp.WithString("language",
			mcp.Description("Language bucket; required when type=stdlib")),
		mcp.WithString("project",
			mcp.Description("Project bucket; required when type=spec")),
		mcp.WithString("path", mcp.Required(),
			mcp.Description("Relative document path within the bucket")),
		mcp.WithString("title", mcp.Required(),
			mcp.Description("Document title")),
		mcp.WithString("content", mcp.Required(),
			mcp.Description("Markdown body")),
		mcp.WithString("description",
			mcp.Description("Optional short description")),
		mcp.WithString("author",
			mcp.Description("Optional author")),
		mcp.WithArray("tags",
			mcp.Description("Optional set of tags"),
			mcp.Items(map[string]any{"type": "string"})),
	), s.handleCreateDocument)

	s.mcpServer.AddTool(mcp.NewTool("update_document",
		mcp.WithDescription("Update an existing document. Only supplied fields change; updatedAt always advances."),
		mcp.WithString("type", mcp.Required(),
			mcp.Description("Bucket type"),
			mcp.Enum(string(docstore.KindStdlib), string(docstore.KindSpec))),
		mcp.WithString("language",
			mcp.Description("Language bucket; required when type=stdlib")),
		mcp.WithString("project",
			mcp.Description("Project bucket; required when type=spec")),
		mcp.WithString("path", mcp.Required(),
			mcp.Description("Relative document path within the bucket")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("content", mcp.Description("New markdown body")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithString("author", mcp.Description("New author")),
		mcp.WithArray("tags",
			mcp.Description("Replacement tag set"),
			mcp.Items(map[string]any{"type": "string"})),
	), s.handleUpdateDocument)
}

func (s *Server) handleGetStdlib(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.handleGet(req, docstore.KindStdlib, "language")
}

func (s *Server) handleGetSpec(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.handleGet(req, docstore.KindSpec, "project")
}

func (s *Server) handleGet(req mcp.CallToolRequest, kind docstore.Kind, nameParam string) (*mcp.CallToolResult, error) {
	name, err := req.RequireString(nameParam)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	cat, err := docstore.NewCategory(kind, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	doc, err := s.service.Get(cat, path)
	if err != nil {
		switch {
		case docstore.IsNotFound(err):
			s.logger.Debug("Document not found", "category", cat.String(), "path", path)
			return jsonResult(documentResult{Found: false})
		case docstore.IsPathSecurity(err):
			return mcp.NewToolResultError(err.Error()), nil
		default:
			s.logger.Error("Failed to read document", "category", cat.String(), "path", path, "error", err)
			return mcp.NewToolResultError("internal error: failed to read document"), nil
		}
	}

	result := documentResult{
		Found:       true,
		Type:        string(kind),
		Path:        doc.Path,
		Title:       doc.Metadata.Title,
		Description: doc.Metadata.Description,
		Author:      doc.Metadata.Author,
		Tags:        doc.Metadata.Tags,
		CreatedAt:   formatTime(doc.Metadata.CreatedAt),
		UpdatedAt:   formatTime(doc.Metadata.UpdatedAt),
		Content:     doc.Content,
	}
	if kind == docstore.KindStdlib {
		result.Language = name
	} else {
		result.Project = name
	}
	return jsonResult(result)
}

func (s *Server) handleListStdlibs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	language := req.GetString("language", "")
	if language == "" {
		names, err := s.service.ListCategories(docstore.KindStdlib)
		if err != nil {
			s.logger.Error("Failed to list languages", "error", err)
			return mcp.NewToolResultError("internal error: failed to list languages"), nil
		}
		return jsonResult(languagesResult{Languages: nonNil(names)})
	}

	docs, err := s.listBucket(docstore.KindStdlib, language)
	if err != nil {
		return err.result, nil
	}
	return jsonResult(documentListResult{Language: language, Documents: docs})
}

func (s *Server) handleListSpecs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project := req.GetString("project", "")
	if project == "" {
		names, err := s.service.ListCategories(docstore.KindSpec)
		if err != nil {
			s.logger.Error("Failed to list projects", "error", err)
			return mcp.NewToolResultError("internal error: failed to list projects"), nil
		}
		return jsonResult(projectsResult{Projects: nonNil(names)})
	}

	docs, err := s.listBucket(docstore.KindSpec, project)
	if err != nil {
		return err.result, nil
	}
	return jsonResult(documentListResult{Project: project, Documents: docs})
}

// toolError pairs an already-built error result with Go error plumbing so
// the two list handlers can share listBucket.
type toolError struct {
	result *mcp.CallToolResult
}

func (s *Server) listBucket(kind docstore.Kind, name string) ([]string, *toolError) {
	cat, err := docstore.NewCategory(kind, name)
	if err != nil {
		return nil, &toolError{mcp.NewToolResultError(err.Error())}
	}

	docs, err := s.service.List(cat)
	if err != nil {
		if docstore.IsNotFound(err) {
			s.logger.Debug("Category not found", "category", cat.String())
			return nil, &toolError{mcp.NewToolResultError(err.Error())}
		}
		s.logger.Error("Failed to list documents", "category", cat.String(), "error", err)
		return nil, &toolError{mcp.NewToolResultError("internal error: failed to list documents")}
	}
	return nonNil(docs), nil
}

func (s *Server) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	queryText, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	kind, category, err := searchFilter(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	results, err := s.service.Search(search.Query{
		Text:           queryText,
		Kind:           kind,
		Category:       category,
		Limit:          req.GetInt("limit", 0),
		IncludeContent: req.GetBool("includeContent", false),
	})
	if err != nil {
		s.logger.Error("Search failed", "query", queryText, "error", err)
		return mcp.NewToolResultError("internal error: search failed"), nil
	}

	resp := searchResponse{Results: make([]searchResultItem, 0, len(results)), Total: len(results)}
	for _, r := range results {
		item := searchResultItem{
			Type:        string(r.Kind),
			Path:        r.Path,
			Title:       r.Title,
			Description: r.Description,
			Tags:        r.Tags,
			UpdatedAt:   formatTime(r.UpdatedAt),
			Score:       r.Score,
			Content:     r.Content,
		}
		if r.Kind == docstore.KindStdlib {
			item.Language = r.Category
		} else {
			item.Project = r.Category
		}
		resp.Results = append(resp.Results, item)
	}
	return jsonResult(resp)
}

// searchFilter derives the hard category predicate from the optional type/
// language/project parameters, rejecting inconsistent combinations.
func searchFilter(req mcp.CallToolRequest) (docstore.Kind, string, error) {
	typeStr := req.GetString("type", "")
	language := req.GetString("language", "")
	project := req.GetString("project", "")

	if language != "" && project != "" {
		return "", "", fmt.Errorf("language and project filters are mutually exclusive")
	}

	var kind docstore.Kind
	if typeStr != "" {
		parsed, err := docstore.ParseKind(typeStr)
		if err != nil {
			return "", "", err
		}
		kind = parsed
	}

	switch {
	case language != "":
		if kind == docstore.KindSpec {
			return "", "", fmt.Errorf("language filter requires type=stdlib")
		}
		return docstore.KindStdlib, language, nil
	case project != "":
		if kind == docstore.KindStdlib {
			return "", "", fmt.Errorf("project filter requires type=spec")
		}
		return docstore.KindSpec, project, nil
	default:
		return kind, "", nil
	}
}

func (s *Server) handleCreateDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cat, err := categoryFromRequest(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	meta := docstore.Metadata{
		Title:       title,
		Description: req.GetString("description", ""),
		Author:      req.GetString("author", ""),
		Tags:        req.GetStringSlice("tags", nil),
	}

	doc, err := s.service.Create(cat, path, meta, content)
	if err != nil {
		switch {
		case docstore.IsAlreadyExists(err), docstore.IsPathSecurity(err), docstore.IsMalformed(err):
			return mcp.NewToolResultError(err.Error()), nil
		default:
			s.logger.Error("Failed to create document", "category", cat.String(), "path", path, "error", err)
			return mcp.NewToolResultError("internal error: failed to create document"), nil
		}
	}

	s.logger.Info("Document created", "category", cat.String(), "path", doc.Path)
	return jsonResult(summarize(doc))
}

func (s *Server) handleUpdateDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cat, err := categoryFromRequest(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// Distinguish "field absent" from "field set to empty": only keys present
	// in the request are merged into the document.
	args := req.GetArguments()
	var patch docstore.MetadataPatch
	if v, ok := stringArg(args, "title"); ok {
		patch.Title = &v
	}
	if v, ok := stringArg(args, "description"); ok {
		patch.Description = &v
	}
	if v, ok := stringArg(args, "author"); ok {
		patch.Author = &v
	}
	if _, ok := args["tags"]; ok {
		patch.Tags = req.GetStringSlice("tags", []string{})
	}

	var content *string
	if v, ok := stringArg(args, "content"); ok {
		content = &v
	}

	doc, err := s.service.Update(cat, path, patch, content)
	if err != nil {
		switch {
		case docstore.IsNotFound(err):
			s.logger.Debug("Document not found for update", "category", cat.String(), "path", path)
			return mcp.NewToolResultError(err.Error()), nil
		case docstore.IsPathSecurity(err), docstore.IsMalformed(err):
			return mcp.NewToolResultError(err.Error()), nil
		default:
			s.logger.Error("Failed to update document", "category", cat.String(), "path", path, "error", err)
			return mcp.NewToolResultError("internal error: failed to update document"), nil
		}
	}

	s.logger.Info("Document updated", "category", cat.String(), "path", doc.Path)
	return jsonResult(summarize(doc))
}

// categoryFromRequest resolves the type + language/project parameter pair of
// the write tools. The Category constructors enforce that stdlib always has a
// language and spec always has a project.
func categoryFromRequest(req mcp.CallToolRequest) (docstore.Category, error) {
	typeStr, err := req.RequireString("type")
	if err != nil {
		return docstore.Category{}, err
	}
	kind, err := docstore.ParseKind(typeStr)
	if err != nil {
		return docstore.Category{}, err
	}

	switch kind {
	case docstore.KindStdlib:
		return docstore.NewStdlib(req.GetString("language", ""))
	default:
		return docstore.NewSpec(req.GetString("project", ""))
	}
}

func summarize(doc *docstore.Document) documentSummary {
	summary := documentSummary{
		Type:        string(doc.Category.Kind()),
		Path:        doc.Path,
		Title:       doc.Metadata.Title,
		Description: doc.Metadata.Description,
		Author:      doc.Metadata.Author,
		Tags:        doc.Metadata.Tags,
		CreatedAt:   formatTime(doc.Metadata.CreatedAt),
		UpdatedAt:   formatTime(doc.Metadata.UpdatedAt),
	}
	if doc.Category.Kind() == docstore.KindStdlib {
		summary.Language = doc.Category.Name()
	} else {
		summary.Project = doc.Category.Name()
	}
	return summary
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
