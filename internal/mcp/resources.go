package mcp

import (
	"context"
	"fmt"
	"strings"

	"docbase/internal/docstore"

	"github.com/mark3labs/mcp-go/mcp"
)

// registerResources populates the resource-template registry with the two
// read-only document views. They go through the same Service.Get pipeline as
// the get tools, so both surfaces return identical content.
func (s *Server) registerResources() {
	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(
		"stdlib://{language}/{+path}",
		"Standard library document",
		mcp.WithTemplateDescription("Read-only access to a language's stdlib document."),
		mcp.WithTemplateMIMEType("text/markdown"),
	), s.handleStdlibResource)

	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(
		"spec://{project}/{+path}",
		"Project specification document",
		mcp.WithTemplateDescription("Read-only access to a project's spec document."),
		mcp.WithTemplateMIMEType("text/markdown"),
	), s.handleSpecResource)
}

func (s *Server) handleStdlibResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return s.readDocumentResource(req.Params.URI, docstore.KindStdlib)
}

func (s *Server) handleSpecResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return s.readDocumentResource(req.Params.URI, docstore.KindSpec)
}

func (s *Server) readDocumentResource(uri string, kind docstore.Kind) ([]mcp.ResourceContents, error) {
	name, path, err := splitResourceURI(uri, kind)
	if err != nil {
		return nil, err
	}

	cat, err := docstore.NewCategory(kind, name)
	if err != nil {
		return nil, err
	}

	doc, err := s.service.Get(cat, path)
	if err != nil {
		switch {
		case docstore.IsNotFound(err), docstore.IsPathSecurity(err):
			return nil, err
		default:
			s.logger.Error("Failed to read resource", "uri", uri, "error", err)
			return nil, fmt.Errorf("internal error: failed to read resource")
		}
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/markdown",
			Text:     doc.Content,
		},
	}, nil
}

// splitResourceURI dissects "<kind>://<name>/<path...>" into its bucket name
// and document path.
func splitResourceURI(uri string, kind docstore.Kind) (string, string, error) {
	prefix := string(kind) + "://"
	rest, ok := strings.CutPrefix(uri, prefix)
	if !ok {
		return "", "", fmt.Errorf("invalid resource URI %q: expected %s scheme", uri, kind)
	}

	name, path, ok := strings.Cut(rest, "/")
	if !ok || name == "" || path == "" {
		return "", "", fmt.Errorf("invalid resource URI %q: expected %s<name>/<path>", uri, prefix)
	}
	return name, path, nil
}
