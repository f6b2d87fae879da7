package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"docbase/internal/config"
	"docbase/internal/docstore"
	"docbase/internal/logging"

	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Server wires the document store, search index and protocol registries into
// one MCP server instance served over stdio or HTTP.
type Server struct {
	config    *config.Config
	logger    *logging.AppLogger
	store     *docstore.Store
	service   *Service
	mcpServer *server.MCPServer
}

// NewServer builds the full server: store, index (eager unless configured
// lazy), service, and the tool/resource registries. Both registries are
// populated here once and never mutated afterwards.
func NewServer(cfg *config.Config, logger *logging.AppLogger) (*Server, error) {
	store, err := docstore.NewStore(cfg.StorageDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open document store: %w", err)
	}

	service, err := NewService(store, logger, !cfg.LazyIndex)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to build search index: %w", err)
	}

	s := &Server{
		config:  cfg,
		logger:  logger,
		store:   store,
		service: service,
	}

	s.mcpServer = server.NewMCPServer(
		"docbase",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	s.registerTools()
	s.registerResources()

	logger.Info("MCP server initialized", "storage_dir", store.Dir(), "lazy_index", cfg.LazyIndex)
	return s, nil
}

// Start serves requests until the transport ends. With an HTTP address
// configured the streamable HTTP transport is used; otherwise the server
// runs the blocking stdio read-dispatch-write loop.
func (s *Server) Start(ctx context.Context) error {
	if s.config.HTTPAddr != "" {
		return s.serveHTTP(ctx)
	}

	s.logger.Info("Serving MCP over stdio")
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("stdio server failed: %w", err)
	}
	return nil
}

func (s *Server) serveHTTP(ctx context.Context) error {
	httpServer := server.NewStreamableHTTPServer(s.mcpServer)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start(s.config.HTTPAddr)
	}()

	s.logger.Info("Serving MCP over HTTP", "addr", s.config.HTTPAddr)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("Shutting down HTTP transport")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

// Close releases the document store.
func (s *Server) Close() error {
	return s.store.Close()
}

func serverInstructions() string {
	return `docbase is a document knowledge base with two buckets:
stdlib documents organized per programming language, and spec documents
organized per project.

Use list_stdlibs/list_specs to discover what exists, get_stdlib/get_spec to
read a document, and search to find documents by keyword. search matches
every query token against title, description, tags and content; title matches
rank highest. create_document and update_document write markdown documents
with frontmatter metadata; updates only change the fields you supply.

Documents are also addressable as resources:
stdlib://{language}/{path} and spec://{project}/{path}.`
}
