// Package mcp provides the Model Context Protocol (MCP) server for docbase
// using mcp-go.
//
// This package exposes the document knowledge base to AI assistants through a
// standardized protocol: seven schema-validated tools (get/list/search/create/
// update over the stdlib and spec buckets) and two URI-addressable resource
// templates (stdlib://{language}/{path} and spec://{project}/{path}) that
// read documents directly.
//
// # Implementation
//
// The package uses the mcp-go library (github.com/mark3labs/mcp-go), which
// owns the JSON-RPC 2.0 envelope: parse errors, invalid requests, unknown
// methods, and parameter schema violations are mapped to the standard
// -32700/-32600/-32601/-32602 codes before a handler here ever runs. Handler
// panics are reduced to -32603 by the recovery middleware.
//
// Both transports serve the same server instance and therefore behave
// identically: the line-delimited stdio loop used when launched as an
// assistant subprocess, and the streamable HTTP endpoint used for remote
// access.
//
// # Concurrency
//
// The stdio transport is inherently serial; HTTP requests may be concurrent.
// Service guards the store+index pair with a single RWMutex: writes are
// mutually exclusive across transports, reads run concurrently with each
// other but never with an in-flight write.
//
// # Security
//
// Path validation lives in docstore and pkg/fileops: traversal attempts are
// rejected as invalid parameters and logged at warn severity. Unexpected
// errors are reduced to a generic message at the protocol boundary; full
// detail goes only to the server log.
package mcp
