package docstore

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

// Metadata is the structured frontmatter of a document. Title, CreatedAt and
// UpdatedAt are required; everything else is optional.
type Metadata struct {
	Title       string    `yaml:"title" json:"title"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	Author      string    `yaml:"author,omitempty" json:"author,omitempty"`
	Tags        []string  `yaml:"tags,omitempty" json:"tags,omitempty"`
	CreatedAt   time.Time `yaml:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `yaml:"updatedAt" json:"updatedAt"`
}

// Validate checks the required-field and timestamp-ordering invariants.
func (m Metadata) Validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("missing required 'title' field")
	}
	if m.CreatedAt.IsZero() {
		return fmt.Errorf("missing required 'createdAt' field")
	}
	if m.UpdatedAt.IsZero() {
		return fmt.Errorf("missing required 'updatedAt' field")
	}
	if m.UpdatedAt.Before(m.CreatedAt) {
		return fmt.Errorf("'updatedAt' precedes 'createdAt'")
	}
	return nil
}

// ParseDocument splits the leading YAML frontmatter block from the markdown
// body. Returns MalformedDocumentError when the block is invalid YAML or a
// required field is absent.
func ParseDocument(raw []byte) (Metadata, string, error) {
	var meta Metadata
	rest, err := frontmatter.Parse(bytes.NewReader(raw), &meta)
	if err != nil {
		return Metadata{}, "", &MalformedDocumentError{Reason: fmt.Sprintf("invalid frontmatter: %v", err)}
	}
	if err := meta.Validate(); err != nil {
		return Metadata{}, "", &MalformedDocumentError{Reason: err.Error()}
	}

	// RenderDocument emits one blank separator line after the closing fence;
	// strip exactly that much so parse/render round-trip byte-exactly.
	body := strings.TrimPrefix(string(rest), "\n")
	return meta, body, nil
}

// RenderDocument serializes metadata and body back into on-disk form:
// a fenced YAML block, a blank line, then the markdown body with LF endings.
func RenderDocument(meta Metadata, body string) ([]byte, error) {
	if err := meta.Validate(); err != nil {
		return nil, &MalformedDocumentError{Reason: err.Error()}
	}

	block, err := yaml.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(block)
	buf.WriteString("---\n\n")
	buf.WriteString(normalizeLineEndings(body))
	return buf.Bytes(), nil
}

// normalizeLineEndings converts CRLF to LF. Stored documents always use LF.
func normalizeLineEndings(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
