package artifact

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrMalformedMetadata indicates SKILL.md frontmatter is missing or invalid.
var ErrMalformedMetadata = errors.New("malformed skill metadata")

// frontmatterDelim separates the YAML header from the document body.
var frontmatterDelim = []byte("---\n")

// Metadata is the required SKILL.md frontmatter.
type Metadata struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Version     string `yaml:"version"`
	License     string `yaml:"license"`
}

// Validate checks that every required frontmatter key is present.
func (m Metadata) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: name is required", ErrMalformedMetadata)
	}
	if m.Description == "" {
		return fmt.Errorf("%w: description is required", ErrMalformedMetadata)
	}
	if m.Version == "" {
		return fmt.Errorf("%w: version is required", ErrMalformedMetadata)
	}
	if m.License == "" {
		return fmt.Errorf("%w: license is required", ErrMalformedMetadata)
	}
	return nil
}

// Render produces a SKILL.md document: frontmatter followed by the body.
func (m Metadata) Render(body string) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	header, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshaling frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(frontmatterDelim)
	buf.Write(header)
	buf.Write(frontmatterDelim)
	if body != "" {
		buf.WriteByte('\n')
		buf.WriteString(body)
	}
	return buf.Bytes(), nil
}

// ParseFrontmatter extracts and validates the metadata header of a SKILL.md
// document. The document must open with a "---" delimited YAML block.
func ParseFrontmatter(doc []byte) (Metadata, error) {
	var m Metadata

	if !bytes.HasPrefix(doc, frontmatterDelim) {
		return m, fmt.Errorf("%w: missing frontmatter delimiter", ErrMalformedMetadata)
	}

	rest := doc[len(frontmatterDelim):]
	end := bytes.Index(rest, frontmatterDelim)
	if end < 0 {
		return m, fmt.Errorf("%w: unterminated frontmatter", ErrMalformedMetadata)
	}

	if err := yaml.Unmarshal(rest[:end], &m); err != nil {
		return m, fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
	}

	if err := m.Validate(); err != nil {
		return m, err
	}
	return m, nil
}
