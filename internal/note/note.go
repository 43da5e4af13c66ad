// Package note reads daily notes: markdown documents whose YAML front matter
// carries the day's date and the effort spent per project.
package note

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Tiliavir/rsg-workblocks/internal/model"
	"github.com/Tiliavir/rsg-workblocks/internal/timecalc"
)

var (
	// ErrMissingFrontMatter indicates the document did not start with a YAML fence.
	ErrMissingFrontMatter = errors.New("note: missing frontmatter")
	// ErrMalformedFrontMatter indicates the YAML block is unterminated or has the wrong shape.
	ErrMalformedFrontMatter = errors.New("note: malformed frontmatter")
)

// Load reads and parses the note at path.
func Load(path string) (model.Note, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Note{}, fmt.Errorf("reading note %s: %w", path, err)
	}
	n, err := Parse(data)
	if err != nil {
		return model.Note{}, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

// Parse extracts the note metadata from a document starting with `---` fences.
func Parse(content []byte) (model.Note, error) {
	meta, err := frontMatter(content)
	if err != nil {
		return model.Note{}, err
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(meta, &doc); err != nil {
		return model.Note{}, fmt.Errorf("note: parse frontmatter: %w", err)
	}
	if len(doc.Content) == 0 {
		return model.Note{}, fmt.Errorf("%w: empty block", ErrMalformedFrontMatter)
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return model.Note{}, fmt.Errorf("%w: expected a mapping", ErrMalformedFrontMatter)
	}

	var n model.Note
	dateNode := lookup(root, "date")
	if dateNode == nil || dateNode.Kind != yaml.ScalarNode || strings.TrimSpace(dateNode.Value) == "" {
		return model.Note{}, fmt.Errorf("note: missing date")
	}
	// Unquoted dates resolve to !!timestamp; the raw scalar keeps the exact text.
	d, err := timecalc.ParseDate(dateNode.Value)
	if err != nil {
		return model.Note{}, fmt.Errorf("note: %w", err)
	}
	n.Date = timecalc.FormatDate(d)

	projects := lookup(root, "projects")
	if projects == nil || projects.Tag == "!!null" {
		return n, nil
	}
	if projects.Kind != yaml.MappingNode {
		return model.Note{}, fmt.Errorf("%w: projects must be a mapping of slug to effort", ErrMalformedFrontMatter)
	}
	seen := make(map[string]bool, len(projects.Content)/2)
	for i := 0; i+1 < len(projects.Content); i += 2 {
		slug := projects.Content[i].Value
		value := projects.Content[i+1]
		if value.Tag == "!!null" || (value.Kind == yaml.ScalarNode && strings.TrimSpace(value.Value) == "") {
			return model.Note{}, fmt.Errorf("note: project %q has no effort", slug)
		}
		var effort float64
		if err := value.Decode(&effort); err != nil {
			return model.Note{}, fmt.Errorf("note: effort for project %q is not a number: %q", slug, value.Value)
		}
		if seen[slug] {
			return model.Note{}, fmt.Errorf("note: project %q listed twice", slug)
		}
		seen[slug] = true
		n.Projects = append(n.Projects, model.ProjectEffort{Slug: slug, EffortRate: effort})
	}
	return n, nil
}

// frontMatter returns the bytes between the opening and closing `---` lines.
func frontMatter(content []byte) ([]byte, error) {
	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return nil, ErrMissingFrontMatter
	}
	rest := normalized[4:]
	if bytes.HasPrefix(rest, []byte("---\n")) || bytes.Equal(rest, []byte("---")) {
		return nil, nil
	}
	end := bytes.Index(rest, []byte("\n---\n"))
	if end < 0 {
		if !bytes.HasSuffix(rest, []byte("\n---")) {
			return nil, ErrMalformedFrontMatter
		}
		end = len(rest) - len("\n---")
	}
	return rest[:end], nil
}

func lookup(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}
