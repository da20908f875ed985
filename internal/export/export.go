// Package export converts a library to and from interchange formats.
// TOML, JSON and YAML carry the full document, tombstones included, and can
// be imported again. Markdown and HTML are for reading only.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"

	"pv-go/internal/document"
	"pv-go/internal/pv"
)

// Format is an export or import format.
type Format string

const (
	FormatTOML     Format = "toml"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat accepts a format name or a common alias.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "toml":
		return FormatTOML, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unknown format: %q (want toml, json, yaml, markdown or html)", s)
	}
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("cannot tell the format of %s, pass --format", path)
	}
	return ParseFormat(ext)
}

// Importable reports whether documents in f can be read back.
func (f Format) Importable() bool {
	return f == FormatTOML || f == FormatJSON || f == FormatYAML
}

// Export writes snap to w in format f.
func Export(w io.Writer, snap *pv.Snapshot, f Format) error {
	switch f {
	case FormatTOML:
		data, err := document.Encode(snap)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(document.FromSnapshot(snap)); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(document.FromSnapshot(snap)); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(snap))
		return err
	case FormatHTML:
		return writeHTML(w, snap)
	default:
		return fmt.Errorf("unknown format: %q", f)
	}
}

// Import reads a full document in format f.
func Import(r io.Reader, f Format) (*pv.Snapshot, error) {
	if !f.Importable() {
		return nil, fmt.Errorf("%s is an export-only format", f)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading import: %w", err)
	}
	if f == FormatTOML {
		return document.Decode(data)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return pv.EmptySnapshot(), nil
	}

	var doc document.Document
	switch f {
	case FormatJSON:
		err = json.Unmarshal(data, &doc)
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", document.ErrMalformed, err)
	}
	return doc.Snapshot()
}

// Markdown renders the live prompts as a readable document, sorted by title.
func Markdown(snap *pv.Snapshot) string {
	prompts := snap.Prompts()
	pv.SortPrompts(prompts, pv.SortTitle)

	var b strings.Builder
	b.WriteString("# Prompt Library\n\n")
	fmt.Fprintf(&b, "%d prompts.\n", len(prompts))
	for _, p := range prompts {
		fmt.Fprintf(&b, "\n## %s\n\n", p.Title)
		if p.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", p.Description)
		}
		if p.Category != "" {
			fmt.Fprintf(&b, "- **Category:** %s\n", p.Category)
		}
		if len(p.Tags) > 0 {
			fmt.Fprintf(&b, "- **Tags:** `%s`\n", strings.Join(p.Tags, "`, `"))
		}
		if vars := pv.Variables(p.Content); len(vars) > 0 {
			fmt.Fprintf(&b, "- **Variables:** `%s`\n", strings.Join(vars, "`, `"))
		}
		fmt.Fprintf(&b, "- **ID:** `%s`\n\n", p.ID)
		fence := codeFence(p.Content)
		fmt.Fprintf(&b, "%s\n%s\n%s\n", fence, strings.TrimRight(p.Content, "\n"), fence)
	}
	return b.String()
}

// codeFence returns a backtick fence longer than any run inside content.
func codeFence(content string) string {
	longest, run := 0, 0
	for _, r := range content {
		if r == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return strings.Repeat("`", max(3, longest+1))
}

const htmlPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>%s</title>
<style>
body { font-family: sans-serif; line-height: 1.6; max-width: 800px; margin: 0 auto; padding: 40px 20px; color: #333; }
code { background-color: #f4f4f4; padding: 2px 6px; border-radius: 3px; }
pre { background-color: #2d2d2d; color: #f8f8f2; padding: 16px; border-radius: 6px; white-space: pre-wrap; }
</style>
</head>
<body>
%s</body>
</html>
`

func writeHTML(w io.Writer, snap *pv.Snapshot) error {
	var body bytes.Buffer
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(Markdown(snap)), &body); err != nil {
		return fmt.Errorf("rendering markdown: %w", err)
	}
	_, err := fmt.Fprintf(w, htmlPage, html.EscapeString("Prompt Library"), body.String())
	return err
}
