package sources

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/concierge/internal/models"
	"github.com/ternarybob/concierge/internal/services/pdf"
	"github.com/ternarybob/concierge/internal/services/transform"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

// Document is one raw file read from a procedure source
type Document struct {
	RelPath string // Slash-separated path relative to the source root
	Content []byte
	Link    string // Canonical link supplied by the source, may be empty
}

// frontMatter is the optional YAML header of a markdown procedure
type frontMatter struct {
	ID      string   `yaml:"id"`
	Title   string   `yaml:"title"`
	Summary string   `yaml:"summary"`
	Tags    []string `yaml:"tags"`
	Link    string   `yaml:"link"`
}

// DocumentParser turns markdown, HTML, PDF and plain text files into procedures
type DocumentParser struct {
	transform *transform.Service
	pdf       *pdf.Extractor
	markdown  goldmark.Markdown
	logger    arbor.ILogger
}

// NewDocumentParser creates a parser. extractor may be nil, in which case PDFs are rejected.
func NewDocumentParser(transformService *transform.Service, extractor *pdf.Extractor, logger arbor.ILogger) *DocumentParser {
	return &DocumentParser{
		transform: transformService,
		pdf:       extractor,
		markdown:  goldmark.New(goldmark.WithExtensions(extension.GFM)),
		logger:    logger,
	}
}

// Supports reports whether the file extension can be parsed
func (p *DocumentParser) Supports(relPath string) bool {
	switch strings.ToLower(path.Ext(relPath)) {
	case ".md", ".markdown", ".txt", ".html", ".htm":
		return true
	case ".pdf":
		return p.pdf != nil
	}
	return false
}

// Parse builds a procedure from one document. The id is the front matter id or
// the slug of the relative path; parent folders become tags.
func (p *DocumentParser) Parse(ctx context.Context, doc Document) (models.ProcedureItem, error) {
	var meta frontMatter
	var err error

	item := models.ProcedureItem{}

	switch ext := strings.ToLower(path.Ext(doc.RelPath)); ext {
	case ".md", ".markdown":
		var body []byte
		meta, body, err = splitFrontMatter(doc.Content)
		if err != nil {
			return item, fmt.Errorf("%s: %w", doc.RelPath, err)
		}
		item.Title, item.Summary = p.outline(body)
		item.Content = strings.TrimSpace(string(body))

	case ".html", ".htm":
		page, err := p.transform.ProcessHTML(string(doc.Content), linkBase(doc.Link))
		if err != nil {
			return item, fmt.Errorf("%s: %w", doc.RelPath, err)
		}
		heading, summary := p.outline([]byte(page.Markdown))
		item.Title = firstNonBlank(page.Title, heading)
		item.Summary = summary
		item.Content = page.Markdown

	case ".pdf":
		if p.pdf == nil {
			return item, fmt.Errorf("%s: pdf extraction disabled", doc.RelPath)
		}
		content, err := p.pdf.ExtractText(ctx, doc.Content)
		if err != nil {
			return item, fmt.Errorf("%s: %w", doc.RelPath, err)
		}
		item.Content = content

	case ".txt":
		item.Title, item.Content = splitTitleLine(string(doc.Content))

	default:
		return item, fmt.Errorf("%s: unsupported document type %q", doc.RelPath, ext)
	}

	item.ID = firstNonBlank(meta.ID, documentID(doc.RelPath))
	item.Title = firstNonBlank(meta.Title, item.Title, titleFromPath(doc.RelPath))
	item.Summary = firstNonBlank(meta.Summary, item.Summary)
	item.Tags = mergeTags(meta.Tags, folderTags(doc.RelPath))
	item.SourceLink = firstNonBlank(meta.Link, doc.Link)

	return item, nil
}

// splitFrontMatter separates a leading "---" YAML block from the markdown body
func splitFrontMatter(content []byte) (frontMatter, []byte, error) {
	var meta frontMatter

	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return meta, normalized, nil
	}

	rest := normalized[len("---\n"):]
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return meta, normalized, nil
	}

	if err := yaml.Unmarshal(rest[:end], &meta); err != nil {
		return meta, nil, fmt.Errorf("invalid front matter: %w", err)
	}

	body := rest[end+len("\n---"):]
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = nil
	}
	return meta, body, nil
}

// outline returns the first level-one heading and the first paragraph
func (p *DocumentParser) outline(source []byte) (title, summary string) {
	doc := p.markdown.Parser().Parse(text.NewReader(source))

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			if node.Level == 1 && title == "" {
				title = nodeText(node, source)
			}
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph:
			if summary == "" {
				summary = nodeText(node, source)
			}
			return ast.WalkSkipChildren, nil
		}
		if title != "" && summary != "" {
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(title), strings.Join(strings.Fields(summary), " ")
}

// nodeText concatenates the text segments below n
func nodeText(n ast.Node, source []byte) string {
	var buf strings.Builder
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch c := child.(type) {
		case *ast.Text:
			buf.Write(c.Segment.Value(source))
			if c.SoftLineBreak() || c.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(c.Value)
		default:
			buf.WriteString(nodeText(child, source))
		}
	}
	return buf.String()
}

// splitTitleLine uses a short first line of a text file as its title
func splitTitleLine(content string) (string, string) {
	trimmed := strings.TrimSpace(strings.ReplaceAll(content, "\r\n", "\n"))
	first, rest, found := strings.Cut(trimmed, "\n")
	first = strings.TrimSpace(first)
	if !found || len(first) > 120 || strings.TrimSpace(rest) == "" {
		return "", trimmed
	}
	return first, strings.TrimSpace(rest)
}

func documentID(relPath string) string {
	return slug.Make(strings.TrimSuffix(relPath, path.Ext(relPath)))
}

// uniqueIDs gives every item after the first that shares an id a suffix derived
// from its path, so "listings/lockbox.md" and "listings-lockbox.md" both survive.
// relPaths[i] is the path items[i] was parsed from.
func uniqueIDs(items []models.ProcedureItem, relPaths []string, logger arbor.ILogger) {
	seen := make(map[string]struct{}, len(items))
	for i := range items {
		id := items[i].ID
		if _, dup := seen[id]; dup {
			items[i].ID = id + "-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(relPaths[i])).String()[:8]
			logger.Warn().
				Str("id", id).
				Str("path", relPaths[i]).
				Str("renamed", items[i].ID).
				Msg("Procedure id already used by another file")
		}
		seen[items[i].ID] = struct{}{}
	}
}

// titleFromPath turns "listings/open-house_checklist.md" into "Open house checklist"
func titleFromPath(relPath string) string {
	name := strings.TrimSuffix(path.Base(relPath), path.Ext(relPath))
	name = strings.Join(strings.Fields(strings.NewReplacer("-", " ", "_", " ").Replace(name)), " ")
	if name == "" {
		return ""
	}
	runes := []rune(name)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func folderTags(relPath string) []string {
	dir := path.Dir(relPath)
	if dir == "." || dir == "/" {
		return nil
	}
	return strings.Split(strings.Trim(dir, "/"), "/")
}

// mergeTags lowercases, trims and dedupes tags keeping first-seen order
func mergeTags(groups ...[]string) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, group := range groups {
		for _, tag := range group {
			tag = strings.ToLower(strings.TrimSpace(strings.NewReplacer("-", " ", "_", " ").Replace(tag)))
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags
}

// linkBase is the directory of a document link, used to resolve relative HTML links
func linkBase(link string) string {
	if i := strings.LastIndex(link, "/"); i > len("https://") {
		return link[:i]
	}
	return link
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
