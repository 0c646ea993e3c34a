package transform

import (
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
)

// Service converts HTML procedure pages into markdown text
type Service struct {
	logger arbor.ILogger
}

// HTMLDocument is the readable part of an HTML page
type HTMLDocument struct {
	Title    string
	Markdown string
}

// NewService creates a new transform service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger: logger,
	}
}

var contentSelectors = []string{"main", "article", ".content", "#content", "body"}

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// ProcessHTML extracts the page title and converts the main content area to
// markdown. Navigation, scripts and styles are dropped.
func (s *Service) ProcessHTML(html string, baseURL string) (*HTMLDocument, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := extractTitle(doc)

	doc.Find("script, style, nav, footer, aside, noscript").Remove()

	content := doc.Selection
	for _, selector := range contentSelectors {
		if found := doc.Find(selector).First(); found.Length() > 0 {
			content = found
			break
		}
	}
	contentHTML, err := content.Html()
	if err != nil {
		return nil, fmt.Errorf("failed to read HTML content: %w", err)
	}

	markdown, err := s.HTMLToMarkdown(contentHTML, baseURL)
	if err != nil {
		return nil, err
	}

	return &HTMLDocument{Title: title, Markdown: markdown}, nil
}

func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if ogTitle, exists := doc.Find("meta[property='og:title']").Attr("content"); exists && strings.TrimSpace(ogTitle) != "" {
		return strings.TrimSpace(ogTitle)
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// HTMLToMarkdown converts an HTML fragment to markdown, resolving relative links
// against baseURL. When conversion fails or yields nothing, tags are stripped instead.
func (s *Service) HTMLToMarkdown(html string, baseURL string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}

	converter := md.NewConverter(baseURL, true, nil)
	converted, err := converter.ConvertString(html)
	if err != nil {
		s.logger.Warn().Err(err).Msg("HTML to markdown conversion failed, stripping tags")
		return stripHTMLTags(html), nil
	}

	if strings.TrimSpace(converted) == "" {
		return stripHTMLTags(html), nil
	}
	return strings.TrimSpace(converted), nil
}

// stripHTMLTags removes tags and decodes the common entities
func stripHTMLTags(htmlStr string) string {
	cleaned := spacePattern.ReplaceAllString(tagPattern.ReplaceAllString(htmlStr, " "), " ")

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", "\"",
		"&#39;", "'",
		"&nbsp;", " ",
	)
	return strings.TrimSpace(replacer.Replace(cleaned))
}
