package dataflows

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/dyike/StockLens/internal/models"
)

const maxPageContent = 10000

var blankRuns = regexp.MustCompile(`\n{3,}`)

// WebPageClient fetches a page and reduces it to readable text.
type WebPageClient struct {
	client *resty.Client
}

func NewWebPageClient(timeout time.Duration) *WebPageClient {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent)
	return &WebPageClient{client: client}
}

// Visit downloads rawURL and extracts its title and the text of its main
// content. Content longer than maxPageContent is truncated.
func (w *WebPageClient) Visit(ctx context.Context, rawURL string) (*models.WebpageOutput, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid url %q", rawURL)
	}

	resp, err := w.client.R().SetContext(ctx).Get(u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", u, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("HTTP error %d when fetching %s", resp.StatusCode(), u)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return &models.WebpageOutput{
		URL:     u.String(),
		Title:   pageTitle(doc),
		Content: pageText(doc),
	}, nil
}

func pageTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// pageText prefers <article> or <main> and falls back to <body>. Each block
// element becomes its own line.
func pageText(doc *goquery.Document) string {
	doc.Find("script, style, noscript, nav, footer, header, svg").Remove()

	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("main").First()
	}
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	var b strings.Builder
	root.Find("h1, h2, h3, h4, p, li, pre, td").Each(func(_ int, s *goquery.Selection) {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			return
		}
		if goquery.NodeName(s) == "li" {
			b.WriteString("- ")
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	})

	content := b.String()
	if strings.TrimSpace(content) == "" {
		content = strings.Join(strings.Fields(root.Text()), " ")
	}
	content = strings.TrimSpace(blankRuns.ReplaceAllString(content, "\n\n"))

	if runes := []rune(content); len(runes) > maxPageContent {
		content = string(runes[:maxPageContent]) + "\n..._This content has been truncated._"
	}
	return content
}
