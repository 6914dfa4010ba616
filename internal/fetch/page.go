package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	readability "github.com/go-shiori/go-readability"
	"github.com/gocolly/colly/v2"
)

// PageLoader loads a page with a colly collector and keeps its main article,
// rendered as markdown so headings and lists survive for the model.
type PageLoader struct {
	userAgent string
	cacheDir  string
}

// NewPageLoader returns a PageLoader. A non-empty cacheDir enables colly's on-disk response cache.
func NewPageLoader(userAgent, cacheDir string) *PageLoader {
	if strings.TrimSpace(userAgent) == "" {
		userAgent = DefaultUserAgent
	}
	return &PageLoader{userAgent: userAgent, cacheDir: strings.TrimSpace(cacheDir)}
}

func (l *PageLoader) Name() string { return "page_loader" }

func (l *PageLoader) Fetch(ctx context.Context, rawURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	opts := []colly.CollectorOption{colly.UserAgent(l.userAgent)}
	if l.cacheDir != "" {
		opts = append(opts, colly.CacheDir(l.cacheDir))
	}
	c := colly.NewCollector(opts...)

	var (
		body     []byte
		pageURL  *url.URL
		fetchErr error
	)
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
		pageURL = r.Request.URL
	})
	c.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := c.Visit(rawURL); err != nil {
		return "", fmt.Errorf("visit %s: %w", rawURL, err)
	}
	if fetchErr != nil {
		return "", fmt.Errorf("visit %s: %w", rawURL, fetchErr)
	}
	if len(body) == 0 {
		return "", errors.New("empty response body")
	}

	return articleText(body, pageURL)
}

func articleText(body []byte, pageURL *url.URL) (string, error) {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return "", fmt.Errorf("extract article: %w", err)
	}

	md, err := htmltomarkdown.ConvertString(article.Content)
	if err != nil || strings.TrimSpace(md) == "" {
		return strings.TrimSpace(article.TextContent), nil
	}
	return strings.TrimSpace(md), nil
}
