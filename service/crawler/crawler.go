package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"knowledge-agent-backend/config"
	"knowledge-agent-backend/service/ingestion"
	"knowledge-agent-backend/utils"
)

// Crawler 抓取网页并提取正文，WEB来源的知识内容由此产生
type Crawler struct {
	client *http.Client
}

var _ ingestion.Crawler = &Crawler{}

func New() *Crawler {
	return &Crawler{
		client: utils.NewHTTPClient(
			utils.WithTimeout(time.Duration(config.Cfg.Crawler.TimeoutSeconds) * time.Second),
		),
	}
}

func (c *Crawler) ExtractFromURL(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %v", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, rawURL)
	}

	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %s: %v", rawURL, err)
	}

	article, err := readability.FromReader(resp.Body, pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract article: %v", err)
	}

	content := strings.TrimSpace(article.TextContent)
	if content == "" {
		return "", fmt.Errorf("no readable content found at %s", rawURL)
	}

	// 标题置顶，切分时作为上下文保留
	if article.Title != "" {
		content = article.Title + "\n\n" + content
	}

	return content, nil
}
