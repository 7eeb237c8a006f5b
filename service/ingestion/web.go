package ingestion

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"knowledge-agent-backend/model"
)

// WebFetcher 处理网页知识，内容由抓取能力提取后按UTF-8编码
type WebFetcher struct {
	crawler Crawler
}

func NewWebFetcher(crawler Crawler) *WebFetcher {
	return &WebFetcher{crawler: crawler}
}

var _ SourceFetcher = &WebFetcher{}

func (f *WebFetcher) Fetch(ctx context.Context, k *model.Knowledge, emit EmitFunc) error {
	if k.ID == uuid.Nil || k.URL == "" {
		return fmt.Errorf("%w: web knowledge %s has no id or url", ErrUnprocessableKnowledge, k.ID)
	}

	content, err := f.crawler.ExtractFromURL(ctx, k.URL)
	if err != nil {
		return fmt.Errorf("failed to extract content from %s: %w", k.URL, err)
	}

	file, err := NewIngestFile(k, []byte(content))
	if err != nil {
		return err
	}
	return emit(ctx, k, file)
}
