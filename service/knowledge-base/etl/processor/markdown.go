package processor

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
)

// MarkdownETLProcessor Markdown文件解析器，兼容纯文本文件
type MarkdownETLProcessor struct {
	TextSplitter textsplitter.TextSplitter
}

var _ ETLProcessor = &MarkdownETLProcessor{}

func NewMarkdownETLProcessor() *MarkdownETLProcessor {
	return &MarkdownETLProcessor{
		TextSplitter: textsplitter.NewMarkdownTextSplitter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithHeadingHierarchy(true), // 保留父级标题信息
			textsplitter.WithSecondSplitter(textsplitter.NewRecursiveCharacter(
				textsplitter.WithChunkSize(chunkSize),
				textsplitter.WithChunkOverlap(chunkOverlap),
				textsplitter.WithSeparators(separators),
			)),
		),
	}
}

func (p *MarkdownETLProcessor) CanProcess(fileType string) bool {
	switch fileType {
	case "md", "markdown", "txt", "text":
		return true
	}
	return false
}

func (p *MarkdownETLProcessor) Parse(ctx context.Context, data []byte) ([]schema.Document, error) {
	reader := bytes.NewReader(data)
	loader := documentloaders.NewText(reader)

	docs, err := loader.LoadAndSplit(ctx, p.TextSplitter)
	if err != nil {
		return nil, fmt.Errorf("error loading and spliting markdown: %v", err)
	}

	// 过滤只有孤立标题的chunk
	return filterStandaloneHeaders(docs), nil
}

func filterStandaloneHeaders(docs []schema.Document) []schema.Document {
	var filteredDocs []schema.Document

	// 匹配形如 "# xxx ## xxx" 的chunk
	headerOnlyRegex := regexp.MustCompile(`^\s*(?:#{1,6}\s+.+\n?)+\s*$`)

	for _, doc := range docs {
		content := strings.TrimSpace(doc.PageContent)
		if content == "" {
			continue
		}

		if headerOnlyRegex.MatchString(content) {
			continue
		}

		filteredDocs = append(filteredDocs, doc)
	}
	return filteredDocs
}
