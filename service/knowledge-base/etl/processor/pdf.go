package processor

import (
	"bytes"
	"context"
	"fmt"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
)

type PDFETLProcessor struct {
	TextSplitter textsplitter.TextSplitter
}

var _ ETLProcessor = &PDFETLProcessor{}

func NewPDFETLProcessor() *PDFETLProcessor {
	return &PDFETLProcessor{
		TextSplitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithSeparators(separators),
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
		),
	}
}

func (p *PDFETLProcessor) CanProcess(fileType string) bool {
	return fileType == "pdf"
}

func (p *PDFETLProcessor) Parse(ctx context.Context, data []byte) ([]schema.Document, error) {
	reader := bytes.NewReader(data)
	loader := documentloaders.NewPDF(reader, int64(len(data)))

	docs, err := loader.LoadAndSplit(ctx, p.TextSplitter)
	if err != nil {
		return nil, fmt.Errorf("error loading and spliting pdf: %v", err)
	}

	return docs, nil
}
