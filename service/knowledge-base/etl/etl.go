package etl

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/tmc/langchaingo/schema"

	"knowledge-agent-backend/service/ingestion"
	"knowledge-agent-backend/service/knowledge-base/etl/processor"
)

// Parser 按文件类型路由到对应的解析器
type Parser struct {
	processors []processor.ETLProcessor
}

var _ ingestion.Parser = &Parser{}

func NewParser() *Parser {
	return &Parser{
		processors: []processor.ETLProcessor{
			processor.NewPDFETLProcessor(),
			processor.NewMarkdownETLProcessor(),
		},
	}
}

func (p *Parser) Parse(ctx context.Context, f *ingestion.IngestFile) ([]schema.Document, error) {
	fileType := strings.TrimPrefix(strings.ToLower(f.Extension), ".")

	for _, proc := range p.processors {
		if !proc.CanProcess(fileType) {
			continue
		}

		data, err := os.ReadFile(f.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %v", f.Path, err)
		}
		return proc.Parse(ctx, data)
	}

	return nil, fmt.Errorf("%w: no processor found for file type: %s", ingestion.ErrUnprocessableKnowledge, fileType)
}
