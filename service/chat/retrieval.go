package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/tools"

	knowledgebase "knowledge-agent-backend/service/knowledge-base"
)

const defaultRetrievalTopK = 5

// KnowledgeSearchTool 在会话绑定的Brain范围内检索知识分片
type KnowledgeSearchTool struct {
	store   *knowledgebase.ChunkStore
	brainID uuid.UUID

	// 本轮对话命中的分片，对话结束后作为引用来源落库
	hits []knowledgebase.ChunkHit
}

var _ tools.Tool = &KnowledgeSearchTool{}

func NewKnowledgeSearchTool(store *knowledgebase.ChunkStore, brainID uuid.UUID) *KnowledgeSearchTool {
	return &KnowledgeSearchTool{
		store:   store,
		brainID: brainID,
	}
}

func (t *KnowledgeSearchTool) Name() string {
	return "knowledge_search"
}

func (t *KnowledgeSearchTool) Description() string {
	return "Search the user's knowledge base for content relevant to a query. " +
		"Input should be a short search query in the same language as the question. " +
		"Returns the most relevant knowledge fragments."
}

func (t *KnowledgeSearchTool) Call(ctx context.Context, input string) (string, error) {
	hits, err := t.store.Search(ctx, t.brainID, strings.TrimSpace(input), defaultRetrievalTopK)
	if err != nil {
		return "", fmt.Errorf("failed to search knowledge: %v", err)
	}

	if len(hits) == 0 {
		return "No relevant knowledge found.", nil
	}

	t.hits = append(t.hits, hits...)

	var sb strings.Builder
	for i, hit := range hits {
		sb.WriteString(fmt.Sprintf("[%d] %s\n\n", i+1, hit.Text))
	}
	return sb.String(), nil
}

// Hits 返回本轮对话累计命中的分片
func (t *KnowledgeSearchTool) Hits() []knowledgebase.ChunkHit {
	return t.hits
}
