package knowledgebase

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	client "github.com/milvus-io/milvus/client/v2/milvusclient"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"knowledge-agent-backend/config"
	"knowledge-agent-backend/model"
	"knowledge-agent-backend/service/ingestion"
)

const (
	CollectionName = "knowledge_chunk"

	vectorDim = 1024

	defaultEmbeddingModel     = "text-embedding-v4"
	defaultEmbeddingBatchSize = 10
)

// ChunkHit 一条检索命中的知识分片
type ChunkHit struct {
	Text        string  `json:"text"`
	KnowledgeID string  `json:"knowledge_id"`
	Score       float32 `json:"score"`
}

// ChunkStore Milvus向量库客户端，分片按 (knowledge_id, brain_id) 组织，
// 检索时以 brain_id 过滤
type ChunkStore struct {
	milvus   *client.Client
	embedder embeddings.Embedder
}

var _ ingestion.ChunkStore = &ChunkStore{}

func NewChunkStore(ctx context.Context) (*ChunkStore, error) {
	llm, err := openai.New(
		openai.WithEmbeddingModel(defaultEmbeddingModel),
		openai.WithToken(config.Cfg.Model.APIKey),
		openai.WithBaseURL(config.Cfg.Model.BaseURL),
		openai.WithHTTPClient(&http.Client{
			Timeout: 60 * time.Second,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder client: %v", err)
	}

	embedder, err := embeddings.NewEmbedder(llm,
		embeddings.WithBatchSize(defaultEmbeddingBatchSize),
		embeddings.WithStripNewLines(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %v", err)
	}

	milvus, err := client.New(ctx, &client.ClientConfig{
		Address: config.Cfg.Milvus.Endpoint,
		APIKey:  config.Cfg.Milvus.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %v", err)
	}

	return &ChunkStore{
		milvus:   milvus,
		embedder: embedder,
	}, nil
}

// StoreChunks 先清掉该知识的旧分片再写入，保证重新摄取不会残留
func (s *ChunkStore) StoreChunks(ctx context.Context, k *model.Knowledge, chunks []schema.Document) error {
	if err := s.DeleteChunks(ctx, k.ID); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		texts = append(texts, chunk.PageContent)
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("error embedding chunks: %v", err)
	}

	slog.Debug("embedded chunks successfully",
		"knowledge_id", k.ID,
		"vectors_num", len(vectors),
	)

	brainIDs := make([]string, 0, len(k.Brains))
	for _, brain := range k.Brains {
		brainIDs = append(brainIDs, brain.ID.String())
	}
	if len(brainIDs) == 0 {
		brainIDs = []string{""}
	}

	// 每个分片在所属的每个Brain下各写一行，检索按brain_id过滤
	var (
		rowTexts   []string
		rowVectors [][]float32
		rowKIDs    []string
		rowEmails  []string
		rowBrains  []string
	)
	for _, brainID := range brainIDs {
		for i := range texts {
			rowTexts = append(rowTexts, texts[i])
			rowVectors = append(rowVectors, vectors[i])
			rowKIDs = append(rowKIDs, k.ID.String())
			rowEmails = append(rowEmails, k.UserEmail)
			rowBrains = append(rowBrains, brainID)
		}
	}

	columns := []column.Column{
		column.NewColumnVarChar("text", rowTexts),
		column.NewColumnFloatVector("vector", vectorDim, rowVectors),
		column.NewColumnVarChar("knowledge_id", rowKIDs),
		column.NewColumnVarChar("user_email", rowEmails),
		column.NewColumnVarChar("brain_id", rowBrains),
	}

	insertOption := client.NewColumnBasedInsertOption(CollectionName).WithColumns(columns...)
	if _, err := s.milvus.Insert(ctx, insertOption); err != nil {
		return fmt.Errorf("error inserting chunks: %v", err)
	}

	return nil
}

func (s *ChunkStore) DeleteChunks(ctx context.Context, knowledgeID uuid.UUID) error {
	expr := fmt.Sprintf(`knowledge_id == "%s"`, knowledgeID)
	deleteOption := client.NewDeleteOption(CollectionName).WithExpr(expr)
	if _, err := s.milvus.Delete(ctx, deleteOption); err != nil {
		return fmt.Errorf("error deleting chunks of knowledge %s: %v", knowledgeID, err)
	}
	return nil
}

// Search 在指定Brain的知识范围内做向量检索
func (s *ChunkStore) Search(ctx context.Context, brainID uuid.UUID, query string, topK int) ([]ChunkHit, error) {
	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error embedding query: %v", err)
	}

	searchOption := client.NewSearchOption(CollectionName, topK, []entity.Vector{entity.FloatVector(vector)}).
		WithFilter(fmt.Sprintf(`brain_id == "%s"`, brainID)).
		WithANNSField("vector").
		WithOutputFields("text", "knowledge_id")

	results, err := s.milvus.Search(ctx, searchOption)
	if err != nil {
		return nil, fmt.Errorf("error searching chunks: %v", err)
	}

	var hits []ChunkHit
	for _, rs := range results {
		textColumn := rs.GetColumn("text")
		idColumn := rs.GetColumn("knowledge_id")
		if textColumn == nil || idColumn == nil {
			continue
		}

		for i := 0; i < rs.ResultCount; i++ {
			text, err := textColumn.GetAsString(i)
			if err != nil {
				return nil, fmt.Errorf("error reading text column: %v", err)
			}
			knowledgeID, err := idColumn.GetAsString(i)
			if err != nil {
				return nil, fmt.Errorf("error reading knowledge_id column: %v", err)
			}

			hit := ChunkHit{
				Text:        text,
				KnowledgeID: knowledgeID,
			}
			if i < len(rs.Scores) {
				hit.Score = rs.Scores[i]
			}
			hits = append(hits, hit)
		}
	}

	return hits, nil
}
