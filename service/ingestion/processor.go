package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"knowledge-agent-backend/model"
)

// KnowledgeProcessor 摄取流水线的顶层驱动：按来源分发抓取，
// 逐对解析、入库并推进状态机。所有协作方通过构造注入，便于用假实现测试。
type KnowledgeProcessor struct {
	repo   Repository
	parser Parser
	chunks ChunkStore
	local  *LocalFetcher
	web    *WebFetcher
	sync   *SyncFetcher
}

type ProcessorConfig struct {
	Repository Repository
	Storage    Storage
	Crawler    Crawler
	Parser     Parser
	ChunkStore ChunkStore
	Providers  map[model.Source]SyncProvider
}

func NewKnowledgeProcessor(cfg ProcessorConfig) *KnowledgeProcessor {
	return &KnowledgeProcessor{
		repo:   cfg.Repository,
		parser: cfg.Parser,
		chunks: cfg.ChunkStore,
		local:  NewLocalFetcher(cfg.Storage),
		web:    NewWebFetcher(cfg.Crawler),
		sync:   NewSyncFetcher(cfg.Repository, cfg.Providers),
	}
}

// ProcessKnowledge 处理一条知识。成败只通过落库状态和日志观测；
// 对已经PROCESSED且内容未变的知识重复调用是幂等的。
func (p *KnowledgeProcessor) ProcessKnowledge(ctx context.Context, id uuid.UUID) error {
	knowledge, err := p.repo.GetKnowledge(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to resolve knowledge %s: %w", id, err)
	}

	fetcher, err := p.fetcherFor(knowledge.Source)
	if err != nil {
		// 未知来源在任何状态变更前中止
		slog.Error("received knowledge with unknown source",
			"knowledge_id", id,
			"source", knowledge.Source)
		return err
	}

	err = fetcher.Fetch(ctx, knowledge, func(ctx context.Context, k *model.Knowledge, f *IngestFile) error {
		defer func() {
			if cerr := f.Close(); cerr != nil {
				slog.Warn("failed to clean up ingest file",
					"knowledge_id", k.ID,
					"path", f.Path,
					"err", cerr)
			}
		}()
		p.processOne(ctx, k, f)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrUnknownSource) {
			return err
		}
		// 顶层抓取失败没有可保留的局部状态，原知识标记为ERROR
		slog.Error("failed to fetch knowledge content",
			"knowledge_id", id,
			"err", err)
		p.markError(ctx, knowledge)
		return err
	}
	return nil
}

func (p *KnowledgeProcessor) fetcherFor(source model.Source) (SourceFetcher, error) {
	switch source {
	case model.SourceLocal:
		return p.local, nil
	case model.SourceWeb:
		return p.web, nil
	case model.SourceGDrive, model.SourceDropbox:
		return p.sync, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}
}

// processOne 单个 (knowledge, file) 对是独立的失败单元：
// 失败只回滚本对的嵌套事务并标记ERROR，目录展开中的兄弟知识不受影响
func (p *KnowledgeProcessor) processOne(ctx context.Context, k *model.Knowledge, f *IngestFile) {
	err := p.repo.Transaction(ctx, func(repo Repository) error {
		return p.processInner(ctx, repo, k, f)
	})
	if err != nil {
		slog.Error("failed to process knowledge",
			"knowledge_id", k.ID,
			"err", err)
		p.markError(ctx, k)
	}
}

func (p *KnowledgeProcessor) processInner(ctx context.Context, repo Repository, k *model.Knowledge, f *IngestFile) error {
	state := NewStateMachine(repo)

	// 内容指纹未变的已处理知识直接跳过，只刷新同步时间
	if p.shouldSkip(k, f) {
		update := KnowledgeUpdate{}
		if k.SyncID != nil {
			now := time.Now().UTC()
			update.LastSyncedAt = &now
		}
		return repo.UpdateKnowledge(ctx, k, update)
	}

	if k.Status != model.StatusProcessing {
		if err := state.Transition(ctx, k, model.StatusProcessing, KnowledgeUpdate{}); err != nil {
			return err
		}
	}

	if !f.IsPlaceholder() {
		chunks, err := p.parser.Parse(ctx, f)
		if err != nil {
			return fmt.Errorf("failed to parse knowledge %s: %w", k.ID, err)
		}
		if err := p.chunks.StoreChunks(ctx, k, chunks); err != nil {
			return fmt.Errorf("failed to store chunks for knowledge %s: %w", k.ID, err)
		}
	}

	update := KnowledgeUpdate{}
	if !f.IsPlaceholder() {
		sha := f.SHA1
		size := f.Size
		update.FileSHA1 = &sha
		update.FileSize = &size
	}
	return state.Transition(ctx, k, model.StatusProcessed, update)
}

func (p *KnowledgeProcessor) shouldSkip(k *model.Knowledge, f *IngestFile) bool {
	return !k.IsFolder &&
		k.Status == model.StatusProcessed &&
		k.FileSHA1 != "" &&
		k.FileSHA1 == f.SHA1
}

// markError 尽力而为：知识可能已被并发删除，失败只记录不重试
func (p *KnowledgeProcessor) markError(ctx context.Context, k *model.Knowledge) {
	if k.Status == model.StatusError {
		return
	}
	state := NewStateMachine(p.repo)
	if err := state.Transition(ctx, k, model.StatusError, KnowledgeUpdate{}); err != nil {
		slog.Error("failed to mark knowledge as error",
			"knowledge_id", k.ID,
			"err", err)
	}
}
