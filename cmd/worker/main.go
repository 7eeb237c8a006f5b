package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/google/uuid"

	"knowledge-agent-backend/config"
	"knowledge-agent-backend/dao"
	"knowledge-agent-backend/service/crawler"
	"knowledge-agent-backend/service/ingestion"
	knowledgebase "knowledge-agent-backend/service/knowledge-base"
	"knowledge-agent-backend/service/knowledge-base/etl"
	"knowledge-agent-backend/service/mq"
	"knowledge-agent-backend/service/syncprovider"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := dao.Init(); err != nil {
		slog.Error("Failed to init database", "err", err)
		return
	}

	chunkStore, err := knowledgebase.NewChunkStore(ctx)
	if err != nil {
		slog.Error("Failed to create chunk store", "err", err)
		return
	}

	repo := dao.NewKnowledgeRepository(dao.DB)
	providers := syncprovider.Registry()

	processor := ingestion.NewKnowledgeProcessor(ingestion.ProcessorConfig{
		Repository: repo,
		Storage:    knowledgebase.NewStorage(),
		Crawler:    crawler.New(),
		Parser:     etl.NewParser(),
		ChunkStore: chunkStore,
		Providers:  providers,
	})

	mq.RegisterHandler(mq.TopicKnowledge, mq.TagIngest, ingestHandler(processor))
	mq.RegisterHandler(mq.TopicKnowledge, mq.TagDelete, deleteHandler(chunkStore))

	if err := mq.RunProducer(); err != nil {
		slog.Error("Failed to start mq producer", "err", err)
		return
	}
	if err := mq.RunConsumer(); err != nil {
		slog.Error("Failed to start mq consumer", "err", err)
		return
	}
	defer mq.Shutdown()

	reconciler := ingestion.NewReconciler(repo, providers, requeueIngest)
	runReconcileLoop(ctx, reconciler)
}

// ingestHandler 消费摄取任务，驱动摄取流水线
func ingestHandler(processor *ingestion.KnowledgeProcessor) mq.MessageHandler {
	return func(ctx context.Context, msg *primitive.MessageExt) error {
		var m mq.IngestMessage
		if err := json.Unmarshal(msg.Body, &m); err != nil {
			return fmt.Errorf("failed to unmarshal message body: %v", err)
		}

		id, err := uuid.Parse(m.KnowledgeID)
		if err != nil {
			return fmt.Errorf("invalid knowledge id %s: %v", m.KnowledgeID, err)
		}

		if err := processor.ProcessKnowledge(ctx, id); err != nil {
			// 知识已删除或来源未知时重试无意义
			if errors.Is(err, ingestion.ErrKnowledgeNotFound) || errors.Is(err, ingestion.ErrUnknownSource) {
				slog.Warn("dropping unprocessable ingest task",
					"knowledge_id", m.KnowledgeID,
					"err", err)
				return nil
			}
			return err
		}
		return nil
	}
}

// deleteHandler 消费清理任务，删除向量分片和OSS对象
func deleteHandler(chunkStore *knowledgebase.ChunkStore) mq.MessageHandler {
	return func(ctx context.Context, msg *primitive.MessageExt) error {
		var m mq.DeleteMessage
		if err := json.Unmarshal(msg.Body, &m); err != nil {
			return fmt.Errorf("failed to unmarshal message body: %v", err)
		}

		var errs []error
		for _, rawID := range m.KnowledgeIDs {
			id, err := uuid.Parse(rawID)
			if err != nil {
				slog.Warn("skipping invalid knowledge id in cleanup task", "knowledge_id", rawID)
				continue
			}
			if err := chunkStore.DeleteChunks(ctx, id); err != nil {
				errs = append(errs, err)
			}
		}

		for _, objectName := range m.ObjectNames {
			if err := knowledgebase.DeleteObject(ctx, objectName); err != nil {
				errs = append(errs, err)
			}
		}

		return errors.Join(errs...)
	}
}

func requeueIngest(ctx context.Context, knowledgeID uuid.UUID) error {
	return mq.SendMessage(ctx, &mq.Message{
		Topic: mq.TopicKnowledge,
		Tag:   mq.TagIngest,
		Payload: mq.IngestMessage{
			KnowledgeID: knowledgeID.String(),
		},
	})
}

// runReconcileLoop 周期性扫描过期的同步知识，直到进程收到退出信号
func runReconcileLoop(ctx context.Context, reconciler *ingestion.Reconciler) {
	staleness := time.Duration(config.Cfg.Worker.OutdatedSyncHours) * time.Hour
	batchSize := config.Cfg.Worker.OutdatedSyncBatchSize
	interval := time.Duration(config.Cfg.Worker.ScanIntervalMinutes) * time.Minute

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := reconciler.UpdateOutdatedSyncFiles(ctx, staleness, batchSize); err != nil {
			slog.Error("Outdated sync scan finished with errors", "err", err)
		}

		select {
		case <-ctx.Done():
			slog.Info("Worker shutting down")
			return
		case <-ticker.C:
		}
	}
}
