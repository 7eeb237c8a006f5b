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

// RequeueFunc 重新投递一条知识的摄取任务
type RequeueFunc func(ctx context.Context, knowledgeID uuid.UUID) error

// Reconciler 定时扫描过期的同步知识，远端内容变化时重新触发摄取。
// 远端已删除的知识留给单独的墓碑清理，不在这里重新摄取。
type Reconciler struct {
	repo      Repository
	providers map[model.Source]SyncProvider
	requeue   RequeueFunc
}

func NewReconciler(repo Repository, providers map[model.Source]SyncProvider, requeue RequeueFunc) *Reconciler {
	return &Reconciler{
		repo:      repo,
		providers: providers,
		requeue:   requeue,
	}
}

// UpdateOutdatedSyncFiles 扫描 last_synced_at 早于 now-staleness 的FILE型同步知识。
// 每个sync每轮最多取一次记录；凭证缺失只作废该sync的整批，其他sync照常处理，
// 对应的错误在扫描结束后合并返回。
func (r *Reconciler) UpdateOutdatedSyncFiles(ctx context.Context, staleness time.Duration, batchSize int) error {
	before := time.Now().UTC().Add(-staleness)
	outdated, err := r.repo.GetOutdatedSyncKnowledge(ctx, before, batchSize, model.SyncTypeFile)
	if err != nil {
		return fmt.Errorf("failed to query outdated sync knowledge: %w", err)
	}

	syncCache := make(map[uint]*model.Sync)
	badSyncs := make(map[uint]bool)
	var errs []error

	for _, k := range outdated {
		if k.SyncID == nil || k.SyncFileID == nil || k.LastSyncedAt == nil {
			slog.Warn("skipping sync knowledge without full provenance", "knowledge_id", k.ID)
			continue
		}
		if badSyncs[*k.SyncID] {
			continue
		}

		sync, ok := syncCache[*k.SyncID]
		if !ok {
			sync, err = r.repo.GetSync(ctx, *k.SyncID)
			if err != nil {
				slog.Error("failed to resolve sync",
					"sync_id", *k.SyncID,
					"err", err)
				badSyncs[*k.SyncID] = true
				errs = append(errs, err)
				continue
			}
			syncCache[sync.ID] = sync
		}

		if len(sync.Credentials) == 0 {
			slog.Error("sync has no credentials, skipping its batch", "sync_id", sync.ID)
			badSyncs[sync.ID] = true
			errs = append(errs, fmt.Errorf("%w: sync %d", ErrMissingCredentials, sync.ID))
			continue
		}

		provider, ok := r.providers[sync.Provider]
		if !ok {
			slog.Error("no provider registered for sync",
				"sync_id", sync.ID,
				"provider", sync.Provider)
			badSyncs[sync.ID] = true
			errs = append(errs, fmt.Errorf("%w: sync provider %s", ErrUnknownSource, sync.Provider))
			continue
		}

		files, err := provider.GetFilesByID(ctx, sync.Credentials, []string{*k.SyncFileID})
		if err != nil {
			if errors.Is(err, ErrFileNotFound) {
				slog.Info("remote file deleted, leaving knowledge for tombstone cleanup",
					"knowledge_id", k.ID,
					"sync_file_id", *k.SyncFileID)
				continue
			}
			slog.Error("failed to query remote file",
				"knowledge_id", k.ID,
				"sync_file_id", *k.SyncFileID,
				"err", err)
			continue
		}
		if len(files) == 0 {
			continue
		}

		if !RemoteChanged(&files[0], k) {
			continue
		}

		if err := r.restart(ctx, k); err != nil {
			slog.Error("failed to requeue outdated knowledge",
				"knowledge_id", k.ID,
				"err", err)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// restart 把知识拉回PROCESSING并重新投递摄取任务。
// 处理器的内容指纹跳过检查保证原地重新摄取是安全的。
func (r *Reconciler) restart(ctx context.Context, k *model.Knowledge) error {
	state := NewStateMachine(r.repo)
	if err := state.Transition(ctx, k, model.StatusProcessing, KnowledgeUpdate{}); err != nil {
		return err
	}
	return r.requeue(ctx, k.ID)
}
