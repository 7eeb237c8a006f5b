package ingestion

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"knowledge-agent-backend/model"
)

// SyncFetcher 处理外部同步服务商的知识：先送出父知识自身的内容，
// 再展开目录，把远端子文件对账成知识记录后逐个送出。
// 已经PROCESSED的子知识被跳过，目录的重复摄取因此是增量的。
type SyncFetcher struct {
	repo      Repository
	providers map[model.Source]SyncProvider
	mapper    *SyncFileMapper
}

func NewSyncFetcher(repo Repository, providers map[model.Source]SyncProvider) *SyncFetcher {
	return &SyncFetcher{
		repo:      repo,
		providers: providers,
		mapper:    NewSyncFileMapper(repo),
	}
}

var _ SourceFetcher = &SyncFetcher{}

func (f *SyncFetcher) Fetch(ctx context.Context, parent *model.Knowledge, emit EmitFunc) error {
	if parent.ID == uuid.Nil || parent.FileName == "" || !parent.IsSyncBound() {
		return fmt.Errorf("%w: sync knowledge %s is missing sync provenance", ErrUnprocessableKnowledge, parent.ID)
	}

	sync, err := f.repo.GetSync(ctx, *parent.SyncID)
	if err != nil {
		return fmt.Errorf("failed to resolve sync %d for knowledge %s: %w", *parent.SyncID, parent.ID, err)
	}
	if len(sync.Credentials) == 0 {
		return fmt.Errorf("%w: sync %d", ErrMissingCredentials, sync.ID)
	}

	provider, ok := f.providers[sync.Provider]
	if !ok {
		return fmt.Errorf("%w: sync provider %s", ErrUnknownSource, sync.Provider)
	}

	// 父知识自身的内容先行送出，子知识依赖它的Brain和parent_id链接
	updatedAt := parent.UpdatedAt
	parentFile := model.SyncFile{
		ID:             *parent.SyncFileID,
		Name:           parent.FileName,
		Extension:      parent.Extension,
		IsFolder:       parent.IsFolder,
		WebViewLink:    parent.SourceLink,
		LastModifiedAt: &updatedAt,
	}
	if err := f.emitOne(ctx, provider, sync, parent, &parentFile, emit); err != nil {
		return err
	}

	if !parent.IsFolder {
		return nil
	}

	known, err := f.repo.MapSyncKnowledge(ctx, sync.ID, parent.UserEmail)
	if err != nil {
		return fmt.Errorf("failed to map sync knowledge for sync %d: %w", sync.ID, err)
	}

	remote, err := provider.ListChildren(ctx, sync.Credentials, *parent.SyncFileID)
	if err != nil {
		return fmt.Errorf("failed to list remote folder %s: %w", *parent.SyncFileID, err)
	}

	for i := range remote {
		child, err := f.mapper.Reconcile(ctx, known, &remote[i], parent)
		if err != nil {
			return err
		}
		if child.Status == model.StatusProcessed {
			continue
		}
		if err := f.emitOne(ctx, provider, sync, child, &remote[i], emit); err != nil {
			return err
		}
	}
	return nil
}

func (f *SyncFetcher) emitOne(ctx context.Context, provider SyncProvider, sync *model.Sync, k *model.Knowledge, remote *model.SyncFile, emit EmitFunc) error {
	if remote.IsFolder {
		return emit(ctx, k, NewFolderPlaceholder(k))
	}

	data, err := provider.Download(ctx, sync.Credentials, remote)
	if err != nil {
		return fmt.Errorf("failed to download remote file %s for knowledge %s: %w", remote.ID, k.ID, err)
	}

	file, err := NewIngestFile(k, data)
	if err != nil {
		return err
	}
	return emit(ctx, k, file)
}
