package ingestion

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"knowledge-agent-backend/model"
)

// LocalFetcher 处理用户上传的本地文件，原始字节从对象存储下载
type LocalFetcher struct {
	storage Storage
}

func NewLocalFetcher(storage Storage) *LocalFetcher {
	return &LocalFetcher{storage: storage}
}

var _ SourceFetcher = &LocalFetcher{}

func (f *LocalFetcher) Fetch(ctx context.Context, k *model.Knowledge, emit EmitFunc) error {
	if k.ID == uuid.Nil || k.FileName == "" {
		return fmt.Errorf("%w: local knowledge %s has no id or file name", ErrUnprocessableKnowledge, k.ID)
	}

	if k.IsFolder {
		return emit(ctx, k, NewFolderPlaceholder(k))
	}

	data, err := f.storage.DownloadFile(ctx, k)
	if err != nil {
		return fmt.Errorf("failed to download knowledge %s: %w", k.ID, err)
	}

	file, err := NewIngestFile(k, data)
	if err != nil {
		return err
	}
	return emit(ctx, k, file)
}
