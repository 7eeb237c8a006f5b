package ingestion

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"knowledge-agent-backend/model"
)

// IngestFile 一次处理过程中的临时文件句柄，不落库。
// 持有方必须在处理结束（无论成败）后调用Close清理临时文件。
type IngestFile struct {
	ID               uuid.UUID
	OriginalFileName string
	Extension        string

	// 抓取内容所在的临时文件路径，文件夹占位时为空
	Path string

	Size int64
	SHA1 string
}

// NewIngestFile 将抓取到的原始内容落到临时文件，并计算内容指纹
func NewIngestFile(k *model.Knowledge, data []byte) (*IngestFile, error) {
	tmp, err := os.CreateTemp("", "ingest-"+k.ID.String()+"-*"+k.Extension)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file for knowledge %s: %v", k.ID, err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to write temp file for knowledge %s: %v", k.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to close temp file for knowledge %s: %v", k.ID, err)
	}

	return &IngestFile{
		ID:               k.ID,
		OriginalFileName: k.FileName,
		Extension:        k.Extension,
		Path:             tmp.Name(),
		Size:             int64(len(data)),
		SHA1:             ComputeSHA1(data),
	}, nil
}

// NewFolderPlaceholder 文件夹知识没有内容，只有结构意义
func NewFolderPlaceholder(k *model.Knowledge) *IngestFile {
	return &IngestFile{
		ID:               k.ID,
		OriginalFileName: k.FileName,
		Extension:        k.Extension,
	}
}

func (f *IngestFile) IsPlaceholder() bool {
	return f.Path == ""
}

// Close 删除临时文件，对文件夹占位是空操作
func (f *IngestFile) Close() error {
	if f.Path == "" {
		return nil
	}
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
