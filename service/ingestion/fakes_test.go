package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/schema"

	"knowledge-agent-backend/model"
)

// fakeRepo 内存版Repository，拷贝存取保证与调用方指针隔离，
// Transaction通过快照/恢复模拟嵌套事务的回滚语义
type fakeRepo struct {
	knowledge  map[uuid.UUID]*model.Knowledge
	syncs      map[uint]*model.Sync
	brainLinks map[uuid.UUID][]uuid.UUID

	getSyncCalls int
	failUpdate   map[uuid.UUID]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		knowledge:  make(map[uuid.UUID]*model.Knowledge),
		syncs:      make(map[uint]*model.Sync),
		brainLinks: make(map[uuid.UUID][]uuid.UUID),
		failUpdate: make(map[uuid.UUID]bool),
	}
}

func (r *fakeRepo) addKnowledge(k *model.Knowledge, brainIDs ...uuid.UUID) {
	c := *k
	r.knowledge[k.ID] = &c
	r.brainLinks[k.ID] = append([]uuid.UUID{}, brainIDs...)
}

func (r *fakeRepo) addSync(s *model.Sync) {
	c := *s
	r.syncs[s.ID] = &c
}

func (r *fakeRepo) status(id uuid.UUID) model.Status {
	return r.knowledge[id].Status
}

func (r *fakeRepo) GetKnowledge(ctx context.Context, id uuid.UUID) (*model.Knowledge, error) {
	stored, ok := r.knowledge[id]
	if !ok {
		return nil, ErrKnowledgeNotFound
	}
	c := *stored
	return &c, nil
}

func applyUpdate(k *model.Knowledge, update KnowledgeUpdate) {
	if update.Status != nil {
		k.Status = *update.Status
	}
	if update.FileSHA1 != nil {
		k.FileSHA1 = *update.FileSHA1
	}
	if update.FileSize != nil {
		k.FileSize = *update.FileSize
	}
	if update.LastSyncedAt != nil {
		k.LastSyncedAt = update.LastSyncedAt
	}
	k.UpdatedAt = time.Now().UTC()
}

func (r *fakeRepo) UpdateKnowledge(ctx context.Context, k *model.Knowledge, update KnowledgeUpdate) error {
	if r.failUpdate[k.ID] {
		return fmt.Errorf("simulated update failure for %s", k.ID)
	}
	stored, ok := r.knowledge[k.ID]
	if !ok {
		return ErrKnowledgeNotFound
	}
	applyUpdate(stored, update)
	applyUpdate(k, update)
	return nil
}

func (r *fakeRepo) CreateKnowledge(ctx context.Context, k *model.Knowledge, brainIDs []uuid.UUID) error {
	// 同一Brain内拒绝重复的内容指纹
	if k.FileSHA1 != "" {
		for _, brainID := range brainIDs {
			for otherID, otherBrains := range r.brainLinks {
				other := r.knowledge[otherID]
				if other == nil || other.FileSHA1 != k.FileSHA1 {
					continue
				}
				for _, b := range otherBrains {
					if b == brainID {
						return fmt.Errorf("%w: sha1 %s in brain %s", ErrDuplicateContent, k.FileSHA1, brainID)
					}
				}
			}
		}
	}

	c := *k
	r.knowledge[k.ID] = &c
	r.brainLinks[k.ID] = append([]uuid.UUID{}, brainIDs...)
	return nil
}

func (r *fakeRepo) MapSyncKnowledge(ctx context.Context, syncID uint, userEmail string) (map[string]*model.Knowledge, error) {
	known := make(map[string]*model.Knowledge)
	for _, k := range r.knowledge {
		if k.SyncID != nil && *k.SyncID == syncID && k.UserEmail == userEmail && k.SyncFileID != nil {
			c := *k
			known[*k.SyncFileID] = &c
		}
	}
	return known, nil
}

func (r *fakeRepo) GetOutdatedSyncKnowledge(ctx context.Context, before time.Time, batchSize int, syncType model.SyncType) ([]*model.Knowledge, error) {
	var outdated []*model.Knowledge
	for _, k := range r.knowledge {
		if k.SyncID == nil || k.IsFolder {
			continue
		}
		if k.LastSyncedAt != nil && k.LastSyncedAt.Before(before) {
			c := *k
			outdated = append(outdated, &c)
			if len(outdated) >= batchSize {
				break
			}
		}
	}
	return outdated, nil
}

func (r *fakeRepo) GetSync(ctx context.Context, id uint) (*model.Sync, error) {
	r.getSyncCalls++
	stored, ok := r.syncs[id]
	if !ok {
		return nil, fmt.Errorf("sync %d not found", id)
	}
	c := *stored
	return &c, nil
}

func (r *fakeRepo) Transaction(ctx context.Context, fn func(Repository) error) error {
	knowledgeSnapshot := make(map[uuid.UUID]model.Knowledge, len(r.knowledge))
	for id, k := range r.knowledge {
		knowledgeSnapshot[id] = *k
	}
	linksSnapshot := make(map[uuid.UUID][]uuid.UUID, len(r.brainLinks))
	for id, brains := range r.brainLinks {
		linksSnapshot[id] = append([]uuid.UUID{}, brains...)
	}

	if err := fn(r); err != nil {
		r.knowledge = make(map[uuid.UUID]*model.Knowledge, len(knowledgeSnapshot))
		for id := range knowledgeSnapshot {
			c := knowledgeSnapshot[id]
			r.knowledge[id] = &c
		}
		r.brainLinks = linksSnapshot
		return err
	}
	return nil
}

var _ Repository = &fakeRepo{}

type fakeStorage struct {
	files map[uuid.UUID][]byte
	err   error
}

func (s *fakeStorage) DownloadFile(ctx context.Context, k *model.Knowledge) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	data, ok := s.files[k.ID]
	if !ok {
		return nil, fmt.Errorf("no object stored for knowledge %s", k.ID)
	}
	return data, nil
}

type fakeCrawler struct {
	content string
	err     error
}

func (c *fakeCrawler) ExtractFromURL(ctx context.Context, url string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return c.content, nil
}

type fakeParser struct {
	calls int

	// 按原始文件名触发解析失败
	failFor map[string]bool
}

func (p *fakeParser) Parse(ctx context.Context, f *IngestFile) ([]schema.Document, error) {
	p.calls++
	if p.failFor[f.OriginalFileName] {
		return nil, fmt.Errorf("simulated parse failure for %s", f.OriginalFileName)
	}
	return []schema.Document{{PageContent: "chunk of " + f.OriginalFileName}}, nil
}

type fakeChunkStore struct {
	calls  int
	stored map[uuid.UUID][]schema.Document
	err    error
}

func newFakeChunkStore() *fakeChunkStore {
	return &fakeChunkStore{stored: make(map[uuid.UUID][]schema.Document)}
}

func (s *fakeChunkStore) StoreChunks(ctx context.Context, k *model.Knowledge, chunks []schema.Document) error {
	if s.err != nil {
		return s.err
	}
	s.calls++
	s.stored[k.ID] = chunks
	return nil
}

type fakeProvider struct {
	filesByID map[string]model.SyncFile
	children  map[string][]model.SyncFile
	contents  map[string][]byte
	notFound  map[string]bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		filesByID: make(map[string]model.SyncFile),
		children:  make(map[string][]model.SyncFile),
		contents:  make(map[string][]byte),
		notFound:  make(map[string]bool),
	}
}

func (p *fakeProvider) GetFilesByID(ctx context.Context, credentials json.RawMessage, fileIDs []string) ([]model.SyncFile, error) {
	var files []model.SyncFile
	for _, id := range fileIDs {
		if p.notFound[id] {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, id)
		}
		f, ok := p.filesByID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, id)
		}
		files = append(files, f)
	}
	return files, nil
}

func (p *fakeProvider) ListChildren(ctx context.Context, credentials json.RawMessage, folderID string) ([]model.SyncFile, error) {
	return p.children[folderID], nil
}

func (p *fakeProvider) Download(ctx context.Context, credentials json.RawMessage, file *model.SyncFile) ([]byte, error) {
	data, ok := p.contents[file.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, file.ID)
	}
	return data, nil
}

var _ SyncProvider = &fakeProvider{}
