package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-agent-backend/model"
)

const helloSHA1 = "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"

type testEnv struct {
	repo      *fakeRepo
	storage   *fakeStorage
	crawler   *fakeCrawler
	parser    *fakeParser
	chunks    *fakeChunkStore
	provider  *fakeProvider
	processor *KnowledgeProcessor
}

func newTestEnv() *testEnv {
	env := &testEnv{
		repo:     newFakeRepo(),
		storage:  &fakeStorage{files: make(map[uuid.UUID][]byte)},
		crawler:  &fakeCrawler{},
		parser:   &fakeParser{failFor: make(map[string]bool)},
		chunks:   newFakeChunkStore(),
		provider: newFakeProvider(),
	}
	env.processor = NewKnowledgeProcessor(ProcessorConfig{
		Repository: env.repo,
		Storage:    env.storage,
		Crawler:    env.crawler,
		Parser:     env.parser,
		ChunkStore: env.chunks,
		Providers: map[model.Source]SyncProvider{
			model.SourceGDrive: env.provider,
		},
	})
	return env
}

func (env *testEnv) bySyncFileID(fileID string) *model.Knowledge {
	for _, k := range env.repo.knowledge {
		if k.SyncFileID != nil && *k.SyncFileID == fileID {
			return k
		}
	}
	return nil
}

func TestProcessKnowledgeLocal(t *testing.T) {
	env := newTestEnv()
	k1 := &model.Knowledge{
		ID:        uuid.New(),
		UserEmail: "user@example.com",
		FileName:  "a.txt",
		Extension: ".txt",
		Source:    model.SourceLocal,
		Status:    model.StatusPending,
	}
	env.repo.addKnowledge(k1)
	env.storage.files[k1.ID] = []byte("hello")

	require.NoError(t, env.processor.ProcessKnowledge(context.Background(), k1.ID))

	stored := env.repo.knowledge[k1.ID]
	assert.Equal(t, model.StatusProcessed, stored.Status)
	assert.Equal(t, helloSHA1, stored.FileSHA1)
	assert.Equal(t, int64(5), stored.FileSize)
	assert.Len(t, env.chunks.stored[k1.ID], 1)
}

func TestProcessKnowledgeIdempotent(t *testing.T) {
	env := newTestEnv()
	k1 := &model.Knowledge{
		ID:       uuid.New(),
		FileName: "a.txt",
		Source:   model.SourceLocal,
		Status:   model.StatusPending,
	}
	env.repo.addKnowledge(k1)
	env.storage.files[k1.ID] = []byte("hello")

	require.NoError(t, env.processor.ProcessKnowledge(context.Background(), k1.ID))
	require.NoError(t, env.processor.ProcessKnowledge(context.Background(), k1.ID))

	// 第二次调用命中跳过检查，不再解析入库
	assert.Equal(t, 1, env.parser.calls)
	assert.Equal(t, 1, env.chunks.calls)
	assert.Equal(t, model.StatusProcessed, env.repo.status(k1.ID))
	assert.Equal(t, helloSHA1, env.repo.knowledge[k1.ID].FileSHA1)
}

func TestProcessKnowledgeReingestsChangedContent(t *testing.T) {
	env := newTestEnv()
	k1 := &model.Knowledge{
		ID:       uuid.New(),
		FileName: "a.txt",
		Source:   model.SourceLocal,
		Status:   model.StatusPending,
	}
	env.repo.addKnowledge(k1)
	env.storage.files[k1.ID] = []byte("hello")
	require.NoError(t, env.processor.ProcessKnowledge(context.Background(), k1.ID))

	env.storage.files[k1.ID] = []byte("hello v2")
	require.NoError(t, env.processor.ProcessKnowledge(context.Background(), k1.ID))

	assert.Equal(t, 2, env.parser.calls)
	assert.Equal(t, model.StatusProcessed, env.repo.status(k1.ID))
	assert.Equal(t, ComputeSHA1([]byte("hello v2")), env.repo.knowledge[k1.ID].FileSHA1)
}

func TestProcessKnowledgeWebCrawlError(t *testing.T) {
	env := newTestEnv()
	env.crawler.err = errors.New("connection refused")

	k2 := &model.Knowledge{
		ID:     uuid.New(),
		URL:    "http://x",
		Source: model.SourceWeb,
		Status: model.StatusPending,
	}
	env.repo.addKnowledge(k2)

	err := env.processor.ProcessKnowledge(context.Background(), k2.ID)
	require.Error(t, err)

	assert.Equal(t, model.StatusError, env.repo.status(k2.ID))
	assert.Empty(t, env.chunks.stored)
}

func TestProcessKnowledgeWeb(t *testing.T) {
	env := newTestEnv()
	env.crawler.content = "hello"

	k := &model.Knowledge{
		ID:       uuid.New(),
		FileName: "x",
		URL:      "http://x",
		Source:   model.SourceWeb,
		Status:   model.StatusPending,
	}
	env.repo.addKnowledge(k)

	require.NoError(t, env.processor.ProcessKnowledge(context.Background(), k.ID))

	stored := env.repo.knowledge[k.ID]
	assert.Equal(t, model.StatusProcessed, stored.Status)
	assert.Equal(t, helloSHA1, stored.FileSHA1)
	assert.Equal(t, int64(5), stored.FileSize)
}

func TestProcessKnowledgeUnknownSource(t *testing.T) {
	env := newTestEnv()
	k := &model.Knowledge{
		ID:       uuid.New(),
		FileName: "a.txt",
		Source:   model.Source("notion"),
		Status:   model.StatusPending,
	}
	env.repo.addKnowledge(k)

	err := env.processor.ProcessKnowledge(context.Background(), k.ID)
	require.ErrorIs(t, err, ErrUnknownSource)

	// 未知来源在任何状态变更前中止
	assert.Equal(t, model.StatusPending, env.repo.status(k.ID))
}

func TestProcessKnowledgeLocalFolder(t *testing.T) {
	env := newTestEnv()
	k := &model.Knowledge{
		ID:       uuid.New(),
		FileName: "docs",
		Source:   model.SourceLocal,
		Status:   model.StatusPending,
		IsFolder: true,
	}
	env.repo.addKnowledge(k)

	require.NoError(t, env.processor.ProcessKnowledge(context.Background(), k.ID))

	// 文件夹只有结构意义，不经过解析
	assert.Equal(t, model.StatusProcessed, env.repo.status(k.ID))
	assert.Empty(t, env.repo.knowledge[k.ID].FileSHA1)
	assert.Zero(t, env.parser.calls)
}

func TestProcessKnowledgeSyncMissingFileID(t *testing.T) {
	env := newTestEnv()
	syncID := uint(1)
	k := &model.Knowledge{
		ID:         uuid.New(),
		FileName:   "a.txt",
		Source:     model.SourceGDrive,
		Status:     model.StatusPending,
		SyncID:     &syncID,
		SourceLink: "https://drive.example/a",
	}
	env.repo.addKnowledge(k)

	err := env.processor.ProcessKnowledge(context.Background(), k.ID)
	require.ErrorIs(t, err, ErrUnprocessableKnowledge)

	// 缺少同步来源信息的知识从未进入PROCESSING
	assert.Equal(t, model.StatusError, env.repo.status(k.ID))
	assert.Zero(t, env.parser.calls)
	assert.Zero(t, env.chunks.calls)
}

func TestProcessKnowledgeSyncMissingCredentials(t *testing.T) {
	env := newTestEnv()
	env.repo.addSync(&model.Sync{ID: 1, Provider: model.SourceGDrive})

	syncID := uint(1)
	fileID := "remote-1"
	k := &model.Knowledge{
		ID:         uuid.New(),
		FileName:   "a.txt",
		Source:     model.SourceGDrive,
		Status:     model.StatusPending,
		SyncID:     &syncID,
		SyncFileID: &fileID,
		SourceLink: "https://drive.example/a",
	}
	env.repo.addKnowledge(k)

	err := env.processor.ProcessKnowledge(context.Background(), k.ID)
	require.ErrorIs(t, err, ErrMissingCredentials)
	assert.Equal(t, model.StatusError, env.repo.status(k.ID))
}

func TestProcessKnowledgeSyncFolderSiblingIsolation(t *testing.T) {
	env := newTestEnv()
	env.repo.addSync(&model.Sync{
		ID:          1,
		Provider:    model.SourceGDrive,
		Credentials: []byte(`{"token":"t"}`),
	})

	brainID := uuid.New()
	syncID := uint(1)
	folderID := "folder-1"
	parent := &model.Knowledge{
		ID:         uuid.New(),
		UserEmail:  "user@example.com",
		FileName:   "docs",
		Source:     model.SourceGDrive,
		SourceLink: "https://drive.example/folder-1",
		Status:     model.StatusPending,
		IsFolder:   true,
		SyncID:     &syncID,
		SyncFileID: &folderID,
		Brains:     []model.Brain{{ID: brainID}},
	}
	env.repo.addKnowledge(parent, brainID)

	env.provider.children[folderID] = []model.SyncFile{
		{ID: "f-a", Name: "a.txt", Extension: ".txt"},
		{ID: "f-bad", Name: "bad.txt", Extension: ".txt"},
		{ID: "f-c", Name: "c.txt", Extension: ".txt"},
	}
	env.provider.contents["f-a"] = []byte("content a")
	env.provider.contents["f-bad"] = []byte("content bad")
	env.provider.contents["f-c"] = []byte("content c")
	env.parser.failFor["bad.txt"] = true

	require.NoError(t, env.processor.ProcessKnowledge(context.Background(), parent.ID))

	// 一个子知识解析失败不影响其余兄弟知识
	assert.Equal(t, model.StatusProcessed, env.repo.status(parent.ID))
	assert.Equal(t, model.StatusProcessed, env.bySyncFileID("f-a").Status)
	assert.Equal(t, model.StatusError, env.bySyncFileID("f-bad").Status)
	assert.Equal(t, model.StatusProcessed, env.bySyncFileID("f-c").Status)

	assert.Len(t, env.chunks.stored[env.bySyncFileID("f-a").ID], 1)
	assert.Empty(t, env.chunks.stored[env.bySyncFileID("f-bad").ID])
	assert.Len(t, env.chunks.stored[env.bySyncFileID("f-c").ID], 1)
}

func TestProcessKnowledgeSyncFolderSkipsProcessedChildren(t *testing.T) {
	env := newTestEnv()
	env.repo.addSync(&model.Sync{
		ID:          1,
		Provider:    model.SourceGDrive,
		Credentials: []byte(`{"token":"t"}`),
	})

	syncID := uint(1)
	folderID := "folder-1"
	parent := &model.Knowledge{
		ID:         uuid.New(),
		UserEmail:  "user@example.com",
		FileName:   "docs",
		Source:     model.SourceGDrive,
		SourceLink: "https://drive.example/folder-1",
		Status:     model.StatusPending,
		IsFolder:   true,
		SyncID:     &syncID,
		SyncFileID: &folderID,
	}
	env.repo.addKnowledge(parent)

	doneID := "f-done"
	done := &model.Knowledge{
		ID:         uuid.New(),
		UserEmail:  parent.UserEmail,
		FileName:   "done.txt",
		Source:     model.SourceGDrive,
		SourceLink: "https://drive.example/f-done",
		Status:     model.StatusProcessed,
		FileSHA1:   helloSHA1,
		SyncID:     &syncID,
		SyncFileID: &doneID,
		ParentID:   &parent.ID,
	}
	env.repo.addKnowledge(done)

	env.provider.children[folderID] = []model.SyncFile{
		{ID: "f-done", Name: "done.txt", Extension: ".txt"},
		{ID: "f-new", Name: "new.txt", Extension: ".txt"},
	}
	env.provider.contents["f-new"] = []byte("new content")

	require.NoError(t, env.processor.ProcessKnowledge(context.Background(), parent.ID))

	// 目录重复摄取是增量的：已处理的子知识不再解析
	assert.Equal(t, 1, env.parser.calls)
	assert.Equal(t, model.StatusProcessed, env.bySyncFileID("f-new").Status)
	assert.Equal(t, model.StatusProcessed, env.repo.status(done.ID))
}

func TestCreateKnowledgeDuplicateContentInBrain(t *testing.T) {
	repo := newFakeRepo()
	brainID := uuid.New()

	first := &model.Knowledge{ID: uuid.New(), FileName: "a.txt", FileSHA1: helloSHA1}
	require.NoError(t, repo.CreateKnowledge(context.Background(), first, []uuid.UUID{brainID}))

	// 同一Brain内相同内容指纹的第二条插入被拒绝
	second := &model.Knowledge{ID: uuid.New(), FileName: "b.txt", FileSHA1: helloSHA1}
	err := repo.CreateKnowledge(context.Background(), second, []uuid.UUID{brainID})
	require.ErrorIs(t, err, ErrDuplicateContent)

	// 另一个Brain不受影响
	other := &model.Knowledge{ID: uuid.New(), FileName: "c.txt", FileSHA1: helloSHA1}
	assert.NoError(t, repo.CreateKnowledge(context.Background(), other, []uuid.UUID{uuid.New()}))
}

func TestProcessKnowledgeSyncBoundSetsLastSynced(t *testing.T) {
	env := newTestEnv()
	env.repo.addSync(&model.Sync{
		ID:          1,
		Provider:    model.SourceGDrive,
		Credentials: []byte(`{"token":"t"}`),
	})

	syncID := uint(1)
	fileID := "remote-1"
	k := &model.Knowledge{
		ID:         uuid.New(),
		FileName:   "a.txt",
		Source:     model.SourceGDrive,
		SourceLink: "https://drive.example/a",
		Status:     model.StatusPending,
		SyncID:     &syncID,
		SyncFileID: &fileID,
	}
	env.repo.addKnowledge(k)
	env.provider.contents[fileID] = []byte("hello")

	before := time.Now().UTC()
	require.NoError(t, env.processor.ProcessKnowledge(context.Background(), k.ID))

	stored := env.repo.knowledge[k.ID]
	assert.Equal(t, model.StatusProcessed, stored.Status)
	require.NotNil(t, stored.LastSyncedAt)
	assert.False(t, stored.LastSyncedAt.Before(before))
}
