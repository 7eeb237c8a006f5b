package dao

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"knowledge-agent-backend/model"
	"knowledge-agent-backend/service/ingestion"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Brain{}, &model.Knowledge{}, &model.Sync{}))
	return db
}

func newTestBrain(t *testing.T, db *gorm.DB, name string) uuid.UUID {
	t.Helper()

	brain := &model.Brain{
		ID:        uuid.New(),
		UserEmail: "user@example.com",
		Name:      name,
	}
	require.NoError(t, db.Create(brain).Error)
	return brain.ID
}

func localKnowledge(name, sha1 string) *model.Knowledge {
	return &model.Knowledge{
		ID:        uuid.New(),
		UserEmail: "user@example.com",
		FileName:  name,
		Extension: ".txt",
		Status:    model.StatusPending,
		Source:    model.SourceLocal,
		FileSHA1:  sha1,
	}
}

func countRows(t *testing.T, db *gorm.DB, table string) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.Table(table).Count(&n).Error)
	return n
}

// 同一Brain内不允许出现相同内容指纹的两条知识，不同Brain互不影响
func TestCreateKnowledgeRejectsDuplicateContentInBrain(t *testing.T) {
	db := newTestDB(t)
	repo := NewKnowledgeRepository(db)
	ctx := context.Background()

	brainA := newTestBrain(t, db, "brain-a")
	brainB := newTestBrain(t, db, "brain-b")

	require.NoError(t, repo.CreateKnowledge(ctx, localKnowledge("a.txt", "aaa111"), []uuid.UUID{brainA}))

	err := repo.CreateKnowledge(ctx, localKnowledge("copy-of-a.txt", "aaa111"), []uuid.UUID{brainA})
	require.ErrorIs(t, err, ingestion.ErrDuplicateContent)

	// 事务回滚，重复行和Brain链接都不落库
	assert.EqualValues(t, 1, countRows(t, db, "knowledge"))
	assert.EqualValues(t, 1, countRows(t, db, "knowledge_brain"))

	// 指纹唯一性按Brain划定范围
	require.NoError(t, repo.CreateKnowledge(ctx, localKnowledge("a-again.txt", "aaa111"), []uuid.UUID{brainB}))
}

func TestLinkKnowledgeToBrainRejectsDuplicateContent(t *testing.T) {
	db := newTestDB(t)
	repo := NewKnowledgeRepository(db)
	ctx := context.Background()

	brainA := newTestBrain(t, db, "brain-a")
	brainB := newTestBrain(t, db, "brain-b")

	require.NoError(t, repo.CreateKnowledge(ctx, localKnowledge("a.txt", "aaa111"), []uuid.UUID{brainA}))

	other := localKnowledge("b.txt", "aaa111")
	require.NoError(t, repo.CreateKnowledge(ctx, other, []uuid.UUID{brainB}))

	// 目标Brain已有相同指纹的知识
	err := repo.LinkKnowledgeToBrain(ctx, other.ID, brainA)
	require.ErrorIs(t, err, ingestion.ErrDuplicateContent)

	err = repo.LinkKnowledgeToBrain(ctx, uuid.New(), brainA)
	require.ErrorIs(t, err, ingestion.ErrKnowledgeNotFound)

	unique := localKnowledge("c.txt", "ccc333")
	require.NoError(t, repo.CreateKnowledge(ctx, unique, []uuid.UUID{brainB}))
	require.NoError(t, repo.LinkKnowledgeToBrain(ctx, unique.ID, brainA))

	linked, err := repo.GetKnowledge(ctx, unique.ID)
	require.NoError(t, err)
	assert.Len(t, linked.Brains, 2)
}

func TestDeleteKnowledgeCascadeRemovesDescendants(t *testing.T) {
	db := newTestDB(t)
	repo := NewKnowledgeRepository(db)
	ctx := context.Background()

	brainID := newTestBrain(t, db, "brain-a")

	root := localKnowledge("docs", "")
	root.IsFolder = true
	root.Extension = ""
	require.NoError(t, repo.CreateKnowledge(ctx, root, []uuid.UUID{brainID}))

	child := localKnowledge("reports", "")
	child.IsFolder = true
	child.Extension = ""
	child.ParentID = &root.ID
	require.NoError(t, repo.CreateKnowledge(ctx, child, []uuid.UUID{brainID}))

	leaf := localKnowledge("q3.txt", "bbb222")
	leaf.ParentID = &child.ID
	require.NoError(t, repo.CreateKnowledge(ctx, leaf, []uuid.UUID{brainID}))

	unrelated := localKnowledge("keep.txt", "ddd444")
	require.NoError(t, repo.CreateKnowledge(ctx, unrelated, []uuid.UUID{brainID}))

	deleted, err := repo.DeleteKnowledgeCascade(ctx, root.ID)
	require.NoError(t, err)

	// 整个文件夹层级被收集返回，供调用方清理向量和对象存储
	deletedIDs := make([]uuid.UUID, 0, len(deleted))
	for _, k := range deleted {
		deletedIDs = append(deletedIDs, k.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{root.ID, child.ID, leaf.ID}, deletedIDs)

	// 无关知识及其Brain链接保留
	assert.EqualValues(t, 1, countRows(t, db, "knowledge"))
	assert.EqualValues(t, 1, countRows(t, db, "knowledge_brain"))

	_, err = repo.GetKnowledge(ctx, leaf.ID)
	require.ErrorIs(t, err, ingestion.ErrKnowledgeNotFound)
	_, err = repo.GetKnowledge(ctx, unrelated.ID)
	require.NoError(t, err)

	_, err = repo.DeleteKnowledgeCascade(ctx, root.ID)
	require.ErrorIs(t, err, ingestion.ErrKnowledgeNotFound)
}
