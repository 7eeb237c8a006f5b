package ingestion

import "errors"

var (
	// 知识缺少其来源所需的识别字段，不重试
	ErrUnprocessableKnowledge = errors.New("knowledge is missing required fields for its source")

	// 不支持的知识来源，处理在任何状态变更前中止
	ErrUnknownSource = errors.New("unknown knowledge source")

	// 同步连接没有存储凭证，跳过该连接下的所有知识
	ErrMissingCredentials = errors.New("sync has no stored credentials")

	// 状态机契约被违反，属于调用方编程错误
	ErrInvalidTransition = errors.New("invalid knowledge status transition")

	// 远端文件已在服务商侧被删除
	ErrFileNotFound = errors.New("remote file not found")

	// 同一Brain内已存在相同内容指纹的知识
	ErrDuplicateContent = errors.New("brain already contains knowledge with the same content hash")

	ErrKnowledgeNotFound = errors.New("knowledge not found")
)
