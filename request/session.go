package request

type CreateSessionRequest struct {
	// 会话绑定的Brain，Agent在其知识范围内检索
	BrainID string `json:"brain_id" binding:"required,uuid"`
}

type UpdateSessionTitleRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Title     string `json:"title" binding:"required"`
}
