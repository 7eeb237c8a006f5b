package request

type AgentConfig struct {
	Model         string   `json:"model" binding:"required"`
	MaxIterations int      `json:"max_iterations"`
	Tools         []string `json:"tools"`
}

type ChatRequest struct {
	SessionID   string      `json:"session_id" binding:"required"`
	Query       string      `json:"query" binding:"required"`
	AgentConfig AgentConfig `json:"agent_config"`
}
