package chat

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	mcpadapter "github.com/i2y/langchaingo-mcp-adapter"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tmc/langchaingo/agents"
	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/memory"
	"github.com/tmc/langchaingo/tools"

	"knowledge-agent-backend/config"
	"knowledge-agent-backend/dao"
	"knowledge-agent-backend/request"
	knowledgebase "knowledge-agent-backend/service/knowledge-base"
	"knowledge-agent-backend/utils"
)

const (
	methodToolCompleted = "tool_completed"

	defaultMaxIterations = 5
)

var (
	// 配置 300s 超时时间处理 LLM 流式输出
	agentHTTPClient *http.Client = utils.NewHTTPClient(
		utils.WithTimeout(300 * time.Second),
	)

	mcpHTTPClient *http.Client = utils.DefaultHTTPClient()
)

var (
	//go:embed prompts/conversational_format_instructions.txt
	conversationalFormatInstructions string

	//go:embed prompts/conversational_prefix.txt
	conversationalPrefix string

	//go:embed prompts/conversational_suffix.txt
	conversationalSuffix string
)

type Agent struct {
	Executor    *agents.Executor
	MCPClient   *client.Client
	ChatHistory *MySQLChatMessageHistory
	SSEHandler  *GinSSEHandler
	SearchTool  *KnowledgeSearchTool
}

func NewAgent(c *gin.Context, req request.ChatRequest) (*Agent, error) {
	email := c.GetString("email")
	session, err := dao.GetSession(email, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %v", err)
	}

	llm, err := openai.New(
		openai.WithModel(req.AgentConfig.Model),
		openai.WithToken(config.Cfg.Model.APIKey),
		openai.WithBaseURL(config.Cfg.Model.BaseURL),
		openai.WithHTTPClient(agentHTTPClient),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %v", err)
	}

	sseHandler := NewGinSSEHandler(c, req.SessionID)

	var agentTools []tools.Tool

	// 会话绑定了Brain时，挂载知识检索工具
	var searchTool *KnowledgeSearchTool
	if session.BrainID != "" {
		brainID, err := uuid.Parse(session.BrainID)
		if err != nil {
			return nil, fmt.Errorf("invalid brain id %s: %v", session.BrainID, err)
		}

		store, err := knowledgebase.NewChunkStore(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to create chunk store: %v", err)
		}

		searchTool = NewKnowledgeSearchTool(store, brainID)
		agentTools = append(agentTools, searchTool)
	}

	// MCP工具可选，未配置MCP服务端时跳过
	var mcpClient *client.Client
	if config.Cfg.MCP.Host != "" && len(req.AgentConfig.Tools) > 0 {
		mcpClient, err = createMCPClient(c)
		if err != nil {
			return nil, fmt.Errorf("failed to create mcp client: %v", err)
		}

		ctx := context.Background()
		if err := mcpClient.Start(ctx); err != nil {
			return nil, fmt.Errorf("failed to init connection to the mcp server: %v", err)
		}

		mcpTools, err := getMCPTools(mcpClient, req.AgentConfig.Tools)
		if err != nil {
			slog.Error("failed to get mcp tools", "err", err)
		}
		agentTools = append(agentTools, mcpTools...)

		registerMCPClientNotifications(ctx, mcpClient, sseHandler)
	}

	a := agents.NewConversationalAgent(llm, agentTools,
		agents.WithCallbacksHandler(sseHandler),
		agents.WithPromptPrefix(conversationalPrefix),
		agents.WithPromptFormatInstructions(conversationalFormatInstructions),
		agents.WithPromptSuffix(conversationalSuffix),
	)

	chatHistory := NewMySQLChatMessageHistory(req.SessionID)
	memory := memory.NewConversationBuffer(
		memory.WithChatHistory(chatHistory),
	)

	maxIterations := req.AgentConfig.MaxIterations
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}

	executor := agents.NewExecutor(
		a,
		agents.WithMemory(memory),
		agents.WithMaxIterations(maxIterations),
	)

	return &Agent{
		Executor:    executor,
		MCPClient:   mcpClient,
		ChatHistory: chatHistory,
		SSEHandler:  sseHandler,
		SearchTool:  searchTool,
	}, nil
}

func (a *Agent) Call(ctx context.Context, req request.ChatRequest) (string, error) {
	result, err := chains.Run(ctx, a.Executor, req.Query)
	if err != nil {
		return "", err
	}
	return result, nil
}

// SaveAgentSteps 存储思考步骤
func (a *Agent) SaveAgentSteps(ctx context.Context) error {
	immediateSteps := a.SSEHandler.GetImmediateSteps()
	return a.ChatHistory.SetImmediateSteps(ctx, immediateSteps)
}

// SearchHits 返回本轮检索命中的分片
func (a *Agent) SearchHits() []knowledgebase.ChunkHit {
	if a.SearchTool == nil {
		return nil
	}
	return a.SearchTool.Hits()
}

// SaveSources 把本轮检索命中的分片作为引用来源存入Agent消息
func (a *Agent) SaveSources(ctx context.Context) error {
	if a.SearchTool == nil {
		return nil
	}

	hits := a.SearchTool.Hits()
	if len(hits) == 0 {
		return nil
	}

	sourcesJSON, err := json.Marshal(hits)
	if err != nil {
		return err
	}
	return a.ChatHistory.SetSources(ctx, sourcesJSON)
}

func (a *Agent) Close() error {
	if a.MCPClient != nil {
		return a.MCPClient.Close()
	}
	return nil
}

func createMCPClient(c *gin.Context) (*client.Client, error) {
	mcpServerPath := fmt.Sprintf("http://%s:%s/mcp", config.Cfg.MCP.Host, config.Cfg.MCP.Port)
	mcpClient, err := client.NewStreamableHttpClient(mcpServerPath,
		transport.WithHTTPBasicClient(mcpHTTPClient),
		transport.WithHTTPHeaders(map[string]string{
			"Authorization": c.GetHeader("Authorization"),
		}),
		transport.WithContinuousListening(),
	)
	if err != nil {
		return nil, err
	}
	return mcpClient, nil
}

// 返回用户选择的工具
func getMCPTools(mcpClient *client.Client, toolNames []string) ([]tools.Tool, error) {
	if len(toolNames) == 0 {
		return nil, nil
	}

	// 初始化与 MCP 服务端的连接
	mcpAdapter, err := mcpadapter.New(mcpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp adapter: %v", err)
	}

	mcpTools, err := mcpAdapter.Tools()
	if err != nil {
		return nil, fmt.Errorf("failed to get mcp tools: %v", err)
	}

	toolMap := make(map[string]bool)
	for _, name := range toolNames {
		toolMap[name] = true
	}

	var filteredTools []tools.Tool
	for _, tool := range mcpTools {
		if toolMap[tool.Name()] {
			filteredTools = append(filteredTools, tool)
		}
	}

	return filteredTools, nil
}

// 注册通知处理方法，接收 MCP 服务端推送的工具调用结果
func registerMCPClientNotifications(ctx context.Context, mcpClient *client.Client, sseHandler *GinSSEHandler) {
	mcpClient.OnNotification(func(notification mcp.JSONRPCNotification) {
		if notification.Method != methodToolCompleted {
			return
		}

		results, ok := notification.Params.AdditionalFields["result"].([]any)
		if !ok {
			slog.Error("invalid tool call result type")
			return
		}

		for _, res := range results {
			if content, ok := res.(map[string]any); ok {
				switch contentType := content["type"].(string); contentType {
				case "text":
					textContent := content["text"].(string)
					sseHandler.HandleToolEnd(ctx, textContent)
				}
			}
		}
	})
}
