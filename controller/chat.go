package controller

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"

	"knowledge-agent-backend/request"
	"knowledge-agent-backend/service/chat"
	"knowledge-agent-backend/service/summarization"
	"knowledge-agent-backend/utils"
)

func AgentChat(c *gin.Context) {
	utils.SetSSEHeaders(c)

	var req request.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		utils.SendSSEMessage(c, utils.EventError, ErrParseRequest)
		utils.SendSSEMessage(c, utils.EventDone, "")
		return
	}

	agent, err := chat.NewAgent(c, req)
	if err != nil {
		slog.Error(ErrCreateAgent.Error(), "err", err)
		utils.SendSSEMessage(c, utils.EventError, ErrCreateAgent)
		utils.SendSSEMessage(c, utils.EventDone, "")
		return
	}
	defer agent.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// 监听客户端的取消信号
	go func() {
		<-c.Done()
		cancel()
	}()

	if _, err := agent.Call(ctx, req); err != nil {
		slog.Error(ErrCallAgent.Error(), "err", err)
		utils.SendSSEMessage(c, utils.EventError, ErrCallAgent)
		utils.SendSSEMessage(c, utils.EventDone, "")
		return
	}

	if err := agent.SaveAgentSteps(ctx); err != nil {
		slog.Error("Failed to save agent steps", "err", err)
	}

	// 推送并落库本轮引用的知识来源
	if hits := agent.SearchHits(); len(hits) > 0 {
		utils.SendSSEMessage(c, utils.EventSources, hits)
	}
	if err := agent.SaveSources(ctx); err != nil {
		slog.Error("Failed to save sources", "err", err)
	}

	utils.SendSSEMessage(c, utils.EventDone, "")

	summarization.SummarizerInstance.RegisterSummaryTask(summarization.SummaryTask{
		MessageIDs: []uint{
			agent.ChatHistory.UserMessageID,
			agent.ChatHistory.AgentMessageID,
		},
	})
}
