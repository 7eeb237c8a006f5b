package main

import (
	"log/slog"

	"knowledge-agent-backend/dao"
	"knowledge-agent-backend/router"
	"knowledge-agent-backend/service/mq"
	"knowledge-agent-backend/service/summarization"
)

func main() {
	if err := dao.Init(); err != nil {
		slog.Error("Failed to init database", "err", err)
		return
	}

	if err := mq.RunProducer(); err != nil {
		slog.Error("Failed to start mq producer", "err", err)
		return
	}
	defer mq.Shutdown()

	summarization.SummarizerInstance.Run()

	r := router.Register()
	if err := r.Run(":8080"); err != nil {
		slog.Error("Server exited", "err", err)
	}
}
