package router

import (
	"knowledge-agent-backend/controller"
	"knowledge-agent-backend/middleware"

	"github.com/gin-gonic/gin"
)

func Register() *gin.Engine {
	r := gin.Default()
	r.Use(middleware.CORSMiddleware())

	api := r.Group("/api")
	{
		public := api.Group("/user")
		{
			public.POST("/register", controller.UserRegister)
			public.POST("/login", controller.UserLogin)
		}

		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			protected.POST("/session", controller.CreateSession)
			protected.GET("/sessions", controller.GetSessions)
			protected.DELETE("/session/:id", controller.DeleteSession)
			protected.GET("/session/:id/messages", controller.GetSessionMessages)
			protected.PUT("/session/:id/title", controller.UpdateSessionTitle)

			protected.POST("/chat", controller.AgentChat)

			protected.POST("/brain", controller.CreateBrain)
			protected.GET("/brains", controller.GetBrains)
			protected.PUT("/brain/:id", controller.UpdateBrain)
			protected.DELETE("/brain/:id", controller.DeleteBrain)
			protected.GET("/brain/:id/knowledge", controller.GetKnowledgeByBrain)

			protected.GET("/oss/policy-token", controller.GetPolicyToken)
			protected.POST("/knowledge/upload", controller.UploadKnowledge)
			protected.POST("/knowledge/crawl", controller.CrawlWebKnowledge)
			protected.POST("/knowledge/sync", controller.AddSyncKnowledge)
			protected.POST("/knowledge/link", controller.LinkKnowledge)
			protected.DELETE("/knowledge/:id", controller.DeleteKnowledge)
			protected.POST("/knowledge/:id/retry", controller.RetryKnowledge)
			protected.GET("/knowledge/download-link", controller.GetPresignedURL)
			protected.GET("/knowledge/search", controller.SearchKnowledge)

			protected.POST("/sync", controller.CreateSync)
			protected.GET("/syncs", controller.GetSyncs)
			protected.DELETE("/sync/:id", controller.DeleteSync)
			protected.GET("/sync/:id/files", controller.ListSyncFolder)
		}
	}

	return r
}
