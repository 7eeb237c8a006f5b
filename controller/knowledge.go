package controller

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"knowledge-agent-backend/dao"
	"knowledge-agent-backend/model"
	"knowledge-agent-backend/request"
	"knowledge-agent-backend/response"
	"knowledge-agent-backend/service/ingestion"
	knowledgebase "knowledge-agent-backend/service/knowledge-base"
	"knowledge-agent-backend/service/mq"
)

func GetPolicyToken(c *gin.Context) {
	email := c.GetString("email")
	policyToken, err := knowledgebase.GeneratePolicyToken(email)
	if err != nil {
		slog.Error(ErrGeneratePolicyToken.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGeneratePolicyToken.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Data: policyToken,
	})
}

// UploadKnowledge 在前端将文件成功直传到OSS后调用，
// 登记知识并向MQ投递摄取任务
func UploadKnowledge(c *gin.Context) {
	var req request.UploadKnowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	email := c.GetString("email")
	k, err := knowledgebase.RegisterUploadedKnowledge(c.Request.Context(), req, email)
	if err != nil {
		abortKnowledgeError(c, ErrUploadKnowledge, err)
		return
	}

	enqueueIngest(c, k)

	c.JSON(http.StatusCreated, response.Response{
		Data: toKnowledgeResponse(k),
	})
}

// CrawlWebKnowledge 登记一条网页知识，抓取在Worker侧异步执行
func CrawlWebKnowledge(c *gin.Context) {
	var req request.CrawlWebKnowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	email := c.GetString("email")
	k, err := knowledgebase.RegisterWebKnowledge(c.Request.Context(), req, email)
	if err != nil {
		abortKnowledgeError(c, ErrCrawlWebKnowledge, err)
		return
	}

	enqueueIngest(c, k)

	c.JSON(http.StatusCreated, response.Response{
		Data: toKnowledgeResponse(k),
	})
}

// AddSyncKnowledge 把同步连接下的远端文件/文件夹登记为知识
func AddSyncKnowledge(c *gin.Context) {
	var req request.AddSyncKnowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	email := c.GetString("email")
	k, err := knowledgebase.RegisterSyncKnowledge(c.Request.Context(), req, email)
	if err != nil {
		abortKnowledgeError(c, ErrAddSyncKnowledge, err)
		return
	}

	enqueueIngest(c, k)

	c.JSON(http.StatusCreated, response.Response{
		Data: toKnowledgeResponse(k),
	})
}

func GetKnowledgeByBrain(c *gin.Context) {
	brainID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	knowledge, err := dao.GetKnowledgeByBrain(brainID)
	if err != nil {
		slog.Error(ErrGetKnowledge.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetKnowledge.Error(),
		})
		return
	}

	var resp response.GetKnowledgeResponse
	for i := range knowledge {
		resp.Knowledge = append(resp.Knowledge, toKnowledgeResponse(&knowledge[i]))
	}

	c.JSON(http.StatusOK, response.Response{
		Data: resp,
	})
}

// LinkKnowledge 把已有的知识挂到另一个Brain下
func LinkKnowledge(c *gin.Context) {
	var req request.LinkKnowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	repo := dao.NewKnowledgeRepository(dao.DB)
	if err := repo.LinkKnowledgeToBrain(c.Request.Context(), req.KnowledgeID, req.BrainID); err != nil {
		abortKnowledgeError(c, ErrLinkKnowledge, err)
		return
	}

	c.JSON(http.StatusOK, response.Response{})
}

// DeleteKnowledge 级联删除知识及其后代，向MQ投递向量和OSS对象的清理任务
func DeleteKnowledge(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	deleted, err := knowledgebase.DeleteKnowledge(c.Request.Context(), id)
	if err != nil {
		abortKnowledgeError(c, ErrDeleteKnowledge, err)
		return
	}

	payload := mq.DeleteMessage{}
	for _, k := range deleted {
		payload.KnowledgeIDs = append(payload.KnowledgeIDs, k.ID.String())

		// 只有LOCAL来源的原始文件存放在OSS上
		if k.Source == model.SourceLocal && !k.IsFolder {
			payload.ObjectNames = append(payload.ObjectNames, knowledgebase.ObjectName(k))
		}
	}

	if err := mq.SendMessage(c.Request.Context(), &mq.Message{
		Topic:   mq.TopicKnowledge,
		Tag:     mq.TagDelete,
		Payload: payload,
	}); err != nil {
		slog.Error("Failed to enqueue cleanup task", "knowledge_id", id, "err", err)
	}

	c.JSON(http.StatusOK, response.Response{})
}

// RetryKnowledge 重新投递一条处理失败的知识
func RetryKnowledge(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	repo := dao.NewKnowledgeRepository(dao.DB)
	k, err := repo.GetKnowledge(c.Request.Context(), id)
	if err != nil {
		abortKnowledgeError(c, ErrRetryKnowledge, err)
		return
	}

	enqueueIngest(c, k)

	c.JSON(http.StatusOK, response.Response{})
}

func GetPresignedURL(c *gin.Context) {
	email := c.GetString("email")
	fileName := c.Query("file-name")
	objectName := email + "/" + fileName

	url, err := knowledgebase.GeneratePresignedURL(objectName)
	if err != nil {
		slog.Error(ErrGetPreSignedURL.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetPreSignedURL.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Data: response.GetPreSignedURLResponse{
			URL: url,
		},
	})
}

func SearchKnowledge(c *gin.Context) {
	email := c.GetString("email")
	keyword := c.Query("keyword")

	knowledge, err := dao.SearchKnowledge(email, keyword)
	if err != nil {
		slog.Error(ErrSearchKnowledge.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrSearchKnowledge.Error(),
		})
		return
	}

	var resp response.GetKnowledgeResponse
	for i := range knowledge {
		resp.Knowledge = append(resp.Knowledge, toKnowledgeResponse(&knowledge[i]))
	}

	c.JSON(http.StatusOK, response.Response{
		Data: resp,
	})
}

func enqueueIngest(c *gin.Context, k *model.Knowledge) {
	err := mq.SendMessage(c.Request.Context(), &mq.Message{
		Topic: mq.TopicKnowledge,
		Tag:   mq.TagIngest,
		Payload: mq.IngestMessage{
			KnowledgeID: k.ID.String(),
		},
	})
	if err != nil {
		slog.Error("Failed to enqueue ingest task", "knowledge_id", k.ID, "err", err)
	}
}

func abortKnowledgeError(c *gin.Context, public error, err error) {
	slog.Error(public.Error(), "err", err)

	switch {
	case errors.Is(err, ingestion.ErrDuplicateContent):
		c.AbortWithStatusJSON(http.StatusConflict, response.Response{
			Msg: ErrDuplicateKnowledge.Error(),
		})
	case errors.Is(err, ingestion.ErrKnowledgeNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, response.Response{
			Msg: public.Error(),
		})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: public.Error(),
		})
	}
}

func toKnowledgeResponse(k *model.Knowledge) response.KnowledgeResponse {
	return response.KnowledgeResponse{
		ID:           k.ID,
		FileName:     k.FileName,
		Extension:    k.Extension,
		URL:          k.URL,
		Status:       string(k.Status),
		Source:       string(k.Source),
		SourceLink:   k.SourceLink,
		FileSize:     k.FileSize,
		IsFolder:     k.IsFolder,
		ParentID:     k.ParentID,
		LastSyncedAt: k.LastSyncedAt,
		CreatedAt:    k.CreatedAt,
	}
}
