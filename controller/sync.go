package controller

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"knowledge-agent-backend/dao"
	"knowledge-agent-backend/model"
	"knowledge-agent-backend/request"
	"knowledge-agent-backend/response"
	"knowledge-agent-backend/service/syncprovider"
)

func CreateSync(c *gin.Context) {
	var req request.CreateSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	email := c.GetString("email")
	sync := &model.Sync{
		UserEmail:    email,
		Name:         req.Name,
		Provider:     model.Source(req.Provider),
		Credentials:  req.Credentials,
		SyncInterval: req.SyncInterval,
	}
	if err := dao.CreateSync(sync); err != nil {
		slog.Error(ErrCreateSync.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrCreateSync.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, response.Response{
		Data: toSyncResponse(sync),
	})
}

func GetSyncs(c *gin.Context) {
	email := c.GetString("email")
	syncs, err := dao.GetSyncsByEmail(email)
	if err != nil {
		slog.Error(ErrGetSyncs.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetSyncs.Error(),
		})
		return
	}

	var resp response.GetSyncsResponse
	for i := range syncs {
		resp.Syncs = append(resp.Syncs, toSyncResponse(&syncs[i]))
	}

	c.JSON(http.StatusOK, response.Response{
		Data: resp,
	})
}

func DeleteSync(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	email := c.GetString("email")
	if err := dao.DeleteSync(email, uint(id)); err != nil {
		slog.Error(ErrDeleteSync.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrDeleteSync.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{})
}

// ListSyncFolder 浏览远端文件夹内容，供前端选择要登记的文件
func ListSyncFolder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	repo := dao.NewKnowledgeRepository(dao.DB)
	sync, err := repo.GetSync(c.Request.Context(), uint(id))
	if err != nil {
		slog.Error(ErrListSync.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrListSync.Error(),
		})
		return
	}

	provider, ok := syncprovider.Registry()[sync.Provider]
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrListSync.Error(),
		})
		return
	}

	folderID := c.Query("folder-id")
	files, err := provider.ListChildren(c.Request.Context(), sync.Credentials, folderID)
	if err != nil {
		slog.Error(ErrListSync.Error(), "sync_id", sync.ID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrListSync.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Data: files,
	})
}

func toSyncResponse(s *model.Sync) response.SyncResponse {
	return response.SyncResponse{
		ID:           s.ID,
		Name:         s.Name,
		Provider:     string(s.Provider),
		SyncInterval: s.SyncInterval,
		LastSyncedAt: s.LastSyncedAt,
		CreatedAt:    s.CreatedAt,
	}
}
