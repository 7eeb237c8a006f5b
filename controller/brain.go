package controller

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"knowledge-agent-backend/dao"
	"knowledge-agent-backend/model"
	"knowledge-agent-backend/request"
	"knowledge-agent-backend/response"
)

func CreateBrain(c *gin.Context) {
	var req request.CreateBrainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	email := c.GetString("email")
	brain := &model.Brain{
		ID:          uuid.New(),
		UserEmail:   email,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := dao.CreateBrain(brain); err != nil {
		slog.Error(ErrCreateBrain.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrCreateBrain.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, response.Response{
		Data: response.BrainResponse{
			ID:          brain.ID,
			Name:        brain.Name,
			Description: brain.Description,
			CreatedAt:   brain.CreatedAt,
		},
	})
}

func GetBrains(c *gin.Context) {
	email := c.GetString("email")
	brains, err := dao.GetBrainsByEmail(email)
	if err != nil {
		slog.Error(ErrGetBrains.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetBrains.Error(),
		})
		return
	}

	var resp response.GetBrainsResponse
	for _, b := range brains {
		resp.Brains = append(resp.Brains, response.BrainResponse{
			ID:          b.ID,
			Name:        b.Name,
			Description: b.Description,
			CreatedAt:   b.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, response.Response{
		Data: resp,
	})
}

func UpdateBrain(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	var req request.UpdateBrainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	email := c.GetString("email")
	if err := dao.UpdateBrain(email, id, req.Name, req.Description); err != nil {
		slog.Error(ErrUpdateBrain.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrUpdateBrain.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{})
}

// DeleteBrain 只解除Brain与知识的关联，知识本身不受影响
func DeleteBrain(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	email := c.GetString("email")
	if err := dao.DeleteBrain(email, id); err != nil {
		slog.Error(ErrDeleteBrain.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrDeleteBrain.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{})
}
