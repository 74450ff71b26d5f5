package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"blogchat/internal/apperr"
	"blogchat/internal/service"
)

type MessageHandler interface {
	GetMessages(c *gin.Context)
	GetGlobalMessages(c *gin.Context)
	GetPrivateMessages(c *gin.Context)
}

type messageHandler struct {
	service service.MessageService
	logger  *zap.Logger
}

func NewMessageHandler(service service.MessageService, logger *zap.Logger) MessageHandler {
	return &messageHandler{
		service: service,
		logger:  logger,
	}
}

type historyParams struct {
	UserID string `form:"userId" binding:"omitempty,mongodb"`
	Room   string `form:"room" binding:"omitempty,max=64"`
	Limit  int64  `form:"limit" binding:"omitempty,min=1"`
	Skip   int64  `form:"skip" binding:"omitempty,min=0"`
}

// GetMessages returns one page of the direct conversation with userId, or of a room.
// @Router /api/messages [get]
func (h *messageHandler) GetMessages(c *gin.Context) {
	var params historyParams
	if err := c.ShouldBindQuery(&params); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", apperr.ErrValidation, err))
		return
	}
	h.respond(c, service.HistoryQuery{
		UserID: params.UserID,
		Room:   params.Room,
		Limit:  params.Limit,
		Skip:   params.Skip,
	})
}

// @Router /api/messages/global [get]
func (h *messageHandler) GetGlobalMessages(c *gin.Context) {
	var params historyParams
	if err := c.ShouldBindQuery(&params); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", apperr.ErrValidation, err))
		return
	}
	h.respond(c, service.HistoryQuery{Limit: params.Limit, Skip: params.Skip})
}

// @Router /api/messages/private/{userId} [get]
func (h *messageHandler) GetPrivateMessages(c *gin.Context) {
	var params historyParams
	if err := c.ShouldBindQuery(&params); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", apperr.ErrValidation, err))
		return
	}
	params.UserID = c.Param("userId")
	h.respond(c, service.HistoryQuery{
		UserID: params.UserID,
		Limit:  params.Limit,
		Skip:   params.Skip,
	})
}

func (h *messageHandler) respond(c *gin.Context, q service.HistoryQuery) {
	identity := currentIdentity(c)

	msgs, err := h.service.History(c.Request.Context(), identity.ID, q)
	if err != nil {
		h.logger.Info("history query failed",
			zap.String("user_id", identity.ID),
			zap.Error(err))
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"messages": msgs,
	})
}
