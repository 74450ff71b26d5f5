package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"blogchat/internal/service"
)

type UserHandler interface {
	GetOnlineUsers(c *gin.Context)
	GetPresence(c *gin.Context)
}

type userHandler struct {
	service service.UserService
}

func NewUserHandler(service service.UserService) UserHandler {
	return &userHandler{
		service: service,
	}
}

// @Router /api/users/online [get]
func (h *userHandler) GetOnlineUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"users":   h.service.OnlineUsers(),
	})
}

// @Router /api/users/{id}/presence [get]
func (h *userHandler) GetPresence(c *gin.Context) {
	status, err := h.service.Presence(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"online":   status.Online,
		"status":   status.Status,
		"lastSeen": status.LastSeen,
	})
}
