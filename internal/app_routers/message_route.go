package approuters

import (
	"github.com/gin-gonic/gin"

	"blogchat/internal/configuration"
)

func MessageRouters(api *gin.RouterGroup, container *configuration.Container) {
	messageRoute := api.Group("/messages")
	{
		messageRoute.GET("", container.MessageHandler.GetMessages)
		messageRoute.GET("/global", container.MessageHandler.GetGlobalMessages)
		messageRoute.GET("/private/:userId", container.MessageHandler.GetPrivateMessages)
	}
}
