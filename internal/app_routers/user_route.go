package approuters

import (
	"github.com/gin-gonic/gin"

	"blogchat/internal/configuration"
)

func UserRouters(api *gin.RouterGroup, container *configuration.Container) {
	userRoute := api.Group("/users")
	{
		userRoute.GET("/online", container.UserHandler.GetOnlineUsers)
		userRoute.GET("/:id/presence", container.UserHandler.GetPresence)
	}
}
