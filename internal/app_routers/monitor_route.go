package approuters

import (
	"github.com/gin-gonic/gin"

	"blogchat/internal/configuration"
)

// MonitorRouters sets up monitoring API routes
func MonitorRouters(api *gin.RouterGroup, container *configuration.Container) {
	monitorGroup := api.Group("/monitor")
	{
		// GET /api/monitor/stats - presence and room statistics
		monitorGroup.GET("/stats", container.MonitorHandler.GetHubStats)
	}
}
