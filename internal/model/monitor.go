package model

// -----------------------------------------------------------------
// Monitor API Response Models
// -----------------------------------------------------------------

// MonitorResponse is the main response for the monitor API
type MonitorResponse struct {
	Status      string          `json:"status"`      // "healthy" or "idle"
	Connections ConnectionStats `json:"connections"` // Presence registry stats
	Rooms       RoomStats       `json:"rooms"`       // Room membership stats
	StatusCount map[string]int  `json:"statusCount"` // Count by free-form status
}

// ConnectionStats holds connection-related statistics
type ConnectionStats struct {
	OnlineUsers     int `json:"onlineUsers"`     // Distinct users in the presence registry
	OpenConnections int `json:"openConnections"` // Live sockets, including replaced ones not yet closed
}

// RoomStats holds room statistics
type RoomStats struct {
	TotalRooms  int        `json:"totalRooms"`
	RoomDetails []RoomInfo `json:"roomDetails"`
}

// RoomInfo contains information about a single room
type RoomInfo struct {
	Room        string `json:"room"`
	Connections int    `json:"connections"`
}
