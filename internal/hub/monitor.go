package hub

import "blogchat/internal/model"

// MonitorService gathers hub statistics for the monitor API.
type MonitorService struct {
	conns    *Connections
	rooms    *Rooms
	presence *PresenceRegistry
}

func NewMonitorService(conns *Connections, rooms *Rooms, presence *PresenceRegistry) *MonitorService {
	return &MonitorService{conns: conns, rooms: rooms, presence: presence}
}

// GetStats returns "healthy" while anyone is online, "idle" otherwise.
func (ms *MonitorService) GetStats() model.MonitorResponse {
	online := ms.presence.Snapshot()
	rooms := ms.rooms.Stats()

	status := "healthy"
	if len(online) == 0 {
		status = "idle"
	}

	// users without a status are counted as "online"
	statusCount := make(map[string]int)
	for _, u := range online {
		s := u.Status
		if s == "" {
			s = "online"
		}
		statusCount[s]++
	}

	return model.MonitorResponse{
		Status: status,
		Connections: model.ConnectionStats{
			OnlineUsers:     len(online),
			OpenConnections: ms.conns.Len(),
		},
		Rooms: model.RoomStats{
			TotalRooms:  len(rooms),
			RoomDetails: rooms,
		},
		StatusCount: statusCount,
	}
}
