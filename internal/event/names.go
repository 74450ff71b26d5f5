package event

// Event Types - Client to Server
const (
	// EventSendMessage - Send a chat message to a room or a user
	EventSendMessage = "sendMessage"

	// EventTyping - Sender started typing in a room or to a user
	EventTyping = "typing"

	// EventStopTyping - Sender stopped typing (explicitly or by idle timeout)
	EventStopTyping = "stopTyping"

	// EventUpdateStatus - Change the free-form presence status
	EventUpdateStatus = "updateStatus"

	// EventSendNotification - Relay a typed payload to one online user
	EventSendNotification = "sendNotification"

	// EventMarkNotificationRead - Acknowledge a notification
	EventMarkNotificationRead = "markNotificationRead"

	EventJoinRoom       = "joinRoom"
	EventLeaveRoom      = "leaveRoom"
	EventGetUserProfile = "getUserProfile"
	EventEditMessage    = "editMessage"
	EventAddReaction    = "addReaction"
	EventMarkRead       = "markRead"
)

// Event Types - Server to Client
const (
	// EventNewMessage - A persisted message delivered to its targets
	EventNewMessage = "newMessage"

	// EventMessageUpdated - An edit, reaction or read receipt was applied
	EventMessageUpdated = "messageUpdated"

	EventUserTyping        = "userTyping"
	EventUserStoppedTyping = "userStoppedTyping"

	// EventOnlineUsers - Full presence snapshot, sent to everyone on every change
	EventOnlineUsers = "onlineUsers"

	EventUserJoined  = "userJoined"
	EventUserLeft    = "userLeft"
	EventUserOffline = "userOffline"

	EventRoomJoined = "roomJoined"
	EventRoomLeft   = "roomLeft"

	EventNotification     = "notification"
	EventNotificationRead = "notificationRead"
	EventUserProfile      = "userProfile"

	// EventError - Sent to the originating connection only
	EventError = "error"
)
