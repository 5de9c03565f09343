package ws

// Wire event names. The client→server set is a closed protocol: anything
// else read off a connection is dropped at the boundary.
const (
	EventJoinRoom        = "join-room"
	EventSendMessage     = "send-message"
	EventVaporizeHistory = "vaporize-history"
	EventExitRoom        = "exit-room"

	EventJoinOK          = "join-ok"
	EventJoinError       = "join-error"
	EventMessage         = "message"
	EventMessagesCleared = "messages-cleared"
	EventExitOK          = "exit-ok"
	EventUserLeft        = "user-left"
)
