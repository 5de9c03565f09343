package rooms

type createRoomRequest struct {
	Name        string `json:"name"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type joinRoomRequest struct {
	RoomID      string `json:"roomId,omitempty"`
	RoomName    string `json:"roomName,omitempty"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type joinResponse struct {
	RoomID    string `json:"roomId"`
	RoomName  string `json:"roomName"`
	SessionID string `json:"sessionId"`
}
