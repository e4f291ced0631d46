package domain

// WebSocket frame types from client.
const (
	MsgTypeSendDirect   = "send_direct"
	MsgTypeSendRoom     = "send_room"
	MsgTypeLoadHistory  = "load_history"
	MsgTypeJoinChannels = "join_channels"
	MsgTypePing         = "ping"
)

// WebSocket frame types to client.
const (
	MsgTypeMessage   = "msg"
	MsgTypeHistory   = "history"
	MsgTypeAck       = "ack"
	MsgTypeError     = "error"
	MsgTypeConnected = "connected"
	MsgTypePong      = "pong"
)

// ClientFrame is the union of every client -> server frame.
type ClientFrame struct {
	Type      string   `json:"type"`
	RequestID string   `json:"requestId,omitempty"`
	ToUserID  string   `json:"toUserId,omitempty"`
	RoomID    string   `json:"roomId,omitempty"`
	Text      string   `json:"text,omitempty"`
	Channel   string   `json:"channel,omitempty"`
	AfterID   string   `json:"afterId,omitempty"`
	Take      int      `json:"take,omitempty"`
	Channels  []string `json:"channels,omitempty"`
}

// Server -> Client frames

type MessageFrame struct {
	Type    string       `json:"type"`
	Message *ChatMessage `json:"message"`
}

func NewMessageFrame(m *ChatMessage) *MessageFrame {
	return &MessageFrame{Type: MsgTypeMessage, Message: m}
}

type HistoryFrame struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
	*HistoryPage
}

type AckFrame struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
	Op        string `json:"op"`
	MessageID string `json:"messageId,omitempty"`
}

type ConnectedFrame struct {
	Type         string `json:"type"`
	ConnectionID string `json:"connectionId"`
	UserID       string `json:"userId"`
}

type PongFrame struct {
	Type string `json:"type"`
}

type ErrorFrame struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

func NewErrorFrame(requestID, code, message string) *ErrorFrame {
	return &ErrorFrame{
		Type:      MsgTypeError,
		RequestID: requestID,
		Code:      code,
		Message:   message,
	}
}
