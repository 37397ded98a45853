package relay

// Frame types.
const (
	frameSubscribe   = "subscribe"
	frameUnsubscribe = "unsubscribe"
	framePublish     = "publish"
	frameMessage     = "message"
)

// frame is one WebSocket text message between client and server.
// Message is base64 in JSON.
type frame struct {
	Type    string `json:"type"`
	Topic   string `json:"topic"`
	Message []byte `json:"message,omitempty"`
	ID      string `json:"id,omitempty"`
}
