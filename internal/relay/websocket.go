package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"signclient/internal/domain"
)

// Connection tuning shared by client and server.
const (
	wsBufferSize       = 64 * 1024
	wsMaxMessageSize   = 1 << 20
	wsHandshakeTimeout = 10 * time.Second
	wsWriteTimeout     = 10 * time.Second
)

// Compile-time assertion that WebSocket implements domain.Relayer.
var _ domain.Relayer = (*WebSocket)(nil)

// WebSocket is a Relayer connected to a relay Server.
type WebSocket struct {
	url   string
	conn  *websocket.Conn
	log   *zap.Logger
	inbox *queue[domain.MessageEvent]
	done  chan struct{}

	writeMu sync.Mutex

	mu       sync.Mutex
	subs     map[string]string
	handlers []func(domain.MessageEvent)
}

// DialWebSocket connects to the relay at url, e.g. ws://127.0.0.1:8080/ws.
func DialWebSocket(ctx context.Context, url string, log *zap.Logger) (*WebSocket, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dialer := &websocket.Dialer{
		ReadBufferSize:   wsBufferSize,
		WriteBufferSize:  wsBufferSize,
		HandshakeTimeout: wsHandshakeTimeout,
	}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial relay %s: %s: %w", url, resp.Status, err)
		}
		return nil, fmt.Errorf("dial relay %s: %w", url, err)
	}
	conn.SetReadLimit(wsMaxMessageSize)

	ws := &WebSocket{
		url:   url,
		conn:  conn,
		log:   log.Named("relay").With(zap.String("url", url)),
		inbox: newQueue[domain.MessageEvent](),
		done:  make(chan struct{}),
		subs:  map[string]string{},
	}
	go ws.readLoop()
	go ws.dispatch()
	ws.log.Debug("connected")
	return ws, nil
}

// Subscribe joins topic on the relay.
func (ws *WebSocket) Subscribe(_ context.Context, topic string, _ domain.SubscribeOptions) (string, error) {
	ws.mu.Lock()
	if id, ok := ws.subs[topic]; ok {
		ws.mu.Unlock()
		return id, nil
	}
	id := uuid.NewString()
	ws.subs[topic] = id
	ws.mu.Unlock()

	if err := ws.write(frame{Type: frameSubscribe, Topic: topic, ID: id}); err != nil {
		ws.mu.Lock()
		delete(ws.subs, topic)
		ws.mu.Unlock()
		return "", fmt.Errorf("subscribe %s: %w", topic, err)
	}
	ws.log.Debug("subscribe", zap.String("topic", topic))
	return id, nil
}

// Unsubscribe leaves topic. Unknown topics are ignored.
func (ws *WebSocket) Unsubscribe(_ context.Context, topic string) error {
	ws.mu.Lock()
	id, ok := ws.subs[topic]
	delete(ws.subs, topic)
	ws.mu.Unlock()
	if !ok {
		return nil
	}
	if err := ws.write(frame{Type: frameUnsubscribe, Topic: topic, ID: id}); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", topic, err)
	}
	ws.log.Debug("unsubscribe", zap.String("topic", topic))
	return nil
}

// Publish sends message on topic.
func (ws *WebSocket) Publish(_ context.Context, topic string, message []byte) error {
	if err := ws.write(frame{Type: framePublish, Topic: topic, Message: message}); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	ws.log.Debug("publish", zap.String("topic", topic))
	return nil
}

// OnMessage registers handler.
func (ws *WebSocket) OnMessage(handler func(domain.MessageEvent)) {
	ws.mu.Lock()
	ws.handlers = append(ws.handlers, handler)
	ws.mu.Unlock()
}

// Close says goodbye to the relay and waits for delivery to stop.
func (ws *WebSocket) Close() error {
	ws.writeMu.Lock()
	_ = ws.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(wsWriteTimeout))
	ws.writeMu.Unlock()
	err := ws.conn.Close()
	<-ws.done
	return err
}

func (ws *WebSocket) write(f frame) error {
	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()
	if err := ws.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return ws.conn.WriteJSON(f)
}

func (ws *WebSocket) readLoop() {
	defer ws.inbox.close()
	for {
		var f frame
		if err := ws.conn.ReadJSON(&f); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				ws.log.Debug("read loop ended", zap.Error(err))
			}
			return
		}
		if f.Type != frameMessage {
			ws.log.Warn("unexpected frame", zap.String("type", f.Type))
			continue
		}
		ws.inbox.push(domain.MessageEvent{Topic: f.Topic, Message: f.Message})
	}
}

func (ws *WebSocket) dispatch() {
	defer close(ws.done)
	for {
		ev, ok := ws.inbox.pop(context.Background())
		if !ok {
			return
		}
		ws.mu.Lock()
		handlers := append([]func(domain.MessageEvent){}, ws.handlers...)
		ws.mu.Unlock()
		for _, h := range handlers {
			h(ev)
		}
	}
}
