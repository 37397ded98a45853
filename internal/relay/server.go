package relay

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server exposes a Hub to WebSocket clients.
type Server struct {
	hub      *Hub
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// NewServer returns a server routing through hub.
func NewServer(hub *Hub, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		hub: hub,
		log: log.Named("relay-server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  wsBufferSize,
			WriteBufferSize: wsBufferSize,
			// Payloads are end-to-end encrypted; any origin may connect.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP routes: /ws for clients and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// ServeHTTP upgrades the request and serves one client until it disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	conn.SetReadLimit(wsMaxMessageSize)

	client := uuid.NewString()
	log := s.log.With(zap.String("client", client), zap.String("remote", r.RemoteAddr))
	log.Debug("client connected")

	outbox := newQueue[frame]()
	ctx, cancel := context.WithCancel(context.Background())
	written := make(chan struct{})
	go func() {
		defer close(written)
		for {
			f, ok := outbox.pop(ctx)
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(f); err != nil {
				log.Debug("write failed", zap.Error(err))
				cancel()
				return
			}
		}
	}()

	sink := func(topic string, message []byte) {
		outbox.push(frame{Type: frameMessage, Topic: topic, Message: message})
	}

	defer func() {
		s.hub.Disconnect(client)
		outbox.close()
		cancel()
		<-written
		_ = conn.Close()
		log.Debug("client disconnected")
	}()

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			return
		}
		if f.Topic == "" {
			log.Warn("frame without topic", zap.String("type", f.Type))
			continue
		}
		switch f.Type {
		case frameSubscribe:
			s.hub.Subscribe(client, f.Topic, sink)
		case frameUnsubscribe:
			s.hub.Unsubscribe(client, f.Topic)
		case framePublish:
			n := s.hub.Publish(client, f.Topic, f.Message)
			log.Debug("published", zap.String("topic", f.Topic), zap.Int("delivered", n))
		default:
			log.Warn("unknown frame", zap.String("type", f.Type))
		}
	}
}
