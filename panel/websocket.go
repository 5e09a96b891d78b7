package panel

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sidekick-ai/sidekick/logging"
)

const writeTimeout = 10 * time.Second

// Server hosts the panel protocol over a WebSocket endpoint. One panel client
// is served at a time; a new connection replaces the previous one. Writes are
// serialized with a mutex because gorilla connections allow only one
// concurrent writer.
type Server struct {
	logger   logging.Logger
	upgrader websocket.Upgrader

	mu   sync.Mutex
	conn *websocket.Conn
}

// ServerOptions configure a Server.
type ServerOptions struct {
	Logger logging.Logger
	// CheckOrigin overrides the default same-origin policy. Editor webviews
	// connect with a null or custom-scheme origin, so hosts typically allow
	// everything on loopback.
	CheckOrigin func(r *http.Request) bool
}

// NewServer constructs a WebSocket panel server.
func NewServer(optFns ...func(o *ServerOptions)) *Server {
	opts := ServerOptions{
		Logger:      logging.NoOpLogger{},
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Server{
		logger: opts.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     opts.CheckOrigin,
		},
	}
}

// Emit implements Emitter by writing one JSON frame to the connected client.
// Emitting with no client connected is a silent no-op; the panel re-requests
// state on reconnect.
func (s *Server) Emit(command string, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	frame, err := json.Marshal(OutboundEnvelope{Command: command, Payload: payload})
	if err != nil {
		return err
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

// Handler returns the http.Handler serving the panel endpoint. controller
// receives every inbound frame on the connection's read loop.
func (s *Server) Handler(ctx context.Context, controller *Controller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Warn("panel.ws.upgrade_failed", "error", err.Error())
			return
		}
		s.attach(conn)
		defer s.detach(conn)

		s.logger.Info("panel.ws.connected", "remote", conn.RemoteAddr().String())
		s.readLoop(ctx, conn, controller)
	})
}

func (s *Server) attach(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.conn = conn
}

func (s *Server) detach(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == conn {
		s.conn = nil
	}
	conn.Close()
}

// readLoop services frames serially until the connection drops or ctx ends.
func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, controller *Controller) {
	for {
		if ctx.Err() != nil {
			return
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("panel.ws.read_failed", "error", err.Error())
			}
			return
		}
		controller.HandleMessage(ctx, raw)
	}
}

// ListenAndServe runs an HTTP server exposing the panel endpoint at path
// until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr, path string, controller *Controller) error {
	mux := http.NewServeMux()
	mux.Handle(path, s.Handler(ctx, controller))

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("panel.ws.listening", "addr", addr, "path", path)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
