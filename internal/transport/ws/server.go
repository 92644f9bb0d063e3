package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/strogmv/forge/internal/domain"
	"github.com/strogmv/forge/internal/progress"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	sendBufferSize = 32
)

// Server upgrades HTTP requests into push-channel subscriptions on the hub.
type Server struct {
	hub      *progress.Hub
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewServer(hub *progress.Hub, log *slog.Logger) *Server {
	return &Server{
		hub: hub,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Serve handles GET /ws/jobs/{jobID}. The connection stays subscribed until
// the client closes it or a write fails.
func (s *Server) Serve(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		http.Error(w, "missing job id", http.StatusBadRequest)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	conn := &subscriberConn{
		ws:    ws,
		jobID: jobID,
		send:  make(chan any, sendBufferSize),
		done:  make(chan struct{}),
	}

	s.hub.Subscribe(jobID, conn)
	s.log.Debug("subscriber attached", slog.String("job_id", jobID))

	conn.enqueue(connectedMsg{Type: TypeConnected, JobID: jobID})

	go conn.writePump()
	s.readPump(conn)
}

// readPump consumes client envelopes until the connection drops. Every exit
// path detaches the subscriber from the hub.
func (s *Server) readPump(conn *subscriberConn) {
	defer func() {
		s.hub.Unsubscribe(conn.jobID, conn)
		conn.close()
		s.log.Debug("subscriber detached", slog.String("job_id", conn.jobID))
	}()

	conn.ws.SetReadLimit(1024)
	_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))

	for {
		_, payload, err := conn.ws.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))

		var msg controlMsg
		if err := json.Unmarshal(payload, &msg); err != nil {
			continue
		}
		if msg.Type == TypePing {
			conn.enqueue(controlMsg{Type: TypePong})
		}
	}
}

// subscriberConn is one registered push-channel connection. Writes are
// serialized through the send channel; Send never blocks the publisher.
type subscriberConn struct {
	ws        *websocket.Conn
	jobID     string
	send      chan any
	done      chan struct{}
	closeOnce sync.Once
}

// Send implements progress.Conn. A full send buffer drops the event for this
// subscriber only; delivery is best-effort by contract.
func (c *subscriberConn) Send(ev domain.Progress) error {
	return c.enqueue(progressMsg{Type: TypeProgress, Progress: ev})
}

func (c *subscriberConn) enqueue(msg any) error {
	select {
	case <-c.done:
		return websocket.ErrCloseSent
	case c.send <- msg:
		return nil
	default:
		return errSendBufferFull
	}
}

func (c *subscriberConn) writePump() {
	defer c.ws.Close()
	for {
		select {
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}

func (c *subscriberConn) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

var errSendBufferFull = errors.New("send buffer full")
