package http

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/oddslab/edgegate/internal/pipeline"
)

// streamHub fans evaluation verdicts out to connected websocket clients. A
// slow client is dropped rather than allowed to block the evaluation path.
type streamHub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]chan pipeline.Verdict
}

func newStreamHub() *streamHub {
	return &streamHub{conns: make(map[*websocket.Conn]chan pipeline.Verdict)}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1")
	},
}

// Stream upgrades the connection and pushes one JSON message per evaluation.
func (h *Handlers) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	h.hub.add(conn)
}

func (hub *streamHub) add(conn *websocket.Conn) {
	ch := make(chan pipeline.Verdict, 16)
	hub.mu.Lock()
	hub.conns[conn] = ch
	hub.mu.Unlock()

	go hub.writeLoop(conn, ch)
	go hub.readLoop(conn)
}

func (hub *streamHub) remove(conn *websocket.Conn) {
	hub.mu.Lock()
	if ch, ok := hub.conns[conn]; ok {
		close(ch)
		delete(hub.conns, conn)
	}
	hub.mu.Unlock()
	conn.Close()
}

func (hub *streamHub) broadcast(v pipeline.Verdict) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	for conn, ch := range hub.conns {
		select {
		case ch <- v:
		default:
			// Buffer full: the client is not keeping up.
			log.Warn().Str("remote", conn.RemoteAddr().String()).Msg("dropping slow stream client")
			close(ch)
			delete(hub.conns, conn)
			conn.Close()
		}
	}
}

func (hub *streamHub) writeLoop(conn *websocket.Conn, ch <-chan pipeline.Verdict) {
	for v := range ch {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(v); err != nil {
			hub.remove(conn)
			return
		}
	}
}

// readLoop drains client frames so pings are answered and closes are seen.
func (hub *streamHub) readLoop(conn *websocket.Conn) {
	for {
		if _, _, err := conn.NextReader(); err != nil {
			hub.remove(conn)
			return
		}
	}
}
