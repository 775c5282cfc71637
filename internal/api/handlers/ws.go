package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/api/middleware"
	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/service"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSHandler streams room snapshots to the client over a websocket.
// The socket is one-way: commands travel over the HTTP endpoints and
// every state change comes back here as a full room document.
type WSHandler struct {
	game *service.GameService
	log  zerolog.Logger
}

func NewWSHandler(game *service.GameService, log zerolog.Logger) *WSHandler {
	return &WSHandler{game: game, log: log.With().Str("component", "ws").Logger()}
}

func (h *WSHandler) Stream(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	session := h.game.Session(user)
	session.RegisterStream()
	defer session.UnregisterStream()

	done := make(chan struct{})
	go h.readPump(conn, done)
	h.writePump(conn, session, done)
}

// readPump only services control frames; any data frame from the
// client is discarded.
func (h *WSHandler) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Debug().Err(err).Msg("websocket read error")
			}
			return
		}
	}
}

func (h *WSHandler) writePump(conn *websocket.Conn, session *service.Session, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case update := <-session.Updates():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			data, err := json.Marshal(update)
			if err != nil {
				h.log.Error().Err(err).Msg("failed to marshal room update")
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
