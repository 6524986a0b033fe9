package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/deadman-dev/deadman/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	userClients   = make(map[uint]map[*websocket.Conn]bool)
	userClientsMu sync.RWMutex
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin is enforced by the CORS layer
	},
}

// TriggerEvent is pushed to a user's open sockets when one of their switches
// fires.
type TriggerEvent struct {
	Event       string `json:"event"`
	SwitchID    uint   `json:"switch_id"`
	Title       string `json:"title"`
	TriggeredAt string `json:"triggered_at"`
}

// BroadcastSwitchTriggered notifies every open connection of the given user.
// Dead connections are dropped.
func BroadcastSwitchTriggered(userID uint, event TriggerEvent) {
	userClientsMu.RLock()
	clients, exists := userClients[userID]
	if !exists || len(clients) == 0 {
		userClientsMu.RUnlock()
		return
	}

	clientsCopy := make([]*websocket.Conn, 0, len(clients))
	for conn := range clients {
		clientsCopy = append(clientsCopy, conn)
	}
	userClientsMu.RUnlock()

	for _, conn := range clientsCopy {
		conn.SetWriteDeadline(time.Now().Add(writeWait))

		if err := conn.WriteJSON(event); err != nil {
			logger.Named("ws").Warn("Dropping dead websocket client",
				zap.Uint("user_id", userID),
				zap.Error(err))
			removeClient(userID, conn)
			conn.Close()
		}
	}
}

// Serve upgrades the request and keeps the connection registered until the
// client goes away. The handler only pushes events; inbound messages are
// discarded.
func Serve(ctx *gin.Context, userID uint) {
	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)

	if err != nil {
		logger.Named("ws").Warn("Failed to upgrade websocket", zap.Error(err))
		return
	}

	addClient(userID, conn)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go func() {
		defer func() {
			removeClient(userID, conn)
			conn.Close()
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func addClient(userID uint, conn *websocket.Conn) {
	userClientsMu.Lock()
	defer userClientsMu.Unlock()

	if userClients[userID] == nil {
		userClients[userID] = make(map[*websocket.Conn]bool)
	}

	userClients[userID][conn] = true
}

func removeClient(userID uint, conn *websocket.Conn) {
	userClientsMu.Lock()
	defer userClientsMu.Unlock()

	if clients, exists := userClients[userID]; exists {
		delete(clients, conn)

		if len(clients) == 0 {
			delete(userClients, userID)
		}
	}
}
