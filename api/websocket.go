package api

import (
	"encoding/json"
	"net/http"
	"sync"

	log "github.com/agorascan/agorascan-node/common/logger"
	"github.com/agorascan/agorascan-node/common/utils"
	"github.com/agorascan/agorascan-node/core"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // wallets and explorers connect from anywhere
	},
}

// WSEventType event type
type WSEventType string

const (
	EventNewBlock       WSEventType = "new_block"
	EventNewTransaction WSEventType = "new_transaction"
	EventLatestStats    WSEventType = "latest_stats"
)

// WSMessage WebSocket message structure
type WSMessage struct {
	Event WSEventType `json:"event"`
	Data  interface{} `json:"data"`
}

// StatsProvider supplies the current aggregate counters for the stats tick
// and the on-connect snapshot.
type StatsProvider func() interface{}

// WSHub client connection management
type WSHub struct {
	clients       map[*WSClient]bool
	broadcast     chan WSMessage
	register      chan *WSClient
	unregister    chan *WSClient
	mu            sync.RWMutex
	statsProvider StatsProvider
}

// WSClient WebSocket client
type WSClient struct {
	hub  *WSHub
	conn *websocket.Conn
	send chan []byte
}

// NewWSHub creates new Hub
func NewWSHub() *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan WSMessage, 64),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
	}
}

// SetStatsProvider sets the stats snapshot callback
func (h *WSHub) SetStatsProvider(provider StatsProvider) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statsProvider = provider
}

func (h *WSHub) statsMessage() []byte {
	h.mu.RLock()
	provider := h.statsProvider
	h.mu.RUnlock()

	if provider == nil {
		return nil
	}

	data, _ := json.Marshal(WSMessage{Event: EventLatestStats, Data: provider()})
	return data
}

// Run runs the Hub
func (h *WSHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Debug("WebSocket client connected. Total:", len(h.clients))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			log.Debug("WebSocket client disconnected. Total:", len(h.clients))

		case message := <-h.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				log.Error("Failed to marshal WebSocket message:", err)
				continue
			}

			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					// a slow subscriber never blocks the mutator
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// BroadcastNewBlock broadcasts new block notification
func (h *WSHub) BroadcastNewBlock(blk *core.Block, blockTime int64) {
	h.broadcast <- WSMessage{
		Event: EventNewBlock,
		Data: map[string]interface{}{
			"height":   blk.Header.Height,
			"hash":     utils.HashToString(blk.Header.Hash),
			"prevHash": utils.HashToString(blk.Header.PrevHash),
			"txCount":  len(blk.Transactions),
			"time":     blockTime,
		},
	}
}

// BroadcastNewTransactions broadcasts every transaction of a committed
// block as one event.
func (h *WSHub) BroadcastNewTransactions(blk *core.Block) {
	blkHash := utils.HashToString(blk.Header.Hash)
	txs := make([]map[string]interface{}, 0, len(blk.Transactions))
	for _, tx := range blk.Transactions {
		txs = append(txs, map[string]interface{}{
			"height":    blk.Header.Height,
			"blockHash": blkHash,
			"txHash":    utils.HashToString(tx.Hash()),
			"tx":        tx,
		})
	}

	h.broadcast <- WSMessage{
		Event: EventNewTransaction,
		Data:  txs,
	}
}

// BroadcastStats broadcasts the aggregate counters tick
func (h *WSHub) BroadcastStats(stats interface{}) {
	h.broadcast <- WSMessage{
		Event: EventLatestStats,
		Data:  stats,
	}
}

// GetClientCount returns connected client count
func (h *WSHub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket WebSocket connection handler
func HandleWebSocket(hub *WSHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("WebSocket upgrade error:", err)
			return
		}

		client := &WSClient{
			hub:  hub,
			conn: conn,
			send: make(chan []byte, 256),
		}

		hub.register <- client

		// Send connection success message to client
		welcomeMsg := WSMessage{
			Event: "connected",
			Data: map[string]interface{}{
				"message": "Connected to Agorascan WebSocket",
			},
		}
		data, _ := json.Marshal(welcomeMsg)
		client.send <- data

		// Send current stats immediately after connection
		if statsData := hub.statsMessage(); statsData != nil {
			client.send <- statsData
		}

		// Start read/write goroutines
		go client.writePump()
		go client.readPump()
	}
}

// writePump sends message to client
func (c *WSClient) writePump() {
	defer func() {
		c.conn.Close()
	}()

	for {
		message, ok := <-c.send
		if !ok {
			// If channel closed, send normal close message
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived) {
				log.Error("WebSocket write error:", err)
			} else {
				log.Debug("WebSocket write closed:", err)
			}
			return
		}
	}
}

// readPump receives message from client
func (c *WSClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			// Do not log normal client closure as error
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
				websocket.CloseAbnormalClosure) {
				log.Error("WebSocket read error:", err)
			} else {
				log.Debug("WebSocket client disconnected:", err)
			}
			break
		}
		// Handle client message (currently ignored)
	}
}
